package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gtas-reconciliation-service/internal/engine"
	"gtas-reconciliation-service/internal/reporter"
	"gtas-reconciliation-service/internal/rules"
)

var (
	gtasFile        string
	erpFile         string
	rulesFile       string
	exceptionReport string
	fbdiOutput      string
)

// validateCmd runs one reconciliation from the command line
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Reconcile a GTAS extract against an ERP extract",
	Long: `Validate joins the GTAS and ERP extracts on TAS and USSGL account,
classifies every row, applies the baseline edits plus any catalog-driven
rules, and writes the exception report and FBDI correcting journal.

The rule catalog is optional: without one, the baseline edit set still
runs. A missing or malformed catalog is logged and skipped, never
fatal.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&gtasFile, "gtas-file", "", "GTAS extract CSV (required)")
	validateCmd.Flags().StringVar(&erpFile, "erp-file", "", "ERP extract CSV (required)")
	validateCmd.Flags().StringVar(&rulesFile, "rules-file", "", "validation rule catalog JSON (optional)")
	validateCmd.Flags().StringVar(&exceptionReport, "exception-report", "exception_report.xlsx", "exception report output path")
	validateCmd.Flags().StringVar(&fbdiOutput, "fbdi-output", "fbdi_journal_corrections.csv", "FBDI journal output path")

	validateCmd.MarkFlagRequired("gtas-file")
	validateCmd.MarkFlagRequired("erp-file")

	viper.BindPFlag("rules_file", validateCmd.Flags().Lookup("rules-file"))
}

func runValidate(cmd *cobra.Command, args []string) error {
	catalogPath := rulesFile
	if catalogPath == "" {
		catalogPath = viper.GetString("rules_file")
	}

	catalog := rules.LoadCatalog(catalogPath)
	eng := engine.New(catalog)

	result := eng.Run(engine.RunRequest{
		GtasFile: gtasFile,
		ErpFile:  erpFile,
	})

	if !result.Success {
		if result.Err != nil {
			return result.Err
		}
		return fmt.Errorf("%s", result.Message)
	}

	if err := reporter.WriteExceptionReport(result.Exceptions, exceptionReport); err != nil {
		return err
	}

	if err := reporter.WriteFBDIJournal(result.Corrections, fbdiOutput); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Message)
	for status, count := range result.Summary.StatusCounts {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-16s %d\n", status, count)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exception report: %s\n", exceptionReport)
	fmt.Fprintf(cmd.OutOrStdout(), "FBDI journal:     %s\n", fbdiOutput)

	return nil
}
