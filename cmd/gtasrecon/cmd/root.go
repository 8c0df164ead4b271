package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gtas-reconciliation-service/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gtasrecon",
	Short: "GTAS/ERP reconciliation and validation tool",
	Long: `Gtasrecon reconciles a GTAS reporting extract against an internal
ERP ledger extract. It joins the two datasets on TAS and USSGL account,
classifies every row, applies the configured validation edits, and
emits an exception report plus an FBDI correcting-journal file.

Examples:
  gtasrecon validate --gtas-file gtas.csv --erp-file erp.csv
  gtasrecon validate --gtas-file gtas.csv --erp-file erp.csv --rules-file validation_rules.json
  gtasrecon serve --addr :8080
  gtasrecon version`,
	Version: getVersionString(),

	// Errors are reported once, by the CLI error handler in main
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)

		// If a config file is specified, read it in.
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	// Read environment variables that match
	viper.SetEnvPrefix("GTASRECON")
	viper.AutomaticEnv()

	configureLogging()
}

// configureLogging applies the verbosity and log settings before any
// command runs.
func configureLogging() {
	config := logger.DefaultConfig()

	if viper.GetBool("verbose") {
		config = logger.DebugConfig()
	}

	if level := viper.GetString("log_level"); level != "" {
		config.Level = logger.ParseLevel(level)
	}
	if viper.GetString("log_format") == "json" {
		config.Format = logger.JSONFormat
	}

	log, err := logger.NewLogger(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %s\n", err)
		os.Exit(1)
	}
	logger.SetGlobalLogger(log)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
