package cmd

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gtas-reconciliation-service/internal/engine"
	"gtas-reconciliation-service/internal/rules"
	"gtas-reconciliation-service/internal/server"
	"gtas-reconciliation-service/pkg/logger"
)

var serveAddr string

// serveCmd runs the HTTP service
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reconciliation HTTP service",
	Long: `Serve exposes the reconciliation engine over HTTP: a single POST
endpoint accepting base64-encoded GTAS and ERP extracts in a JSON body
and returning the generated exception report and FBDI journal base64-
encoded in the response.

The rule catalog is loaded once at startup and shared read-only by
every request.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "HTTP listen address")
	serveCmd.Flags().StringVar(&rulesFile, "rules-file", "", "validation rule catalog JSON (optional)")

	viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	catalogPath := rulesFile
	if catalogPath == "" {
		catalogPath = viper.GetString("rules_file")
	}

	catalog := rules.LoadCatalog(catalogPath)
	srv := server.New(engine.New(catalog))

	addr := serveAddr
	if configured := viper.GetString("addr"); configured != "" {
		addr = configured
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.WithComponent("server").WithField("addr", addr).Info("Listening")
	return httpServer.ListenAndServe()
}
