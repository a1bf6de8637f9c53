package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/canopyhq/canopy/internal/observability"
	"github.com/canopyhq/canopy/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve report files over HTTP",
	Long: `Serve health, version, and report endpoints over HTTP.

Reports written by count and report jobs are exposed read-only at /reports,
so a scheduled job's output can be inspected without shell access.

Example:
  canopy serve
  canopy serve --host 0.0.0.0 --port 9090 --report-dir /var/lib/canopy`,
	RunE: runServe,
}

var (
	serveHost      string
	servePort      int
	serveReportDir string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Bind host (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Bind port (default from config)")
	serveCmd.Flags().StringVar(&serveReportDir, "report-dir", "", "Directory of report files (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	host := appConfig.Server.Host
	if serveHost != "" {
		host = serveHost
	}
	port := appConfig.Server.Port
	if servePort != 0 {
		port = servePort
	}
	reportDir := appConfig.ReportDir
	if serveReportDir != "" {
		reportDir = serveReportDir
	}

	srv := server.New(host, port, reportDir, versionInfo.Version).
		WithLogger(observability.CLILogger)

	observability.CLILogger.Info("Starting server",
		zap.String("host", host),
		zap.Int("port", port),
		zap.String("report_dir", reportDir))

	if err := srv.ListenAndServe(ctx); err != nil {
		observability.CLILogger.Error("Server failed", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Server failed", err)
	}
	return nil
}
