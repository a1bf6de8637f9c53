// Package cmd implements the canopy command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canopyhq/canopy/internal/config"
	"github.com/canopyhq/canopy/internal/observability"
)

// versionInfo holds build-time version metadata.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build-time version metadata. Called from main
// before Execute.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate)
}

var (
	cfgFile   string
	logLevel  string
	logFormat string

	// appConfig is the resolved configuration, loaded in PersistentPreRunE
	// so every command sees the same view.
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "canopy",
	Short: "Inventory and replicate Google Drive folder trees",
	Long: `canopy inventories and replicates folder trees on Google Drive.

It counts files and folders under a folder (flat or recursive), assembles
inventory reports, and clones entire folder trees into a new destination,
choosing a server-side copy for native documents and a download/re-upload
for binary content.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if logFormat != "" {
			cfg.Logging.Format = logFormat
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if err := observability.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
			return err
		}

		appConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (default canopy.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console|json)")
}

// Execute runs the CLI. The returned error carries an exit code via
// exitError; main translates it into the process exit status.
func Execute(ctx context.Context) error {
	defer observability.Sync()
	return rootCmd.ExecuteContext(ctx)
}
