package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/canopyhq/canopy/internal/observability"
	"github.com/canopyhq/canopy/pkg/report"
	"github.com/canopyhq/canopy/pkg/walker"
)

var countCmd = &cobra.Command{
	Use:   "count [folder-id]",
	Short: "Count the immediate contents of a folder",
	Long: `Count files and folders directly under a folder and write a flat
inventory report.

The folder id comes from the argument, or from configuration
(CANOPY_SOURCE_FOLDER_ID / SOURCE_FOLDER_ID) when omitted.

Example:
  canopy count 1aBcDeFgHiJkLmNoPqRsTuV
  canopy count --out report1.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCount,
}

var countOut string

func init() {
	rootCmd.AddCommand(countCmd)

	countCmd.Flags().StringVar(&countOut, "out", "", "Write the report to a file instead of stdout")
}

func runCount(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	folderID := appConfig.Source.FolderID
	if len(args) > 0 {
		folderID = args[0]
	}
	if folderID == "" {
		return exitError(foundry.ExitInvalidArgument, "No folder id",
			fmt.Errorf("pass a folder id or set SOURCE_FOLDER_ID"))
	}

	client, err := newDriveClient(ctx, appConfig)
	if err != nil {
		observability.CLILogger.Error("Failed to create drive client", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to create drive client", err)
	}
	defer func() { _ = client.Close() }()

	w := walker.New(client, walker.Config{
		PageSize:  appConfig.Clone.PageSize,
		RateLimit: appConfig.Clone.RateLimit,
	}).WithLogger(observability.CLILogger)

	rep, err := report.New(w).WithLogger(observability.CLILogger).Flat(ctx, folderID)
	if err != nil {
		if ctx.Err() != nil {
			return exitError(foundry.ExitSignalInt, "Count cancelled", err)
		}
		observability.CLILogger.Error("Count failed",
			zap.String("folder_id", folderID),
			zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Count failed", err)
	}

	return emitReport(rep, countOut)
}

// emitReport writes a report to a file, or to stdout when path is empty.
func emitReport(rep any, path string) error {
	if path == "" {
		return printJSON(rep)
	}
	if err := report.WriteFile(path, rep); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write report", err)
	}
	observability.CLILogger.Info("report written", zap.String("path", path))
	return nil
}
