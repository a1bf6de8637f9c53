package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/canopyhq/canopy/internal/observability"
	"github.com/canopyhq/canopy/pkg/report"
	"github.com/canopyhq/canopy/pkg/walker"
)

var reportCmd = &cobra.Command{
	Use:   "report [folder-id]",
	Short: "Build a recursive inventory of a folder's top-level folders",
	Long: `Enumerate a folder's top-level folders and count each one recursively,
writing a tree inventory report.

Counting is best-effort: a top-level folder that cannot be counted is
dropped from the report and logged, and deeper unreadable subtrees count as
empty. The report covers whatever was reachable.

Example:
  canopy report 1aBcDeFgHiJkLmNoPqRsTuV
  canopy report --out report2.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

var reportOut string

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportOut, "out", "", "Write the report to a file instead of stdout")
}

func runReport(cmd *cobra.Command, args []string) error {
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

	rep, issues, err := report.New(w).WithLogger(observability.CLILogger).Tree(ctx, folderID)
	if err != nil {
		if ctx.Err() != nil {
			return exitError(foundry.ExitSignalInt, "Report cancelled", err)
		}
		observability.CLILogger.Error("Report failed",
			zap.String("folder_id", folderID),
			zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Report failed", err)
	}

	for _, issue := range issues {
		observability.CLILogger.Warn("subtree skipped",
			zap.String("folder_id", issue.FolderID),
			zap.String("name", issue.Name),
			zap.Error(issue.Err))
	}
	if len(issues) > 0 {
		observability.CLILogger.Warn("report is partial",
			zap.Int("skipped_subtrees", len(issues)))
	}

	return emitReport(rep, reportOut)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
