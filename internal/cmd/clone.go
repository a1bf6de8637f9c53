package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/canopyhq/canopy/internal/observability"
	"github.com/canopyhq/canopy/pkg/manifest"
	"github.com/canopyhq/canopy/pkg/match"
	"github.com/canopyhq/canopy/pkg/output"
	"github.com/canopyhq/canopy/pkg/preflight"
	"github.com/canopyhq/canopy/pkg/remote/gdrive"
	"github.com/canopyhq/canopy/pkg/replicate"
)

var cloneCmd = &cobra.Command{
	Use:   "clone",
	Short: "Replicate a folder tree into a destination",
	Long: `Replicate every top-level folder of the source into the destination.

Folders are recreated, native documents are duplicated server-side, and
binary content is downloaded and re-uploaded. Copying is best-effort: a
failing subtree is recorded and its siblings continue.

The job comes from a manifest file, or from configuration
(SOURCE_FOLDER_ID / DESTINATION_FOLDER_ID) when --job is omitted.

Example:
  canopy clone --job clone.yaml
  canopy clone --job clone.yaml --output results.jsonl
  canopy clone --job clone.yaml --dry-run
  canopy clone    # folders from environment`,
	RunE: runClone,
}

var (
	cloneJobPath       string
	cloneOutput        string
	cloneQuiet         bool
	cloneDryRun        bool
	clonePlan          bool
	clonePreflightMode string
)

func init() {
	rootCmd.AddCommand(cloneCmd)

	cloneCmd.Flags().StringVarP(&cloneJobPath, "job", "j", "", "Path to job manifest")
	cloneCmd.Flags().StringVarP(&cloneOutput, "output", "o", "", "Override output destination")
	cloneCmd.Flags().BoolVarP(&cloneQuiet, "quiet", "q", false, "Suppress progress records")
	cloneCmd.Flags().BoolVar(&cloneDryRun, "dry-run", false, "Validate the job and show the plan without executing")
	cloneCmd.Flags().BoolVar(&clonePlan, "plan", false, "Alias for --dry-run")
	cloneCmd.Flags().StringVar(&clonePreflightMode, "preflight", "", "Override preflight mode (plan-only|read-safe)")
}

func runClone(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	m, err := loadCloneManifest()
	if err != nil {
		observability.CLILogger.Error("Failed to load clone job",
			zap.String("path", cloneJobPath),
			zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid clone job", err)
	}

	observability.CLILogger.Debug("Loaded clone job",
		zap.String("source", m.Source.FolderID),
		zap.String("destination", m.Destination.FolderID),
		zap.Strings("includes", m.Match.Includes))

	if cloneOutput != "" {
		m.Output.Destination = cloneOutput
	}

	if clonePreflightMode != "" {
		switch clonePreflightMode {
		case "plan-only", "read-safe":
			m.Clone.Preflight.Mode = clonePreflightMode
		default:
			return exitError(foundry.ExitInvalidArgument, "Invalid --preflight value",
				fmt.Errorf("unsupported preflight mode: %s", clonePreflightMode))
		}
	}

	if cloneQuiet {
		enabled := false
		m.Output.Progress = &enabled
	}

	if clonePlan || cloneDryRun {
		return showClonePlan(m)
	}

	return executeClone(ctx, m)
}

// loadCloneManifest loads the job manifest, or synthesizes one from the
// resolved configuration when --job is not given.
func loadCloneManifest() (*manifest.Manifest, error) {
	if cloneJobPath != "" {
		return manifest.Load(cloneJobPath)
	}

	if appConfig.Source.FolderID == "" || appConfig.Destination.FolderID == "" {
		return nil, fmt.Errorf("pass --job or set SOURCE_FOLDER_ID and DESTINATION_FOLDER_ID")
	}

	m := &manifest.Manifest{
		Version: manifest.DefaultVersion,
		Connection: manifest.ConnectionConfig{
			Service:         manifest.DefaultService,
			CredentialsFile: appConfig.Auth.CredentialsFile,
			TokenFile:       appConfig.Auth.TokenFile,
		},
		Source:      manifest.FolderRef{FolderID: appConfig.Source.FolderID},
		Destination: manifest.FolderRef{FolderID: appConfig.Destination.FolderID},
		// Full-fidelity copy when no manifest narrows the selection.
		Match: manifest.MatchConfig{IncludeHidden: true},
		Clone: manifest.CloneConfig{
			RateLimit:     appConfig.Clone.RateLimit,
			PageSize:      appConfig.Clone.PageSize,
			ProgressEvery: appConfig.Clone.ProgressEvery,
		},
	}
	m.ApplyDefaults()
	return m, nil
}

// showClonePlan displays what would be copied without executing.
func showClonePlan(m *manifest.Manifest) error {
	fmt.Println("=== Clone Plan (dry-run) ===")
	fmt.Println()
	fmt.Printf("Service:     %s\n", m.Connection.Service)
	fmt.Printf("Source:      %s\n", m.Source.FolderID)
	fmt.Printf("Destination: %s\n", m.Destination.FolderID)
	if m.Connection.Endpoint != "" {
		fmt.Printf("Endpoint:    %s\n", m.Connection.Endpoint)
	}
	fmt.Println()
	fmt.Println("Patterns:")
	fmt.Println("  Include:")
	for _, p := range m.Match.Includes {
		fmt.Printf("    - %s\n", p)
	}
	if len(m.Match.Excludes) > 0 {
		fmt.Println("  Exclude:")
		for _, p := range m.Match.Excludes {
			fmt.Printf("    - %s\n", p)
		}
	}
	fmt.Println()

	if m.Clone.RateLimit > 0 {
		fmt.Printf("Rate Limit:  %.1f req/s\n", m.Clone.RateLimit)
	}
	fmt.Printf("Page Size:   %d\n", m.Clone.PageSize)
	fmt.Printf("Preflight:   %s\n", m.Clone.Preflight.Mode)
	fmt.Printf("Output:      %s\n", m.Output.Destination)
	fmt.Printf("Progress:    %v\n", m.Output.ProgressEnabled())
	fmt.Println()
	fmt.Println("Job validated successfully. Remove --dry-run to execute.")
	return nil
}

// executeClone runs the actual clone job.
func executeClone(ctx context.Context, m *manifest.Manifest) error {
	jobID := uuid.New().String()

	client, err := createDriveClient(ctx, m)
	if err != nil {
		observability.CLILogger.Error("Failed to create drive client", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to create drive client", err)
	}
	defer func() { _ = client.Close() }()

	matcher, err := match.New(match.Config{
		Includes:      m.Match.Includes,
		Excludes:      m.Match.Excludes,
		IncludeHidden: m.Match.IncludeHidden,
	})
	if err != nil {
		observability.CLILogger.Error("Failed to create matcher", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid match patterns", err)
	}

	writer, cleanup, err := createWriter(m.Output.Destination, jobID)
	if err != nil {
		observability.CLILogger.Error("Failed to create writer", zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to create output", err)
	}
	defer cleanup()

	pfRec, pfErr := preflight.Run(ctx, client, preflight.Spec{
		Mode:     preflight.Mode(m.Clone.Preflight.Mode),
		SourceID: m.Source.FolderID,
		DestID:   m.Destination.FolderID,
	})
	if err := writer.WritePreflight(ctx, pfRec); err != nil {
		observability.CLILogger.Warn("Failed to write preflight record", zap.Error(err))
	}
	if pfErr != nil {
		observability.CLILogger.Error("Preflight failed", zap.Error(pfErr))
		return exitError(foundry.ExitExternalServiceUnavailable, "Preflight failed", pfErr)
	}

	cloner := replicate.New(client, replicate.Config{
		PageSize:      m.Clone.PageSize,
		RateLimit:     m.Clone.RateLimit,
		ProgressEvery: m.Clone.ProgressEvery,
	}).WithMatcher(matcher).WithLogger(observability.CLILogger)

	if m.Output.ProgressEnabled() {
		cloner.WithWriter(writer)
	} else {
		cloner.WithWriter(quietWriter{writer})
	}

	observability.CLILogger.Info("Starting clone",
		zap.String("job_id", jobID),
		zap.String("source", m.Source.FolderID),
		zap.String("destination", m.Destination.FolderID))

	summary, issues, err := cloner.Run(ctx, m.Source.FolderID, m.Destination.FolderID)
	if err != nil {
		if ctx.Err() != nil {
			observability.CLILogger.Warn("Clone cancelled", zap.String("job_id", jobID))
			return exitError(foundry.ExitSignalInt, "Clone cancelled", err)
		}
		observability.CLILogger.Error("Clone failed",
			zap.String("job_id", jobID),
			zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Clone failed", err)
	}

	observability.CLILogger.Info("Clone completed",
		zap.String("job_id", jobID),
		zap.Int64("entries_seen", summary.EntriesSeen),
		zap.Int64("folders_created", summary.FoldersCreated),
		zap.Int64("leaves_copied", summary.LeavesCopied),
		zap.Int64("skipped", summary.Skipped),
		zap.Int64("bytes_copied", summary.BytesCopied),
		zap.Int("failed_entries", len(issues)),
		zap.Duration("duration", summary.Duration))

	return nil
}

// createDriveClient builds a drive client from manifest configuration.
func createDriveClient(ctx context.Context, m *manifest.Manifest) (*gdrive.Client, error) {
	cfg := *appConfig
	cfg.Auth.CredentialsFile = m.Connection.CredentialsFile
	cfg.Auth.TokenFile = m.Connection.TokenFile

	session, err := newSession(&cfg)
	if err != nil {
		return nil, err
	}

	gcfg := gdrive.Config{
		Endpoint: m.Connection.Endpoint,
		PageSize: m.Clone.PageSize,
	}
	// A custom endpoint implies an emulated service; skip auth there.
	if gcfg.Endpoint == "" {
		ts, err := session.TokenSource(ctx)
		if err != nil {
			return nil, err
		}
		gcfg.TokenSource = ts
	}
	return gdrive.New(ctx, gcfg)
}

// quietWriter drops progress records, passing everything else through.
type quietWriter struct {
	output.Writer
}

func (q quietWriter) WriteProgress(ctx context.Context, rec *output.ProgressRecord) error {
	return nil
}
