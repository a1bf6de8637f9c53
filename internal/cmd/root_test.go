package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopyhq/canopy/internal/config"
	"github.com/canopyhq/canopy/pkg/output"
)

func TestSetVersionInfo(t *testing.T) {
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		versionInfo.Version = origVersion
		versionInfo.Commit = origCommit
		versionInfo.BuildDate = origBuildDate
	}()

	SetVersionInfo("1.0.0", "abc123", "2026-08-01")

	assert.Equal(t, "1.0.0", versionInfo.Version)
	assert.Equal(t, "abc123", versionInfo.Commit)
	assert.Equal(t, "2026-08-01", versionInfo.BuildDate)
	assert.Contains(t, rootCmd.Version, "1.0.0")
	assert.Contains(t, rootCmd.Version, "abc123")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("plain")))

	err := exitError(foundry.ExitInvalidArgument, "bad flag", errors.New("boom"))
	assert.Equal(t, foundry.ExitInvalidArgument, ExitCode(err))
	assert.Contains(t, err.Error(), "bad flag")
	assert.Contains(t, err.Error(), "boom")

	// Codes survive wrapping.
	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, foundry.ExitInvalidArgument, ExitCode(wrapped))

	// And the cause stays reachable.
	assert.ErrorContains(t, errors.Unwrap(err), "boom")
}

func TestExitErrorWithoutCause(t *testing.T) {
	err := exitError(foundry.ExitInvalidArgument, "just a message", nil)
	assert.Equal(t, "just a message", err.Error())
}

func TestCreateWriter(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		w, cleanup, err := createWriter("stdout", "job-1")
		require.NoError(t, err)
		require.NotNil(t, w)
		cleanup()
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.jsonl")
		w, cleanup, err := createWriter("file:"+path, "job-1")
		require.NoError(t, err)

		require.NoError(t, w.WriteProgress(context.Background(),
			&output.ProgressRecord{Phase: output.PhaseStarting}))
		cleanup()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "canopy.progress.v1")
		assert.Contains(t, string(data), `"job_id":"job-1"`)
	})

	t.Run("unwritable path", func(t *testing.T) {
		_, _, err := createWriter("file:/nonexistent/dir/out.jsonl", "job-1")
		require.Error(t, err)
	})
}

func TestLoadCloneManifestFromConfig(t *testing.T) {
	origConfig := appConfig
	origJobPath := cloneJobPath
	defer func() {
		appConfig = origConfig
		cloneJobPath = origJobPath
	}()
	cloneJobPath = ""

	cfg, err := config.Load("")
	require.NoError(t, err)
	appConfig = cfg

	t.Run("missing folder ids", func(t *testing.T) {
		appConfig.Source.FolderID = ""
		appConfig.Destination.FolderID = ""

		_, err := loadCloneManifest()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SOURCE_FOLDER_ID")
	})

	t.Run("synthesized from config", func(t *testing.T) {
		appConfig.Source.FolderID = "cfg-src"
		appConfig.Destination.FolderID = "cfg-dst"

		m, err := loadCloneManifest()
		require.NoError(t, err)

		assert.Equal(t, "cfg-src", m.Source.FolderID)
		assert.Equal(t, "cfg-dst", m.Destination.FolderID)
		assert.Equal(t, []string{"**"}, m.Match.Includes)
		assert.True(t, m.Match.IncludeHidden)
		assert.Equal(t, 1000, m.Clone.PageSize)
		assert.Equal(t, "read-safe", m.Clone.Preflight.Mode)
	})
}

func TestQuietWriterDropsProgress(t *testing.T) {
	base := output.Discard{}
	q := quietWriter{base}

	require.NoError(t, q.WriteProgress(context.Background(), &output.ProgressRecord{}))
	require.NoError(t, q.WriteSummary(context.Background(), &output.SummaryRecord{}))
}
