package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/canopyhq/canopy/internal/auth"
	"github.com/canopyhq/canopy/internal/config"
	"github.com/canopyhq/canopy/pkg/output"
	"github.com/canopyhq/canopy/pkg/remote/gdrive"
)

// codedError carries a process exit code alongside the underlying error.
type codedError struct {
	code    int
	message string
	err     error
}

func (e *codedError) Error() string {
	if e.err == nil {
		return e.message
	}
	return e.message + ": " + e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

// exitError creates an error that causes the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &codedError{code: code, message: message, err: err}
}

// ExitCode extracts the exit code from an error chain. Plain errors map to
// exit status 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	return 1
}

// newSession builds the OAuth session from the resolved configuration.
func newSession(cfg *config.Config) (*auth.Session, error) {
	return auth.New(cfg.Auth.CredentialsFile, cfg.Auth.TokenFile)
}

// newDriveClient builds an authorized drive client.
func newDriveClient(ctx context.Context, cfg *config.Config) (*gdrive.Client, error) {
	session, err := newSession(cfg)
	if err != nil {
		return nil, err
	}

	ts, err := session.TokenSource(ctx)
	if err != nil {
		return nil, err
	}

	return gdrive.New(ctx, gdrive.Config{
		TokenSource: ts,
		PageSize:    cfg.Clone.PageSize,
	})
}

// createWriter builds an output writer for dest ("stdout" or "file:<path>").
// Returns the writer, a cleanup function, and any error.
func createWriter(dest, jobID string) (output.Writer, func(), error) {
	if dest == "" || dest == "stdout" {
		w := output.NewJSONLWriter(os.Stdout, jobID, "gdrive")
		return w, func() { _ = w.Close() }, nil
	}

	path := strings.TrimPrefix(dest, "file:")

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}

	w := output.NewJSONLWriter(f, jobID, "gdrive")
	cleanup := func() {
		_ = w.Close()
		_ = f.Close()
	}
	return w, cleanup, nil
}
