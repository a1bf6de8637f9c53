// Package output provides JSONL output for traversal and clone operations.
//
// Output is structured as typed record envelopes containing entries, copies,
// skips, errors, and progress updates. Each line is a self-contained JSON
// object that can be parsed independently.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: canopy.<type>.v<version>
const (
	// TypeEntry identifies entry listing records.
	TypeEntry = "canopy.entry.v1"

	// TypeCopy identifies completed copy records.
	TypeCopy = "canopy.copy.v1"

	// TypeSkip identifies skipped-entry records.
	TypeSkip = "canopy.skip.v1"

	// TypeError identifies error records.
	TypeError = "canopy.error.v1"

	// TypeProgress identifies progress update records.
	TypeProgress = "canopy.progress.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "canopy.summary.v1"

	// TypePreflight identifies preflight capability check records.
	TypePreflight = "canopy.preflight.v1"
)

// Record is the envelope for all JSONL output.
//
// Each line of JSONL output contains a Record with a type-specific
// payload in the Data field. The type field determines how to
// interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "canopy.copy.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// JobID is the correlation ID for this job.
	JobID string `json:"job_id"`

	// Service identifies the remote backend (e.g., "gdrive").
	Service string `json:"service"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// EntryRecord is the data payload for entry listings.
type EntryRecord struct {
	// ID is the remote entry identifier.
	ID string `json:"id"`

	// Name is the entry display name.
	Name string `json:"name"`

	// MimeType is the declared mime type.
	MimeType string `json:"mime_type"`

	// Path is the name path from the traversal root, if known.
	Path string `json:"path,omitempty"`
}

// CopyRecord is the data payload for a completed copy of one entry.
type CopyRecord struct {
	// SourceID is the identifier of the copied entry.
	SourceID string `json:"source_id"`

	// NewID is the identifier of the created entry.
	NewID string `json:"new_id"`

	// Path is the name path from the clone root.
	Path string `json:"path"`

	// Strategy is how the entry was copied: "folder", "server_side",
	// or "download_upload".
	Strategy string `json:"strategy"`

	// Bytes is the content size moved for download_upload copies.
	Bytes int64 `json:"bytes,omitempty"`
}

// Copy strategy constants.
const (
	// StrategyFolder indicates a folder created at the destination.
	StrategyFolder = "folder"

	// StrategyServerSide indicates a native document duplicated server-side.
	StrategyServerSide = "server_side"

	// StrategyDownloadUpload indicates a binary copied via buffer.
	StrategyDownloadUpload = "download_upload"
)

// SkipRecord is the data payload for entries excluded from a clone.
type SkipRecord struct {
	// SourceID is the identifier of the skipped entry.
	SourceID string `json:"source_id"`

	// Path is the name path from the clone root.
	Path string `json:"path"`

	// Reason is a machine-readable skip reason (e.g., "pattern").
	Reason string `json:"reason"`
}

// ErrorRecord is the data payload for errors.
//
// Errors are emitted as records rather than failing the entire operation,
// allowing partial results when some subtrees fail.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// EntryID is the remote entry related to this error, if applicable.
	EntryID string `json:"entry_id,omitempty"`

	// Path is the name path being processed when the error occurred.
	Path string `json:"path,omitempty"`
}

// Error codes for ErrorRecord.
const (
	// ErrCodePermissionDenied indicates permission failure.
	ErrCodePermissionDenied = "PERMISSION_DENIED"

	// ErrCodeNotFound indicates the entry was not found.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeThrottled indicates rate limiting.
	ErrCodeThrottled = "THROTTLED"

	// ErrCodeUnavailable indicates the remote service is unavailable.
	ErrCodeUnavailable = "UNAVAILABLE"

	// ErrCodeNotFolder indicates an entry that exists but is not a folder.
	ErrCodeNotFolder = "NOT_A_FOLDER"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal = "INTERNAL"
)

// ProgressRecord is the data payload for progress updates.
//
// Progress records are emitted periodically during long-running operations.
type ProgressRecord struct {
	// Phase indicates the current operation phase.
	Phase string `json:"phase"`

	// EntriesSeen is the total number of entries listed so far.
	EntriesSeen int64 `json:"entries_seen"`

	// FoldersCreated is the number of destination folders created.
	FoldersCreated int64 `json:"folders_created"`

	// LeavesCopied is the number of leaf entries copied.
	LeavesCopied int64 `json:"leaves_copied"`

	// BytesCopied is the cumulative bytes moved by buffered copies.
	BytesCopied int64 `json:"bytes_copied"`

	// Path is the name path currently being processed, if applicable.
	Path string `json:"path,omitempty"`
}

// Progress phase constants.
const (
	// PhaseStarting indicates the operation is initializing.
	PhaseStarting = "starting"

	// PhaseCopying indicates entries are being copied.
	PhaseCopying = "copying"

	// PhaseComplete indicates the operation has finished.
	PhaseComplete = "complete"
)

// SummaryRecord is the data payload for final summaries.
type SummaryRecord struct {
	// EntriesSeen is the total number of entries listed.
	EntriesSeen int64 `json:"entries_seen"`

	// FoldersCreated is the number of destination folders created.
	FoldersCreated int64 `json:"folders_created"`

	// LeavesCopied is the number of leaf entries copied.
	LeavesCopied int64 `json:"leaves_copied"`

	// Skipped is the number of entries excluded by patterns.
	Skipped int64 `json:"skipped"`

	// BytesCopied is the cumulative bytes moved by buffered copies.
	BytesCopied int64 `json:"bytes_copied"`

	// Duration is the total operation duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`

	// Errors is the count of errors encountered.
	Errors int64 `json:"errors"`
}

// PreflightRecord is the data payload for preflight capability checks.
//
// Preflight records are emitted early, before long-running operations.
type PreflightRecord struct {
	Mode    string                 `json:"mode"`
	Results []PreflightCheckResult `json:"results"`
}

// PreflightCheckResult is a single capability check result.
type PreflightCheckResult struct {
	Capability string `json:"capability"`
	Allowed    bool   `json:"allowed"`
	ErrorCode  string `json:"error_code,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
