package remote

import (
	"errors"
	"fmt"
)

// Sentinel errors for remote drive operations.
var (
	// ErrNotFound indicates the requested entry does not exist.
	ErrNotFound = errors.New("entry not found")

	// ErrPermissionDenied indicates insufficient permissions on an entry.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrThrottled indicates the request was rate limited by the service.
	ErrThrottled = errors.New("request throttled")

	// ErrUnavailable indicates the remote service is unavailable.
	ErrUnavailable = errors.New("service unavailable")

	// ErrNotFolder indicates an entry exists but is not a folder where
	// one is required.
	ErrNotFolder = errors.New("entry is not a folder")
)

// Error wraps remote-service errors with the operation and offending entry,
// so callers can distinguish "empty" from "failed" and report which node of
// a tree operation broke.
type Error struct {
	// Op is the operation that failed (e.g., "ListChildren", "Upload").
	Op string

	// Service identifies the remote backend (e.g., "gdrive").
	Service string

	// EntryID is the remote identifier involved, if applicable.
	EntryID string

	// Name is the entry display name, if known.
	Name string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Name != "" && e.EntryID != "":
		return fmt.Sprintf("%s %s: %s (%s): %v", e.Service, e.Op, e.Name, e.EntryID, e.Err)
	case e.EntryID != "":
		return fmt.Sprintf("%s %s: %s: %v", e.Service, e.Op, e.EntryID, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
	}
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates a missing entry.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPermissionDenied returns true if the error indicates insufficient permissions.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsInvalidCredentials returns true if the error indicates authentication failed.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// IsThrottled returns true if the error indicates the request was rate limited.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsUnavailable returns true if the error indicates the service is unavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsNotFolder returns true if the error indicates an entry that exists but
// is not a folder.
func IsNotFolder(err error) bool {
	return errors.Is(err, ErrNotFolder)
}
