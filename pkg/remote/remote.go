// Package remote defines abstractions for hierarchical cloud drive operations.
//
// Clients implement a minimal surface area focused on listing folder
// children, creating folders, and copying entry content. Authentication is
// supplied by the caller as an explicit session (token source) - clients
// should not implement custom auth logic.
package remote

import (
	"context"
	"io"
)

// FolderMimeType is the mime type that marks an entry as a folder.
const FolderMimeType = "application/vnd.google-apps.folder"

// nativePrefix marks remote-native (workspace) document mime types.
// Native documents have no exportable byte stream and must be copied
// server-side.
const nativePrefix = "application/vnd.google-apps."

// DefaultPageSize is the default page size for ListChildren operations.
const DefaultPageSize = 1000

// MaxPageSize is the maximum page size accepted by the remote service.
const MaxPageSize = 1000

// Client abstracts a remote hierarchical drive.
//
// Implementations should:
//   - Support pagination via continuation page tokens
//   - Exclude trashed entries from listings
//   - Be safe for concurrent use
type Client interface {
	// ListChildren returns one page of children of a folder.
	// Use NextPageToken from ListResult for subsequent pages.
	ListChildren(ctx context.Context, opts ListOptions) (*ListResult, error)

	// GetEntry returns metadata for a single entry.
	// Returns ErrNotFound if the entry does not exist.
	GetEntry(ctx context.Context, id string) (*Entry, error)

	// CreateFolder creates a folder named name under parentID.
	CreateFolder(ctx context.Context, name, parentID string) (*Entry, error)

	// CopyEntry duplicates an entry server-side under a new name and parent.
	// Only native document types support server-side copies.
	CopyEntry(ctx context.Context, id, newName, parentID string) (*Entry, error)

	// Download streams the raw content of a binary entry.
	// The caller must close the returned reader.
	Download(ctx context.Context, id string) (io.ReadCloser, error)

	// Upload creates a new binary entry from the reader's content using a
	// resumable transfer.
	Upload(ctx context.Context, spec UploadSpec, content io.Reader) (*Entry, error)

	// Close releases any resources held by the client.
	Close() error
}

// TypeFilter restricts ListChildren to a class of entries.
type TypeFilter string

const (
	// FilterAll lists both folders and files.
	FilterAll TypeFilter = "all"

	// FilterFolders lists folders only.
	FilterFolders TypeFilter = "folders"
)

// ListOptions configures a ListChildren operation.
type ListOptions struct {
	// ParentID is the folder whose children are listed (required).
	ParentID string

	// Filter selects which entry types to return.
	// Zero value behaves as FilterAll.
	Filter TypeFilter

	// PageToken resumes listing from a previous ListResult.
	// Empty string starts from the beginning.
	PageToken string

	// PageSize limits the number of entries returned per page.
	// Zero uses DefaultPageSize; values over MaxPageSize are clamped.
	PageSize int
}

// ListResult contains one page of entries from a ListChildren operation.
type ListResult struct {
	// Entries contains the entries for this page in remote-returned order.
	Entries []Entry

	// NextPageToken is used to retrieve the next page.
	// Empty string indicates no more pages.
	NextPageToken string
}

// Entry is a single remote node: a folder or a file.
type Entry struct {
	// ID is the opaque remote identifier.
	ID string

	// Name is the display name.
	Name string

	// MimeType is the declared mime type. Folders carry FolderMimeType.
	MimeType string
}

// IsFolder reports whether the entry is a folder.
func (e Entry) IsFolder() bool {
	return e.MimeType == FolderMimeType
}

// IsNativeDoc reports whether the entry is a remote-native document that
// must be duplicated server-side rather than downloaded.
func (e Entry) IsNativeDoc() bool {
	return !e.IsFolder() && len(e.MimeType) >= len(nativePrefix) &&
		e.MimeType[:len(nativePrefix)] == nativePrefix
}

// UploadSpec describes the entry created by an Upload.
type UploadSpec struct {
	// Name is the new entry's display name.
	Name string

	// ParentID is the destination folder.
	ParentID string

	// MimeType is the declared content type of the uploaded bytes.
	MimeType string
}

// ClampPageSize applies defaults and limits to page size values.
// If requested is <= 0, fallback is used. The result never exceeds
// MaxPageSize.
func ClampPageSize(requested, fallback int) int {
	if requested <= 0 {
		requested = fallback
	}
	if requested <= 0 {
		requested = DefaultPageSize
	}
	if requested > MaxPageSize {
		return MaxPageSize
	}
	return requested
}
