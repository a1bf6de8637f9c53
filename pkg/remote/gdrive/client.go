package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/canopyhq/canopy/pkg/remote"
)

// serviceName identifies this backend in wrapped errors.
const serviceName = "gdrive"

// listFields restricts list responses to what traversal needs.
const listFields = "nextPageToken, files(id, name, mimeType)"

// entryFields restricts single-entry responses.
const entryFields = "id, name, mimeType"

// Client implements remote.Client for Google Drive.
type Client struct {
	svc       *drive.Service
	pageSize  int
	chunkSize int
}

var _ remote.Client = (*Client)(nil)

// New creates a Drive client from the given configuration.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []option.ClientOption{}
	if cfg.TokenSource != nil {
		opts = append(opts, option.WithTokenSource(cfg.TokenSource))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
		if cfg.TokenSource == nil {
			opts = append(opts, option.WithoutAuthentication())
		}
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, &remote.Error{Op: "New", Service: serviceName, Err: err}
	}

	pageSize := remote.ClampPageSize(cfg.PageSize, remote.DefaultPageSize)

	return &Client{svc: svc, pageSize: pageSize, chunkSize: cfg.UploadChunkSize}, nil
}

// buildListQuery constructs the Drive search query for children of parentID.
// Trashed entries are always excluded. FilterAll matches folders plus any
// entry that is not the abstract google-apps file stub.
func buildListQuery(parentID string, filter remote.TypeFilter) string {
	switch filter {
	case remote.FilterFolders:
		return fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false",
			parentID, remote.FolderMimeType)
	default:
		return fmt.Sprintf("'%s' in parents and trashed = false and "+
			"(mimeType = '%s' or not mimeType contains 'application/vnd.google-apps.file')",
			parentID, remote.FolderMimeType)
	}
}

// ListChildren returns one page of children of a folder.
func (c *Client) ListChildren(ctx context.Context, opts remote.ListOptions) (*remote.ListResult, error) {
	if opts.ParentID == "" {
		return nil, &remote.Error{Op: "ListChildren", Service: serviceName, Err: errors.New("parent id is required")}
	}

	pageSize := remote.ClampPageSize(opts.PageSize, c.pageSize)

	call := c.svc.Files.List().
		Q(buildListQuery(opts.ParentID, opts.Filter)).
		Fields(googleapi.Field(listFields)).
		PageSize(int64(pageSize)).
		Context(ctx)
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}

	res, err := call.Do()
	if err != nil {
		return nil, c.wrapError("ListChildren", opts.ParentID, "", err)
	}

	entries := make([]remote.Entry, 0, len(res.Files))
	for _, f := range res.Files {
		entries = append(entries, remote.Entry{ID: f.Id, Name: f.Name, MimeType: f.MimeType})
	}

	return &remote.ListResult{Entries: entries, NextPageToken: res.NextPageToken}, nil
}

// GetEntry returns metadata for a single entry.
func (c *Client) GetEntry(ctx context.Context, id string) (*remote.Entry, error) {
	f, err := c.svc.Files.Get(id).Fields(googleapi.Field(entryFields)).Context(ctx).Do()
	if err != nil {
		return nil, c.wrapError("GetEntry", id, "", err)
	}
	return &remote.Entry{ID: f.Id, Name: f.Name, MimeType: f.MimeType}, nil
}

// CreateFolder creates a folder named name under parentID.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (*remote.Entry, error) {
	f, err := c.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: remote.FolderMimeType,
		Parents:  []string{parentID},
	}).Fields(googleapi.Field(entryFields)).Context(ctx).Do()
	if err != nil {
		return nil, c.wrapError("CreateFolder", parentID, name, err)
	}
	return &remote.Entry{ID: f.Id, Name: f.Name, MimeType: f.MimeType}, nil
}

// CopyEntry duplicates an entry server-side under a new name and parent.
func (c *Client) CopyEntry(ctx context.Context, id, newName, parentID string) (*remote.Entry, error) {
	f, err := c.svc.Files.Copy(id, &drive.File{
		Name:    newName,
		Parents: []string{parentID},
	}).Fields(googleapi.Field(entryFields)).Context(ctx).Do()
	if err != nil {
		return nil, c.wrapError("CopyEntry", id, newName, err)
	}
	return &remote.Entry{ID: f.Id, Name: f.Name, MimeType: f.MimeType}, nil
}

// Download streams the raw content of a binary entry. The transport fetches
// the body in chunks; the caller owns the returned reader.
func (c *Client) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	resp, err := c.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, c.wrapError("Download", id, "", err)
	}
	return resp.Body, nil
}

// Upload creates a new binary entry from the reader's content.
//
// The google-api-go-client media layer performs a resumable transfer when a
// chunk size is in effect, which is the default.
func (c *Client) Upload(ctx context.Context, spec remote.UploadSpec, content io.Reader) (*remote.Entry, error) {
	mediaOpts := []googleapi.MediaOption{googleapi.ContentType(spec.MimeType)}
	if c.chunkSize > 0 {
		mediaOpts = append(mediaOpts, googleapi.ChunkSize(c.chunkSize))
	}

	f, err := c.svc.Files.Create(&drive.File{
		Name:     spec.Name,
		MimeType: spec.MimeType,
		Parents:  []string{spec.ParentID},
	}).Media(content, mediaOpts...).Fields(googleapi.Field(entryFields)).Context(ctx).Do()
	if err != nil {
		return nil, c.wrapError("Upload", spec.ParentID, spec.Name, err)
	}
	return &remote.Entry{ID: f.Id, Name: f.Name, MimeType: f.MimeType}, nil
}

// About returns the authenticated user's display name and email address.
// Used by auth verification, not part of the remote.Client surface.
func (c *Client) About(ctx context.Context) (name, email string, err error) {
	res, err := c.svc.About.Get().Fields("user").Context(ctx).Do()
	if err != nil {
		return "", "", c.wrapError("About", "", "", err)
	}
	if res.User == nil {
		return "", "", &remote.Error{Op: "About", Service: serviceName, Err: errors.New("no user in response")}
	}
	return res.User.DisplayName, res.User.EmailAddress, nil
}

// Close releases any resources held by the client.
// The Drive service doesn't require explicit cleanup, but this satisfies the interface.
func (c *Client) Close() error {
	return nil
}

// wrapError converts Drive API errors to remote errors with appropriate sentinels.
func (c *Client) wrapError(op, entryID, name string, err error) error {
	wrapped := &remote.Error{
		Op:      op,
		Service: serviceName,
		EntryID: entryID,
		Name:    name,
		Err:     err,
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		wrapped.Err = classifyStatus(apiErr)
		return wrapped
	}

	// Fallback: check error message for common cases.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "404") || strings.Contains(msg, "notFound"):
		wrapped.Err = remote.ErrNotFound
	case strings.Contains(msg, "401") || strings.Contains(msg, "invalid_grant"):
		wrapped.Err = remote.ErrInvalidCredentials
	case strings.Contains(msg, "rateLimitExceeded") || strings.Contains(msg, "429"):
		wrapped.Err = remote.ErrThrottled
	case strings.Contains(msg, "403") || strings.Contains(msg, "insufficientPermissions"):
		wrapped.Err = remote.ErrPermissionDenied
	case strings.Contains(msg, "503") || strings.Contains(msg, "backendError"):
		wrapped.Err = remote.ErrUnavailable
	}

	return wrapped
}

// classifyStatus maps a googleapi error to a sentinel.
//
// Drive reports per-user rate limiting as 403 with a rate-limit reason, so
// the reason is checked before the blanket 403 mapping.
func classifyStatus(apiErr *googleapi.Error) error {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "dailyLimitExceeded":
			return remote.ErrThrottled
		}
	}

	switch apiErr.Code {
	case http.StatusNotFound:
		return remote.ErrNotFound
	case http.StatusUnauthorized:
		return remote.ErrInvalidCredentials
	case http.StatusForbidden:
		return remote.ErrPermissionDenied
	case http.StatusTooManyRequests:
		return remote.ErrThrottled
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return remote.ErrUnavailable
	default:
		return apiErr
	}
}
