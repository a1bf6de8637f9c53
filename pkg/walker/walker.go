// Package walker implements sequential traversal of a remote folder tree.
//
// The walker counts files and folders under a root (flat or recursive) and
// enumerates top-level folders. Traversal is strictly sequential: the remote
// service enforces per-account rate limits, and depth-first blocking
// round trips avoid quota bursts without explicit throttling logic.
package walker

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/canopyhq/canopy/pkg/remote"
)

// Config configures walker behavior.
type Config struct {
	// PageSize is the listing page size. Zero uses the remote default
	// (1000); values over the remote maximum are clamped.
	PageSize int

	// RateLimit is the maximum list requests per second.
	// Zero means unlimited (the remote client handles its own throttling).
	RateLimit float64
}

// CountResult holds the counts for one counting call. All three fields are
// populated together; a failed call yields no CountResult at all.
type CountResult struct {
	// Files is the number of non-folder entries found.
	Files int

	// Folders is the number of folders found, at every depth when
	// counting recursively.
	Folders int

	// NestedFolders counts folders strictly below the immediate children
	// of the counting root. Always zero for non-recursive counts.
	NestedFolders int
}

// TotalItems returns the combined file and folder count.
func (r CountResult) TotalItems() int {
	return r.Files + r.Folders
}

// Issue records a subtree that was skipped during a best-effort traversal.
type Issue struct {
	// FolderID is the folder whose subtree was dropped.
	FolderID string

	// Name is the folder's display name, if known.
	Name string

	// Err is the failure that caused the drop.
	Err error
}

// Walker traverses a remote tree through a remote.Client.
//
// Walker holds no per-call state and is safe for reuse across calls.
type Walker struct {
	client  remote.Client
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a walker over the given client.
func New(client remote.Client, cfg Config) *Walker {
	w := &Walker{client: client, cfg: cfg, logger: zap.NewNop()}
	if cfg.RateLimit > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return w
}

// WithLogger sets the logger used for best-effort skip diagnostics.
// Returns the walker for method chaining.
func (w *Walker) WithLogger(logger *zap.Logger) *Walker {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// Count counts files and folders under rootID.
//
// In recursive mode every subfolder is counted in turn. A failing subfolder
// drops only that subtree's contribution: counting continues as if the
// subtree were empty, and the drop is recorded as an Issue. A listing error
// on rootID itself is fatal and no partial result is returned.
func (w *Walker) Count(ctx context.Context, rootID string, recursive bool) (*CountResult, []Issue, error) {
	start := time.Now()

	res, issues, err := w.countFolder(ctx, rootID, recursive)
	if err != nil {
		return nil, nil, err
	}

	w.logger.Debug("count completed",
		zap.String("root_id", rootID),
		zap.Bool("recursive", recursive),
		zap.Int("files", res.Files),
		zap.Int("folders", res.Folders),
		zap.Int("nested_folders", res.NestedFolders),
		zap.Int("skipped_subtrees", len(issues)),
		zap.Duration("duration", time.Since(start)))

	return res, issues, nil
}

// countFolder enumerates one folder completely, descending into subfolders
// when recursive. The returned error reports a failure listing folderID
// itself; failures deeper down are converted to Issues by the caller level
// that observed them, and the failing branch contributes nothing.
func (w *Walker) countFolder(ctx context.Context, folderID string, recursive bool) (*CountResult, []Issue, error) {
	var (
		res    CountResult
		issues []Issue
		token  string
	)

	for {
		if err := w.wait(ctx); err != nil {
			return nil, nil, err
		}

		page, err := w.client.ListChildren(ctx, remote.ListOptions{
			ParentID:  folderID,
			Filter:    remote.FilterAll,
			PageToken: token,
			PageSize:  w.cfg.PageSize,
		})
		if err != nil {
			return nil, nil, err
		}

		for _, entry := range page.Entries {
			if !entry.IsFolder() {
				res.Files++
				continue
			}

			res.Folders++
			if !recursive {
				continue
			}

			sub, subIssues, err := w.countFolder(ctx, entry.ID, true)
			if err != nil {
				// Cancellation is never best-effort: a partial count
				// must not masquerade as a completed one.
				if ctx.Err() != nil {
					return nil, nil, ctx.Err()
				}
				// Best-effort: the failing subtree counts as empty.
				w.logger.Warn("skipping subtree",
					zap.String("folder_id", entry.ID),
					zap.String("name", entry.Name),
					zap.Error(err))
				issues = append(issues, Issue{FolderID: entry.ID, Name: entry.Name, Err: err})
				continue
			}

			res.Files += sub.Files
			res.Folders += sub.Folders
			// Everything below this immediate child is nested
			// relative to the root of this call.
			res.NestedFolders += sub.Folders
			issues = append(issues, subIssues...)
		}

		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}

	return &res, issues, nil
}

// TopLevelFolders lists the immediate subfolders of rootID in
// remote-returned order. Any paging error aborts the whole listing;
// no partial list is returned.
func (w *Walker) TopLevelFolders(ctx context.Context, rootID string) ([]remote.Entry, error) {
	var (
		folders []remote.Entry
		token   string
	)

	for {
		if err := w.wait(ctx); err != nil {
			return nil, err
		}

		page, err := w.client.ListChildren(ctx, remote.ListOptions{
			ParentID:  rootID,
			Filter:    remote.FilterFolders,
			PageToken: token,
			PageSize:  w.cfg.PageSize,
		})
		if err != nil {
			return nil, err
		}

		folders = append(folders, page.Entries...)

		if page.NextPageToken == "" {
			return folders, nil
		}
		token = page.NextPageToken
	}
}

// wait blocks until the rate limiter allows a request.
// Returns immediately if rate limiting is disabled.
func (w *Walker) wait(ctx context.Context) error {
	if w.limiter == nil {
		return nil
	}
	return w.limiter.Wait(ctx)
}
