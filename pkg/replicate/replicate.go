// Package replicate copies remote folder trees into a new destination.
//
// The cloner rebuilds the source hierarchy under the destination folder:
// folders are created before anything is placed inside them, native
// documents are duplicated server-side, and opaque binaries travel through
// an in-memory buffer (download, rewind, resumable re-upload).
//
// Traversal is strictly sequential. Folder depth is controlled by remote
// data, so pending work is held on an explicit stack instead of the call
// stack.
package replicate

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/canopyhq/canopy/pkg/match"
	"github.com/canopyhq/canopy/pkg/output"
	"github.com/canopyhq/canopy/pkg/remote"
)

// Config configures cloner behavior.
type Config struct {
	// PageSize is the listing page size. Zero uses the remote default
	// (1000); values over the remote maximum are clamped.
	PageSize int

	// RateLimit is the maximum remote requests per second.
	// Zero means unlimited (the remote client handles its own throttling).
	RateLimit float64

	// ProgressEvery controls how often progress records are emitted.
	// A progress record is written every N copied leaves.
	// Default: 100
	ProgressEvery int
}

// DefaultConfig returns the default cloner configuration.
func DefaultConfig() Config {
	return Config{ProgressEvery: 100}
}

// Issue records an entry or subtree that could not be copied.
//
// Issues make the best-effort behavior observable: a clone keeps going past
// a failing branch, and every skipped branch surfaces here instead of only
// in logs.
type Issue struct {
	// SourceID is the source entry that failed.
	SourceID string

	// Path is the name path from the clone root.
	Path string

	// Err is the failure.
	Err error
}

// Summary contains aggregate statistics from a completed clone.
type Summary struct {
	// EntriesSeen is the total number of source entries listed.
	EntriesSeen int64

	// FoldersCreated is the number of destination folders created.
	FoldersCreated int64

	// LeavesCopied is the number of leaf entries copied.
	LeavesCopied int64

	// Skipped is the number of leaves excluded by patterns.
	Skipped int64

	// BytesCopied is the cumulative bytes moved by buffered copies.
	BytesCopied int64

	// Errors is the count of non-fatal errors encountered.
	Errors int64

	// Duration is the total time spent cloning.
	Duration time.Duration
}

// Cloner executes a clone job against a remote drive.
//
// Cloner is safe for single use only. Create a new Cloner for each job.
type Cloner struct {
	client  remote.Client
	writer  output.Writer
	matcher *match.Matcher
	logger  *zap.Logger
	cfg     Config
	limiter *rate.Limiter

	// Counters for the summary. Traversal is sequential, so plain
	// integers suffice.
	entriesSeen    int64
	foldersCreated int64
	leavesCopied   int64
	skipped        int64
	bytesCopied    int64
	errorCount     int64
}

// New creates a new cloner.
func New(client remote.Client, cfg Config) *Cloner {
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = DefaultConfig().ProgressEvery
	}

	c := &Cloner{
		client: client,
		writer: output.Discard{},
		logger: zap.NewNop(),
		cfg:    cfg,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c
}

// WithWriter sets the JSONL writer for operational records.
// Returns the cloner for method chaining.
func (c *Cloner) WithWriter(w output.Writer) *Cloner {
	if w != nil {
		c.writer = w
	}
	return c
}

// WithMatcher sets an optional include/exclude matcher applied to leaf
// paths. Folders are always traversed so the destination structure stays
// intact. Returns the cloner for method chaining.
func (c *Cloner) WithMatcher(m *match.Matcher) *Cloner {
	c.matcher = m
	return c
}

// WithLogger sets the logger used for best-effort skip diagnostics.
// Returns the cloner for method chaining.
func (c *Cloner) WithLogger(logger *zap.Logger) *Cloner {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Run replicates every top-level folder of sourceID into destID.
//
// Enumerating the top-level folders is all-or-nothing; a failure there
// aborts the run. Each top-level folder is then cloned best-effort: a
// folder whose clone fails is recorded as an Issue and the run continues
// with its siblings.
func (c *Cloner) Run(ctx context.Context, sourceID, destID string) (*Summary, []Issue, error) {
	start := time.Now()

	if err := c.writer.WriteProgress(ctx, &output.ProgressRecord{Phase: output.PhaseStarting}); err != nil {
		return nil, nil, err
	}

	tops, err := c.listChildren(ctx, sourceID, remote.FilterFolders)
	if err != nil {
		return nil, nil, err
	}

	var issues []Issue
	for _, folder := range tops {
		c.logger.Info("cloning folder",
			zap.String("source_id", folder.ID),
			zap.String("name", folder.Name))

		newID, subIssues, err := c.CloneTree(ctx, folder.ID, destID, folder.Name)
		issues = append(issues, subIssues...)
		if err != nil {
			c.recordError(ctx, folder.ID, folder.Name, err)
			issues = append(issues, Issue{SourceID: folder.ID, Path: folder.Name, Err: err})
			continue
		}

		c.logger.Info("folder cloned",
			zap.String("source_id", folder.ID),
			zap.String("new_id", newID),
			zap.String("name", folder.Name))
	}

	summary := c.buildSummary(time.Since(start))
	if err := c.writeSummary(ctx, summary); err != nil {
		return summary, issues, err
	}
	return summary, issues, nil
}

// pendingNode is one unit of clone work: populate destID with the children
// of sourceID.
type pendingNode struct {
	sourceID string
	destID   string
	path     string
}

// CloneTree replicates the subtree rooted at sourceID.
//
// When name is non-empty a folder of that name is created under
// destParentID and becomes the effective destination; a failure there is
// fatal to this call. When name is empty the children are copied directly
// into destParentID (copy-into-existing semantics).
//
// Failures below the root creation are contained: the failing branch is
// logged, recorded as an Issue, and its siblings proceed. The returned
// identifier is the effective destination folder.
func (c *Cloner) CloneTree(ctx context.Context, sourceID, destParentID, name string) (string, []Issue, error) {
	effectiveDest := destParentID
	rootPath := ""

	if name != "" {
		created, err := c.createFolder(ctx, name, destParentID)
		if err != nil {
			return "", nil, err
		}
		effectiveDest = created.ID
		rootPath = name
	}

	var issues []Issue

	// Depth-first over an explicit stack: nesting depth is remote-defined
	// and must not be able to exhaust the call stack.
	stack := []pendingNode{{sourceID: sourceID, destID: effectiveDest, path: rootPath}}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := c.listChildren(ctx, node.sourceID, remote.FilterAll)
		if err != nil {
			if ctx.Err() != nil {
				return effectiveDest, issues, ctx.Err()
			}
			c.recordError(ctx, node.sourceID, node.path, err)
			issues = append(issues, Issue{SourceID: node.sourceID, Path: node.path, Err: err})
			continue
		}
		c.entriesSeen += int64(len(children))

		for _, child := range children {
			childPath := joinPath(node.path, child.Name)

			_ = c.writer.WriteEntry(ctx, &output.EntryRecord{
				ID:       child.ID,
				Name:     child.Name,
				MimeType: child.MimeType,
				Path:     childPath,
			})

			if child.IsFolder() {
				created, err := c.createFolder(ctx, child.Name, node.destID)
				if err != nil {
					c.recordError(ctx, child.ID, childPath, err)
					issues = append(issues, Issue{SourceID: child.ID, Path: childPath, Err: err})
					continue
				}
				stack = append(stack, pendingNode{sourceID: child.ID, destID: created.ID, path: childPath})
				continue
			}

			if c.matcher != nil && !c.matcher.Match(childPath) {
				c.skipped++
				_ = c.writer.WriteSkip(ctx, &output.SkipRecord{
					SourceID: child.ID,
					Path:     childPath,
					Reason:   "pattern",
				})
				continue
			}

			if err := c.cloneLeaf(ctx, child.ID, node.destID, child.Name, childPath); err != nil {
				c.recordError(ctx, child.ID, childPath, err)
				issues = append(issues, Issue{SourceID: child.ID, Path: childPath, Err: err})
			}
		}
	}

	return effectiveDest, issues, nil
}

// CloneLeaf copies a single non-folder entry under destParentID.
//
// The entry's type tag decides the strategy: native documents are
// duplicated server-side, anything else is downloaded into a buffer and
// re-uploaded. If name is empty the source entry's name is kept.
func (c *Cloner) CloneLeaf(ctx context.Context, entryID, destParentID, name string) (string, error) {
	newID, _, _, err := c.copyLeafEntry(ctx, entryID, destParentID, name)
	return newID, err
}

// cloneLeaf is the tree-walk wrapper around copyLeafEntry: it updates
// counters and emits copy records.
func (c *Cloner) cloneLeaf(ctx context.Context, entryID, destParentID, name, path string) error {
	newID, bytes, strategy, err := c.copyLeafEntry(ctx, entryID, destParentID, name)
	if err != nil {
		return err
	}

	c.leavesCopied++
	c.bytesCopied += bytes

	_ = c.writer.WriteCopy(ctx, &output.CopyRecord{
		SourceID: entryID,
		NewID:    newID,
		Path:     path,
		Strategy: strategy,
		Bytes:    bytes,
	})

	if c.cfg.ProgressEvery > 0 && c.leavesCopied%int64(c.cfg.ProgressEvery) == 0 {
		_ = c.writer.WriteProgress(ctx, &output.ProgressRecord{
			Phase:          output.PhaseCopying,
			EntriesSeen:    c.entriesSeen,
			FoldersCreated: c.foldersCreated,
			LeavesCopied:   c.leavesCopied,
			BytesCopied:    c.bytesCopied,
			Path:           path,
		})
	}

	return nil
}

// listChildren pages through all children of parentID.
func (c *Cloner) listChildren(ctx context.Context, parentID string, filter remote.TypeFilter) ([]remote.Entry, error) {
	var (
		entries []remote.Entry
		token   string
	)

	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		page, err := c.client.ListChildren(ctx, remote.ListOptions{
			ParentID:  parentID,
			Filter:    filter,
			PageToken: token,
			PageSize:  c.cfg.PageSize,
		})
		if err != nil {
			return nil, err
		}

		entries = append(entries, page.Entries...)

		if page.NextPageToken == "" {
			return entries, nil
		}
		token = page.NextPageToken
	}
}

// createFolder creates one destination folder and updates counters.
func (c *Cloner) createFolder(ctx context.Context, name, parentID string) (*remote.Entry, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	created, err := c.client.CreateFolder(ctx, name, parentID)
	if err != nil {
		return nil, err
	}
	c.foldersCreated++
	return created, nil
}

// recordError logs a best-effort failure and emits an error record.
func (c *Cloner) recordError(ctx context.Context, entryID, path string, err error) {
	c.errorCount++

	c.logger.Warn("skipping entry",
		zap.String("entry_id", entryID),
		zap.String("path", path),
		zap.Error(err))

	// Best effort - don't fail the clone if we can't write the record
	_ = c.writer.WriteError(ctx, &output.ErrorRecord{
		Code:    errorCode(err),
		Message: err.Error(),
		EntryID: entryID,
		Path:    path,
	})
}

// errorCode maps remote sentinels to output error codes.
func errorCode(err error) string {
	switch {
	case remote.IsNotFound(err):
		return output.ErrCodeNotFound
	case remote.IsPermissionDenied(err):
		return output.ErrCodePermissionDenied
	case remote.IsThrottled(err):
		return output.ErrCodeThrottled
	case remote.IsUnavailable(err):
		return output.ErrCodeUnavailable
	default:
		return output.ErrCodeInternal
	}
}

// buildSummary creates a Summary from the counters.
func (c *Cloner) buildSummary(duration time.Duration) *Summary {
	return &Summary{
		EntriesSeen:    c.entriesSeen,
		FoldersCreated: c.foldersCreated,
		LeavesCopied:   c.leavesCopied,
		Skipped:        c.skipped,
		BytesCopied:    c.bytesCopied,
		Errors:         c.errorCount,
		Duration:       duration,
	}
}

// writeSummary emits a summary record.
func (c *Cloner) writeSummary(ctx context.Context, s *Summary) error {
	return c.writer.WriteSummary(ctx, &output.SummaryRecord{
		EntriesSeen:    s.EntriesSeen,
		FoldersCreated: s.FoldersCreated,
		LeavesCopied:   s.LeavesCopied,
		Skipped:        s.Skipped,
		BytesCopied:    s.BytesCopied,
		Duration:       s.Duration,
		DurationHuman:  s.Duration.Round(time.Millisecond).String(),
		Errors:         s.Errors,
	})
}

// wait blocks until the rate limiter allows a request.
// Returns immediately if rate limiting is disabled.
func (c *Cloner) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// joinPath appends a name to a name path.
func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "/" + name
}
