// Package report assembles folder inventory reports.
//
// Reports compose walker output into serializable summaries: a flat report
// counts one folder's immediate contents, a tree report counts every
// top-level folder recursively. Reports serialize to indented JSON so they
// stay readable as files.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/canopyhq/canopy/pkg/walker"
)

// FlatReport summarizes the immediate contents of a single folder.
type FlatReport struct {
	// SourceFolderID is the folder that was counted.
	SourceFolderID string `json:"source_folder_id"`

	// FileCount is the number of non-folder entries.
	FileCount int `json:"file_count"`

	// FolderCount is the number of immediate subfolders.
	FolderCount int `json:"folder_count"`

	// TotalItems is FileCount + FolderCount.
	TotalItems int `json:"total_items"`

	// GeneratedAt is when the report was assembled.
	GeneratedAt time.Time `json:"generated_at"`
}

// FolderSummary is the recursive tally for one top-level folder.
type FolderSummary struct {
	// Name is the folder's display name.
	Name string `json:"name"`

	// ID is the folder's identifier.
	ID string `json:"id"`

	// TotalFiles is the recursive file count.
	TotalFiles int `json:"total_files"`

	// TotalFolders is the recursive folder count.
	TotalFolders int `json:"total_folders"`

	// TotalItems is TotalFiles + TotalFolders.
	TotalItems int `json:"total_items"`
}

// TreeReport summarizes every top-level folder of a root recursively.
type TreeReport struct {
	// SourceFolderID is the root whose top-level folders were counted.
	SourceFolderID string `json:"source_folder_id"`

	// TopLevelFolders holds one summary per successfully counted
	// top-level folder, in remote-returned order.
	TopLevelFolders []FolderSummary `json:"top_level_folders"`

	// TotalNestedFolders is the sum of each counted top-level folder's
	// nested-folder count (folders strictly below its immediate
	// children).
	TotalNestedFolders int `json:"total_nested_folders"`

	// GeneratedAt is when the report was assembled.
	GeneratedAt time.Time `json:"generated_at"`
}

// Assembler builds reports over a walker.
type Assembler struct {
	walker *walker.Walker
	logger *zap.Logger
	now    func() time.Time
}

// New creates an assembler over the given walker.
func New(w *walker.Walker) *Assembler {
	return &Assembler{walker: w, logger: zap.NewNop(), now: time.Now}
}

// WithLogger sets the logger used for best-effort skip diagnostics.
// Returns the assembler for method chaining.
func (a *Assembler) WithLogger(logger *zap.Logger) *Assembler {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Flat counts the immediate contents of rootID and assembles a flat report.
//
// The count is non-recursive, so it cannot partially fail: any listing error
// is fatal and no report is returned.
func (a *Assembler) Flat(ctx context.Context, rootID string) (*FlatReport, error) {
	res, _, err := a.walker.Count(ctx, rootID, false)
	if err != nil {
		return nil, fmt.Errorf("counting folder %s: %w", rootID, err)
	}

	return &FlatReport{
		SourceFolderID: rootID,
		FileCount:      res.Files,
		FolderCount:    res.Folders,
		TotalItems:     res.TotalItems(),
		GeneratedAt:    a.now().UTC(),
	}, nil
}

// Tree enumerates rootID's top-level folders and counts each recursively.
//
// Enumerating the top-level folders is all-or-nothing. Counting each folder
// is best-effort: a folder whose count fails is dropped from the report and
// recorded as an Issue, and deeper failures inside a counted folder surface
// as Issues from the walker. The report covers whatever was counted.
func (a *Assembler) Tree(ctx context.Context, rootID string) (*TreeReport, []walker.Issue, error) {
	tops, err := a.walker.TopLevelFolders(ctx, rootID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing top-level folders of %s: %w", rootID, err)
	}

	rep := &TreeReport{
		SourceFolderID:  rootID,
		TopLevelFolders: []FolderSummary{},
	}

	var issues []walker.Issue
	for _, folder := range tops {
		res, subIssues, err := a.walker.Count(ctx, folder.ID, true)
		issues = append(issues, subIssues...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, issues, ctx.Err()
			}
			a.logger.Warn("skipping top-level folder",
				zap.String("folder_id", folder.ID),
				zap.String("name", folder.Name),
				zap.Error(err))
			issues = append(issues, walker.Issue{FolderID: folder.ID, Name: folder.Name, Err: err})
			continue
		}

		rep.TopLevelFolders = append(rep.TopLevelFolders, FolderSummary{
			Name:         folder.Name,
			ID:           folder.ID,
			TotalFiles:   res.Files,
			TotalFolders: res.Folders,
			TotalItems:   res.TotalItems(),
		})
		rep.TotalNestedFolders += res.NestedFolders
	}

	rep.GeneratedAt = a.now().UTC()
	return rep, issues, nil
}

// WriteFile serializes a report to path as indented JSON.
//
// The report argument is any of the report types in this package.
func WriteFile(path string, report any) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing report: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}
	return nil
}
