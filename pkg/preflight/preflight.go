// Package preflight verifies capabilities before long-running jobs.
//
// Preflight is a capability contract, not a data operation: it answers "can
// this job read its source and reach its destination" with the cheapest
// possible calls, so permission problems surface before hours of copying.
package preflight

import (
	"context"
	"fmt"

	"github.com/canopyhq/canopy/pkg/output"
	"github.com/canopyhq/canopy/pkg/remote"
)

// Mode defines how aggressive preflight checks are.
type Mode string

const (
	// ModePlanOnly performs no remote calls. The returned record documents
	// that nothing was verified.
	ModePlanOnly Mode = "plan-only"

	// ModeReadSafe performs read-only calls: resolve the source and
	// destination folders and list one page of the source.
	ModeReadSafe Mode = "read-safe"
)

// Spec controls how preflight checks are executed.
type Spec struct {
	Mode Mode

	// SourceID is the folder tree to be read.
	SourceID string

	// DestID is the folder the job writes under. Empty skips the
	// destination checks (count and report jobs never write).
	DestID string
}

// Capability names are stable strings used in JSONL output.
const (
	CapSourceGet  = "source.get"
	CapSourceList = "source.list"
	CapDestGet    = "destination.get"
)

// Run executes the preflight checks described by spec.
//
// The returned record always reflects every check attempted. A non-nil error
// means at least one capability was denied; the record explains which.
func Run(ctx context.Context, client remote.Client, spec Spec) (*output.PreflightRecord, error) {
	rec := &output.PreflightRecord{
		Mode:    string(spec.Mode),
		Results: []output.PreflightCheckResult{},
	}

	if spec.Mode == ModePlanOnly {
		return rec, nil
	}

	var firstErr error
	record := func(capability string, err error) {
		result := output.PreflightCheckResult{Capability: capability, Allowed: err == nil}
		if err != nil {
			result.ErrorCode = errorCode(err)
			result.Detail = err.Error()
			if firstErr == nil {
				firstErr = err
			}
		}
		rec.Results = append(rec.Results, result)
	}

	record(CapSourceGet, checkFolder(ctx, client, spec.SourceID))

	_, err := client.ListChildren(ctx, remote.ListOptions{
		ParentID: spec.SourceID,
		PageSize: 1,
	})
	record(CapSourceList, err)

	if spec.DestID != "" {
		record(CapDestGet, checkFolder(ctx, client, spec.DestID))
	}

	return rec, firstErr
}

// checkFolder resolves an entry and verifies it is a folder.
func checkFolder(ctx context.Context, client remote.Client, id string) error {
	entry, err := client.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if !entry.IsFolder() {
		return fmt.Errorf("%s (%s): %w", entry.Name, id, remote.ErrNotFolder)
	}
	return nil
}

func errorCode(err error) string {
	switch {
	case remote.IsPermissionDenied(err), remote.IsInvalidCredentials(err):
		return output.ErrCodePermissionDenied
	case remote.IsNotFolder(err):
		return output.ErrCodeNotFolder
	case remote.IsNotFound(err):
		return output.ErrCodeNotFound
	case remote.IsThrottled(err):
		return output.ErrCodeThrottled
	case remote.IsUnavailable(err):
		return output.ErrCodeUnavailable
	default:
		return output.ErrCodeInternal
	}
}
