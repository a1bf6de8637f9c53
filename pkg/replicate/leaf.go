package replicate

import (
	"bytes"
	"context"
	"io"

	"github.com/canopyhq/canopy/pkg/output"
	"github.com/canopyhq/canopy/pkg/remote"
)

// copyLeafEntry copies one non-folder entry and reports the strategy used
// and the bytes moved (zero for server-side copies).
//
// The entry's type tag is fetched fresh: listings can be stale, and the
// strategy choice must reflect what the service currently stores.
func (c *Cloner) copyLeafEntry(ctx context.Context, entryID, destParentID, name string) (string, int64, string, error) {
	if err := c.wait(ctx); err != nil {
		return "", 0, "", err
	}

	entry, err := c.client.GetEntry(ctx, entryID)
	if err != nil {
		return "", 0, "", err
	}
	if name == "" {
		name = entry.Name
	}

	if entry.IsNativeDoc() {
		// Native documents have no exportable byte stream; the service
		// duplicates the content internally.
		if err := c.wait(ctx); err != nil {
			return "", 0, "", err
		}
		copied, err := c.client.CopyEntry(ctx, entryID, name, destParentID)
		if err != nil {
			return "", 0, "", err
		}
		return copied.ID, 0, output.StrategyServerSide, nil
	}

	return c.copyBinary(ctx, entry, destParentID, name)
}

// copyBinary moves an opaque binary through an in-memory buffer: download
// fully, rewind, re-upload with the source mime type. The buffer lives only
// for the duration of this call, so peak memory is bounded by the largest
// single file.
func (c *Cloner) copyBinary(ctx context.Context, entry *remote.Entry, destParentID, name string) (string, int64, string, error) {
	if err := c.wait(ctx); err != nil {
		return "", 0, "", err
	}

	body, err := c.client.Download(ctx, entry.ID)
	if err != nil {
		return "", 0, "", err
	}

	var buf bytes.Buffer
	_, copyErr := io.Copy(&buf, body)
	closeErr := body.Close()
	if copyErr != nil {
		return "", 0, "", copyErr
	}
	if closeErr != nil {
		return "", 0, "", closeErr
	}

	if err := c.wait(ctx); err != nil {
		return "", 0, "", err
	}

	size := int64(buf.Len())
	uploaded, err := c.client.Upload(ctx, remote.UploadSpec{
		Name:     name,
		ParentID: destParentID,
		MimeType: entry.MimeType,
	}, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return "", 0, "", err
	}

	return uploaded.ID, size, output.StrategyDownloadUpload, nil
}
