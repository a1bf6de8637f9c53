package walker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopyhq/canopy/pkg/remote"
)

// fakeClient implements remote.Client over an in-memory tree.
type fakeClient struct {
	mu        sync.Mutex
	children  map[string][]remote.Entry // parent id -> children
	failList  map[string]error          // parent id -> listing error
	listCalls int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		children: make(map[string][]remote.Entry),
		failList: make(map[string]error),
	}
}

func (f *fakeClient) addFolder(parentID, id, name string) {
	f.children[parentID] = append(f.children[parentID], remote.Entry{
		ID: id, Name: name, MimeType: remote.FolderMimeType,
	})
}

func (f *fakeClient) addFile(parentID, id, name string) {
	f.children[parentID] = append(f.children[parentID], remote.Entry{
		ID: id, Name: name, MimeType: "application/pdf",
	})
}

func (f *fakeClient) ListChildren(ctx context.Context, opts remote.ListOptions) (*remote.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++

	if err := f.failList[opts.ParentID]; err != nil {
		return nil, err
	}

	all := f.children[opts.ParentID]
	if opts.Filter == remote.FilterFolders {
		var folders []remote.Entry
		for _, e := range all {
			if e.IsFolder() {
				folders = append(folders, e)
			}
		}
		all = folders
	}

	pageSize := remote.ClampPageSize(opts.PageSize, remote.DefaultPageSize)

	offset := 0
	if opts.PageToken != "" {
		n, err := strconv.Atoi(opts.PageToken)
		if err != nil {
			return nil, fmt.Errorf("bad page token %q", opts.PageToken)
		}
		offset = n
	}

	end := offset + pageSize
	if end > len(all) {
		end = len(all)
	}

	res := &remote.ListResult{Entries: all[offset:end]}
	if end < len(all) {
		res.NextPageToken = strconv.Itoa(end)
	}
	return res, nil
}

func (f *fakeClient) GetEntry(ctx context.Context, id string) (*remote.Entry, error) {
	return nil, remote.ErrNotFound
}

func (f *fakeClient) CreateFolder(ctx context.Context, name, parentID string) (*remote.Entry, error) {
	return nil, errors.New("not supported")
}

func (f *fakeClient) CopyEntry(ctx context.Context, id, newName, parentID string) (*remote.Entry, error) {
	return nil, errors.New("not supported")
}

func (f *fakeClient) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	return nil, errors.New("not supported")
}

func (f *fakeClient) Upload(ctx context.Context, spec remote.UploadSpec, content io.Reader) (*remote.Entry, error) {
	return nil, errors.New("not supported")
}

func (f *fakeClient) Close() error { return nil }

func TestCountLeafOnlyFolder(t *testing.T) {
	fc := newFakeClient()
	fc.addFile("root", "f1", "a.pdf")
	fc.addFile("root", "f2", "b.jpg")
	fc.addFile("root", "f3", "c.bin")

	w := New(fc, Config{})
	ctx := context.Background()

	flat, issues, err := w.Count(ctx, "root", false)
	require.NoError(t, err)
	assert.Empty(t, issues)

	deep, issues, err := w.Count(ctx, "root", true)
	require.NoError(t, err)
	assert.Empty(t, issues)

	// With only leaf children, recursive and flat counts agree.
	assert.Equal(t, flat.Files, deep.Files)
	assert.Equal(t, flat.Folders, deep.Folders)
	assert.Equal(t, 3, deep.Files)
	assert.Equal(t, 0, deep.Folders)
	assert.Equal(t, 0, deep.NestedFolders)
	assert.Equal(t, 3, deep.TotalItems())
}

func TestCountNestedFolderBookkeeping(t *testing.T) {
	t.Run("single empty child folder", func(t *testing.T) {
		fc := newFakeClient()
		fc.addFolder("C", "D", "d")

		res, issues, err := New(fc, Config{}).Count(context.Background(), "C", true)
		require.NoError(t, err)
		assert.Empty(t, issues)
		assert.Equal(t, 1, res.Folders)
		assert.Equal(t, 0, res.NestedFolders)
	})

	t.Run("grandchild folder is nested", func(t *testing.T) {
		fc := newFakeClient()
		fc.addFolder("C", "D", "d")
		fc.addFolder("D", "E", "e")

		res, issues, err := New(fc, Config{}).Count(context.Background(), "C", true)
		require.NoError(t, err)
		assert.Empty(t, issues)
		assert.Equal(t, 2, res.Folders)
		assert.Equal(t, 1, res.NestedFolders)
	})

	t.Run("branching grandchildren", func(t *testing.T) {
		fc := newFakeClient()
		fc.addFolder("C", "D", "d")
		fc.addFolder("D", "E1", "e1")
		fc.addFolder("D", "E2", "e2")
		fc.addFile("E1", "f1", "deep.pdf")

		res, issues, err := New(fc, Config{}).Count(context.Background(), "C", true)
		require.NoError(t, err)
		assert.Empty(t, issues)
		assert.Equal(t, 1, res.Files)
		assert.Equal(t, 3, res.Folders)
		assert.Equal(t, 2, res.NestedFolders)
	})

	t.Run("non-recursive counts immediate subfolders only", func(t *testing.T) {
		fc := newFakeClient()
		fc.addFolder("C", "D", "d")
		fc.addFolder("D", "E", "e")
		fc.addFile("D", "f1", "hidden-from-flat.pdf")

		res, issues, err := New(fc, Config{}).Count(context.Background(), "C", false)
		require.NoError(t, err)
		assert.Empty(t, issues)
		assert.Equal(t, 0, res.Files)
		assert.Equal(t, 1, res.Folders)
		assert.Equal(t, 0, res.NestedFolders)
	})
}

func TestCountBestEffortSubtreeDrop(t *testing.T) {
	fc := newFakeClient()
	fc.addFolder("root", "broken", "broken")
	fc.addFolder("root", "ok", "ok")
	fc.addFile("ok", "f1", "kept.pdf")
	fc.failList["broken"] = remote.ErrPermissionDenied

	res, issues, err := New(fc, Config{}).Count(context.Background(), "root", true)
	require.NoError(t, err)

	// The broken folder itself is still counted; its contents count as empty.
	assert.Equal(t, 2, res.Folders)
	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 0, res.NestedFolders)

	require.Len(t, issues, 1)
	assert.Equal(t, "broken", issues[0].FolderID)
	assert.True(t, remote.IsPermissionDenied(issues[0].Err))
}

func TestCountRootListingErrorIsFatal(t *testing.T) {
	fc := newFakeClient()
	fc.addFile("root", "f1", "a.pdf")
	fc.failList["root"] = remote.ErrUnavailable

	res, issues, err := New(fc, Config{}).Count(context.Background(), "root", true)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Nil(t, issues)
	assert.True(t, remote.IsUnavailable(err))
}

// cancellingClient cancels the shared context when asked to list cancelOn,
// simulating a caller abort mid-traversal.
type cancellingClient struct {
	*fakeClient
	cancel   context.CancelFunc
	cancelOn string
}

func (c *cancellingClient) ListChildren(ctx context.Context, opts remote.ListOptions) (*remote.ListResult, error) {
	if opts.ParentID == c.cancelOn {
		c.cancel()
		return nil, ctx.Err()
	}
	return c.fakeClient.ListChildren(ctx, opts)
}

func TestCountCancellationEscalates(t *testing.T) {
	fc := newFakeClient()
	fc.addFolder("root", "a", "A")
	fc.addFile("root", "f1", "report.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cc := &cancellingClient{fakeClient: fc, cancel: cancel, cancelOn: "a"}

	// A cancelled sub-count must fail the whole count, not shrink to a
	// partial result with an Issue.
	res, issues, err := New(cc, Config{}).Count(ctx, "root", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
	assert.Nil(t, issues)
}

func TestCountPagination(t *testing.T) {
	fc := newFakeClient()
	for i := 0; i < 2500; i++ {
		fc.addFile("root", fmt.Sprintf("f%04d", i), fmt.Sprintf("file-%04d.bin", i))
	}

	w := New(fc, Config{PageSize: 1000})
	res, issues, err := w.Count(context.Background(), "root", true)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, 2500, res.Files)
	assert.Equal(t, 0, res.Folders)
	assert.Equal(t, 3, fc.listCalls)
}

func TestTopLevelFolders(t *testing.T) {
	fc := newFakeClient()
	fc.addFolder("root", "a", "Alpha")
	fc.addFile("root", "x", "not-a-folder.txt")
	fc.addFolder("root", "b", "Beta")
	fc.addFolder("root", "c", "Gamma")

	w := New(fc, Config{})
	ctx := context.Background()

	folders, err := w.TopLevelFolders(ctx, "root")
	require.NoError(t, err)
	require.Len(t, folders, 3)

	// Remote-returned order is preserved.
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"},
		[]string{folders[0].Name, folders[1].Name, folders[2].Name})

	// Listing twice against an unmodified tree returns the same pairs.
	again, err := w.TopLevelFolders(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, folders, again)
}

func TestTopLevelFoldersPagination(t *testing.T) {
	fc := newFakeClient()
	for i := 0; i < 2500; i++ {
		fc.addFolder("root", fmt.Sprintf("d%04d", i), fmt.Sprintf("dir-%04d", i))
	}

	w := New(fc, Config{PageSize: 1000})
	folders, err := w.TopLevelFolders(context.Background(), "root")
	require.NoError(t, err)
	assert.Len(t, folders, 2500)
	assert.Equal(t, 3, fc.listCalls)

	// No duplicates across page boundaries.
	seen := make(map[string]bool, len(folders))
	for _, f := range folders {
		assert.False(t, seen[f.ID], "duplicate id %s", f.ID)
		seen[f.ID] = true
	}
}

func TestTopLevelFoldersErrorAborts(t *testing.T) {
	fc := newFakeClient()
	fc.addFolder("root", "a", "Alpha")
	fc.failList["root"] = remote.ErrThrottled

	folders, err := New(fc, Config{}).TopLevelFolders(context.Background(), "root")
	require.Error(t, err)
	assert.Nil(t, folders)
}
