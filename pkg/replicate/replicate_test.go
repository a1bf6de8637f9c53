package replicate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopyhq/canopy/pkg/match"
	"github.com/canopyhq/canopy/pkg/output"
	"github.com/canopyhq/canopy/pkg/remote"
)

// fakeDrive implements remote.Client over an in-memory tree with content.
type fakeDrive struct {
	entries  map[string]remote.Entry // id -> entry
	children map[string][]string     // parent id -> child ids
	content  map[string][]byte       // id -> binary content
	failList map[string]error        // parent id -> listing error
	failOp   map[string]error        // "op:id" -> error
	nextID   int
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{
		entries:  make(map[string]remote.Entry),
		children: make(map[string][]string),
		content:  make(map[string][]byte),
		failList: make(map[string]error),
		failOp:   make(map[string]error),
	}
}

func (f *fakeDrive) put(parentID string, e remote.Entry) {
	f.entries[e.ID] = e
	f.children[parentID] = append(f.children[parentID], e.ID)
}

func (f *fakeDrive) addFolder(parentID, id, name string) {
	f.put(parentID, remote.Entry{ID: id, Name: name, MimeType: remote.FolderMimeType})
}

func (f *fakeDrive) addNativeDoc(parentID, id, name string) {
	f.put(parentID, remote.Entry{ID: id, Name: name, MimeType: "application/vnd.google-apps.document"})
}

func (f *fakeDrive) addBinary(parentID, id, name string, content []byte) {
	f.put(parentID, remote.Entry{ID: id, Name: name, MimeType: "application/octet-stream"})
	f.content[id] = content
}

func (f *fakeDrive) newID() string {
	f.nextID++
	return fmt.Sprintf("new-%03d", f.nextID)
}

// lookup finds an entry by name under a parent. Test helper for asserting
// on destination structure.
func (f *fakeDrive) lookup(parentID, name string) (remote.Entry, bool) {
	for _, id := range f.children[parentID] {
		if f.entries[id].Name == name {
			return f.entries[id], true
		}
	}
	return remote.Entry{}, false
}

func (f *fakeDrive) ListChildren(ctx context.Context, opts remote.ListOptions) (*remote.ListResult, error) {
	if err := f.failList[opts.ParentID]; err != nil {
		return nil, err
	}

	var all []remote.Entry
	for _, id := range f.children[opts.ParentID] {
		e := f.entries[id]
		if opts.Filter == remote.FilterFolders && !e.IsFolder() {
			continue
		}
		all = append(all, e)
	}

	pageSize := remote.ClampPageSize(opts.PageSize, remote.DefaultPageSize)
	offset := 0
	if opts.PageToken != "" {
		offset, _ = strconv.Atoi(opts.PageToken)
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

func (f *fakeDrive) GetEntry(ctx context.Context, id string) (*remote.Entry, error) {
	if err := f.failOp["get:"+id]; err != nil {
		return nil, err
	}
	e, ok := f.entries[id]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return &e, nil
}

func (f *fakeDrive) CreateFolder(ctx context.Context, name, parentID string) (*remote.Entry, error) {
	if err := f.failOp["create:"+parentID]; err != nil {
		return nil, err
	}
	e := remote.Entry{ID: f.newID(), Name: name, MimeType: remote.FolderMimeType}
	f.put(parentID, e)
	return &e, nil
}

func (f *fakeDrive) CopyEntry(ctx context.Context, id, newName, parentID string) (*remote.Entry, error) {
	if err := f.failOp["copy:"+id]; err != nil {
		return nil, err
	}
	src, ok := f.entries[id]
	if !ok {
		return nil, remote.ErrNotFound
	}
	e := remote.Entry{ID: f.newID(), Name: newName, MimeType: src.MimeType}
	f.put(parentID, e)
	return &e, nil
}

func (f *fakeDrive) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := f.failOp["download:"+id]; err != nil {
		return nil, err
	}
	content, ok := f.content[id]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (f *fakeDrive) Upload(ctx context.Context, spec remote.UploadSpec, content io.Reader) (*remote.Entry, error) {
	if err := f.failOp["upload:"+spec.ParentID]; err != nil {
		return nil, err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	e := remote.Entry{ID: f.newID(), Name: spec.Name, MimeType: spec.MimeType}
	f.put(spec.ParentID, e)
	f.content[e.ID] = data
	return &e, nil
}

func (f *fakeDrive) Close() error { return nil }

// buildDepthTwoTree wires a two-level source tree with one native doc and
// one binary at each level.
func buildDepthTwoTree(f *fakeDrive) {
	f.addFolder("src", "lvl1", "Level One")
	f.addNativeDoc("lvl1", "doc1", "Notes")
	f.addBinary("lvl1", "bin1", "photo.jpg", []byte("jpeg-bytes-1"))
	f.addFolder("lvl1", "lvl2", "Level Two")
	f.addNativeDoc("lvl2", "doc2", "Minutes")
	f.addBinary("lvl2", "bin2", "scan.pdf", []byte("pdf-bytes-2"))
}

func TestCloneTreeDepthTwo(t *testing.T) {
	f := newFakeDrive()
	buildDepthTwoTree(f)

	c := New(f, Config{})
	rootID, issues, err := c.CloneTree(context.Background(), "lvl1", "dst", "Level One")
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.NotEmpty(t, rootID)

	// Destination root folder exists under dst with the requested name.
	newRoot, ok := f.lookup("dst", "Level One")
	require.True(t, ok)
	assert.Equal(t, rootID, newRoot.ID)

	// Level one leaves were copied with new identifiers.
	doc, ok := f.lookup(rootID, "Notes")
	require.True(t, ok)
	assert.NotEqual(t, "doc1", doc.ID)
	assert.Equal(t, "application/vnd.google-apps.document", doc.MimeType)

	bin, ok := f.lookup(rootID, "photo.jpg")
	require.True(t, ok)
	assert.NotEqual(t, "bin1", bin.ID)

	// Level two folder and its leaves.
	sub, ok := f.lookup(rootID, "Level Two")
	require.True(t, ok)
	assert.NotEqual(t, "lvl2", sub.ID)

	_, ok = f.lookup(sub.ID, "Minutes")
	assert.True(t, ok)
	bin2, ok := f.lookup(sub.ID, "scan.pdf")
	require.True(t, ok)
	assert.Equal(t, []byte("pdf-bytes-2"), f.content[bin2.ID])
}

func TestCloneTreeEmitsEntryRecords(t *testing.T) {
	f := newFakeDrive()
	buildDepthTwoTree(f)

	var buf bytes.Buffer
	w := output.NewJSONLWriter(&buf, "job-1", "gdrive")

	c := New(f, Config{}).WithWriter(w)
	_, issues, err := c.CloneTree(context.Background(), "lvl1", "dst", "Level One")
	require.NoError(t, err)
	require.Empty(t, issues)

	// One entry record per listed source child, across both levels.
	var paths []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, output.TypeEntry) {
			paths = append(paths, line)
		}
	}
	require.Len(t, paths, 5)
	assert.Contains(t, paths[0], `"path":"Level One/`)

	joined := strings.Join(paths, "\n")
	for _, want := range []string{
		"Level One/Notes",
		"Level One/photo.jpg",
		"Level One/Level Two",
		"Level One/Level Two/Minutes",
		"Level One/Level Two/scan.pdf",
	} {
		assert.Contains(t, joined, want)
	}
}

func TestCloneTreeBinaryRoundTrip(t *testing.T) {
	f := newFakeDrive()
	payload := []byte{0x00, 0x01, 0xfe, 0xff, 0x42}
	f.addBinary("src", "bin1", "blob.bin", payload)

	c := New(f, Config{})
	rootID, issues, err := c.CloneTree(context.Background(), "src", "dst", "Copy")
	require.NoError(t, err)
	assert.Empty(t, issues)

	copied, ok := f.lookup(rootID, "blob.bin")
	require.True(t, ok)
	assert.Equal(t, payload, f.content[copied.ID])
	assert.Equal(t, "application/octet-stream", copied.MimeType)
}

func TestCloneTreeCopyIntoExisting(t *testing.T) {
	f := newFakeDrive()
	f.addBinary("src", "bin1", "a.bin", []byte("a"))

	c := New(f, Config{})
	rootID, issues, err := c.CloneTree(context.Background(), "src", "dst", "")
	require.NoError(t, err)
	assert.Empty(t, issues)

	// With no name, children land directly in the existing destination.
	assert.Equal(t, "dst", rootID)
	_, ok := f.lookup("dst", "a.bin")
	assert.True(t, ok)
}

func TestCloneTreeRootCreationFailureIsFatal(t *testing.T) {
	f := newFakeDrive()
	f.addBinary("src", "bin1", "a.bin", []byte("a"))
	f.failOp["create:dst"] = remote.ErrPermissionDenied

	c := New(f, Config{})
	rootID, issues, err := c.CloneTree(context.Background(), "src", "dst", "Copy")
	require.Error(t, err)
	assert.Empty(t, rootID)
	assert.Empty(t, issues)
	assert.True(t, remote.IsPermissionDenied(err))
}

func TestCloneTreeFailingBranchDoesNotAbortSiblings(t *testing.T) {
	f := newFakeDrive()
	f.addFolder("src", "good", "Good")
	f.addFolder("src", "bad", "Bad")
	f.addBinary("good", "bin1", "kept.bin", []byte("kept"))
	f.failList["bad"] = remote.ErrPermissionDenied

	c := New(f, Config{})
	rootID, issues, err := c.CloneTree(context.Background(), "src", "dst", "Copy")
	require.NoError(t, err)
	require.NotEmpty(t, rootID)

	// The failing branch surfaces as an issue, not an error.
	require.Len(t, issues, 1)
	assert.Equal(t, "bad", issues[0].SourceID)
	assert.Equal(t, "Copy/Bad", issues[0].Path)

	// Siblings of the failing branch are present in the destination.
	good, ok := f.lookup(rootID, "Good")
	require.True(t, ok)
	_, ok = f.lookup(good.ID, "kept.bin")
	assert.True(t, ok)

	// The destination folder for the broken branch was still created;
	// only its population failed.
	_, ok = f.lookup(rootID, "Bad")
	assert.True(t, ok)
}

func TestCloneTreeLeafFailureIsContained(t *testing.T) {
	f := newFakeDrive()
	f.addBinary("src", "broken", "broken.bin", []byte("x"))
	f.addBinary("src", "fine", "fine.bin", []byte("y"))
	f.failOp["download:broken"] = remote.ErrUnavailable

	c := New(f, Config{})
	rootID, issues, err := c.CloneTree(context.Background(), "src", "dst", "Copy")
	require.NoError(t, err)

	require.Len(t, issues, 1)
	assert.Equal(t, "broken", issues[0].SourceID)
	assert.True(t, remote.IsUnavailable(issues[0].Err))

	_, ok := f.lookup(rootID, "fine.bin")
	assert.True(t, ok)
	_, ok = f.lookup(rootID, "broken.bin")
	assert.False(t, ok)
}

func TestCloneTreeDeepNesting(t *testing.T) {
	f := newFakeDrive()
	parent := "src"
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("d%03d", i)
		f.addFolder(parent, id, fmt.Sprintf("level-%03d", i))
		parent = id
	}
	f.addBinary(parent, "deep", "deep.bin", []byte("deep"))

	c := New(f, Config{})
	rootID, issues, err := c.CloneTree(context.Background(), "src", "dst", "Copy")
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.NotEmpty(t, rootID)

	summary := c.buildSummary(0)
	assert.Equal(t, int64(201), summary.FoldersCreated) // root + 200 levels
	assert.Equal(t, int64(1), summary.LeavesCopied)
}

func TestCloneLeafServerSide(t *testing.T) {
	f := newFakeDrive()
	f.addNativeDoc("src", "doc1", "Roadmap")

	c := New(f, Config{})
	newID, err := c.CloneLeaf(context.Background(), "doc1", "dst", "Roadmap Copy")
	require.NoError(t, err)
	assert.NotEqual(t, "doc1", newID)

	copied, ok := f.lookup("dst", "Roadmap Copy")
	require.True(t, ok)
	assert.Equal(t, newID, copied.ID)
	// Server-side copies never download content.
	assert.Empty(t, f.content[newID])
}

func TestCloneLeafKeepsSourceNameWhenEmpty(t *testing.T) {
	f := newFakeDrive()
	f.addBinary("src", "bin1", "original.bin", []byte("z"))

	c := New(f, Config{})
	_, err := c.CloneLeaf(context.Background(), "bin1", "dst", "")
	require.NoError(t, err)

	_, ok := f.lookup("dst", "original.bin")
	assert.True(t, ok)
}

func TestRunClonesTopLevelFolders(t *testing.T) {
	f := newFakeDrive()
	f.addFolder("src", "a", "Alpha")
	f.addFolder("src", "b", "Beta")
	f.addBinary("src", "loose", "loose.bin", []byte("ignored")) // not a folder
	f.addBinary("a", "a1", "a1.bin", []byte("a1"))
	f.addNativeDoc("b", "b1", "B Doc")

	c := New(f, Config{})
	summary, issues, err := c.Run(context.Background(), "src", "dst")
	require.NoError(t, err)
	assert.Empty(t, issues)

	assert.Equal(t, int64(2), summary.FoldersCreated)
	assert.Equal(t, int64(2), summary.LeavesCopied)
	assert.Equal(t, int64(2), summary.BytesCopied)

	alpha, ok := f.lookup("dst", "Alpha")
	require.True(t, ok)
	_, ok = f.lookup(alpha.ID, "a1.bin")
	assert.True(t, ok)
	_, ok = f.lookup("dst", "Beta")
	assert.True(t, ok)
}

func TestRunTopLevelListingErrorIsFatal(t *testing.T) {
	f := newFakeDrive()
	f.failList["src"] = remote.ErrUnavailable

	c := New(f, Config{})
	summary, issues, err := c.Run(context.Background(), "src", "dst")
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.Nil(t, issues)
}

func TestRunContinuesPastFailedTopLevelFolder(t *testing.T) {
	f := newFakeDrive()
	f.addFolder("src", "a", "Alpha")
	f.addFolder("src", "b", "Beta")
	f.addBinary("b", "b1", "b1.bin", []byte("b1"))

	// Root folder creation under the destination fails outright.
	f.failOp["create:dst"] = remote.ErrPermissionDenied

	c := New(f, Config{})
	summary, issues, err := c.Run(context.Background(), "src", "dst")
	require.NoError(t, err)
	require.NotNil(t, summary)

	// Both top-level folders fail to create, each recorded once.
	assert.Len(t, issues, 2)
	assert.Equal(t, int64(2), summary.Errors)
}

func TestCloneTreeWithMatcher(t *testing.T) {
	f := newFakeDrive()
	f.addBinary("src", "keep", "report.pdf", []byte("pdf"))
	f.addBinary("src", "drop", "scratch.tmp", []byte("tmp"))

	m, err := match.New(match.Config{Includes: []string{"**"}, Excludes: []string{"**/*.tmp"}})
	require.NoError(t, err)

	c := New(f, Config{}).WithMatcher(m)
	rootID, issues, err := c.CloneTree(context.Background(), "src", "dst", "Copy")
	require.NoError(t, err)
	assert.Empty(t, issues)

	_, ok := f.lookup(rootID, "report.pdf")
	assert.True(t, ok)
	_, ok = f.lookup(rootID, "scratch.tmp")
	assert.False(t, ok)

	summary := c.buildSummary(0)
	assert.Equal(t, int64(1), summary.Skipped)
}

func TestCloneTreePagination(t *testing.T) {
	f := newFakeDrive()
	for i := 0; i < 2500; i++ {
		f.addBinary("src", fmt.Sprintf("b%04d", i), fmt.Sprintf("f-%04d.bin", i), []byte{byte(i)})
	}

	c := New(f, Config{PageSize: 1000})
	rootID, issues, err := c.CloneTree(context.Background(), "src", "dst", "Copy")
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Len(t, f.children[rootID], 2500)
}
