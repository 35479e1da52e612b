package directory_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neusearch/lucene-cloud-go/directory"
	"github.com/neusearch/lucene-cloud-go/fscache"
	"github.com/neusearch/lucene-cloud-go/internal/base"
	"github.com/neusearch/lucene-cloud-go/objstore"
	"github.com/neusearch/lucene-cloud-go/vfs"
)

// memStore is a from-scratch objstore.Store fake rooted at the same
// vfs.FS the test's local cache uses, so Put/BulkUpload can read a
// cache-resident local path the way a real S3 client would read a
// caller-supplied file, without needing a real OS path the way
// objstore.NewLocalFS's Put does.
type memStore struct {
	mu        sync.Mutex
	fs        vfs.FS
	objects   map[string][]byte
	failNext  map[string]bool
	rangeHits int
}

func newMemStore(fs vfs.FS) *memStore {
	return &memStore{fs: fs, objects: make(map[string][]byte), failNext: make(map[string]bool)}
}

func (s *memStore) Close() error { return nil }

func (s *memStore) List(ctx context.Context) ([]objstore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var infos []objstore.ObjectInfo
	for name, data := range s.objects {
		infos = append(infos, objstore.ObjectInfo{Name: name, Size: int64(len(data))})
	}
	return infos, nil
}

func (s *memStore) Head(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[name]
	if !ok {
		return 0, base.MarkNotFound(errNotFound(name))
	}
	return int64(len(data)), nil
}

func (s *memStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	s.mu.Lock()
	data, ok := s.objects[name]
	s.mu.Unlock()
	if !ok {
		return nil, base.MarkNotFound(errNotFound(name))
	}
	return io.NopCloser(newMemReader(data)), nil
}

func (s *memStore) GetVersion(ctx context.Context, name, versionID string) (io.ReadCloser, error) {
	return s.Get(ctx, name)
}

func (s *memStore) GetRange(ctx context.Context, name string, offset, length int64) ([]byte, error) {
	s.mu.Lock()
	s.rangeHits++
	if s.failNext[name] {
		delete(s.failNext, name)
		s.mu.Unlock()
		return nil, base.MarkNotFound(errNotFound(name))
	}
	data, ok := s.objects[name]
	s.mu.Unlock()
	if !ok {
		return nil, base.MarkNotFound(errNotFound(name))
	}
	if offset+length > int64(len(data)) {
		return nil, errNotFound(name)
	}
	return data[offset : offset+length], nil
}

func (s *memStore) GetRangeVersion(ctx context.Context, name, versionID string, offset, length int64) ([]byte, error) {
	return s.GetRange(ctx, name, offset, length)
}

func (s *memStore) Put(ctx context.Context, name string, localPath string) error {
	f, err := s.fs.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[name] = data
	s.mu.Unlock()
	return nil
}

func (s *memStore) Copy(ctx context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[from]
	if !ok {
		return base.MarkNotFound(errNotFound(from))
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[to] = cp
	return nil
}

func (s *memStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, name)
	return nil
}

func (s *memStore) BulkUpload(ctx context.Context, paths map[string]string) error {
	return objstore.BulkUpload(ctx, s, paths)
}

func (s *memStore) BulkDownload(ctx context.Context, names map[string]string) error {
	return objstore.BulkDownload(ctx, s, names)
}

func (s *memStore) ListVersions(ctx context.Context, name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[name]; !ok {
		return nil, nil
	}
	return []string{"v1"}, nil
}

func (s *memStore) IsNotExist(err error) bool { return base.IsNotFound(err) }

func (s *memStore) seed(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = data
}

func (s *memStore) rangeGetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rangeHits
}

type errNotFound string

func (e errNotFound) Error() string { return "lucene-cloud: no such key: " + string(e) }

type memReader struct {
	data []byte
	pos  int
}

func newMemReader(b []byte) *memReader { return &memReader{data: b} }

func (r *memReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func openDir(t *testing.T, store objstore.Store, opts directory.Options) *directory.Directory {
	t.Helper()
	cache, err := fscache.New(vfs.NewMem(), "/cache")
	require.NoError(t, err)
	d, err := directory.Open(context.Background(), store, cache, opts)
	require.NoError(t, err)
	return d
}

// S1: a file written via CreateOutput, closed, and Sync'd becomes visible
// in the remote store with matching content, and moves from Buffered to
// Synced (spec §8 scenario 1).
func TestWriteCommitCycle(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMem()
	cache, err := fscache.New(fs, "/cache")
	require.NoError(t, err)
	store := newMemStore(fs)
	d, err := directory.Open(ctx, store, cache, directory.Options{SkipPrePopulate: true})
	require.NoError(t, err)

	w, err := d.CreateOutput("segments_1")
	require.NoError(t, err)
	_, err = w.Write([]byte("segment metadata"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	names, err := d.ListAll(ctx)
	require.NoError(t, err)
	require.Contains(t, names, "segments_1")

	require.NoError(t, d.Sync(ctx, []string{"segments_1"}))

	size, err := store.Head(ctx, "segments_1")
	require.NoError(t, err)
	require.EqualValues(t, len("segment metadata"), size)
}

// S2/S3: a cold directory reading a pre-existing remote object only
// fetches the blocks actually touched, and a slice reads correctly
// without disturbing the root reader's own blocks (spec §8 scenarios 2
// and 3, testable properties 3-5).
func TestColdRandomReadAndSliceCorrectness(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMem()
	store := newMemStore(fs)
	content := make([]byte, 3*(1<<10))
	for i := range content {
		content[i] = byte(i % 256)
	}
	store.seed("seg.doc", content)

	d := openDir(t, store, directory.Options{BlockSize: 1 << 10, SkipPrePopulate: true})

	in, err := d.OpenInput(ctx, "seg.doc")
	require.NoError(t, err)
	require.EqualValues(t, len(content), in.Length())

	require.NoError(t, in.Seek(1500))
	buf := make([]byte, 10)
	require.NoError(t, in.ReadBytes(ctx, buf))
	require.Equal(t, content[1500:1510], buf)
	// Only block 1 (bytes [1024,2048)) should have been fetched.
	require.Equal(t, 1, store.rangeGetCount())

	slice, err := in.Slice("norms", 0, 1024)
	require.NoError(t, err)
	sliceBuf := make([]byte, 10)
	require.NoError(t, slice.ReadBytes(ctx, sliceBuf))
	require.Equal(t, content[0:10], sliceBuf)
	// The slice's read touched a different block (block 0); one more GET.
	require.Equal(t, 2, store.rangeGetCount())
	require.NoError(t, slice.Close())
	require.NoError(t, in.Close())
}

// S4: renaming a Synced file makes the new name visible in ListAll and
// the old name disappear; Rename itself copies and deletes remotely, so
// after SyncMetaData the remote store holds only the new name (spec §8
// scenario 4).
func TestRenameVisibility(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMem()
	cache, err := fscache.New(fs, "/cache")
	require.NoError(t, err)
	store := newMemStore(fs)
	d, err := directory.Open(ctx, store, cache, directory.Options{SkipPrePopulate: true})
	require.NoError(t, err)

	w, err := d.CreateOutput("pending_segments_1")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, d.Sync(ctx, []string{"pending_segments_1"}))

	require.NoError(t, d.Rename(ctx, "pending_segments_1", "segments_1"))

	names, err := d.ListAll(ctx)
	require.NoError(t, err)
	require.Contains(t, names, "segments_1")
	require.NotContains(t, names, "pending_segments_1")

	require.NoError(t, d.SyncMetaData(ctx))
	_, err = store.Head(ctx, "segments_1")
	require.NoError(t, err)
	_, err = store.Head(ctx, "pending_segments_1")
	require.Error(t, err)
}

// S5: deleting a Cached file removes both its remote object and its local
// sparse footprint (spec §8 scenario 5).
func TestDeleteOfCachedFile(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMem()
	store := newMemStore(fs)
	store.seed("seg.doc", []byte("remote bytes"))

	d := openDir(t, store, directory.Options{SkipPrePopulate: true})

	_, err := d.OpenInput(ctx, "seg.doc")
	require.NoError(t, err)

	require.NoError(t, d.DeleteFile(ctx, "seg.doc"))

	_, err = store.Head(ctx, "seg.doc")
	require.Error(t, err)

	names, err := d.ListAll(ctx)
	require.NoError(t, err)
	require.NotContains(t, names, "seg.doc")
}

// S6: a transient NotFound on a remote read (an eventual-consistency
// window) is masked by objstore.WithVersionedRetry before the read ever
// reaches the directory (spec §8 scenario 6).
func TestEventualConsistencyReadIsMasked(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMem()
	backing := newMemStore(fs)
	backing.seed("seg.doc", []byte("eventually there"))
	backing.failNext["seg.doc"] = true
	store := objstore.WithVersionedRetry(backing)

	d := openDir(t, store, directory.Options{SkipPrePopulate: true})

	in, err := d.OpenInput(ctx, "seg.doc")
	require.NoError(t, err)
	buf := make([]byte, 9)
	require.NoError(t, in.ReadBytes(ctx, buf))
	require.Equal(t, "eventually there"[:9], string(buf))
	require.NoError(t, in.Close())
}

// ListAll returns the union of Buffered and remote names, sorted by
// UTF-16 code-unit order (spec §8 property 6).
func TestListAllSortOrder(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMem()
	store := newMemStore(fs)
	store.seed("b", []byte("x"))
	store.seed("a", []byte("y"))

	d := openDir(t, store, directory.Options{SkipPrePopulate: true})
	w, err := d.CreateOutput("c")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	names, err := d.ListAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, names)
}

// GetPendingDeletions always returns empty (this implementation defers
// no deletions, spec §4.5.1).
func TestGetPendingDeletionsAlwaysEmpty(t *testing.T) {
	store := newMemStore(vfs.NewMem())
	d := openDir(t, store, directory.Options{SkipPrePopulate: true})
	require.Empty(t, d.GetPendingDeletions())
}

// Pre-population failures are logged and must not abort construction
// (spec §7, §4.5.2).
func TestPrePopulateFailureIsLoggedNotFatal(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMem()
	cache, err := fscache.New(fs, "/cache")
	require.NoError(t, err)
	store := newMemStore(fs)
	store.seed("seg.doc", []byte("warm up bytes"))
	store.failNext["seg.doc"] = true

	log := &base.InMemLogger{}
	d, err := directory.Open(ctx, store, cache, directory.Options{Logger: log})
	require.NoError(t, err)
	require.Contains(t, log.String(), "seg.doc")
	require.NoError(t, d.Close())
}

// Close establishes a total order: every subsequent operation fails with
// an InvalidState error (spec §5).
func TestCloseRejectsFurtherOperations(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(vfs.NewMem())
	d := openDir(t, store, directory.Options{SkipPrePopulate: true})
	require.NoError(t, d.Close())

	_, err := d.ListAll(ctx)
	require.Error(t, err)
	require.Error(t, d.Close())
}
