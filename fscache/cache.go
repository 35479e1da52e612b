// Package fscache wraps a vfs.FS rooted at a local cache directory with the
// operations spec §4.2 asks of it: listAll, createOutput/createTempOutput,
// openInput, delete, rename, exists, fileLength, obtainLock, resolvePath.
// The same directory holds both fully-present (Buffered/Synced) files and
// sparse Cached files; they coexist by name because S3Directory's four
// states are pairwise disjoint (spec §3, invariant 2).
package fscache

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/neusearch/lucene-cloud-go/vfs"
)

// tempSuffix is the reserved suffix every createTempOutput name must end
// in (spec §3 invariant 3, §6). Temp names are never uploaded (spec §4.5.1
// sync, tested by spec §8 property 8).
const tempSuffix = "tmp"

// Options configures New. The zero value is an unbounded cache: no
// eviction ever runs.
//
// MaxCachedBytes and OnEvict are a SPEC_FULL.md supplement grounded on
// the neusearch Java variant's size-bounded local cache
// (maxLocalCacheSize / getCachedFilesSizeSortedList in original_source/):
// spec.md's Non-goals don't exclude bounding the Cached footprint, only
// crash durability of it, so an optional LRU byte budget over Cached
// sparse files is layered on without touching the four-state partition
// itself.
type Options struct {
	// MaxCachedBytes bounds the total on-disk size of sparse files
	// registered via OpenSparse. Zero means unbounded.
	MaxCachedBytes int64
	// OnEvict, if set, is called with a name's cache directory entry is
	// evicted to stay under MaxCachedBytes, so callers (directory) can
	// drop the name's in-memory block-presence map too.
	OnEvict func(name string)
}

// Cache is a thin directory wrapper over a vfs.FS.
type Cache struct {
	fs      vfs.FS
	dir     string
	counter atomic.Uint64

	// lockShards serializes WriteAt/ReadAt pairs per cached name so
	// concurrent sibling slices never race on the sparse file's shared
	// position-less random access (spec §5, "sparse file handle... shared
	// between slices; writes... MUST be serialized by a per-file mutex").
	// Sharded by xxhash(name) the way pebble's sharedcache.Cache hashes a
	// DiskFileNum to a shard (objstorage/objstorageprovider/sharedcache/shared_cache.go).
	lockShards [numLockShards]sync.Mutex

	maxCachedBytes int64
	onEvict        func(name string)
	lruMu          sync.Mutex
	lru            *lruTracker
}

const numLockShards = 64

// New returns an unbounded Cache rooted at dir, which is created if
// absent. Equivalent to NewWithOptions(fs, dir, Options{}).
func New(fs vfs.FS, dir string) (*Cache, error) {
	return NewWithOptions(fs, dir, Options{})
}

// NewWithOptions returns a Cache rooted at dir, which is created if
// absent, honoring opts (see Options).
func NewWithOptions(fs vfs.FS, dir string, opts Options) (*Cache, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{
		fs:             fs,
		dir:            dir,
		maxCachedBytes: opts.MaxCachedBytes,
		onEvict:        opts.OnEvict,
		lru:            newLRUTracker(),
	}, nil
}

// ResolvePath returns the absolute on-disk path backing name.
func (c *Cache) ResolvePath(name string) string {
	return c.fs.PathJoin(c.dir, name)
}

// ListAll returns every name currently present in the cache directory,
// in no particular order; callers sort as needed.
func (c *Cache) ListAll() ([]string, error) {
	return c.fs.List(c.dir)
}

// Exists reports whether name is present in the cache directory.
func (c *Cache) Exists(name string) bool {
	return c.fs.Exists(c.ResolvePath(name))
}

// FileLength returns the on-disk length of name.
func (c *Cache) FileLength(name string) (int64, error) {
	fi, err := c.fs.Stat(c.ResolvePath(name))
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Delete removes name from the cache directory. Deleting an absent name
// is not an error.
func (c *Cache) Delete(name string) error {
	return c.fs.Remove(c.ResolvePath(name))
}

// Rename renames a cached name in place.
func (c *Cache) Rename(from, to string) error {
	return c.fs.Rename(c.ResolvePath(from), c.ResolvePath(to))
}

// ObtainLock takes an advisory lock on name, creating it if necessary.
func (c *Cache) ObtainLock(name string) (*Lock, error) {
	closer, err := c.fs.Lock(c.ResolvePath(name))
	if err != nil {
		return nil, err
	}
	return &Lock{closer: closer}, nil
}

// Lock is an advisory cross-process lock obtained via ObtainLock.
type Lock struct {
	closer interface{ Close() error }
}

// Close releases the lock.
func (l *Lock) Close() error { return l.closer.Close() }

// Close releases the cache's underlying resources. FSCache itself holds no
// open handles beyond what callers have open, so this is a no-op hook kept
// for symmetry with ObjectStore.Close (spec §4.5.1 close).
func (c *Cache) Close() error { return nil }

// CreateOutput opens name for writing, truncating it if it exists, and
// returns a Writer (S3IndexOutput, spec §4.4).
func (c *Cache) CreateOutput(name string) (*Writer, error) {
	f, err := c.fs.Create(c.ResolvePath(name))
	if err != nil {
		return nil, err
	}
	return newWriter(name, f), nil
}

// CreateTempOutput opens a new temp name of the form
// "<prefix>_<counter><suffix>tmp" (spec §4.5.1), retrying on collision.
func (c *Cache) CreateTempOutput(prefix, suffix string) (*Writer, error) {
	for {
		n := c.counter.Add(1)
		name := prefix + "_" + strconv.FormatUint(n, 10) + suffix + tempSuffix
		if c.fs.Exists(c.ResolvePath(name)) {
			continue
		}
		f, err := c.fs.Create(c.ResolvePath(name))
		if err != nil {
			return nil, err
		}
		return newWriter(name, f), nil
	}
}

// OpenInput opens name for sequential and random reads (used directly by
// S3Directory for Buffered/Synced names, and by s3input for the Cached
// sparse file underneath a block-addressable reader).
func (c *Cache) OpenInput(name string) (*Reader, error) {
	f, err := c.fs.Open(c.ResolvePath(name))
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return newReader(name, f, fi.Size()), nil
}

// OpenSparse opens (creating if absent) a read-write sparse file at name,
// and truncates or extends it to length if its current size differs, per spec §4.3
// step 3 ("if the on-disk length does not match the remote length, seek
// to and write the last block so the file is sized correctly").
func (c *Cache) OpenSparse(name string, length int64) (vfs.File, error) {
	f, err := c.fs.OpenReadWrite(c.ResolvePath(name))
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() != length {
		if err := f.Truncate(length); err != nil {
			f.Close()
			return nil, err
		}
	}
	c.touchCached(name, length)
	return f, nil
}

// ForgetCached drops name from the eviction tracker's accounting without
// evicting any other entry, used when name is deleted or renamed by a
// directory operation outside of OpenSparse. A no-op when the Cache is
// unbounded or name was never registered.
func (c *Cache) ForgetCached(name string) {
	if c.maxCachedBytes <= 0 {
		return
	}
	c.lruMu.Lock()
	defer c.lruMu.Unlock()
	c.lru.forget(name)
}

// SetOnEvict installs (or replaces) the callback run whenever a Cached
// entry is evicted to stay under MaxCachedBytes. Directory uses this to
// drop a name's in-memory block-presence map in step with its on-disk
// sparse file.
func (c *Cache) SetOnEvict(fn func(name string)) {
	c.onEvict = fn
}

// touchCached records name as a Cached entry of the given size and marks
// it most-recently-used, evicting older entries if the cache is over
// MaxCachedBytes. A no-op when the Cache is unbounded.
func (c *Cache) touchCached(name string, size int64) {
	if c.maxCachedBytes <= 0 {
		return
	}
	c.lruMu.Lock()
	evicted := c.lru.touch(name, size, c.maxCachedBytes)
	c.lruMu.Unlock()
	for _, name := range evicted {
		if err := c.fs.Remove(c.ResolvePath(name)); err != nil {
			continue
		}
		if c.onEvict != nil {
			c.onEvict(name)
		}
	}
}

// IsTempName reports whether name is a temp name: it ends in the reserved
// suffix (spec §3 invariant 3, §6).
func IsTempName(name string) bool {
	return len(name) >= len(tempSuffix) && name[len(name)-len(tempSuffix):] == tempSuffix
}

// lockFor returns the mutex serializing sparse-file access for name.
func (c *Cache) lockFor(name string) *sync.Mutex {
	h := xxhash.Sum64String(name)
	return &c.lockShards[h%numLockShards]
}

// WithSparseLock runs fn while holding the per-name sparse-file mutex,
// used by s3input around its seek+write miss-fill and by FSCache's own
// callers that need the same serialization.
func (c *Cache) WithSparseLock(name string, fn func() error) error {
	mu := c.lockFor(name)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}
