// Package objstore defines the ObjectStore abstraction S3Directory is built
// on: a thin, typed interface over a remote object store's six primitives
// (list, head, get with optional range, put, copy, delete), plus the eventually
// consistent read-your-writes retry the directory's commit protocol
// requires (spec §4.1).
package objstore

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// ObjectInfo is a (name, size) pair as returned by List, with the bucket's
// configured prefix already stripped.
type ObjectInfo struct {
	Name string
	Size int64
}

// Store is a typed interface over a remote object store. Implementations
// need only support the six S3 operations named in spec §1: list, head,
// get(range?), put, copy, delete — plus bulk helpers used by sync and
// pre-population.
type Store interface {
	io.Closer

	// List enumerates every object under the store's configured prefix,
	// with the prefix stripped and the bare-prefix entry filtered out.
	List(ctx context.Context) ([]ObjectInfo, error)

	// Head returns the size in bytes of the named object.
	Head(ctx context.Context, name string) (int64, error)

	// Get returns the full body of the named object as a stream. The
	// caller must Close it.
	Get(ctx context.Context, name string) (io.ReadCloser, error)

	// GetRange returns exactly length bytes starting at offset, or fails.
	GetRange(ctx context.Context, name string, offset, length int64) ([]byte, error)

	// Put uploads the contents of localPath under name.
	Put(ctx context.Context, name string, localPath string) error

	// Copy performs a server-side copy from one name to another.
	Copy(ctx context.Context, from, to string) error

	// Delete removes the named object. Deleting a name that does not
	// exist is not an error.
	Delete(ctx context.Context, name string) error

	// BulkUpload uploads every (name, localPath) pair in parallel,
	// returning the first error encountered (if any); once one upload
	// fails, the context passed to the remaining uploads is canceled.
	BulkUpload(ctx context.Context, paths map[string]string) error

	// BulkDownload writes every named object to its corresponding local
	// path in parallel.
	BulkDownload(ctx context.Context, names map[string]string) error

	// ListVersions lists the known version IDs of name, most recent
	// first, used by the versioned-retry path after a transient
	// NotFound during an eventually-consistent overwrite or delete.
	ListVersions(ctx context.Context, name string) ([]string, error)

	// GetRangeVersion is like GetRange but against a specific version id.
	GetRangeVersion(ctx context.Context, name, versionID string, offset, length int64) ([]byte, error)

	// GetVersion is like Get but against a specific version id.
	GetVersion(ctx context.Context, name, versionID string) (io.ReadCloser, error)

	// IsNotExist reports whether err represents a "no such key" response.
	IsNotExist(err error) bool
}

// metadataCache is the name->size map that List populates and that
// localStore.Head consults before falling back to a Stat (spec §4.1).
type metadataCache struct {
	mu    sync.RWMutex
	sizes map[string]int64
}

func newMetadataCache() *metadataCache {
	return &metadataCache{sizes: make(map[string]int64)}
}

func (c *metadataCache) populate(infos []ObjectInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sizes = make(map[string]int64, len(infos))
	for _, info := range infos {
		c.sizes[info.Name] = info.Size
	}
}

func (c *metadataCache) get(name string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	size, ok := c.sizes[name]
	return size, ok
}

func (c *metadataCache) delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sizes, name)
}

func (c *metadataCache) rename(from, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if size, ok := c.sizes[from]; ok {
		c.sizes[to] = size
		delete(c.sizes, from)
	}
}

// SortByName sorts infos by Name, ascending.
func SortByName(infos []ObjectInfo) {
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
}

// normalizePrefix ensures prefix ends in exactly one "/" (spec §6), unless
// it is empty.
func normalizePrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return strings.TrimRight(prefix, "/") + "/"
}

// errInvalidRangeLength is returned when a range fetch's byte count does not
// match the requested length (spec §7, Consistency kind).
var errInvalidRangeLength = errors.New("lucene-cloud: range read returned unexpected byte count")
