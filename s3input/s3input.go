// Package s3input implements S3IndexInput (spec §4.3): a random-access
// reader over a single Cached logical file, serviced by a
// block-addressable sparse local file. Every read consults a
// block-presence map shared with any sibling slices and triggers a
// range GET on miss before delegating the actual byte extraction to the
// sparse file's own reader.
package s3input

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/neusearch/lucene-cloud-go/fscache"
	"github.com/neusearch/lucene-cloud-go/internal/base"
	"github.com/neusearch/lucene-cloud-go/objstore"
)

// DefaultBlockSize is the default window size for block addressing
// (spec §3: "default 1 MiB").
const DefaultBlockSize = 1 << 20

// BlockMap is the concurrent-safe presence set for one logical file's
// blocks (spec §3 "Block-presence map"). It is shared between a root
// Reader and every slice taken from it (spec §5): a missed-block fetch
// followed by Add is idempotent. Reader.fetchBlock re-checks presence
// while holding the name's sparse lock, so concurrent misses on the same
// block through readers sharing one map issue a single range GET.
type BlockMap struct {
	mu      sync.Mutex
	present map[int64]struct{}
}

// NewBlockMap returns an empty block-presence map.
func NewBlockMap() *BlockMap {
	return &BlockMap{present: make(map[int64]struct{})}
}

// Has reports whether block i is present.
func (m *BlockMap) Has(i int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.present[i]
	return ok
}

// Add marks block i present.
func (m *BlockMap) Add(i int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.present[i] = struct{}{}
}

// Snapshot returns every present block index, sorted ascending. Used by
// tests to verify sparse completeness (spec §8 property 3) and
// pre-population effectiveness (property 9).
func (m *BlockMap) Snapshot() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(m.present))
	for i := range m.present {
		out = append(out, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reader is S3IndexInput. A non-slice (root) Reader owns the underlying
// sparse file handle and closes it on Close; a slice shares it and its
// Close is a no-op on the shared handle (spec §4.3 "close").
type Reader struct {
	name       string
	store      objstore.Store
	cache      *fscache.Cache
	blockSize  int64
	fileLength int64 // length of the full remote object; block ranges are always computed against this, even from within a slice.
	blocks     *BlockMap

	sliceOffset int64 // this reader's position 0, as an absolute offset into the full remote object
	sub         *fscache.Reader
}

// New constructs a root Reader for name: queries its remote length, opens
// (creating if absent) a read-write sparse local file sized to that
// length, and wraps it for reads. blocks is the file's block-presence
// map, owned by the caller (S3Directory keeps one map per Cached name so
// that repeated openInput calls and sibling slices all share it).
//
// If blockSize <= 0, DefaultBlockSize is used.
func New(ctx context.Context, store objstore.Store, cache *fscache.Cache, name string, blockSize int64, blocks *BlockMap) (*Reader, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	length, err := store.Head(ctx, name)
	if err != nil {
		return nil, err
	}
	f, err := cache.OpenSparse(name, length)
	if err != nil {
		return nil, err
	}
	return &Reader{
		name:       name,
		store:      store,
		cache:      cache,
		blockSize:  blockSize,
		fileLength: length,
		blocks:     blocks,
		sub:        fscache.NewReaderOverFile(name, f, length),
	}, nil
}

// Name returns the logical file name.
func (r *Reader) Name() string { return r.name }

// Length returns this reader's window length (the full file length for
// a root Reader; the slice's own length for a slice).
func (r *Reader) Length() int64 { return r.sub.Length() }

// FilePointer returns the current window-relative read position.
func (r *Reader) FilePointer() int64 { return r.sub.FilePointer() }

// Seek repositions the window-relative read pointer.
func (r *Reader) Seek(pos int64) error { return r.sub.Seek(pos) }

// Close releases this reader's handle. Only the root reader's Close
// closes the underlying sparse file; a slice's Close is a no-op on the
// shared handle (spec §4.3).
func (r *Reader) Close() error { return r.sub.Close() }

// ReadByte reads and returns the next byte, advancing the position.
func (r *Reader) ReadByte(ctx context.Context) (byte, error) {
	var b [1]byte
	if err := r.ReadBytes(ctx, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBytes reads len(p) bytes starting at the current position into p,
// advancing the position by len(p). Every block the range touches is
// checked against the block-presence map and fetched on miss before the
// delegated read runs, so the delegated read itself never faults (spec
// §4.3 "Ordering note").
func (r *Reader) ReadBytes(ctx context.Context, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	off := r.sliceOffset + r.sub.FilePointer()
	if err := r.ensureRange(ctx, off, int64(len(p))); err != nil {
		return err
	}
	if err := r.sub.ReadAtFull(p, r.sub.FilePointer()); err != nil {
		return err
	}
	return r.sub.Seek(r.sub.FilePointer() + int64(len(p)))
}

// ReadBytesAt reads len(p) bytes at the given window-relative offset
// without disturbing the sequential position, used by random-access
// callers that address the file by offset rather than by seek+read.
func (r *Reader) ReadBytesAt(ctx context.Context, p []byte, windowOff int64) error {
	if len(p) == 0 {
		return nil
	}
	off := r.sliceOffset + windowOff
	if err := r.ensureRange(ctx, off, int64(len(p))); err != nil {
		return err
	}
	return r.sub.ReadAtFull(p, windowOff)
}

// ensureRange fetches every block touched by the absolute byte range
// [off, off+n) that is not yet present.
func (r *Reader) ensureRange(ctx context.Context, off, n int64) error {
	if n <= 0 {
		return nil
	}
	start := off / r.blockSize
	end := (off + n - 1) / r.blockSize
	for blk := start; blk <= end; blk++ {
		if r.blocks.Has(blk) {
			continue
		}
		if err := r.fetchBlock(ctx, blk); err != nil {
			return err
		}
	}
	return nil
}

// fetchBlock range-GETs block blk, writes it into the sparse file at its
// absolute offset, and marks it present (spec §4.3 read protocol, step
// 2). Writes are serialized per-name through the cache's shard lock
// table so concurrent sibling slices never race on the shared sparse
// file (spec §5).
func (r *Reader) fetchBlock(ctx context.Context, blk int64) error {
	blockOffset := blk * r.blockSize
	want := r.blockSize
	if blockOffset+want > r.fileLength {
		want = r.fileLength - blockOffset
	}
	if want <= 0 {
		return nil
	}
	return r.cache.WithSparseLock(r.name, func() error {
		if r.blocks.Has(blk) {
			return nil
		}
		data, err := r.store.GetRange(ctx, r.name, blockOffset, want)
		if err != nil {
			return err
		}
		if int64(len(data)) != want {
			return base.MarkConsistency(errors.Newf(
				"lucene-cloud: block %d of %s returned %d bytes, wanted %d", blk, r.name, len(data), want))
		}
		windowOff := blockOffset - r.sliceOffset
		if _, err := r.sub.WriteAt(data, windowOff); err != nil {
			return err
		}
		r.blocks.Add(blk)
		return nil
	})
}

// Slice returns an independent child Reader over [offset, offset+length)
// of this reader's own window, sharing the sparse file handle, the
// block-presence map, and the ObjectStore (spec §3 "Slice", §4.3
// "Construction (slice)"). desc is accepted for parity with the
// engine-facing slice(desc, offset, length) signature but is not used
// internally.
func (r *Reader) Slice(desc string, offset, length int64) (*Reader, error) {
	sub, err := r.sub.Slice(offset, length)
	if err != nil {
		return nil, err
	}
	return &Reader{
		name:        r.name,
		store:       r.store,
		cache:       r.cache,
		blockSize:   r.blockSize,
		fileLength:  r.fileLength,
		blocks:      r.blocks,
		sliceOffset: r.sliceOffset + offset,
		sub:         sub,
	}, nil
}
