package fscache

import (
	"io"

	"github.com/cockroachdb/errors"

	"github.com/neusearch/lucene-cloud-go/internal/base"
	"github.com/neusearch/lucene-cloud-go/vfs"
)

// Reader is a sequential-plus-random-access input handle over a cache
// file (S3IndexInput's local-file counterpart, spec §4.2 openInput). It
// also underlies s3input.Reader, which wraps one of these around a sparse
// Cached file and adds the block-presence-map fetch-on-miss protocol.
type Reader struct {
	name   string
	f      vfs.File
	length int64
	pos    int64
}

func newReader(name string, f vfs.File, length int64) *Reader {
	return &Reader{name: name, f: f, length: length}
}

// NewReaderOverFile wraps an already-open file (typically one obtained
// from Cache.OpenSparse) as a Reader. s3input uses this to layer its
// block-presence-map fetch-on-miss protocol over a Cached file's sparse
// handle without FSCache needing to know about blocks at all.
func NewReaderOverFile(name string, f vfs.File, length int64) *Reader {
	return newReader(name, f, length)
}

// Name returns the name this reader is bound to.
func (r *Reader) Name() string { return r.name }

// Length returns the file's total length.
func (r *Reader) Length() int64 { return r.length }

// FilePointer returns the current sequential read position.
func (r *Reader) FilePointer() int64 { return r.pos }

// Seek repositions the sequential read pointer. pos must be within
// [0, Length()]; seeking to Length() is valid and yields io.EOF on the
// next Read (spec §3 Slice/seek semantics).
func (r *Reader) Seek(pos int64) error {
	if pos < 0 || pos > r.length {
		return base.MarkInvalidState(errors.Newf(
			"lucene-cloud: seek %d out of range for %s (length %d)", pos, r.name, r.length))
	}
	r.pos = pos
	return nil
}

// Read reads up to len(p) bytes from the current position, stopping at
// Length(), advancing it, and implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.pos >= r.length {
		return 0, io.EOF
	}
	if rem := r.length - r.pos; int64(len(p)) > rem {
		p = p[:rem]
	}
	n, err := r.f.ReadAt(p, r.pos)
	r.pos += int64(n)
	return n, err
}

// ReadAt reads len(p) bytes starting at off without disturbing the
// sequential position, implementing io.ReaderAt.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	return r.f.ReadAt(p, off)
}

// WriteAt writes p at off into the underlying file, used by s3input to
// fill a missed block into its sparse file.
func (r *Reader) WriteAt(p []byte, off int64) (int, error) {
	return r.f.WriteAt(p, off)
}

// ReadAtFull reads exactly len(p) bytes at off, treating a short read
// as an error the way Lucene's IndexInput.readBytes does.
func (r *Reader) ReadAtFull(p []byte, off int64) error {
	n, err := r.f.ReadAt(p, off)
	if err != nil && !(err == io.EOF && n == len(p)) {
		return err
	}
	return nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}

// Slice returns an independent Reader over [offset, offset+length) of the
// same underlying file, sharing the file handle but tracking its own
// sequential position (spec §3 "Slice... an independent view... sharing
// the parent's... handle").
func (r *Reader) Slice(offset, length int64) (*Reader, error) {
	if offset < 0 || length < 0 || offset+length > r.length {
		return nil, base.MarkInvalidState(errors.Newf(
			"lucene-cloud: slice [%d,%d) out of range for %s (length %d)", offset, offset+length, r.name, r.length))
	}
	return &Reader{
		name:   r.name,
		f:      &offsetFile{File: r.f, base: offset},
		length: length,
	}, nil
}

// offsetFile composes a fixed base offset into every ReadAt/WriteAt call,
// letting a slice address [0, length) of its own while the shared
// underlying file is addressed in absolute coordinates.
type offsetFile struct {
	vfs.File
	base int64
}

func (o *offsetFile) ReadAt(p []byte, off int64) (int, error) {
	return o.File.ReadAt(p, o.base+off)
}

func (o *offsetFile) WriteAt(p []byte, off int64) (int, error) {
	return o.File.WriteAt(p, o.base+off)
}

// Close on a slice's offsetFile must not close the shared parent handle;
// only the root Reader's Close does that (spec §4.3 "closing a slice...
// MUST NOT close the parent's handle").
func (o *offsetFile) Close() error { return nil }
