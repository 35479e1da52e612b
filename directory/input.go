package directory

import (
	"context"

	"github.com/neusearch/lucene-cloud-go/fscache"
	"github.com/neusearch/lucene-cloud-go/s3input"
)

// Input is the reader handle returned by Directory.OpenInput: it unifies
// a plain local fscache.Reader (for Buffered/Synced names) and an
// s3input.Reader (for Cached/Remote-only names) behind one engine-facing
// type, matching spec §4.3's getFilePointer/seek/length/slice/close
// surface regardless of which tier actually services the read.
type Input interface {
	ReadByte(ctx context.Context) (byte, error)
	ReadBytes(ctx context.Context, p []byte) error
	Seek(pos int64) error
	FilePointer() int64
	Length() int64
	Close() error
	Slice(desc string, offset, length int64) (Input, error)
}

// localInput adapts fscache.Reader (a plain, non-block-addressed file) to
// Input, used for Buffered and Synced names where the whole file is
// already resident.
type localInput struct {
	r *fscache.Reader
}

var _ Input = (*localInput)(nil)

func (l *localInput) ReadByte(_ context.Context) (byte, error) {
	var b [1]byte
	if err := l.r.ReadAtFull(b[:], l.r.FilePointer()); err != nil {
		return 0, err
	}
	if err := l.r.Seek(l.r.FilePointer() + 1); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (l *localInput) ReadBytes(_ context.Context, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if err := l.r.ReadAtFull(p, l.r.FilePointer()); err != nil {
		return err
	}
	return l.r.Seek(l.r.FilePointer() + int64(len(p)))
}

func (l *localInput) Seek(pos int64) error  { return l.r.Seek(pos) }
func (l *localInput) FilePointer() int64    { return l.r.FilePointer() }
func (l *localInput) Length() int64         { return l.r.Length() }
func (l *localInput) Close() error          { return l.r.Close() }

func (l *localInput) Slice(_ string, offset, length int64) (Input, error) {
	s, err := l.r.Slice(offset, length)
	if err != nil {
		return nil, err
	}
	return &localInput{r: s}, nil
}

// remoteInput adapts s3input.Reader to Input, used for Cached and
// (on first open) Remote-only names.
type remoteInput struct {
	r *s3input.Reader
}

var _ Input = (*remoteInput)(nil)

func (l *remoteInput) ReadByte(ctx context.Context) (byte, error) { return l.r.ReadByte(ctx) }
func (l *remoteInput) ReadBytes(ctx context.Context, p []byte) error {
	return l.r.ReadBytes(ctx, p)
}
func (l *remoteInput) Seek(pos int64) error { return l.r.Seek(pos) }
func (l *remoteInput) FilePointer() int64   { return l.r.FilePointer() }
func (l *remoteInput) Length() int64        { return l.r.Length() }
func (l *remoteInput) Close() error         { return l.r.Close() }

func (l *remoteInput) Slice(desc string, offset, length int64) (Input, error) {
	s, err := l.r.Slice(desc, offset, length)
	if err != nil {
		return nil, err
	}
	return &remoteInput{r: s}, nil
}
