package fscache

import (
	"hash/crc32"

	"github.com/neusearch/lucene-cloud-go/vfs"
)

// Writer is an append-only output handle bound to one Buffered name (spec
// §3 "Output handle", §4.4 S3IndexOutput). Bytes go straight to the local
// file; a CRC32 is accumulated over every byte written and a monotonic
// byte counter serves as the file pointer. Checksum computation itself is
// named a trivial, out-of-scope adapter in spec §1, so this uses the
// standard hash/crc32 rolling state rather than a third-party checksum
// library.
type Writer struct {
	name string
	f    vfs.File
	pos  int64
	crc  uint32
	tab  *crc32.Table
}

func newWriter(name string, f vfs.File) *Writer {
	return &Writer{name: name, f: f, tab: crc32.MakeTable(crc32.Castagnoli)}
}

// Name returns the name this writer is bound to.
func (w *Writer) Name() string { return w.name }

// Write appends p, updating the checksum and file pointer.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	w.crc = crc32.Update(w.crc, w.tab, p[:n])
	w.pos += int64(n)
	return n, err
}

// FilePointer returns the number of bytes written so far.
func (w *Writer) FilePointer() int64 { return w.pos }

// Checksum returns the running CRC32C over all bytes written so far.
func (w *Writer) Checksum() uint32 { return w.crc }

// Close finalizes the file and releases the handle. The directory's
// Buffered-set membership is unaffected by Close (spec §4.4): closing a
// writer does not by itself sync or rename the file.
func (w *Writer) Close() error {
	return w.f.Close()
}
