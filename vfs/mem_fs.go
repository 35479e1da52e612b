// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package vfs

import (
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// MemFS is a memory-backed FS implementation, for use in tests. Unlike
// pebble's vfs.MemFS, it does not model a directory tree: every name the
// cache layer uses is flat (spec §3 treats any '/' in a name as a literal
// character, not a separator), so a single name->node map suffices.
type MemFS struct {
	mu    sync.Mutex
	nodes map[string]*memNode
	locks map[string]struct{}
}

// NewMem returns a new memory-backed FS.
func NewMem() *MemFS {
	return &MemFS{
		nodes: make(map[string]*memNode),
		locks: make(map[string]struct{}),
	}
}

var _ FS = (*MemFS)(nil)

type memNode struct {
	mu      sync.Mutex
	data    []byte
	modTime time.Time
}

func (fs *MemFS) Create(name string) (File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := &memNode{modTime: time.Now()}
	fs.nodes[name] = n
	return &memFile{n: n, name: name, fs: fs}, nil
}

func (fs *MemFS) OpenReadWrite(name string) (File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n, ok := fs.nodes[name]
	if !ok {
		n = &memNode{modTime: time.Now()}
		fs.nodes[name] = n
	}
	return &memFile{n: n, name: name, fs: fs}, nil
}

func (fs *MemFS) Open(name string) (File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n, ok := fs.nodes[name]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	return &memFile{n: n, name: name, fs: fs, read: true}, nil
}

func (fs *MemFS) Remove(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.nodes, name)
	return nil
}

func (fs *MemFS) Rename(oldname, newname string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n, ok := fs.nodes[oldname]
	if !ok {
		return &os.PathError{Op: "rename", Path: oldname, Err: os.ErrNotExist}
	}
	fs.nodes[newname] = n
	delete(fs.nodes, oldname)
	return nil
}

func (fs *MemFS) MkdirAll(dir string, perm os.FileMode) error { return nil }

func (fs *MemFS) Lock(name string) (io.Closer, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.locks[name]; ok {
		return nil, errors.Newf("lucene-cloud: %s already locked", name)
	}
	if _, ok := fs.nodes[name]; !ok {
		fs.nodes[name] = &memNode{modTime: time.Now()}
	}
	fs.locks[name] = struct{}{}
	return &memLock{fs: fs, name: name}, nil
}

type memLock struct {
	fs   *MemFS
	name string
}

func (l *memLock) Close() error {
	l.fs.mu.Lock()
	defer l.fs.mu.Unlock()
	delete(l.fs.locks, l.name)
	return nil
}

func (fs *MemFS) List(dir string) ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	prefix := dir
	if prefix != "" && prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	names := make([]string, 0, len(fs.nodes))
	for name := range fs.nodes {
		if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		names = append(names, name[len(prefix):])
	}
	sort.Strings(names)
	return names, nil
}

func (fs *MemFS) Stat(name string) (os.FileInfo, error) {
	fs.mu.Lock()
	n, ok := fs.nodes[name]
	fs.mu.Unlock()
	if !ok {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return memFileInfo{name: name, size: int64(len(n.data)), modTime: n.modTime}, nil
}

func (fs *MemFS) Exists(name string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, ok := fs.nodes[name]
	return ok
}

func (fs *MemFS) PathJoin(elem ...string) string {
	out := ""
	for i, e := range elem {
		if i > 0 {
			out += "/"
		}
		out += e
	}
	return out
}

func (fs *MemFS) PathBase(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

type memFileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (i memFileInfo) Name() string       { return i.name }
func (i memFileInfo) Size() int64        { return i.size }
func (i memFileInfo) Mode() os.FileMode  { return 0644 }
func (i memFileInfo) ModTime() time.Time { return i.modTime }
func (i memFileInfo) IsDir() bool        { return false }
func (i memFileInfo) Sys() interface{}   { return nil }

// memFile is a File backed by a memNode's in-memory byte slice. Writes past
// the current end of the slice grow it, zero-filling the gap, which is what
// gives Truncate/WriteAt the sparse-file semantics s3input relies on.
type memFile struct {
	n      *memNode
	name   string
	fs     *MemFS
	read   bool
	offset int64
}

var _ File = (*memFile)(nil)

func (f *memFile) Read(p []byte) (int, error) {
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	if f.offset >= int64(len(f.n.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.n.data[f.offset:])
	f.offset += int64(n)
	return n, nil
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	if off >= int64(len(f.n.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.n.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	n, err := f.WriteAt(p, f.offset)
	f.offset += int64(n)
	return n, err
}

func (f *memFile) WriteAt(p []byte, off int64) (int, error) {
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	end := off + int64(len(p))
	if end > int64(len(f.n.data)) {
		grown := make([]byte, end)
		copy(grown, f.n.data)
		f.n.data = grown
	}
	copy(f.n.data[off:end], p)
	f.n.modTime = time.Now()
	return len(p), nil
}

func (f *memFile) Truncate(size int64) error {
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	switch {
	case size <= int64(len(f.n.data)):
		f.n.data = f.n.data[:size]
	default:
		grown := make([]byte, size)
		copy(grown, f.n.data)
		f.n.data = grown
	}
	return nil
}

func (f *memFile) Stat() (os.FileInfo, error) {
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	return memFileInfo{name: f.name, size: int64(len(f.n.data)), modTime: f.n.modTime}, nil
}

func (f *memFile) Sync() error { return nil }

func (f *memFile) Close() error { return nil }
