// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package vfs provides the local-filesystem namespace that fscache is built
// on top of: random-access files that support both ReadAt and WriteAt at
// arbitrary (possibly sparse) offsets, plus the directory operations the
// cache layer needs (create, open, remove, rename, list, lock).
package vfs

import (
	"io"
	"os"
	"path/filepath"
)

// File is a readable, writable, randomly-addressable sequence of bytes.
//
// Typically it will be an *os.File, but test code substitutes a
// memory-backed implementation. Unlike pebble's vfs.File, this File
// additionally supports WriteAt: the cache layer writes fetched blocks at
// arbitrary absolute offsets into a sparse file, so positional writes (not
// just positional reads) are part of the contract.
type File interface {
	io.Closer
	io.Reader
	io.ReaderAt
	io.Writer
	io.WriterAt
	Stat() (os.FileInfo, error)
	Sync() error
	// Truncate changes the size of the file. It is used to size a Cached
	// file's sparse footprint to the remote object's length (spec §4.3).
	Truncate(size int64) error
}

// FS is a namespace for files.
//
// Names are filepath names: forward-slash separated on all platforms that
// this module targets, matching the flat key-space of the object store
// whose names it mirrors.
type FS interface {
	// Create creates the named file for reading and writing, truncating it
	// if it already exists.
	Create(name string) (File, error)

	// OpenReadWrite opens the named file for reading and writing, creating
	// it (without truncating) if it does not already exist.
	OpenReadWrite(name string) (File, error)

	// Open opens the named file for reading.
	Open(name string) (File, error)

	// Remove removes the named file. It is not an error to remove a file
	// that does not exist.
	Remove(name string) error

	// Rename renames a file, overwriting the destination if it exists.
	Rename(oldname, newname string) error

	// MkdirAll creates a directory and all necessary parents.
	MkdirAll(dir string, perm os.FileMode) error

	// Lock takes an advisory exclusive lock on the named file, creating it
	// if necessary. Close the returned Closer to release the lock.
	Lock(name string) (io.Closer, error)

	// List returns the names of the entries of dir, relative to dir.
	List(dir string) ([]string, error)

	// Stat returns file metadata for the named file.
	Stat(name string) (os.FileInfo, error)

	// Exists reports whether name exists in the filesystem.
	Exists(name string) bool

	// PathJoin joins path elements using the filesystem's separator.
	PathJoin(elem ...string) string

	// PathBase returns the last element of path.
	PathBase(path string) string
}

// Default is an FS backed by the operating system's filesystem.
var Default FS = defaultFS{}

type defaultFS struct{}

func (defaultFS) Create(name string) (File, error) {
	return os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
}

func (defaultFS) OpenReadWrite(name string) (File, error) {
	return os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0644)
}

func (defaultFS) Open(name string) (File, error) {
	return os.OpenFile(name, os.O_RDONLY, 0)
}

func (defaultFS) Remove(name string) error {
	err := os.Remove(name)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (defaultFS) Rename(oldname, newname string) error {
	return os.Rename(oldname, newname)
}

func (defaultFS) MkdirAll(dir string, perm os.FileMode) error {
	return os.MkdirAll(dir, perm)
}

func (defaultFS) List(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Readdirnames(-1)
}

func (defaultFS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (defaultFS) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func (defaultFS) PathJoin(elem ...string) string {
	return filepath.Join(elem...)
}

func (defaultFS) PathBase(path string) string {
	return filepath.Base(path)
}
