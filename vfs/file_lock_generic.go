// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build !darwin && !linux

package vfs

import (
	"fmt"
	"io"
	"runtime"
)

func (defaultFS) Lock(name string) (io.Closer, error) {
	return nil, fmt.Errorf("lucene-cloud: file locking is not implemented on %s/%s",
		runtime.GOOS, runtime.GOARCH)
}
