// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Logger defines an interface for writing log messages.
type Logger interface {
	Infof(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// DefaultLogger logs to the Go stdlib logs.
type DefaultLogger struct{}

// Infof implements the Logger.Infof interface.
func (DefaultLogger) Infof(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf(format, args...))
}

// Fatalf implements the Logger.Fatalf interface.
func (DefaultLogger) Fatalf(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf(format, args...))
	os.Exit(1)
}

// InMemLogger is a Logger implementation that buffers log messages in
// memory, for use in datadriven tests that want to assert on what was
// logged during a test step.
type InMemLogger struct {
	mu  sync.Mutex
	buf []string
}

// Infof implements the Logger.Infof interface.
func (l *InMemLogger) Infof(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = append(l.buf, fmt.Sprintf(format, args...))
}

// Fatalf implements the Logger.Fatalf interface. It does not exit the
// process; tests should not exercise Fatalf paths.
func (l *InMemLogger) Fatalf(format string, args ...interface{}) {
	l.Infof(format, args...)
}

// String returns the accumulated log lines, newline separated.
func (l *InMemLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := ""
	for _, line := range l.buf {
		s += line + "\n"
	}
	return s
}

// Reset clears the accumulated log lines.
func (l *InMemLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = l.buf[:0]
}
