// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import "github.com/cockroachdb/errors"

// The directory recognizes five error kinds (see spec §7). Callers should
// use errors.Is against these sentinels; implementations should produce
// errors via errors.Mark(cause, <sentinel>) so that the original cause is
// preserved while still classifying under one of these kinds.
var (
	// ErrNotFound is returned when a remote head/get or a local lookup
	// targets a name that is not present in any of the four file states.
	ErrNotFound = errors.New("lucene-cloud: not found")

	// ErrTransport marks a network failure talking to the object store,
	// surfaced after any versioned retry has been exhausted.
	ErrTransport = errors.New("lucene-cloud: transport error")

	// ErrLocalIO marks a failure of the local cache filesystem.
	ErrLocalIO = errors.New("lucene-cloud: local io error")

	// ErrInvalidState marks an operation that is invalid given the
	// directory's or file's current state: use-after-close, write to an
	// unopened file, rename of a name with an open writer.
	ErrInvalidState = errors.New("lucene-cloud: invalid state")

	// ErrConsistency marks a range GET that returned a byte count other
	// than the one requested. The triggering read must fail and the
	// block must not be marked present.
	ErrConsistency = errors.New("lucene-cloud: consistency error")
)

// MarkNotFound wraps err so that errors.Is(err, ErrNotFound) is true.
func MarkNotFound(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrNotFound)
}

// MarkTransport wraps err so that errors.Is(err, ErrTransport) is true.
func MarkTransport(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrTransport)
}

// MarkLocalIO wraps err so that errors.Is(err, ErrLocalIO) is true.
func MarkLocalIO(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrLocalIO)
}

// MarkInvalidState wraps err so that errors.Is(err, ErrInvalidState) is true.
func MarkInvalidState(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrInvalidState)
}

// MarkConsistency wraps err so that errors.Is(err, ErrConsistency) is true.
func MarkConsistency(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrConsistency)
}

// IsNotFound reports whether err (or a cause in its chain) is ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
