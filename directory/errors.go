package directory

import "github.com/cockroachdb/errors"

func errInvalidPrePopulateLength(name string, blockIdx, got, want int64) error {
	return errors.Newf(
		"lucene-cloud: pre-populate block %d of %s returned %d bytes, wanted %d", blockIdx, name, got, want)
}
