package objstore

import (
	"context"
	"io"

	"github.com/neusearch/lucene-cloud-go/internal/base"
)

// WithVersionedRetry wraps s so that GetRange and Get retry against the
// most recent version id of an object when the initial request fails with
// a "no such key" error (spec §4.1). This covers the window in which a
// rename's copy+delete has propagated asymmetrically: a reader may briefly
// see the destination key as missing even though the copy already
// succeeded, or see the source key as missing before realizing it was
// renamed away and should no longer be read at all.
func WithVersionedRetry(s Store) Store {
	return &versionedRetryStore{Store: s}
}

type versionedRetryStore struct {
	Store
}

func (v *versionedRetryStore) GetRange(ctx context.Context, name string, offset, length int64) ([]byte, error) {
	data, err := v.Store.GetRange(ctx, name, offset, length)
	if err == nil || !v.Store.IsNotExist(err) {
		return data, wrapErr(v.Store, err)
	}
	versionID, verr := latestVersion(ctx, v.Store, name)
	if verr != nil {
		return nil, wrapErr(v.Store, err)
	}
	data, err = v.Store.GetRangeVersion(ctx, name, versionID, offset, length)
	return data, wrapErr(v.Store, err)
}

func (v *versionedRetryStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := v.Store.Get(ctx, name)
	if err == nil || !v.Store.IsNotExist(err) {
		return r, wrapErr(v.Store, err)
	}
	versionID, verr := latestVersion(ctx, v.Store, name)
	if verr != nil {
		return nil, wrapErr(v.Store, err)
	}
	r, err = v.Store.GetVersion(ctx, name, versionID)
	return r, wrapErr(v.Store, err)
}

func latestVersion(ctx context.Context, s Store, name string) (string, error) {
	versions, err := s.ListVersions(ctx, name)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", base.ErrNotFound
	}
	return versions[0], nil
}

func wrapErr(s Store, err error) error {
	if err == nil {
		return nil
	}
	if s.IsNotExist(err) {
		return base.MarkNotFound(err)
	}
	return base.MarkTransport(err)
}
