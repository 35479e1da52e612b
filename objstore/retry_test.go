package objstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neusearch/lucene-cloud-go/internal/base"
	"github.com/neusearch/lucene-cloud-go/objstore"
	"github.com/neusearch/lucene-cloud-go/vfs"
)

// flakyStore simulates the eventual-consistency window spec §4.1
// describes: the first GetRange against a key fails NotFound even
// though the object exists, as if a rename's copy had not yet
// propagated to the read path that serves unversioned GETs.
type flakyStore struct {
	objstore.Store
	failNext map[string]bool
}

func (f *flakyStore) GetRange(ctx context.Context, name string, offset, length int64) ([]byte, error) {
	if f.failNext[name] {
		delete(f.failNext, name)
		return nil, base.MarkNotFound(errNotFoundStub)
	}
	return f.Store.GetRange(ctx, name, offset, length)
}

func (f *flakyStore) IsNotExist(err error) bool {
	return base.IsNotFound(err) || f.Store.IsNotExist(err)
}

func (f *flakyStore) ListVersions(ctx context.Context, name string) ([]string, error) {
	return []string{"v1"}, nil
}

func (f *flakyStore) GetRangeVersion(ctx context.Context, name, versionID string, offset, length int64) ([]byte, error) {
	return f.Store.GetRange(ctx, name, offset, length)
}

var errNotFoundStub = errStub("stub: no such key")

type errStub string

func (e errStub) Error() string { return string(e) }

func TestVersionedRetryMasksTransientNotFound(t *testing.T) {
	ctx := context.Background()
	backing := objstore.NewLocalFS(vfs.NewMem(), "/bucket", "")
	seedLocal(t, backing, "k", []byte("eventual bytes"))

	store := objstore.WithVersionedRetry(&flakyStore{Store: backing, failNext: map[string]bool{"k": true}})

	got, err := store.GetRange(ctx, "k", 0, 8)
	require.NoError(t, err)
	require.Equal(t, "eventual", string(got))
}

func TestVersionedRetryPropagatesPermanentNotFound(t *testing.T) {
	ctx := context.Background()
	baseStore := objstore.NewLocalFS(vfs.NewMem(), "/bucket", "")
	store := objstore.WithVersionedRetry(baseStore)

	_, err := store.GetRange(ctx, "missing", 0, 1)
	require.Error(t, err)
}
