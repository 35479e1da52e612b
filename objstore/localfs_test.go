package objstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neusearch/lucene-cloud-go/objstore"
	"github.com/neusearch/lucene-cloud-go/vfs"
)

func seedLocal(t *testing.T, store objstore.Store, name string, content []byte) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "seed")
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Write(content)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), name, f.Name()))
}

func TestLocalFSRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewLocalFS(vfs.NewMem(), "/bucket", "prefix/")

	content := []byte("hello, lucene-cloud")
	seedLocal(t, store, "seg.fdt", content)

	size, err := store.Head(ctx, "seg.fdt")
	require.NoError(t, err)
	require.EqualValues(t, len(content), size)

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, "seg.fdt", infos[0].Name)
	require.EqualValues(t, len(content), infos[0].Size)

	got, err := store.GetRange(ctx, "seg.fdt", 7, 6)
	require.NoError(t, err)
	require.Equal(t, "lucene", string(got))

	require.NoError(t, store.Copy(ctx, "seg.fdt", "seg2.fdt"))
	size2, err := store.Head(ctx, "seg2.fdt")
	require.NoError(t, err)
	require.EqualValues(t, len(content), size2)

	require.NoError(t, store.Delete(ctx, "seg.fdt"))
	_, err = store.Head(ctx, "seg.fdt")
	require.Error(t, err)
	require.True(t, store.IsNotExist(err))
}

func TestLocalFSGetRangeInvalidLength(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewLocalFS(vfs.NewMem(), "/bucket", "")
	seedLocal(t, store, "x", []byte("short"))

	_, err := store.GetRange(ctx, "x", 0, 100)
	require.Error(t, err)
}

func TestLocalFSBulkUploadDownload(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewLocalFS(vfs.NewMem(), "/bucket", "")

	dir := t.TempDir()
	src1 := dir + "/a.bin"
	src2 := dir + "/b.bin"
	require.NoError(t, os.WriteFile(src1, []byte("aaaa"), 0644))
	require.NoError(t, os.WriteFile(src2, []byte("bbbbbb"), 0644))

	require.NoError(t, store.BulkUpload(ctx, map[string]string{"a": src1, "b": src2}))

	sizeA, err := store.Head(ctx, "a")
	require.NoError(t, err)
	require.EqualValues(t, 4, sizeA)

	dst1 := dir + "/a.out"
	dst2 := dir + "/b.out"
	require.NoError(t, store.BulkDownload(ctx, map[string]string{"a": dst1, "b": dst2}))

	got1, err := os.ReadFile(dst1)
	require.NoError(t, err)
	require.Equal(t, "aaaa", string(got1))
	got2, err := os.ReadFile(dst2)
	require.NoError(t, err)
	require.Equal(t, "bbbbbb", string(got2))
}

func TestLocalFSDeleteOfMissingIsNotAnError(t *testing.T) {
	store := objstore.NewLocalFS(vfs.NewMem(), "/bucket", "")
	require.NoError(t, store.Delete(context.Background(), "nope"))
}
