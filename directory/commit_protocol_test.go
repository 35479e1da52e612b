package directory_test

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"

	"github.com/neusearch/lucene-cloud-go/directory"
	"github.com/neusearch/lucene-cloud-go/fscache"
	"github.com/neusearch/lucene-cloud-go/vfs"
)

// TestCommitProtocol scripts the write/sync/rename/syncMetaData/delete
// sequence spec.md §4.5.1 and §8 describe, in the teacher's
// datadriven-scenario test style (cockroachdb-pebble's checkpoint_test.go,
// sharedcache tests).
func TestCommitProtocol(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMem()
	cache, err := fscache.New(fs, "/cache")
	if err != nil {
		t.Fatal(err)
	}
	store := newMemStore(fs)
	d, err := directory.Open(ctx, store, cache, directory.Options{SkipPrePopulate: true})
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	datadriven.RunTest(t, "testdata/commit_protocol", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "write":
			if len(td.CmdArgs) != 1 {
				return "write <name>"
			}
			name := td.CmdArgs[0].String()
			w, err := d.CreateOutput(name)
			if err != nil {
				return err.Error()
			}
			if _, err := w.Write([]byte(strings.TrimSpace(td.Input))); err != nil {
				return err.Error()
			}
			if err := w.Close(); err != nil {
				return err.Error()
			}
			return "ok"

		case "sync":
			names := make([]string, len(td.CmdArgs))
			for i, a := range td.CmdArgs {
				names[i] = a.String()
			}
			if err := d.Sync(ctx, names); err != nil {
				return err.Error()
			}
			return "ok"

		case "rename":
			if len(td.CmdArgs) != 2 {
				return "rename <from> <to>"
			}
			if err := d.Rename(ctx, td.CmdArgs[0].String(), td.CmdArgs[1].String()); err != nil {
				return err.Error()
			}
			return "ok"

		case "sync-metadata":
			if err := d.SyncMetaData(ctx); err != nil {
				return err.Error()
			}
			return "ok"

		case "delete":
			if len(td.CmdArgs) != 1 {
				return "delete <name>"
			}
			if err := d.DeleteFile(ctx, td.CmdArgs[0].String()); err != nil {
				return err.Error()
			}
			return "ok"

		case "list":
			names, err := d.ListAll(ctx)
			if err != nil {
				return err.Error()
			}
			sort.Strings(names)
			return strings.Join(names, "\n")

		case "remote-size":
			if len(td.CmdArgs) != 1 {
				return "remote-size <name>"
			}
			size, err := store.Head(ctx, td.CmdArgs[0].String())
			if err != nil {
				return err.Error()
			}
			return strconv.FormatInt(size, 10)

		default:
			return fmt.Sprintf("unknown command %q", td.Cmd)
		}
	})
}
