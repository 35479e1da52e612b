package directory

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/neusearch/lucene-cloud-go/internal/base"
	"github.com/neusearch/lucene-cloud-go/objstore"
	"github.com/neusearch/lucene-cloud-go/s3input"
	"github.com/neusearch/lucene-cloud-go/vfs"
)

// maxPrePopulateConcurrency bounds the number of in-flight warm-up range
// GETs (spec §9: "implementers SHOULD bound concurrency, e.g. a semaphore
// of 32-64").
const maxPrePopulateConcurrency = 64

// prePopulate fetches the first and (if distinct) last block of every
// object in infos in parallel, so that a subsequent cold read almost
// always hits resident bytes (spec §4.5.2). infos is the listing Open
// already fetched for cleanupOrphans; prePopulate doesn't list again.
// Per-object failures are logged and swallowed; they must not abort
// directory construction (spec §7).
func (d *Directory) prePopulate(ctx context.Context, infos []objstore.ObjectInfo) error {
	sem := semaphore.NewWeighted(maxPrePopulateConcurrency)
	g, gctx := errgroup.WithContext(ctx)
	for _, info := range infos {
		info := info
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)
			if err := d.prePopulateOne(ctx, info.Name, info.Size); err != nil {
				d.log.Infof("lucene-cloud: pre-populate %s failed: %v", info.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// prePopulateOne fetches block 0 and, if the object spans more than one
// block, the last block, writing each into the object's sparse file and
// marking it present.
func (d *Directory) prePopulateOne(ctx context.Context, name string, size int64) error {
	blocks := d.cached.GetOrCreate(name)
	f, err := d.cache.OpenSparse(name, size)
	if err != nil {
		return err
	}
	defer f.Close()

	firstLen := d.blockSize
	if firstLen > size {
		firstLen = size
	}
	if firstLen > 0 {
		if err := d.fetchBlockInto(ctx, name, f, 0, 0, firstLen, blocks); err != nil {
			return err
		}
	}
	if size > d.blockSize {
		lastBlk := (size - 1) / d.blockSize
		lastOff := lastBlk * d.blockSize
		if err := d.fetchBlockInto(ctx, name, f, lastBlk, lastOff, size-lastOff, blocks); err != nil {
			return err
		}
	}
	return nil
}

func (d *Directory) fetchBlockInto(ctx context.Context, name string, f vfs.File, blockIdx, offset, length int64, blocks *s3input.BlockMap) error {
	if blocks.Has(blockIdx) {
		return nil
	}
	data, err := d.store.GetRange(ctx, name, offset, length)
	if err != nil {
		return err
	}
	if int64(len(data)) != length {
		return base.MarkConsistency(errInvalidPrePopulateLength(name, blockIdx, int64(len(data)), length))
	}
	err = d.cache.WithSparseLock(name, func() error {
		_, err := f.WriteAt(data, offset)
		return err
	})
	if err != nil {
		return err
	}
	blocks.Add(blockIdx)
	return nil
}
