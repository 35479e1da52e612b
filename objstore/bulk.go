package objstore

import (
	"context"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
)

// maxBulkConcurrency bounds how many uploads/downloads run at once, the
// same "bound concurrency" guidance spec §9 gives for pre-population.
const maxBulkConcurrency = 32

// BulkUpload uploads every (name, localPath) pair in paths concurrently
// against s, bounded by maxBulkConcurrency. It is shared by every Store
// implementation's BulkUpload method.
func BulkUpload(ctx context.Context, s Store, paths map[string]string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBulkConcurrency)
	for name, path := range paths {
		name, path := name, path
		g.Go(func() error {
			return s.Put(ctx, name, path)
		})
	}
	return g.Wait()
}

// BulkDownload writes every named object in names to its corresponding
// local path concurrently, bounded by maxBulkConcurrency.
func BulkDownload(ctx context.Context, s Store, names map[string]string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBulkConcurrency)
	for name, path := range names {
		name, path := name, path
		g.Go(func() error {
			r, err := s.Get(ctx, name)
			if err != nil {
				return err
			}
			defer r.Close()
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = io.Copy(f, r)
			return err
		})
	}
	return g.Wait()
}
