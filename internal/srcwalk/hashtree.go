package srcwalk

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// HashTree computes the SHA-256 of every file's contents in parallel over
// worker count max(2, runtime.NumCPU()) (spec §4.6's "Incremental
// extraction": hashing happens before the AST analyser runs, so a partial
// RangeMap can be folded in for files whose hash has not changed). The
// returned map is keyed by RelPath; files is typically the output of
// CollectFiles.
func HashTree(ctx context.Context, files []FileInfo) (map[string]string, error) {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}
	if workers > len(files) {
		workers = len(files)
	}
	if workers == 0 {
		return map[string]string{}, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	var mu sync.Mutex
	hashes := make(map[string]string, len(files))

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for idx := range jobs {
				fi := files[idx]
				sumHex, err := sha256File(fi.AbsPath)
				if err != nil {
					return err
				}
				mu.Lock()
				hashes[fi.RelPath] = sumHex
				mu.Unlock()
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for i := range files {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return hashes, nil
}
