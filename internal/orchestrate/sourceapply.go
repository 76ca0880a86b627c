package orchestrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/techcable-oss/supersrg/internal/apply"
	"github.com/techcable-oss/supersrg/internal/rangemap"
)

// ApplySource walks every file the RangeMap knows about, applies rm's
// recorded references against mapping m, and writes the result under
// outDir at the same relative path (spec §4.6 "Parallel source apply").
// Each worker owns its own StreamRangeApplier; workers bound concurrency.
func ApplySource(ctx context.Context, srcDir, outDir string, rm *rangemap.RangeMap, m apply.Mapping, workers int) error {
	if workers < 1 {
		workers = 1
	}
	files := rm.KnownFiles()

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(workers))

	var mu sync.Mutex
	var firstErr error
	recordErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, rel := range files {
		rel := rel
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			if err := applyOneFile(srcDir, outDir, rel, rm, m); err != nil {
				wrapped := fmt.Errorf("apply %q: %w", rel, err)
				recordErr(wrapped)
				return wrapped
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return firstErr
	}
	return nil
}

func applyOneFile(srcDir, outDir, rel string, rm *rangemap.RangeMap, m apply.Mapping) error {
	inPath := filepath.Join(srcDir, filepath.FromSlash(rel))
	outPath := filepath.Join(outDir, filepath.FromSlash(rel))

	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	applier := apply.NewStreamRangeApplier(m)
	refs := rm.SortedReferences(rel)
	return applier.Apply(in, out, refs)
}
