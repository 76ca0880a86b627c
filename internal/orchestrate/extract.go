package orchestrate

import (
	"context"
	"encoding/hex"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/techcable-oss/supersrg/internal/config"
	"github.com/techcable-oss/supersrg/internal/rangemap"
	"github.com/techcable-oss/supersrg/internal/ranges"
	"github.com/techcable-oss/supersrg/internal/srcwalk"
)

// Analyser discovers one file's field and method references. This is the
// external AST analyser spec §1 places out of scope ("a consumer of a
// RangeMapBuilder sink"): extract orchestrates incremental re-analysis
// around it, but never parses Java source itself.
type Analyser interface {
	AnalyseFile(ctx context.Context, fi srcwalk.FileInfo) ([]ranges.FieldReference, []ranges.MethodReference, error)
}

// ExtractResult is the outcome of one extract invocation: the updated
// RangeMap to persist, plus the incremental plan for --diff reporting.
type ExtractResult struct {
	RangeMap *rangemap.RangeMap
	Plan     IncrementalPlan
}

// RunExtraction implements spec §4.6's "Incremental extraction": hash every
// file, skip ones whose hash matches existing, run a on the rest, then fold
// the partial result into existing via RangeMap.Update.
func RunExtraction(ctx context.Context, cfg config.Config, files []srcwalk.FileInfo, existing *rangemap.RangeMap, a Analyser) (ExtractResult, error) {
	plan, err := PlanIncrementalExtraction(ctx, files, existing)
	if err != nil {
		return ExtractResult{}, err
	}
	if len(plan.Changed) == 0 {
		return ExtractResult{RangeMap: existing, Plan: plan}, nil
	}

	fieldRefs := make(map[string][]ranges.FieldReference, len(plan.Changed))
	methodRefs := make(map[string][]ranges.MethodReference, len(plan.Changed))
	fileHashes := make(map[string][]byte, len(plan.Changed))

	var mu sync.Mutex
	sem := semaphore.NewWeighted(int64(cfg.ResolvedWorkers()))
	g, gctx := errgroup.WithContext(ctx)

	for _, fi := range plan.Changed {
		fi := fi
		if err := sem.Acquire(gctx, 1); err != nil {
			return ExtractResult{}, err
		}
		g.Go(func() error {
			defer sem.Release(1)
			fields, methods, err := a.AnalyseFile(gctx, fi)
			if err != nil {
				return err
			}
			digest, err := hex.DecodeString(fi.SHA256Hex)
			if err != nil {
				return err
			}
			mu.Lock()
			fieldRefs[fi.RelPath] = fields
			methodRefs[fi.RelPath] = methods
			fileHashes[fi.RelPath] = digest
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ExtractResult{}, err
	}

	partial, err := rangemap.New(fieldRefs, methodRefs, fileHashes)
	if err != nil {
		return ExtractResult{}, err
	}
	updated, err := existing.Update(partial)
	if err != nil {
		return ExtractResult{}, err
	}
	return ExtractResult{RangeMap: updated, Plan: plan}, nil
}
