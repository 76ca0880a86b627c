package orchestrate

import (
	"context"
	"encoding/hex"

	"github.com/techcable-oss/supersrg/internal/rangemap"
	"github.com/techcable-oss/supersrg/internal/srcwalk"
)

// IncrementalPlan partitions a freshly-walked source tree against an
// existing RangeMap (spec §4.6 "Incremental extraction"): Changed holds
// files the AST analyser still needs to process (new, or hash differs);
// Skipped holds files whose content hash is byte-equal to what the
// existing RangeMap already recorded, and so need not be re-analysed.
type IncrementalPlan struct {
	Changed []srcwalk.FileInfo
	Skipped []srcwalk.FileInfo
}

// PlanIncrementalExtraction hashes every file in files (in parallel, via
// srcwalk.HashTree) and partitions it against existing's recorded hashes.
// existing may be rangemap.Empty(), in which case every file is Changed.
func PlanIncrementalExtraction(ctx context.Context, files []srcwalk.FileInfo, existing *rangemap.RangeMap) (IncrementalPlan, error) {
	hashes, err := srcwalk.HashTree(ctx, files)
	if err != nil {
		return IncrementalPlan{}, err
	}

	var plan IncrementalPlan
	for _, fi := range files {
		digest, err := hex.DecodeString(hashes[fi.RelPath])
		if err == nil && existing.HasHash(fi.RelPath, digest) {
			plan.Skipped = append(plan.Skipped, fi)
			continue
		}
		plan.Changed = append(plan.Changed, fi)
	}
	return plan, nil
}
