package sortutil

import "sort"

// StablePathSort returns a new slice containing the input relative source
// paths sorted lexicographically, so a RangeMap's KnownFiles listing and its
// on-disk encoding are deterministic regardless of extraction order. The
// input slice is not modified.
func StablePathSort(paths []string) []string {
	out := make([]string, len(paths))
	copy(out, paths)
	sort.Strings(out)
	return out
}
