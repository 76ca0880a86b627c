// Package diff provides unified-diff generation utilities for changed files.
// It uses github.com/pmezard/go-difflib/difflib to produce classic unified
// patches (---/+++ headers, @@ hunks, lines prefixed with ' ', '-', '+').
package diff

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// Unified produces a classic unified patch for a↦b. maxBytes guardrails the
// combined input size (old+new); 0 means no limit, and exceeding it returns
// a placeholder patch with oversize=true instead of the real diff.
// contextLines is the number of context lines per hunk; 0 defaults to 4.
// Returns the patch body and a flag indicating it was omitted due to size.
func Unified(aName, bName string, a, b []byte, maxBytes, contextLines int) (body string, oversize bool) {
	// Size guardrail.
	if maxBytes > 0 && (len(a)+len(b)) > maxBytes {
		return omitted(aName, bName), true
	}

	ctx := contextLines
	if ctx <= 0 {
		ctx = 4
	}

	ua := splitLinesKeepNL(string(a))
	ub := splitLinesKeepNL(string(b))

	u := difflib.UnifiedDiff{
		A:        ua,
		B:        ub,
		FromFile: aName,
		ToFile:   bName,
		Context:  ctx,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil || s == "" {
		// Very rare; return placeholder instead of an empty patch.
		return omitted(aName, bName), false
	}
	return s, false
}

// Added produces a patch that adds the entire content b (no old version).
func Added(bName string, b []byte, maxBytes, contextLines int) (string, bool) {
	if maxBytes > 0 && len(b) > maxBytes {
		return omitted("/dev/null", bName), true
	}
	ctx := contextLines
	if ctx <= 0 {
		ctx = 4
	}
	// Ensure no "b/" prefix in ToFile per policy.
	if strings.HasPrefix(bName, "b/") {
		bName = bName[2:]
	}
	u := difflib.UnifiedDiff{
		A:        []string{},                  // empty "from"
		B:        splitLinesKeepNL(string(b)), // new content
		FromFile: "/dev/null",
		ToFile:   bName,
		Context:  ctx,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil || s == "" {
		return omitted("/dev/null", bName), false
	}
	return s, false
}

// splitLinesKeepNL splits into lines and keeps newline characters,
// which produces better unified hunks.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	// SplitAfter keeps the "\n" at the end of each element.
	lines := strings.SplitAfter(s, "\n")
	// If file does not end with a newline, SplitAfter keeps the last chunk
	// without "\n" — this is fine for unified output.
	return lines
}

// omitted returns a compact placeholder when size limits are exceeded.
func omitted(aName, bName string) string {
	return fmt.Sprintf("--- %s\n+++ %s\n@@\n# diff omitted (oversize)\n", aName, bName)
}
