// Package validate checks the shape of the manifest-style diagnostics
// `extract --diff` emits (SPEC_FULL §2.1), using a real JSON Schema
// instead of the teacher's hand-rolled field-by-field checks.
package validate

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/techcable-oss/supersrg/internal/diff"
)

// patchMaxBytes and patchContext are the only diff sizing this package ever
// asks internal/diff for: a DiffReport entry's patch is capped at 1MiB of
// combined old+new content, with 3 lines of surrounding context, matching
// `git diff`'s default -U3.
const (
	patchMaxBytes = 1 << 20
	patchContext  = 3
)

// UnifiedPatch builds the patch text for a ReanalyzeEntry whose previous
// blob was found in the cache.
func UnifiedPatch(path string, prev, current []byte) (patch string, oversize bool) {
	return diff.Unified(path, path, prev, current, patchMaxBytes, patchContext)
}

// AddedPatch builds the patch text for a ReanalyzeEntry with no previously
// recorded hash (the file was not seen by an earlier extraction run).
func AddedPatch(path string, current []byte) (patch string, oversize bool) {
	return diff.Added(path, current, patchMaxBytes, patchContext)
}

// DiffReport is the top-level document `extract --diff` writes to
// describe one extraction run: which files the incremental hash compare
// skipped, and which were reprocessed along with a unified diff against
// their previously cached blob (internal/cache), when one was available.
type DiffReport struct {
	Version    int              `json:"version"`
	SourceDir  string           `json:"sourceDir"`
	Skipped    []SkippedEntry   `json:"skipped"`
	Reanalyzed []ReanalyzeEntry `json:"reanalyzed"`
}

// SkippedEntry names a file the incremental hash compare left untouched.
type SkippedEntry struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// ReanalyzeEntry names a file that was reprocessed, with a unified diff
// against its previous blob when one was available in the cache.
type ReanalyzeEntry struct {
	Path         string `json:"path"`
	PreviousHash string `json:"previousHash,omitempty"`
	CurrentHash  string `json:"currentHash"`
	Patch        string `json:"patch,omitempty"`
	Oversize     bool   `json:"oversize"`
}

// diffReportSchema is the JSON Schema DiffReport must satisfy. hash fields
// are 64-char lowercase hex (sha256); path fields must be non-empty.
var diffReportSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"version":   {Type: "integer", Minimum: jsonNum(1)},
		"sourceDir": {Type: "string", MinLength: jsonInt(1)},
		"skipped": {
			Type: "array",
			Items: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"path": {Type: "string", MinLength: jsonInt(1)},
					"hash": {Type: "string", Pattern: "^[0-9a-f]{64}$"},
				},
				Required: []string{"path", "hash"},
			},
		},
		"reanalyzed": {
			Type: "array",
			Items: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"path":         {Type: "string", MinLength: jsonInt(1)},
					"previousHash": {Type: "string", Pattern: "^[0-9a-f]{64}$"},
					"currentHash":  {Type: "string", Pattern: "^[0-9a-f]{64}$"},
					"patch":        {Type: "string"},
					"oversize":     {Type: "boolean"},
				},
				Required: []string{"path", "currentHash", "oversize"},
			},
		},
	},
	Required: []string{"version", "sourceDir", "skipped", "reanalyzed"},
}

var resolvedDiffReportSchema *jsonschema.Resolved

func init() {
	resolved, err := diffReportSchema.Resolve(nil)
	if err != nil {
		panic(fmt.Sprintf("validate: invalid DiffReport schema: %v", err))
	}
	resolvedDiffReportSchema = resolved
}

// DiffReportJSON validates r against diffReportSchema by round-tripping it
// through JSON, matching how a document actually read off disk (rather
// than a typed Go value) would be validated.
func DiffReportJSON(r DiffReport) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal diff report: %w", err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("unmarshal diff report: %w", err)
	}
	return resolvedDiffReportSchema.Validate(instance)
}

func jsonNum(f float64) *float64 { return &f }
func jsonInt(i int) *int         { return &i }
