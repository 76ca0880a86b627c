// Package rangemap implements RangeMap: the per-file ordered lists of field
// and method source references, plus file content hashes, that a source
// analyser produces and the stream range applier (package apply) consumes.
package rangemap

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/techcable-oss/supersrg/internal/ranges"
	"github.com/techcable-oss/supersrg/internal/sortutil"
	"github.com/techcable-oss/supersrg/internal/srgerr"
)

// RangeMap is immutable once constructed. The zero value is not valid; use
// Empty or New. Callers must always hold a *RangeMap, never a RangeMap
// value, since KnownFiles and HashCode cache their result in place.
type RangeMap struct {
	fieldReferences  map[string][]ranges.FieldReference
	methodReferences map[string][]ranges.MethodReference
	fileHashes       map[string][]byte

	knownFilesOnce sync.Once
	knownFilesList []string

	hashOnce sync.Once
	hashVal  uint64
}

var empty = &RangeMap{
	fieldReferences:  map[string][]ranges.FieldReference{},
	methodReferences: map[string][]ranges.MethodReference{},
	fileHashes:       map[string][]byte{},
}

// Empty returns the canonical sentinel empty RangeMap, shared across all
// callers (matches the Java source's EMPTY singleton).
func Empty() *RangeMap { return empty }

// New validates that no two references within the same file overlap, then
// constructs a RangeMap holding defensive copies of its inputs. A nil map
// argument is treated as empty.
func New(
	fieldReferences map[string][]ranges.FieldReference,
	methodReferences map[string][]ranges.MethodReference,
	fileHashes map[string][]byte,
) (*RangeMap, error) {
	fr := copyFieldMap(fieldReferences)
	mr := copyMethodMap(methodReferences)
	fh := copyHashMap(fileHashes)

	for file := range unionKeys(fr, mr) {
		if err := validateNoOverlap(fr[file], mr[file]); err != nil {
			return nil, fmt.Errorf("file %q: %w", file, err)
		}
	}

	if len(fr) == 0 && len(mr) == 0 && len(fh) == 0 {
		return empty, nil
	}
	return &RangeMap{fieldReferences: fr, methodReferences: mr, fileHashes: fh}, nil
}

func validateNoOverlap(fields []ranges.FieldReference, methods []ranges.MethodReference) error {
	merged := ranges.SortMerge(fields, methods)
	for i := 1; i < len(merged); i++ {
		if merged[i-1].Location.Overlaps(merged[i].Location) {
			return &srgerr.OverlappingReferencesError{
				Prior:   merged[i-1].String(),
				Current: merged[i].String(),
			}
		}
	}
	return nil
}

// FieldReferences returns a copy of file's field reference list, in
// whatever order it was stored (not necessarily sorted).
func (m *RangeMap) FieldReferences(file string) []ranges.FieldReference {
	return append([]ranges.FieldReference(nil), m.fieldReferences[file]...)
}

// MethodReferences returns a copy of file's method reference list.
func (m *RangeMap) MethodReferences(file string) []ranges.MethodReference {
	return append([]ranges.MethodReference(nil), m.methodReferences[file]...)
}

// References returns file's field and method references concatenated,
// without sorting. Use SortedReferences where FileLocation order matters
// (the stream applier requires it).
func (m *RangeMap) References(file string) []ranges.MemberReference {
	fields := m.fieldReferences[file]
	methods := m.methodReferences[file]
	out := make([]ranges.MemberReference, 0, len(fields)+len(methods))
	for _, f := range fields {
		out = append(out, ranges.FromField(f))
	}
	for _, mm := range methods {
		out = append(out, ranges.FromMethod(mm))
	}
	return out
}

// SortedReferences is a sort-merge of file's field and method references by
// FileLocation, matching the order the stream applier requires.
func (m *RangeMap) SortedReferences(file string) []ranges.MemberReference {
	return ranges.SortMerge(m.fieldReferences[file], m.methodReferences[file])
}

// Hash returns a copy of file's recorded content digest, or nil if file has
// none.
func (m *RangeMap) Hash(file string) []byte {
	h := m.fileHashes[file]
	if h == nil {
		return nil
	}
	out := make([]byte, len(h))
	copy(out, h)
	return out
}

// HasHash reports whether file's recorded hash byte-equals expected.
func (m *RangeMap) HasHash(file string, expected []byte) bool {
	return bytes.Equal(m.fileHashes[file], expected)
}

// FileHashes returns a defensive copy of the full file-hash map.
func (m *RangeMap) FileHashes() map[string][]byte {
	return copyHashMap(m.fileHashes)
}

// KnownFiles returns the sorted union of files carrying field or method
// references (hash-only files are excluded). The result is computed once
// and cached.
func (m *RangeMap) KnownFiles() []string {
	m.knownFilesOnce.Do(func() {
		set := make(map[string]struct{}, len(m.fieldReferences)+len(m.methodReferences))
		for file := range m.fieldReferences {
			set[file] = struct{}{}
		}
		for file := range m.methodReferences {
			set[file] = struct{}{}
		}
		list := make([]string, 0, len(set))
		for file := range set {
			list = append(list, file)
		}
		m.knownFilesList = sortutil.StablePathSort(list)
	})
	return m.knownFilesList
}

// Update produces a new RangeMap: for every file present in other's field
// references, that file's field list is replaced wholesale (independently
// for method references and for file hashes). Files unique to m are kept
// as-is. This is the incremental-extraction fold-in operation (spec §4.1).
func (m *RangeMap) Update(other *RangeMap) (*RangeMap, error) {
	fr := copyFieldMap(m.fieldReferences)
	mr := copyMethodMap(m.methodReferences)
	fh := copyHashMap(m.fileHashes)

	for file, refs := range other.fieldReferences {
		fr[file] = append([]ranges.FieldReference(nil), refs...)
	}
	for file, refs := range other.methodReferences {
		mr[file] = append([]ranges.MethodReference(nil), refs...)
	}
	for file, hash := range other.fileHashes {
		h := make([]byte, len(hash))
		copy(h, hash)
		fh[file] = h
	}

	return New(fr, mr, fh)
}

// Equal reports whether m and other carry byte-equal hashes for the same
// set of files and, for every known file, element-equal sorted reference
// lists.
func (m *RangeMap) Equal(other *RangeMap) bool {
	if m == other {
		return true
	}
	if other == nil {
		return false
	}
	if len(m.fileHashes) != len(other.fileHashes) {
		return false
	}
	for file, hash := range m.fileHashes {
		if !bytes.Equal(hash, other.fileHashes[file]) {
			return false
		}
	}
	known := m.KnownFiles()
	otherKnown := other.KnownFiles()
	if len(known) != len(otherKnown) {
		return false
	}
	for i, file := range known {
		if file != otherKnown[i] {
			return false
		}
	}
	for _, file := range known {
		a := m.SortedReferences(file)
		b := other.SortedReferences(file)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}

// HashCode combines file-name/hash pairs and each known file's sorted
// reference list with a stable non-cryptographic mixer (xxhash), consistent
// with Equal. Computed once and cached.
func (m *RangeMap) HashCode() uint64 {
	m.hashOnce.Do(func() {
		h := xxhash.New()

		files := make([]string, 0, len(m.fileHashes))
		for file := range m.fileHashes {
			files = append(files, file)
		}
		files = sortutil.StablePathSort(files)
		for _, file := range files {
			_, _ = h.WriteString(file)
			_, _ = h.Write(m.fileHashes[file])
		}

		for _, file := range m.KnownFiles() {
			_, _ = h.WriteString(file)
			for _, ref := range m.SortedReferences(file) {
				_, _ = h.WriteString(ref.String())
			}
		}

		m.hashVal = h.Sum64()
	})
	return m.hashVal
}

func copyFieldMap(in map[string][]ranges.FieldReference) map[string][]ranges.FieldReference {
	out := make(map[string][]ranges.FieldReference, len(in))
	for file, refs := range in {
		out[file] = append([]ranges.FieldReference(nil), refs...)
	}
	return out
}

func copyMethodMap(in map[string][]ranges.MethodReference) map[string][]ranges.MethodReference {
	out := make(map[string][]ranges.MethodReference, len(in))
	for file, refs := range in {
		out[file] = append([]ranges.MethodReference(nil), refs...)
	}
	return out
}

func copyHashMap(in map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(in))
	for file, hash := range in {
		h := make([]byte, len(hash))
		copy(h, hash)
		out[file] = h
	}
	return out
}

func unionKeys(fr map[string][]ranges.FieldReference, mr map[string][]ranges.MethodReference) map[string]struct{} {
	set := make(map[string]struct{}, len(fr)+len(mr))
	for file := range fr {
		set[file] = struct{}{}
	}
	for file := range mr {
		set[file] = struct{}{}
	}
	return set
}
