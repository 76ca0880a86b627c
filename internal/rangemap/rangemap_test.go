package rangemap

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/techcable-oss/supersrg/internal/ranges"
)

func mustField(t *testing.T, start, end int, owner, name string) ranges.FieldReference {
	t.Helper()
	loc, err := ranges.NewFileLocation(start, end)
	if err != nil {
		t.Fatalf("NewFileLocation: %v", err)
	}
	ref, err := ranges.NewFieldReference(loc, ranges.FieldData{Owner: owner, Name: name})
	if err != nil {
		t.Fatalf("NewFieldReference: %v", err)
	}
	return ref
}

func mustMethod(t *testing.T, start, end int, owner, name, descriptor string) ranges.MethodReference {
	t.Helper()
	loc, err := ranges.NewFileLocation(start, end)
	if err != nil {
		t.Fatalf("NewFileLocation: %v", err)
	}
	ref, err := ranges.NewMethodReference(loc, ranges.MethodData{Owner: owner, Name: name, Descriptor: descriptor})
	if err != nil {
		t.Fatalf("NewMethodReference: %v", err)
	}
	return ref
}

func TestEmptyIsSingleton(t *testing.T) {
	a := Empty()
	b := Empty()
	if a != b {
		t.Error("Empty() should return the same pointer")
	}
	m, err := New(nil, nil, nil)
	if err != nil {
		t.Fatalf("New(nil,nil,nil): %v", err)
	}
	if m != a {
		t.Error("New with all-empty inputs should return the Empty() sentinel")
	}
}

func TestNewRejectsOverlap(t *testing.T) {
	fields := []ranges.FieldReference{mustField(t, 10, 13, "Foo", "bar")}
	methods := []ranges.MethodReference{mustMethod(t, 12, 15, "Foo", "baz", "()V")}
	fieldReferences := map[string][]ranges.FieldReference{"Foo.java": fields}
	methodReferences := map[string][]ranges.MethodReference{"Foo.java": methods}

	if _, err := New(fieldReferences, methodReferences, nil); err == nil {
		t.Error("expected overlap error")
	}
}

func TestKnownFilesAndSortedReferences(t *testing.T) {
	fields := map[string][]ranges.FieldReference{
		"Foo.java": {mustField(t, 10, 13, "Foo", "bar")},
	}
	methods := map[string][]ranges.MethodReference{
		"Foo.java": {mustMethod(t, 0, 3, "Foo", "baz", "()V")},
		"Bar.java": {mustMethod(t, 0, 3, "Bar", "qux", "()V")},
	}
	m, err := New(fields, methods, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	known := m.KnownFiles()
	if len(known) != 2 || known[0] != "Bar.java" || known[1] != "Foo.java" {
		t.Errorf("KnownFiles = %v", known)
	}

	sorted := m.SortedReferences("Foo.java")
	if len(sorted) != 2 || sorted[0].Name() != "baz" || sorted[1].Name() != "bar" {
		t.Errorf("SortedReferences(Foo.java) = %v", sorted)
	}
}

func TestUpdateIsRightBiasedPerFile(t *testing.T) {
	a, err := New(
		map[string][]ranges.FieldReference{
			"A.java": {mustField(t, 0, 3, "A", "one")},
			"B.java": {mustField(t, 0, 3, "B", "two")},
		},
		nil,
		map[string][]byte{"A.java": {1, 2, 3}, "B.java": {4, 5, 6}},
	)
	if err != nil {
		t.Fatalf("New a: %v", err)
	}

	b, err := New(
		map[string][]ranges.FieldReference{
			"B.java": {mustField(t, 0, 5, "B", "three")},
		},
		nil,
		map[string][]byte{"B.java": {9, 9, 9}},
	)
	if err != nil {
		t.Fatalf("New b: %v", err)
	}

	merged, err := a.Update(b)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if got := merged.References("A.java"); len(got) != 1 || got[0].Name() != "one" {
		t.Errorf("A.java references after update = %v, want unchanged [one]", got)
	}
	if got := merged.References("B.java"); len(got) != 1 || got[0].Name() != "three" {
		t.Errorf("B.java references after update = %v, want replaced [three]", got)
	}
	if !merged.HasHash("B.java", []byte{9, 9, 9}) {
		t.Error("B.java hash should be replaced by update")
	}
	if !merged.HasHash("A.java", []byte{1, 2, 3}) {
		t.Error("A.java hash should be preserved by update")
	}
}

func TestEqualAndHashCode(t *testing.T) {
	fields := map[string][]ranges.FieldReference{
		"Foo.java": {mustField(t, 10, 13, "Foo", "bar")},
	}
	hashes := map[string][]byte{"Foo.java": {0xAB, 0xCD}}

	a, err := New(fields, nil, hashes)
	if err != nil {
		t.Fatalf("New a: %v", err)
	}
	b, err := New(fields, nil, hashes)
	if err != nil {
		t.Fatalf("New b: %v", err)
	}

	if !a.Equal(b) {
		t.Error("expected a.Equal(b)")
	}
	if a.HashCode() != b.HashCode() {
		t.Error("expected equal hash codes for equal maps")
	}

	c, err := New(fields, nil, map[string][]byte{"Foo.java": {0xAB, 0xCE}})
	if err != nil {
		t.Fatalf("New c: %v", err)
	}
	if a.Equal(c) {
		t.Error("expected a not Equal c (different hash)")
	}
}

// randomRangeMap builds a RangeMap with up to maxFiles files, each with up
// to 15 fields and 15 methods, mirroring RangeMap.createRandom's bounds.
func randomRangeMap(rng *rand.Rand, maxFiles int) *RangeMap {
	fieldReferences := map[string][]ranges.FieldReference{}
	methodReferences := map[string][]ranges.MethodReference{}
	fileHashes := map[string][]byte{}

	numFiles := rng.Intn(maxFiles + 1)
	for fi := 0; fi < numFiles; fi++ {
		file := fmt.Sprintf("pkg/File%d.java", fi)
		hash := make([]byte, 32)
		rng.Read(hash)
		fileHashes[file] = hash

		numFields := rng.Intn(16)
		numMethods := rng.Intn(16)
		var fields []ranges.FieldReference
		var methods []ranges.MethodReference
		pos := 0
		for i := 0; i < numFields; i++ {
			name := fmt.Sprintf("f%d", i)
			loc, _ := ranges.NewFileLocation(pos, pos+len(name))
			ref, _ := ranges.NewFieldReference(loc, ranges.FieldData{Owner: fmt.Sprintf("pkg/Class%d", fi), Name: name})
			fields = append(fields, ref)
			pos += len(name) + 1
		}
		for i := 0; i < numMethods; i++ {
			name := fmt.Sprintf("m%d", i)
			loc, _ := ranges.NewFileLocation(pos, pos+len(name))
			ref, _ := ranges.NewMethodReference(loc, ranges.MethodData{Owner: fmt.Sprintf("pkg/Class%d", fi), Name: name, Descriptor: "()V"})
			methods = append(methods, ref)
			pos += len(name) + 1
		}
		if len(fields) > 0 {
			fieldReferences[file] = fields
		}
		if len(methods) > 0 {
			methodReferences[file] = methods
		}
	}

	m, err := New(fieldReferences, methodReferences, fileHashes)
	if err != nil {
		panic(err)
	}
	return m
}

func TestSerializationRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 5; i++ {
		m := randomRangeMap(rng, 5)

		var buf bytes.Buffer
		if err := Encode(&buf, m); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		got, err := Decode(&buf)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !m.Equal(got) {
			t.Errorf("round-trip %d: decoded map not equal to original", i)
		}
	}
}
