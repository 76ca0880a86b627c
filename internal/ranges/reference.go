package ranges

import (
	"fmt"
	"sort"
)

// FieldData identifies a field by its declaring class's internal name
// (slash-separated, JVM convention) and the field's simple name.
type FieldData struct {
	Owner string // declaring class internal name, e.g. "com/acme/Foo"
	Name  string // field simple name
}

// MethodData identifies a method by declaring class, simple name, and JVM
// method descriptor, e.g. "(ILjava/lang/String;)V".
type MethodData struct {
	Owner      string
	Name       string
	Descriptor string
}

// FieldReference pairs a FileLocation with the FieldData it names. The
// location's Size must equal the UTF-8 byte length of Name: the location
// covers exactly the source bytes spelling the field's simple name.
type FieldReference struct {
	Location FileLocation
	Field    FieldData
}

// NewFieldReference validates the size invariant before constructing.
func NewFieldReference(loc FileLocation, field FieldData) (FieldReference, error) {
	if loc.Size() != len(field.Name) {
		return FieldReference{}, fmt.Errorf(
			"field reference size mismatch: location covers %d bytes but name %q is %d bytes",
			loc.Size(), field.Name, len(field.Name),
		)
	}
	return FieldReference{Location: loc, Field: field}, nil
}

func (r FieldReference) String() string {
	return fmt.Sprintf("%s %s/%s", r.Location, r.Field.Owner, r.Field.Name)
}

// MethodReference pairs a FileLocation with the MethodData it names. As
// with FieldReference, the location's Size equals the UTF-8 byte length of
// the method's simple name (the descriptor is not part of the span).
type MethodReference struct {
	Location FileLocation
	Method   MethodData
}

// NewMethodReference validates the size invariant before constructing.
func NewMethodReference(loc FileLocation, method MethodData) (MethodReference, error) {
	if loc.Size() != len(method.Name) {
		return MethodReference{}, fmt.Errorf(
			"method reference size mismatch: location covers %d bytes but name %q is %d bytes",
			loc.Size(), method.Name, len(method.Name),
		)
	}
	return MethodReference{Location: loc, Method: method}, nil
}

func (r MethodReference) String() string {
	return fmt.Sprintf("%s %s/%s%s", r.Location, r.Method.Owner, r.Method.Name, r.Method.Descriptor)
}

// Kind distinguishes the two reference shapes folded into MemberReference.
type Kind int

const (
	KindField Kind = iota
	KindMethod
)

// MemberReference is the sum type of FieldReference and MethodReference,
// ordered by its FileLocation. Exactly one of Field/Method is meaningful,
// selected by Kind.
type MemberReference struct {
	Kind     Kind
	Location FileLocation
	Field    FieldData  // valid when Kind == KindField
	Method   MethodData // valid when Kind == KindMethod
}

// FromField lifts a FieldReference into a MemberReference.
func FromField(r FieldReference) MemberReference {
	return MemberReference{Kind: KindField, Location: r.Location, Field: r.Field}
}

// FromMethod lifts a MethodReference into a MemberReference.
func FromMethod(r MethodReference) MemberReference {
	return MemberReference{Kind: KindMethod, Location: r.Location, Method: r.Method}
}

// Name returns the simple name regardless of Kind.
func (m MemberReference) Name() string {
	if m.Kind == KindField {
		return m.Field.Name
	}
	return m.Method.Name
}

// Owner returns the declaring class internal name regardless of Kind.
func (m MemberReference) Owner() string {
	if m.Kind == KindField {
		return m.Field.Owner
	}
	return m.Method.Owner
}

// Less orders by FileLocation, matching the RangeMap's sort-merge order.
func (m MemberReference) Less(other MemberReference) bool {
	return m.Location.Less(other.Location)
}

func (m MemberReference) String() string {
	if m.Kind == KindField {
		return fmt.Sprintf("%s %s/%s", m.Location, m.Field.Owner, m.Field.Name)
	}
	return fmt.Sprintf("%s %s/%s%s", m.Location, m.Method.Owner, m.Method.Name, m.Method.Descriptor)
}

// SortMerge merges two already-appropriately-ordered slices of field and
// method references into a single FileLocation-ordered slice of
// MemberReference, matching RangeMap.sortedReferences (spec §4.1).
func SortMerge(fields []FieldReference, methods []MethodReference) []MemberReference {
	out := make([]MemberReference, 0, len(fields)+len(methods))
	for _, f := range fields {
		out = append(out, FromField(f))
	}
	for _, m := range methods {
		out = append(out, FromMethod(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
