// Package mapping implements Mapping and ClassMappings (spec §3, §4.5): the
// in-memory rename dictionary the class-file and source remap pipelines
// consult, plus the memoised type/method descriptor rewriter (spec §4.4's
// "Descriptor remapping").
package mapping

import (
	"fmt"

	"github.com/techcable-oss/supersrg/internal/srgerr"
)

// MethodKey indexes a class's method renames by (descriptor, old name)
// rather than (old name, descriptor): the spec chooses this ordering so
// descriptor-first lookup skips hashing the name twice, since descriptor is
// usually the sparser dimension per class.
type MethodKey struct {
	Descriptor string
	Name       string
}

// ClassMappings carries one class's renames: its own name (if renamed),
// and old->new maps for fields and methods declared on it.
type ClassMappings struct {
	originalName string
	remappedName *string // nil: class keeps its name
	fieldNames   map[string]string
	methodNames  map[MethodKey]string
}

// NewClassMappings validates and constructs a ClassMappings. A non-nil
// remappedName must be non-empty: srgerr.InvalidMappings otherwise (spec
// §4.4 failure modes).
func NewClassMappings(
	originalName string,
	remappedName *string,
	fieldNames map[string]string,
	methodNames map[MethodKey]string,
) (*ClassMappings, error) {
	if remappedName != nil && *remappedName == "" {
		return nil, fmt.Errorf("%w: class %q has empty remapped name", srgerr.InvalidMappings, originalName)
	}

	fn := make(map[string]string, len(fieldNames))
	for k, v := range fieldNames {
		fn[k] = v
	}
	mn := make(map[MethodKey]string, len(methodNames))
	for k, v := range methodNames {
		mn[k] = v
	}

	var remapped *string
	if remappedName != nil {
		v := *remappedName
		remapped = &v
	}

	return &ClassMappings{
		originalName: originalName,
		remappedName: remapped,
		fieldNames:   fn,
		methodNames:  mn,
	}, nil
}

// OriginalName returns the class's internal name before remapping.
func (c *ClassMappings) OriginalName() string { return c.originalName }

// HasRemap reports whether the class itself is renamed.
func (c *ClassMappings) HasRemap() bool { return c.remappedName != nil }

// RemappedName returns the class's new internal name, or "" if it keeps
// its name (check HasRemap to distinguish "" from "renamed to empty",
// which NewClassMappings already rejects).
func (c *ClassMappings) RemappedName() string {
	if c.remappedName == nil {
		return ""
	}
	return *c.remappedName
}

// FieldName looks up a field's new simple name by its old simple name.
func (c *ClassMappings) FieldName(oldName string) (string, bool) {
	v, ok := c.fieldNames[oldName]
	return v, ok
}

// MethodName looks up a method's new simple name by (old name, descriptor).
func (c *ClassMappings) MethodName(oldName, descriptor string) (string, bool) {
	v, ok := c.methodNames[MethodKey{Descriptor: descriptor, Name: oldName}]
	return v, ok
}

// FieldRenames returns a copy of the class's old->new field name map, for
// callers that need to enumerate renames (e.g. the binary mappings codec).
func (c *ClassMappings) FieldRenames() map[string]string {
	cp := make(map[string]string, len(c.fieldNames))
	for k, v := range c.fieldNames {
		cp[k] = v
	}
	return cp
}

// MethodRenames returns a copy of the class's (descriptor,name)->new name
// map, for callers that need to enumerate renames.
func (c *ClassMappings) MethodRenames() map[MethodKey]string {
	cp := make(map[MethodKey]string, len(c.methodNames))
	for k, v := range c.methodNames {
		cp[k] = v
	}
	return cp
}

// Mapping is the full rename dictionary: a lookup from class internal name
// to ClassMappings, plus the two bounded descriptor-rewrite caches (spec
// §4.5). The zero value is not valid; use New.
type Mapping struct {
	classes map[string]*ClassMappings

	typeDescriptorCache   *descriptorCache
	methodDescriptorCache *descriptorCache
}

// New constructs a Mapping over classes, keyed by class internal name. The
// descriptor caches start empty and are capped at roughly 10k type
// descriptors and 100k method descriptors (spec §4.5).
func New(classes map[string]*ClassMappings) *Mapping {
	cp := make(map[string]*ClassMappings, len(classes))
	for k, v := range classes {
		cp[k] = v
	}
	return &Mapping{
		classes:               cp,
		typeDescriptorCache:   newDescriptorCache(10_000),
		methodDescriptorCache: newDescriptorCache(100_000),
	}
}

// Empty returns a Mapping with no renames, equivalent to the identity
// mapping used by Property 3 ("apply is identity under identity mapping").
func Empty() *Mapping { return New(nil) }

// ClassMappings looks up a class's renames by internal name.
func (m *Mapping) ClassMappings(internalName string) (*ClassMappings, bool) {
	c, ok := m.classes[internalName]
	return c, ok
}

// Classes returns a copy of the full class-keyed rename dictionary, for
// callers that need to enumerate every class (e.g. the binary mappings
// codec writing a .srg.dat file).
func (m *Mapping) Classes() map[string]*ClassMappings {
	cp := make(map[string]*ClassMappings, len(m.classes))
	for k, v := range m.classes {
		cp[k] = v
	}
	return cp
}

// FieldName implements the apply.Mapping / classfile remap lookup contract:
// resolve owner's ClassMappings, then its field rename.
func (m *Mapping) FieldName(owner, name string) (string, bool) {
	c, ok := m.classes[owner]
	if !ok {
		return "", false
	}
	return c.FieldName(name)
}

// MethodName implements the apply.Mapping / classfile remap lookup
// contract: resolve owner's ClassMappings, then its method rename.
func (m *Mapping) MethodName(owner, name, descriptor string) (string, bool) {
	c, ok := m.classes[owner]
	if !ok {
		return "", false
	}
	return c.MethodName(name, descriptor)
}
