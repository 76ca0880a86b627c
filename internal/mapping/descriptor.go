package mapping

import "strings"

// RemapTypeDescriptor rewrites a single JVM type descriptor (a primitive
// letter, an array of arbitrary depth, or an object type `Lpkg/Cls;`),
// replacing any class name for which the Mapping has a RemappedName.
// Returns the original descriptor and false if no class name inside it
// needed rewriting (spec §4.4's "Descriptor remapping").
func (m *Mapping) RemapTypeDescriptor(descriptor string) (string, bool) {
	if cached, ok := m.typeDescriptorCache.get(descriptor); ok {
		if !cached.changed {
			return descriptor, false
		}
		return cached.value, true
	}
	result, changed := m.remapSingleType(descriptor)
	m.typeDescriptorCache.put(descriptor, cacheEntry{value: result, changed: changed})
	if !changed {
		return descriptor, false
	}
	return result, true
}

// RemapMethodDescriptor rewrites a method descriptor `(params)return`,
// remapping each parameter type and the return type independently. Returns
// the original descriptor and false if nothing inside needed rewriting.
func (m *Mapping) RemapMethodDescriptor(descriptor string) (string, bool) {
	if cached, ok := m.methodDescriptorCache.get(descriptor); ok {
		if !cached.changed {
			return descriptor, false
		}
		return cached.value, true
	}
	result, changed := m.remapMethodDescriptorUncached(descriptor)
	m.methodDescriptorCache.put(descriptor, cacheEntry{value: result, changed: changed})
	if !changed {
		return descriptor, false
	}
	return result, true
}

func (m *Mapping) remapMethodDescriptorUncached(descriptor string) (string, bool) {
	if len(descriptor) < 2 || descriptor[0] != '(' {
		return descriptor, false
	}
	closeIdx := strings.IndexByte(descriptor, ')')
	if closeIdx < 0 {
		return descriptor, false
	}
	params := descriptor[1:closeIdx]
	ret := descriptor[closeIdx+1:]

	var b strings.Builder
	b.Grow(len(descriptor))
	b.WriteByte('(')

	changed := false
	for i := 0; i < len(params); {
		end := typeTokenEnd(params, i)
		token := params[i:end]
		if remapped, didChange := m.remapSingleType(token); didChange {
			changed = true
			b.WriteString(remapped)
		} else {
			b.WriteString(token)
		}
		i = end
	}
	b.WriteByte(')')

	if remapped, didChange := m.remapSingleType(ret); didChange {
		changed = true
		b.WriteString(remapped)
	} else {
		b.WriteString(ret)
	}

	if !changed {
		return descriptor, false
	}
	return b.String(), true
}

// remapSingleType rewrites one field-descriptor type token: an array
// recurses into its element type; an object type `Lname;` is rewritten iff
// its class has a RemappedName; primitives are returned unchanged.
func (m *Mapping) remapSingleType(t string) (string, bool) {
	if t == "" {
		return t, false
	}
	switch t[0] {
	case '[':
		elem, changed := m.remapSingleType(t[1:])
		if !changed {
			return t, false
		}
		return "[" + elem, true
	case 'L':
		if len(t) < 2 || t[len(t)-1] != ';' {
			return t, false
		}
		internalName := t[1 : len(t)-1]
		cm, ok := m.classes[internalName]
		if !ok || !cm.HasRemap() {
			return t, false
		}
		return "L" + cm.RemappedName() + ";", true
	default:
		return t, false
	}
}

// typeTokenEnd returns the index just past the single field-descriptor type
// token starting at s[i], handling arbitrary array nesting and both
// primitive (single-char) and object (`L...;`) forms.
func typeTokenEnd(s string, i int) int {
	j := i
	for j < len(s) && s[j] == '[' {
		j++
	}
	if j >= len(s) {
		return j
	}
	if s[j] == 'L' {
		for j < len(s) && s[j] != ';' {
			j++
		}
		if j < len(s) {
			j++ // consume ';'
		}
		return j
	}
	return j + 1
}
