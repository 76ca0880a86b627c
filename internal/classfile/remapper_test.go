package classfile

import (
	"bytes"
	"testing"

	"github.com/techcable-oss/supersrg/internal/mapping"
)

// buildFieldRefClassFile constructs a minimal class file whose constant
// pool is, in order: UTF8 "com/acme/Foo", UTF8 "bar", UTF8 "I",
// ClassRef->1, NameAndType(2,3), FieldRef(ClassRef=4, NAT=5).
func buildFieldRefClassFile() []byte {
	var body bytes.Buffer
	body.Write(utf8Entry("com/acme/Foo"))
	body.Write(utf8Entry("bar"))
	body.Write(utf8Entry("I"))
	body.Write(classRefEntry(1))
	body.Write(nameAndTypeEntry(2, 3))
	body.Write(fieldRefEntry(4, 5))
	return append(classFileHeader(52, 7), body.Bytes()...)
}

func renamingMapping(t *testing.T) *mapping.Mapping {
	t.Helper()
	newClass := "com/acme/Qux"
	cm, err := mapping.NewClassMappings(
		"com/acme/Foo",
		&newClass,
		map[string]string{"bar": "baz"},
		nil,
	)
	if err != nil {
		t.Fatalf("NewClassMappings: %v", err)
	}
	return mapping.New(map[string]*mapping.ClassMappings{"com/acme/Foo": cm})
}

func TestRemapFieldRefRenamesClassAndField(t *testing.T) {
	data := buildFieldRefClassFile()
	d, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	r := NewConstantPoolRemapper(renamingMapping(t), d)
	var out bytes.Buffer
	if err := r.Remap(&out); err != nil {
		t.Fatalf("Remap: %v", err)
	}

	d2, err := Decode(out.Bytes())
	if err != nil {
		t.Fatalf("Decode(remapped): %v", err)
	}
	if d2.Size() != 9 {
		t.Fatalf("Size() = %d, want 9 (6 original + 3 appended)", d2.Size())
	}

	newClassName, err := d2.UTF8(6)
	if err != nil || newClassName != "com/acme/Qux" {
		t.Errorf("UTF8(6) = %q, %v, want com/acme/Qux", newClassName, err)
	}
	newFieldName, err := d2.UTF8(7)
	if err != nil || newFieldName != "baz" {
		t.Errorf("UTF8(7) = %q, %v, want baz", newFieldName, err)
	}

	natTag, err := d2.Tag(8)
	if err != nil || natTag != TagNameAndType {
		t.Fatalf("Tag(8) = %d, %v, want TagNameAndType", natTag, err)
	}
	nat, err := d2.NameAndTypeDescriptor(8)
	if err != nil {
		t.Fatalf("NameAndTypeDescriptor(8): %v", err)
	}
	if nameIdx, descIdx := int(nat&0xFFFF), int(nat>>16); nameIdx != 8 || descIdx != 3 {
		t.Errorf("appended NameAndType = (%d,%d), want (8,3)", nameIdx, descIdx)
	}

	classRefTag, err := d2.Tag(3)
	if err != nil || classRefTag != TagClassRef {
		t.Fatalf("Tag(3) = %d, %v, want TagClassRef", classRefTag, err)
	}
	classRefNameIdx, err := d2.uint16At(mustOffset(t, d2, 3))
	if err != nil || int(classRefNameIdx) != 7 {
		t.Errorf("ClassRef nameIndex = %d, %v, want 7", classRefNameIdx, err)
	}

	fieldRefTag, err := d2.Tag(5)
	if err != nil || fieldRefTag != TagFieldRef {
		t.Fatalf("Tag(5) = %d, %v, want TagFieldRef", fieldRefTag, err)
	}
	fieldRefOffset := mustOffset(t, d2, 5)
	classIdx, err := d2.uint16At(fieldRefOffset)
	if err != nil || int(classIdx) != 4 {
		t.Errorf("FieldRef classIndex = %d, %v, want 4 (unchanged slot)", classIdx, err)
	}
	natIdx, err := d2.uint16At(fieldRefOffset + 2)
	if err != nil || int(natIdx) != 9 {
		t.Errorf("FieldRef natIndex = %d, %v, want 9", natIdx, err)
	}
}

func TestRemapIdentityMappingByteIdentical(t *testing.T) {
	data := buildFieldRefClassFile()
	d, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	r := NewConstantPoolRemapper(mapping.Empty(), d)
	var out bytes.Buffer
	if err := r.Remap(&out); err != nil {
		t.Fatalf("Remap: %v", err)
	}

	if !bytes.Equal(out.Bytes(), data) {
		t.Errorf("Remap under identity mapping changed bytes:\n got  %x\n want %x", out.Bytes(), data)
	}
}

func mustOffset(t *testing.T, d *ConstantPoolDecoder, index int) int {
	t.Helper()
	offset, err := d.Offset(index)
	if err != nil {
		t.Fatalf("Offset(%d): %v", index, err)
	}
	return offset
}
