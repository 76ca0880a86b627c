package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/techcable-oss/supersrg/internal/mapping"
	"github.com/techcable-oss/supersrg/internal/srgerr"
)

// ConstantPoolRemapper rewrites a decoded constant pool against a Mapping,
// never rewriting an existing slot in place: renamed names and descriptors
// land in a new UTF8/NameAndType entry appended after the original pool
// (spec §4.4).
type ConstantPoolRemapper struct {
	mapping *mapping.Mapping
	decoder *ConstantPoolDecoder

	classMappings    []*mapping.ClassMappings
	hasClassMappings []bool

	// remappedDescriptor caches, per original UTF8 slot, the 0-based index
	// (original or newly appended) that should be referenced instead. -1
	// means not yet computed. Shared between type and method descriptor
	// lookups, since a given slot is addressed as one or the other but
	// never both within a single class file.
	remappedDescriptor []int

	additional    bytes.Buffer
	numAdditional int
}

// NewConstantPoolRemapper prepares a remapper over decoder's constant pool
// using m to resolve renames.
func NewConstantPoolRemapper(m *mapping.Mapping, decoder *ConstantPoolDecoder) *ConstantPoolRemapper {
	size := decoder.Size()
	remapped := make([]int, size)
	for i := range remapped {
		remapped[i] = -1
	}
	return &ConstantPoolRemapper{
		mapping:             m,
		decoder:             decoder,
		classMappings:       make([]*mapping.ClassMappings, size),
		hasClassMappings:    make([]bool, size),
		remappedDescriptor:  remapped,
	}
}

// Remap writes the full rewritten class file to out: header, rewritten
// constant pool entries in original order, then any appended UTF8/
// NameAndType constants, with the constant_pool_count field patched to
// reflect the new total.
func (r *ConstantPoolRemapper) Remap(out io.Writer) error {
	var body bytes.Buffer
	writeUint32(&body, classFileMagic)
	writeUint16(&body, uint16(r.decoder.MinorVersion()))
	writeUint16(&body, uint16(r.decoder.Version()))
	countOffset := body.Len()
	writeUint16(&body, 0) // placeholder, patched below

	inBuf := r.decoder.Buffer()
	size := r.decoder.Size()

	for index := 0; index < size; index++ {
		tag, err := r.decoder.Tag(index)
		if err != nil {
			return err
		}
		offset, err := r.decoder.Offset(index)
		if err != nil {
			return err
		}

		switch tag {
		case TagFieldRef, TagMethodRef, TagInterfaceMethodRef:
			if err := r.remapMemberRef(&body, inBuf, tag, offset); err != nil {
				return err
			}
		case TagMethodType:
			descIndex, err := r.decoder.uint16At(offset)
			if err != nil {
				return err
			}
			remapped, err := r.remapMethodDescriptorIndex(int(descIndex) - 1)
			if err != nil {
				return err
			}
			body.WriteByte(tag)
			writeUint16(&body, uint16(remapped+1))
		case TagClassRef:
			cm, err := r.classMappingsFor(index)
			if err != nil {
				return err
			}
			if cm != nil && cm.HasRemap() {
				body.WriteByte(tag)
				writeUint16(&body, uint16(r.insertUTF8(cm.RemappedName())+1))
			} else {
				body.WriteByte(tag)
				if err := copyPayload(&body, inBuf, offset, payloadSize(tag)); err != nil {
					return err
				}
			}
		case TagUTF8:
			length, err := r.decoder.uint16At(offset)
			if err != nil {
				return err
			}
			body.WriteByte(TagUTF8)
			writeUint16(&body, length)
			if err := copyPayload(&body, inBuf, offset+2, int(length)); err != nil {
				return err
			}
		case TagLong, TagDouble:
			body.WriteByte(tag)
			if err := copyPayload(&body, inBuf, offset, payloadSize(tag)); err != nil {
				return err
			}
			index++ // skip the reserved slot that follows
		case TagInteger, TagFloat, TagStringRef, TagNameAndType, TagMethodHandle, TagInvokeDynamic:
			n := payloadSize(tag)
			body.WriteByte(tag)
			if err := copyPayload(&body, inBuf, offset, n); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: tag %d at index %d", srgerr.UnsupportedTag, tag, index)
		}
	}

	newCount := size + r.numAdditional + 1
	binary.BigEndian.PutUint16(body.Bytes()[countOffset:countOffset+2], uint16(newCount))

	body.Write(r.additional.Bytes())

	_, err := out.Write(body.Bytes())
	return err
}

// remapMemberRef handles FieldRef/MethodRef/InterfaceMethodRef: if the
// owning class has mappings, resolve the member's rename and descriptor
// rewrite and emit a fresh NameAndType when either changed; otherwise copy
// the four payload bytes verbatim.
func (r *ConstantPoolRemapper) remapMemberRef(body *bytes.Buffer, inBuf []byte, tag byte, offset int) error {
	classRefU16, err := r.decoder.uint16At(offset)
	if err != nil {
		return err
	}
	classRefIndex := int(classRefU16) - 1
	cm, err := r.classMappingsFor(classRefIndex)
	if err != nil {
		return err
	}

	if cm != nil {
		natRefU16, err := r.decoder.uint16At(offset + 2)
		if err != nil {
			return err
		}
		natIndex := int(natRefU16) - 1
		nat, err := r.decoder.NameAndTypeDescriptor(natIndex)
		if err != nil {
			return err
		}
		nameIndex := int(nat & 0xFFFF)
		descriptorIndex := int(nat >> 16)

		originalName, err := r.decoder.UTF8(nameIndex - 1)
		if err != nil {
			return err
		}

		var newName string
		var hasNewName bool
		var remappedDescriptorIndex int

		if tag == TagFieldRef {
			newName, hasNewName = cm.FieldName(originalName)
			remappedDescriptorIndex, err = r.remapTypeDescriptorIndex(descriptorIndex - 1)
		} else {
			originalDescriptor, derr := r.decoder.UTF8(descriptorIndex - 1)
			if derr != nil {
				return derr
			}
			newName, hasNewName = cm.MethodName(originalName, originalDescriptor)
			remappedDescriptorIndex, err = r.remapMethodDescriptorIndex(descriptorIndex - 1)
		}
		if err != nil {
			return err
		}

		if hasNewName || remappedDescriptorIndex != descriptorIndex-1 {
			finalNameIndex := nameIndex
			if hasNewName {
				finalNameIndex = r.insertUTF8(newName) + 1
			}
			newNAT := r.insertNameAndType(finalNameIndex, remappedDescriptorIndex+1)

			body.WriteByte(tag)
			writeUint16(body, uint16(classRefIndex+1))
			writeUint16(body, uint16(newNAT+1))
			return nil
		}
	}

	body.WriteByte(tag)
	return copyPayload(body, inBuf, offset, payloadSize(tag))
}

// classMappingsFor resolves the ClassMappings for the class named by the
// ClassRef constant at classRefIndex, caching the (possibly nil) answer.
func (r *ConstantPoolRemapper) classMappingsFor(classRefIndex int) (*mapping.ClassMappings, error) {
	if r.hasClassMappings[classRefIndex] {
		return r.classMappings[classRefIndex], nil
	}
	offset, err := r.decoder.Offset(classRefIndex)
	if err != nil {
		return nil, err
	}
	nameIndex, err := r.decoder.uint16At(offset)
	if err != nil {
		return nil, err
	}
	className, err := r.decoder.UTF8(int(nameIndex) - 1)
	if err != nil {
		return nil, err
	}
	cm, _ := r.mapping.ClassMappings(className)
	r.classMappings[classRefIndex] = cm
	r.hasClassMappings[classRefIndex] = true
	return cm, nil
}

func (r *ConstantPoolRemapper) remapTypeDescriptorIndex(index int) (int, error) {
	if cached := r.remappedDescriptor[index]; cached >= 0 {
		return cached, nil
	}
	original, err := r.decoder.UTF8(index)
	if err != nil {
		return 0, err
	}
	remapped, changed := r.mapping.RemapTypeDescriptor(original)
	result := index
	if changed {
		result = r.insertUTF8(remapped)
	}
	r.remappedDescriptor[index] = result
	return result, nil
}

func (r *ConstantPoolRemapper) remapMethodDescriptorIndex(index int) (int, error) {
	if cached := r.remappedDescriptor[index]; cached >= 0 {
		return cached, nil
	}
	original, err := r.decoder.UTF8(index)
	if err != nil {
		return 0, err
	}
	remapped, changed := r.mapping.RemapMethodDescriptor(original)
	result := index
	if changed {
		result = r.insertUTF8(remapped)
	}
	r.remappedDescriptor[index] = result
	return result, nil
}

// insertUTF8 appends a new UTF8 constant and returns its 0-based slot
// index in the combined (original + additional) numbering.
func (r *ConstantPoolRemapper) insertUTF8(value string) int {
	r.additional.WriteByte(TagUTF8)
	writePrefixedString(&r.additional, value)
	return r.nextAdditionalIndex()
}

// insertNameAndType appends a new NameAndType constant referencing the
// given 1-based name/descriptor indices and returns its 0-based slot index.
func (r *ConstantPoolRemapper) insertNameAndType(nameIndex, descriptorIndex int) int {
	r.additional.WriteByte(TagNameAndType)
	writeUint16(&r.additional, uint16(nameIndex))
	writeUint16(&r.additional, uint16(descriptorIndex))
	return r.nextAdditionalIndex()
}

func (r *ConstantPoolRemapper) nextAdditionalIndex() int {
	idx := r.decoder.Size() + r.numAdditional
	r.numAdditional++
	return idx
}

func copyPayload(body *bytes.Buffer, inBuf []byte, offset, n int) error {
	if n < 0 || offset < 0 || offset+n > len(inBuf) {
		return fmt.Errorf("%w: truncated payload at offset %d", srgerr.ConstantPoolDecode, offset)
	}
	body.Write(inBuf[offset : offset+n])
	return nil
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	buf.Write(tmp[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writePrefixedString(buf *bytes.Buffer, s string) {
	writeUint16(buf, uint16(len(s)))
	buf.WriteString(s)
}
