// Package classfile implements ConstantPoolDecoder and ConstantPoolRemapper
// (spec §4.3, §4.4): a parser for the constant-pool prefix of a JVM class
// file, and an append-only remapper that rewrites FieldRef/MethodRef/
// ClassRef/MethodType entries against a mapping.Mapping while copying
// everything else through unchanged.
package classfile

// Constant pool tag ids (spec §3).
const (
	TagUTF8               byte = 1
	TagInteger            byte = 3
	TagFloat              byte = 4
	TagLong               byte = 5
	TagDouble             byte = 6
	TagClassRef           byte = 7
	TagStringRef          byte = 8
	TagFieldRef           byte = 9
	TagMethodRef          byte = 10
	TagInterfaceMethodRef byte = 11
	TagNameAndType        byte = 12
	TagMethodHandle       byte = 15
	TagMethodType         byte = 16
	TagInvokeDynamic      byte = 18

	// tagReserved marks the slot immediately after a Long/Double entry,
	// which the class-file format reserves and makes unaddressable.
	tagReserved byte = 0
)

const classFileMagic uint32 = 0xCAFEBABE

const maxSupportedMajorVersion = 52

// payloadSize returns the payload byte size (excluding the tag byte) for a
// fixed-size tag, or -1 for TagUTF8, whose payload is variable-length.
func payloadSize(tag byte) int {
	switch tag {
	case TagLong, TagDouble:
		return 8
	case TagClassRef, TagStringRef, TagMethodType:
		return 2
	case TagInteger, TagFloat, TagFieldRef, TagMethodRef, TagInterfaceMethodRef, TagNameAndType, TagInvokeDynamic:
		return 4
	case TagMethodHandle:
		return 3
	default:
		return -1
	}
}
