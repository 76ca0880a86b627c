package classfile

import (
	"encoding/binary"
	"fmt"

	"github.com/techcable-oss/supersrg/internal/srgerr"
)

// ConstantPoolDecoder parses the constant pool prefix of a class file into
// parallel tag/offset tables, decoding UTF8 payloads lazily and caching the
// result per slot (spec §4.3).
type ConstantPoolDecoder struct {
	buffer  []byte
	tags    []byte
	offsets []int

	utf8Cache  []string
	utf8Cached []bool

	start, end   int
	minorVersion int
	version      int
}

// Decode parses data starting at its class-file magic number. The returned
// decoder retains data rather than copying it; offsets are indices into
// data.
func Decode(data []byte) (*ConstantPoolDecoder, error) {
	c := &byteCursor{data: data}

	magic, err := c.readUint32()
	if err != nil {
		return nil, err
	}
	if magic != classFileMagic {
		return nil, fmt.Errorf("%w: invalid header %#08x", srgerr.ConstantPoolDecode, magic)
	}
	minorU16, err := c.readUint16()
	if err != nil {
		return nil, err
	}
	versionU16, err := c.readUint16()
	if err != nil {
		return nil, err
	}
	version := int(versionU16)
	if version > maxSupportedMajorVersion {
		return nil, fmt.Errorf("%w: unsupported major version %d", srgerr.ConstantPoolDecode, version)
	}

	count, err := c.readUint16()
	if err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: invalid constant pool count %d", srgerr.ConstantPoolDecode, count)
	}
	size := int(count) - 1

	tags := make([]byte, size)
	offsets := make([]int, size)

	for i := 0; i < size; i++ {
		tag, err := c.readByte()
		if err != nil {
			return nil, err
		}
		offset := c.pos
		tags[i] = tag
		offsets[i] = offset

		switch tag {
		case TagUTF8:
			length, err := c.readUint16()
			if err != nil {
				return nil, err
			}
			if err := c.skip(int(length)); err != nil {
				return nil, err
			}
		case TagLong, TagDouble:
			if err := c.skip(payloadSize(tag)); err != nil {
				return nil, err
			}
			// The slot right after a Long/Double is reserved and
			// unaddressable; record it with the same offset and tag 0,
			// consuming no further bytes (spec §4.3).
			i++
			if i < size {
				tags[i] = tagReserved
				offsets[i] = offset
			}
		default:
			n := payloadSize(tag)
			if n < 0 {
				return nil, fmt.Errorf("%w: unknown tag %d at index %d", srgerr.ConstantPoolDecode, tag, i)
			}
			if err := c.skip(n); err != nil {
				return nil, err
			}
		}
	}

	return &ConstantPoolDecoder{
		buffer:     data,
		tags:       tags,
		offsets:    offsets,
		utf8Cache:  make([]string, size),
		utf8Cached: make([]bool, size),
		start:        0,
		end:          c.pos,
		minorVersion: int(minorU16),
		version:      version,
	}, nil
}

func (d *ConstantPoolDecoder) Size() int     { return len(d.tags) }
func (d *ConstantPoolDecoder) Start() int    { return d.start }
func (d *ConstantPoolDecoder) End() int      { return d.end }
func (d *ConstantPoolDecoder) ByteSize() int { return d.end - d.start }
func (d *ConstantPoolDecoder) Version() int  { return d.version }

// MinorVersion returns the class file's minor_version field, preserved
// verbatim by ConstantPoolRemapper.
func (d *ConstantPoolDecoder) MinorVersion() int { return d.minorVersion }

// Buffer returns the decoder's backing class-file bytes.
func (d *ConstantPoolDecoder) Buffer() []byte { return d.buffer }

func (d *ConstantPoolDecoder) Tag(index int) (byte, error) {
	if index < 0 || index >= len(d.tags) {
		return 0, fmt.Errorf("%w: %s", srgerr.ConstantPoolDecode, invalidIndexMsg(index, len(d.tags)))
	}
	return d.tags[index], nil
}

func (d *ConstantPoolDecoder) Offset(index int) (int, error) {
	if index < 0 || index >= len(d.offsets) {
		return 0, fmt.Errorf("%w: %s", srgerr.ConstantPoolDecode, invalidIndexMsg(index, len(d.offsets)))
	}
	return d.offsets[index], nil
}

// UTF8 returns the decoded string at index, caching the result; index must
// carry TagUTF8.
func (d *ConstantPoolDecoder) UTF8(index int) (string, error) {
	tag, err := d.Tag(index)
	if err != nil {
		return "", err
	}
	if tag != TagUTF8 {
		return "", fmt.Errorf("%w: expected UTF8 tag at index %d, got %d", srgerr.ConstantPoolDecode, index, tag)
	}
	if d.utf8Cached[index] {
		return d.utf8Cache[index], nil
	}
	offset := d.offsets[index]
	length16, err := d.uint16At(offset)
	if err != nil {
		return "", err
	}
	length := int(length16)
	if offset+2+length > len(d.buffer) {
		return "", fmt.Errorf("%w: truncated UTF8 payload at offset %d", srgerr.ConstantPoolDecode, offset)
	}
	s := string(d.buffer[offset+2 : offset+2+length])
	d.utf8Cache[index] = s
	d.utf8Cached[index] = true
	return s, nil
}

// NameAndTypeDescriptor returns the packed (nameIndex, descriptorIndex) at
// index: low 16 bits name index, high 16 bits descriptor index, both
// 1-based class-file indices (spec §4.3).
func (d *ConstantPoolDecoder) NameAndTypeDescriptor(index int) (uint32, error) {
	tag, err := d.Tag(index)
	if err != nil {
		return 0, err
	}
	if tag != TagNameAndType {
		return 0, fmt.Errorf("%w: expected NameAndType tag at index %d, got %d", srgerr.ConstantPoolDecode, index, tag)
	}
	offset := d.offsets[index]
	nameIdx, err := d.uint16At(offset)
	if err != nil {
		return 0, err
	}
	descIdx, err := d.uint16At(offset + 2)
	if err != nil {
		return 0, err
	}
	return uint32(nameIdx) | uint32(descIdx)<<16, nil
}

// ClassRefName returns the internal name carried by the ClassRef at index,
// resolving through its UTF8 entry. Used by jar orchestration to recover a
// class file's own internal name (via the this_class field, which sits
// just past the constant pool, outside this decoder's purview) so the
// remapped output name can be derived.
func (d *ConstantPoolDecoder) ClassRefName(index int) (string, error) {
	tag, err := d.Tag(index)
	if err != nil {
		return "", err
	}
	if tag != TagClassRef {
		return "", fmt.Errorf("%w: expected ClassRef tag at index %d, got %d", srgerr.ConstantPoolDecode, index, tag)
	}
	offset := d.offsets[index]
	nameIdx, err := d.uint16At(offset)
	if err != nil {
		return "", err
	}
	return d.UTF8(int(nameIdx) - 1)
}

func (d *ConstantPoolDecoder) uint16At(offset int) (uint16, error) {
	if offset < 0 || offset+2 > len(d.buffer) {
		return 0, fmt.Errorf("%w: truncated read at offset %d", srgerr.ConstantPoolDecode, offset)
	}
	return binary.BigEndian.Uint16(d.buffer[offset:]), nil
}

func invalidIndexMsg(index, length int) string {
	if index < 0 {
		return fmt.Sprintf("negative index %d", index)
	}
	return fmt.Sprintf("index %d out of bounds for %d-element constant pool", index, length)
}

// byteCursor is a bounds-checked forward-only reader over a class-file
// byte slice, used only during the initial constant-pool scan.
type byteCursor struct {
	data []byte
	pos  int
}

func (c *byteCursor) readByte() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, fmt.Errorf("%w: unexpected end of buffer at offset %d", srgerr.ConstantPoolDecode, c.pos)
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

func (c *byteCursor) readUint16() (uint16, error) {
	if c.pos+2 > len(c.data) {
		return 0, fmt.Errorf("%w: unexpected end of buffer at offset %d", srgerr.ConstantPoolDecode, c.pos)
	}
	v := binary.BigEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *byteCursor) readUint32() (uint32, error) {
	if c.pos+4 > len(c.data) {
		return 0, fmt.Errorf("%w: unexpected end of buffer at offset %d", srgerr.ConstantPoolDecode, c.pos)
	}
	v := binary.BigEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *byteCursor) skip(n int) error {
	if n < 0 || c.pos+n > len(c.data) {
		return fmt.Errorf("%w: unexpected end of buffer at offset %d", srgerr.ConstantPoolDecode, c.pos)
	}
	c.pos += n
	return nil
}
