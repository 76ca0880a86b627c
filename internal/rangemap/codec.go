package rangemap

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/techcable-oss/supersrg/internal/ranges"
	"github.com/techcable-oss/supersrg/internal/srgerr"
)

// Encode writes m to w as the MessagePack envelope of spec §6.1: a 3-entry
// map of fieldReferences, methodReferences, fileHashes, each keyed by
// relative file path.
func Encode(w io.Writer, m *RangeMap) error {
	enc := msgpack.NewEncoder(w)

	if err := enc.EncodeMapLen(3); err != nil {
		return err
	}

	if err := enc.EncodeString("fieldReferences"); err != nil {
		return err
	}
	if err := enc.EncodeMapLen(len(m.fieldReferences)); err != nil {
		return err
	}
	for file, refs := range m.fieldReferences {
		if err := enc.EncodeString(file); err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(len(refs)); err != nil {
			return err
		}
		for _, ref := range refs {
			if err := enc.EncodeBytes(encodeFieldBlob(ref)); err != nil {
				return err
			}
		}
	}

	if err := enc.EncodeString("methodReferences"); err != nil {
		return err
	}
	if err := enc.EncodeMapLen(len(m.methodReferences)); err != nil {
		return err
	}
	for file, refs := range m.methodReferences {
		if err := enc.EncodeString(file); err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(len(refs)); err != nil {
			return err
		}
		for _, ref := range refs {
			if err := enc.EncodeBytes(encodeMethodBlob(ref)); err != nil {
				return err
			}
		}
	}

	if err := enc.EncodeString("fileHashes"); err != nil {
		return err
	}
	if err := enc.EncodeMapLen(len(m.fileHashes)); err != nil {
		return err
	}
	for file, hash := range m.fileHashes {
		if err := enc.EncodeString(file); err != nil {
			return err
		}
		if err := enc.EncodeBytes(hash); err != nil {
			return err
		}
	}

	return nil
}

// Decode reads a RangeMap from r in the format Encode writes. All three
// top-level keys must be present exactly once; any other shape fails with
// srgerr.RangeMapDecode.
func Decode(r io.Reader) (*RangeMap, error) {
	dec := msgpack.NewDecoder(r)

	objectSize, err := dec.DecodeMapLen()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", srgerr.RangeMapDecode, err)
	}

	var (
		fieldReferences  map[string][]ranges.FieldReference
		methodReferences map[string][]ranges.MethodReference
		fileHashes       map[string][]byte
	)

	for i := 0; i < objectSize; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return nil, fmt.Errorf("%w: reading top-level key: %w", srgerr.RangeMapDecode, err)
		}
		switch key {
		case "fieldReferences":
			if fieldReferences != nil {
				return nil, fmt.Errorf("%w: duplicate key %q", srgerr.RangeMapDecode, key)
			}
			fieldReferences, err = decodeFieldReferencesMap(dec)
			if err != nil {
				return nil, err
			}
		case "methodReferences":
			if methodReferences != nil {
				return nil, fmt.Errorf("%w: duplicate key %q", srgerr.RangeMapDecode, key)
			}
			methodReferences, err = decodeMethodReferencesMap(dec)
			if err != nil {
				return nil, err
			}
		case "fileHashes":
			if fileHashes != nil {
				return nil, fmt.Errorf("%w: duplicate key %q", srgerr.RangeMapDecode, key)
			}
			fileHashes, err = decodeFileHashesMap(dec)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unknown top-level key %q", srgerr.RangeMapDecode, key)
		}
	}

	if fieldReferences == nil || methodReferences == nil || fileHashes == nil {
		return nil, fmt.Errorf("%w: missing one of fieldReferences/methodReferences/fileHashes", srgerr.RangeMapDecode)
	}

	return New(fieldReferences, methodReferences, fileHashes)
}

func decodeFieldReferencesMap(dec *msgpack.Decoder) (map[string][]ranges.FieldReference, error) {
	numEntries, err := dec.DecodeMapLen()
	if err != nil {
		return nil, fmt.Errorf("%w: fieldReferences: %w", srgerr.RangeMapDecode, err)
	}
	out := make(map[string][]ranges.FieldReference, numEntries)
	for i := 0; i < numEntries; i++ {
		file, err := dec.DecodeString()
		if err != nil {
			return nil, fmt.Errorf("%w: fieldReferences: %w", srgerr.RangeMapDecode, err)
		}
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, fmt.Errorf("%w: fieldReferences[%s]: %w", srgerr.RangeMapDecode, file, err)
		}
		refs := make([]ranges.FieldReference, n)
		for j := 0; j < n; j++ {
			blob, err := dec.DecodeBytes()
			if err != nil {
				return nil, fmt.Errorf("%w: fieldReferences[%s][%d]: %w", srgerr.RangeMapDecode, file, j, err)
			}
			ref, err := decodeFieldBlob(blob)
			if err != nil {
				return nil, fmt.Errorf("%w: fieldReferences[%s][%d]: %w", srgerr.RangeMapDecode, file, j, err)
			}
			refs[j] = ref
		}
		out[file] = refs
	}
	return out, nil
}

func decodeMethodReferencesMap(dec *msgpack.Decoder) (map[string][]ranges.MethodReference, error) {
	numEntries, err := dec.DecodeMapLen()
	if err != nil {
		return nil, fmt.Errorf("%w: methodReferences: %w", srgerr.RangeMapDecode, err)
	}
	out := make(map[string][]ranges.MethodReference, numEntries)
	for i := 0; i < numEntries; i++ {
		file, err := dec.DecodeString()
		if err != nil {
			return nil, fmt.Errorf("%w: methodReferences: %w", srgerr.RangeMapDecode, err)
		}
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, fmt.Errorf("%w: methodReferences[%s]: %w", srgerr.RangeMapDecode, file, err)
		}
		refs := make([]ranges.MethodReference, n)
		for j := 0; j < n; j++ {
			blob, err := dec.DecodeBytes()
			if err != nil {
				return nil, fmt.Errorf("%w: methodReferences[%s][%d]: %w", srgerr.RangeMapDecode, file, j, err)
			}
			ref, err := decodeMethodBlob(blob)
			if err != nil {
				return nil, fmt.Errorf("%w: methodReferences[%s][%d]: %w", srgerr.RangeMapDecode, file, j, err)
			}
			refs[j] = ref
		}
		out[file] = refs
	}
	return out, nil
}

func decodeFileHashesMap(dec *msgpack.Decoder) (map[string][]byte, error) {
	numEntries, err := dec.DecodeMapLen()
	if err != nil {
		return nil, fmt.Errorf("%w: fileHashes: %w", srgerr.RangeMapDecode, err)
	}
	out := make(map[string][]byte, numEntries)
	for i := 0; i < numEntries; i++ {
		file, err := dec.DecodeString()
		if err != nil {
			return nil, fmt.Errorf("%w: fileHashes: %w", srgerr.RangeMapDecode, err)
		}
		hash, err := dec.DecodeBytes()
		if err != nil {
			return nil, fmt.Errorf("%w: fileHashes[%s]: %w", srgerr.RangeMapDecode, file, err)
		}
		out[file] = hash
	}
	return out, nil
}

// encodeFieldBlob packs a FieldReference as: i32 start | i32 end | u16 n |
// n bytes of "owner/name" (spec §6.1 fieldRefBlob).
func encodeFieldBlob(ref ranges.FieldReference) []byte {
	internalName := ref.Field.Owner + "/" + ref.Field.Name
	buf := make([]byte, 4+4+2+len(internalName))
	binary.BigEndian.PutUint32(buf[0:4], uint32(ref.Location.Start))
	binary.BigEndian.PutUint32(buf[4:8], uint32(ref.Location.End))
	binary.BigEndian.PutUint16(buf[8:10], uint16(len(internalName)))
	copy(buf[10:], internalName)
	return buf
}

// encodeMethodBlob packs a MethodReference: the fieldRefBlob shape followed
// by u16 d | d bytes descriptor (spec §6.1 methodRefBlob).
func encodeMethodBlob(ref ranges.MethodReference) []byte {
	internalName := ref.Method.Owner + "/" + ref.Method.Name
	descriptor := ref.Method.Descriptor
	buf := make([]byte, 4+4+2+len(internalName)+2+len(descriptor))
	binary.BigEndian.PutUint32(buf[0:4], uint32(ref.Location.Start))
	binary.BigEndian.PutUint32(buf[4:8], uint32(ref.Location.End))
	binary.BigEndian.PutUint16(buf[8:10], uint16(len(internalName)))
	off := 10
	copy(buf[off:], internalName)
	off += len(internalName)
	binary.BigEndian.PutUint16(buf[off:off+2], uint16(len(descriptor)))
	off += 2
	copy(buf[off:], descriptor)
	return buf
}

func decodeFieldBlob(data []byte) (ranges.FieldReference, error) {
	start, end, internalName, rest, err := decodeLocationAndName(data)
	if err != nil {
		return ranges.FieldReference{}, err
	}
	if len(rest) != 0 {
		return ranges.FieldReference{}, fmt.Errorf("%w: trailing bytes in field reference blob", srgerr.RangeMapDecode)
	}
	owner, name, err := splitInternalName(internalName)
	if err != nil {
		return ranges.FieldReference{}, err
	}
	loc, err := ranges.NewFileLocation(start, end)
	if err != nil {
		return ranges.FieldReference{}, fmt.Errorf("%w: %w", srgerr.RangeMapDecode, err)
	}
	ref, err := ranges.NewFieldReference(loc, ranges.FieldData{Owner: owner, Name: name})
	if err != nil {
		return ranges.FieldReference{}, fmt.Errorf("%w: %w", srgerr.RangeMapDecode, err)
	}
	return ref, nil
}

func decodeMethodBlob(data []byte) (ranges.MethodReference, error) {
	start, end, internalName, rest, err := decodeLocationAndName(data)
	if err != nil {
		return ranges.MethodReference{}, err
	}
	descriptor, rest, err := readLengthPrefixed(rest)
	if err != nil {
		return ranges.MethodReference{}, err
	}
	if len(rest) != 0 {
		return ranges.MethodReference{}, fmt.Errorf("%w: trailing bytes in method reference blob", srgerr.RangeMapDecode)
	}
	owner, name, err := splitInternalName(internalName)
	if err != nil {
		return ranges.MethodReference{}, err
	}
	loc, err := ranges.NewFileLocation(start, end)
	if err != nil {
		return ranges.MethodReference{}, fmt.Errorf("%w: %w", srgerr.RangeMapDecode, err)
	}
	ref, err := ranges.NewMethodReference(loc, ranges.MethodData{Owner: owner, Name: name, Descriptor: descriptor})
	if err != nil {
		return ranges.MethodReference{}, fmt.Errorf("%w: %w", srgerr.RangeMapDecode, err)
	}
	return ref, nil
}

func decodeLocationAndName(data []byte) (start, end int, name string, rest []byte, err error) {
	if len(data) < 10 {
		return 0, 0, "", nil, fmt.Errorf("%w: blob too short for location header", srgerr.RangeMapDecode)
	}
	start = int(int32(binary.BigEndian.Uint32(data[0:4])))
	end = int(int32(binary.BigEndian.Uint32(data[4:8])))
	name, rest, err = readLengthPrefixed(data[8:])
	return start, end, name, rest, err
}

func readLengthPrefixed(data []byte) (value string, rest []byte, err error) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("%w: blob too short for length prefix", srgerr.RangeMapDecode)
	}
	n := int(binary.BigEndian.Uint16(data[0:2]))
	if len(data) < 2+n {
		return "", nil, fmt.Errorf("%w: blob too short for %d-byte payload", srgerr.RangeMapDecode, n)
	}
	return string(data[2 : 2+n]), data[2+n:], nil
}

// splitInternalName splits "owner/name" on its final '/', rejecting an
// internal name that is empty, lacks a '/', or has an empty final segment.
func splitInternalName(s string) (owner, name string, err error) {
	idx := strings.LastIndexByte(s, '/')
	if idx <= 0 || idx == len(s)-1 {
		return "", "", fmt.Errorf("%w: invalid internal name %q", srgerr.RangeMapDecode, s)
	}
	return s[:idx], s[idx+1:], nil
}
