package codec

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/techcable-oss/supersrg/internal/mapping"
	"github.com/techcable-oss/supersrg/internal/srgerr"
)

// Encode writes m to w as a `.srg.dat` file using the given header
// compression code (one of CompressionNone, CompressionLZ4Frame,
// CompressionGzip). Classes, methods, and fields are written in sorted
// order so the same Mapping always serializes to the same bytes.
func Encode(w io.Writer, m *mapping.Mapping, compression string) error {
	if err := writeHeader(w, compression); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := encodeBody(&body, m); err != nil {
		return err
	}

	cw, err := newCompressWriter(w, compression)
	if err != nil {
		return err
	}
	if _, err := cw.Write(body.Bytes()); err != nil {
		return err
	}
	return cw.Close()
}

func encodeBody(buf *bytes.Buffer, m *mapping.Mapping) error {
	classes := m.Classes()
	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)

	writeUint32(buf, uint32(len(names)))
	for _, name := range names {
		cm := classes[name]
		writePrefixed(buf, cm.OriginalName())
		if cm.HasRemap() {
			writePrefixed(buf, cm.RemappedName())
		} else {
			writePrefixed(buf, "")
		}

		methods := cm.MethodRenames()
		keys := make([]mapping.MethodKey, 0, len(methods))
		for k := range methods {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Descriptor != keys[j].Descriptor {
				return keys[i].Descriptor < keys[j].Descriptor
			}
			return keys[i].Name < keys[j].Name
		})
		writeUint32(buf, uint32(len(keys)))
		for _, k := range keys {
			writePrefixed(buf, k.Name)
			writePrefixed(buf, methods[k])
			writePrefixed(buf, k.Descriptor)
			writePrefixed(buf, "") // newDesc: present in the format, ignored on read
		}

		fields := cm.FieldRenames()
		fieldNames := make([]string, 0, len(fields))
		for n := range fields {
			fieldNames = append(fieldNames, n)
		}
		sort.Strings(fieldNames)
		writeUint32(buf, uint32(len(fieldNames)))
		for _, n := range fieldNames {
			writePrefixed(buf, n)
			writePrefixed(buf, fields[n])
		}
	}
	return nil
}

// Decode reads a `.srg.dat` file from r and builds the Mapping it encodes.
func Decode(r io.Reader) (*mapping.Mapping, error) {
	compression, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	body, err := newDecompressReader(r, compression)
	if err != nil {
		return nil, err
	}
	return decodeBody(body)
}

func decodeBody(r io.Reader) (*mapping.Mapping, error) {
	classCount, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated class count: %v", srgerr.BinaryMappings, err)
	}

	classes := make(map[string]*mapping.ClassMappings, classCount)
	for i := uint32(0); i < classCount; i++ {
		origName, err := readPrefixed(r)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated class name: %v", srgerr.BinaryMappings, err)
		}
		newName, err := readPrefixed(r)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated remapped class name: %v", srgerr.BinaryMappings, err)
		}

		methodCount, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated method count for class %q: %v", srgerr.BinaryMappings, origName, err)
		}
		methods := make(map[mapping.MethodKey]string, methodCount)
		for j := uint32(0); j < methodCount; j++ {
			mOrigName, err := readPrefixed(r)
			if err != nil {
				return nil, fmt.Errorf("%w: truncated method name: %v", srgerr.BinaryMappings, err)
			}
			mNewName, err := readPrefixed(r)
			if err != nil {
				return nil, fmt.Errorf("%w: truncated new method name: %v", srgerr.BinaryMappings, err)
			}
			mOrigDesc, err := readPrefixed(r)
			if err != nil {
				return nil, fmt.Errorf("%w: truncated method descriptor: %v", srgerr.BinaryMappings, err)
			}
			if _, err := readPrefixed(r); err != nil { // newDesc, ignored
				return nil, fmt.Errorf("%w: truncated new method descriptor: %v", srgerr.BinaryMappings, err)
			}
			if mNewName == "" {
				continue // empty newName: no rename, but the fields above were still consumed
			}
			methods[mapping.MethodKey{Descriptor: mOrigDesc, Name: mOrigName}] = mNewName
		}

		fieldCount, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated field count for class %q: %v", srgerr.BinaryMappings, origName, err)
		}
		fields := make(map[string]string, fieldCount)
		for j := uint32(0); j < fieldCount; j++ {
			fOrigName, err := readPrefixed(r)
			if err != nil {
				return nil, fmt.Errorf("%w: truncated field name: %v", srgerr.BinaryMappings, err)
			}
			fNewName, err := readPrefixed(r)
			if err != nil {
				return nil, fmt.Errorf("%w: truncated new field name: %v", srgerr.BinaryMappings, err)
			}
			if fNewName == "" {
				continue
			}
			fields[fOrigName] = fNewName
		}

		var remapped *string
		if newName != "" {
			remapped = &newName
		}
		cm, err := mapping.NewClassMappings(origName, remapped, fields, methods)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", srgerr.BinaryMappings, err)
		}
		classes[origName] = cm
	}

	return mapping.New(classes), nil
}
