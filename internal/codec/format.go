// Package codec implements the `.srg.dat` binary mappings file format
// (spec §6.2): a small self-describing header naming a compression code,
// followed by a (possibly compressed) body listing every class's renamed
// name, field renames, and method renames.
package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/techcable-oss/supersrg/internal/srgerr"
)

const headerMagic = "SuperSrg binary mappings"

const formatVersion uint32 = 1

// Compression codes recognized in the header. "lzma2" is mentioned by the
// format but explicitly unsupported; any code other than these three fails
// with srgerr.BinaryMappings.
const (
	CompressionNone     = ""
	CompressionLZ4Frame = "lz4-frame"
	CompressionGzip     = "gzip"
)

func isSupportedCompression(code string) bool {
	switch code {
	case CompressionNone, CompressionLZ4Frame, CompressionGzip:
		return true
	default:
		return false
	}
}

func writeHeader(w io.Writer, compression string) error {
	if !isSupportedCompression(compression) {
		return fmt.Errorf("%w: unsupported compression code %q", srgerr.BinaryMappings, compression)
	}
	var buf bytes.Buffer
	buf.WriteString(headerMagic)
	buf.WriteByte(0)
	writeUint32(&buf, formatVersion)
	writeUint16(&buf, uint16(len(compression)))
	buf.WriteString(compression)
	_, err := w.Write(buf.Bytes())
	return err
}

// readHeader reads and validates the magic, version, and compression code,
// in that order, so a corrupt magic byte is reported before the version
// field is ever read (spec Scenario S7).
func readHeader(r io.Reader) (compression string, err error) {
	magic := make([]byte, len(headerMagic)+1)
	if _, err := io.ReadFull(r, magic); err != nil {
		return "", fmt.Errorf("%w: truncated header: %v", srgerr.BinaryMappings, err)
	}
	if string(magic[:len(headerMagic)]) != headerMagic || magic[len(headerMagic)] != 0 {
		return "", fmt.Errorf("%w: bad header magic", srgerr.BinaryMappings)
	}

	version, err := readUint32(r)
	if err != nil {
		return "", fmt.Errorf("%w: truncated version: %v", srgerr.BinaryMappings, err)
	}
	if version != formatVersion {
		return "", fmt.Errorf("%w: unsupported version %d", srgerr.BinaryMappings, version)
	}

	cLen, err := readUint16(r)
	if err != nil {
		return "", fmt.Errorf("%w: truncated compression length: %v", srgerr.BinaryMappings, err)
	}
	code := make([]byte, cLen)
	if _, err := io.ReadFull(r, code); err != nil {
		return "", fmt.Errorf("%w: truncated compression code: %v", srgerr.BinaryMappings, err)
	}
	compression = string(code)
	if !isSupportedCompression(compression) {
		return "", fmt.Errorf("%w: unsupported compression code %q", srgerr.BinaryMappings, compression)
	}
	return compression, nil
}

func newCompressWriter(w io.Writer, compression string) (io.WriteCloser, error) {
	switch compression {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionLZ4Frame:
		return lz4.NewWriter(w), nil
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: unsupported compression code %q", srgerr.BinaryMappings, compression)
	}
}

func newDecompressReader(r io.Reader, compression string) (io.Reader, error) {
	switch compression {
	case CompressionNone:
		return r, nil
	case CompressionLZ4Frame:
		return lz4.NewReader(r), nil
	case CompressionGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid gzip body: %v", srgerr.BinaryMappings, err)
		}
		return gr, nil
	default:
		return nil, fmt.Errorf("%w: unsupported compression code %q", srgerr.BinaryMappings, compression)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

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

func writePrefixed(buf *bytes.Buffer, s string) {
	writeUint16(buf, uint16(len(s)))
	buf.WriteString(s)
}

func readUint16(r io.Reader) (uint16, error) {
	var tmp [2]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(tmp[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(tmp[:]), nil
}

func readPrefixed(r io.Reader) (string, error) {
	n, err := readUint16(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
