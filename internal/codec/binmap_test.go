package codec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/techcable-oss/supersrg/internal/mapping"
	"github.com/techcable-oss/supersrg/internal/srgerr"
)

func sampleMapping(t *testing.T) *mapping.Mapping {
	t.Helper()
	newName := "com/acme/Qux"
	cm, err := mapping.NewClassMappings(
		"com/acme/Foo",
		&newName,
		map[string]string{"bar": "baz"},
		map[mapping.MethodKey]string{{Descriptor: "()V", Name: "doStuff"}: "doOtherStuff"},
	)
	if err != nil {
		t.Fatalf("NewClassMappings: %v", err)
	}
	unrenamed, err := mapping.NewClassMappings("com/acme/Kept", nil, nil, nil)
	if err != nil {
		t.Fatalf("NewClassMappings: %v", err)
	}
	return mapping.New(map[string]*mapping.ClassMappings{
		"com/acme/Foo":  cm,
		"com/acme/Kept": unrenamed,
	})
}

func TestEncodeDecodeRoundTripNoCompression(t *testing.T) {
	m := sampleMapping(t)

	var buf bytes.Buffer
	if err := Encode(&buf, m, CompressionNone); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	cm, ok := got.ClassMappings("com/acme/Foo")
	if !ok {
		t.Fatal("missing com/acme/Foo")
	}
	if !cm.HasRemap() || cm.RemappedName() != "com/acme/Qux" {
		t.Errorf("RemappedName = %q, HasRemap = %v", cm.RemappedName(), cm.HasRemap())
	}
	if v, ok := cm.FieldName("bar"); !ok || v != "baz" {
		t.Errorf("FieldName(bar) = %q, %v", v, ok)
	}
	if v, ok := cm.MethodName("doStuff", "()V"); !ok || v != "doOtherStuff" {
		t.Errorf("MethodName = %q, %v", v, ok)
	}

	kept, ok := got.ClassMappings("com/acme/Kept")
	if !ok {
		t.Fatal("missing com/acme/Kept")
	}
	if kept.HasRemap() {
		t.Error("com/acme/Kept should keep its name")
	}
}

func TestEncodeDecodeRoundTripGzip(t *testing.T) {
	m := sampleMapping(t)

	var buf bytes.Buffer
	if err := Encode(&buf, m, CompressionGzip); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := got.ClassMappings("com/acme/Foo"); !ok {
		t.Error("missing com/acme/Foo after gzip round trip")
	}
}

func TestEncodeDecodeRoundTripLZ4Frame(t *testing.T) {
	m := sampleMapping(t)

	var buf bytes.Buffer
	if err := Encode(&buf, m, CompressionLZ4Frame); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := got.ClassMappings("com/acme/Foo"); !ok {
		t.Error("missing com/acme/Foo after lz4-frame round trip")
	}
}

func TestDecodeRejectsMistypedMagicBeforeVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("SuperSrg binary mappingX") // last byte wrong
	buf.WriteByte(0)
	// Deliberately do not write a valid version field: if Decode reads the
	// magic correctly before failing, it never gets this far regardless.
	buf.Write([]byte{0xFF})

	_, err := Decode(&buf)
	if !errors.Is(err, srgerr.BinaryMappings) {
		t.Fatalf("Decode error = %v, want BinaryMappings", err)
	}
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(headerMagic)
	buf.WriteByte(0)
	writeUint32(&buf, 2)
	writeUint16(&buf, 0)

	_, err := Decode(&buf)
	if !errors.Is(err, srgerr.BinaryMappings) {
		t.Fatalf("Decode error = %v, want BinaryMappings", err)
	}
}

func TestDecodeRejectsUnknownCompressionCode(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(headerMagic)
	buf.WriteByte(0)
	writeUint32(&buf, formatVersion)
	writePrefixed(&buf, "lzma2")

	_, err := Decode(&buf)
	if !errors.Is(err, srgerr.BinaryMappings) {
		t.Fatalf("Decode error = %v, want BinaryMappings", err)
	}
}

func TestEncodeRejectsUnknownCompressionCode(t *testing.T) {
	m := sampleMapping(t)
	var buf bytes.Buffer
	if err := Encode(&buf, m, "lzma2"); !errors.Is(err, srgerr.BinaryMappings) {
		t.Fatalf("Encode error = %v, want BinaryMappings", err)
	}
}

func TestDecodeRejectsTruncatedPayload(t *testing.T) {
	m := sampleMapping(t)
	var buf bytes.Buffer
	if err := Encode(&buf, m, CompressionNone); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-4]

	_, err := Decode(bytes.NewReader(truncated))
	if !errors.Is(err, srgerr.BinaryMappings) {
		t.Fatalf("Decode error = %v, want BinaryMappings", err)
	}
}
