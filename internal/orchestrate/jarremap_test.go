package orchestrate

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/goleak"

	"github.com/techcable-oss/supersrg/internal/mapping"
)

func u16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func utf8Entry(s string) []byte {
	var b bytes.Buffer
	b.WriteByte(1) // TagUTF8
	b.Write(u16(uint16(len(s))))
	b.WriteString(s)
	return b.Bytes()
}

func classRefEntry(nameIndex uint16) []byte {
	var b bytes.Buffer
	b.WriteByte(7) // TagClassRef
	b.Write(u16(nameIndex))
	return b.Bytes()
}

// buildMinimalClassFile constructs a syntactically valid class file whose
// constant pool is just [UTF8 internalName, ClassRef->1], with this_class
// pointing at slot 2 and access_flags/super_class/interfaces/fields/
// methods/attributes all zeroed out.
func buildMinimalClassFile(internalName string) []byte {
	var pool bytes.Buffer
	pool.Write(utf8Entry(internalName))
	pool.Write(classRefEntry(1))

	var out bytes.Buffer
	out.Write([]byte{0xCA, 0xFE, 0xBA, 0xBE})
	out.Write(u16(0))  // minor
	out.Write(u16(52)) // major
	out.Write(u16(3))  // constant_pool_count = size+1
	out.Write(pool.Bytes())
	out.Write(u16(0)) // access_flags
	out.Write(u16(2)) // this_class = slot 2 (ClassRef)
	out.Write(u16(0)) // super_class
	out.Write(u16(0)) // interfaces_count
	out.Write(u16(0)) // fields_count
	out.Write(u16(0)) // methods_count
	out.Write(u16(0)) // attributes_count
	return out.Bytes()
}

func buildTestJar(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create jar: %v", err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip Create(%s): %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("zip Write(%s): %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}
}

func readJarEntries(t *testing.T, path string) map[string][]byte {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer zr.Close()
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("Open(%s): %v", f.Name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			t.Fatalf("ReadFrom(%s): %v", f.Name, err)
		}
		rc.Close()
		out[f.Name] = buf.Bytes()
	}
	return out
}

func TestRemapJarRenamesClassAndPassesThroughOther(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.jar")
	outPath := filepath.Join(dir, "out.jar")

	classBytes := buildMinimalClassFile("com/acme/Foo")
	buildTestJar(t, inPath, map[string][]byte{
		"com/acme/Foo.class":  classBytes,
		"META-INF/MANIFEST.MF": []byte("Manifest-Version: 1.0\n"),
	})

	newClass := "com/acme/Qux"
	cm, err := mapping.NewClassMappings("com/acme/Foo", &newClass, nil, nil)
	if err != nil {
		t.Fatalf("NewClassMappings: %v", err)
	}
	m := mapping.New(map[string]*mapping.ClassMappings{"com/acme/Foo": cm})

	if err := RemapJar(context.Background(), inPath, outPath, m, 4, 0); err != nil {
		t.Fatalf("RemapJar: %v", err)
	}

	out := readJarEntries(t, outPath)
	if _, ok := out["com/acme/Qux.class"]; !ok {
		t.Errorf("expected renamed entry com/acme/Qux.class, got entries: %v", keysOf(out))
	}
	manifest, ok := out["META-INF/MANIFEST.MF"]
	if !ok || string(manifest) != "Manifest-Version: 1.0\n" {
		t.Errorf("manifest entry not passed through unchanged: %q", manifest)
	}
}

func keysOf(m map[string][]byte) []string {
	var ks []string
	for k := range m {
		ks = append(ks, k)
	}
	return ks
}
