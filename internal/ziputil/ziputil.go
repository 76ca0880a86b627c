package ziputil

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// FixedZipTime pins every rewritten jar entry to 1980-01-01 UTC so an entry's
// timestamp does not vary between remaps. Entry order in the output jar
// follows worker completion order, so two remaps of the same input are not
// necessarily byte-identical.
var FixedZipTime = time.Unix(315532800, 0).UTC()

// SanitizePath normalizes a jar entry path (forward slashes, no drive, no
// leading '/'), and removes '.' and '..' segments without escaping the root.
// A crafted classfile path such as "../../etc/passwd" inside the input jar
// must not be able to write outside outPath's directory.
func SanitizePath(p string) string {
	s := filepath.ToSlash(p)
	if len(s) > 1 && s[1] == ':' {
		s = s[2:]
	}
	s = strings.TrimLeft(s, "/")
	parts := strings.Split(s, "/")
	stack := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		if part == ".." {
			if n := len(stack); n > 0 {
				stack = stack[:n-1]
			}
			continue
		}
		stack = append(stack, part)
	}
	s = strings.Join(stack, "/")
	if s == "" {
		return "entry"
	}
	return s
}

// EnsureUniqueName returns name, or name with a "-1", "-2", ... suffix
// inserted before its extension if name is already in used. Two different
// input classfile entries never collide after remapping.
func EnsureUniqueName(name string, used map[string]struct{}) string {
	if _, ok := used[name]; !ok {
		used[name] = struct{}{}
		return name
	}
	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i > 0 {
		base, ext = name[:i], name[i:]
	}
	for n := 1; ; n++ {
		alt := fmt.Sprintf("%s-%d%s", base, n, ext)
		if _, ok := used[alt]; !ok {
			used[alt] = struct{}{}
			return alt
		}
	}
}

// CopyFromReader streams one remapped classfile's bytes into zw as a new jar
// entry without buffering the whole output jar in memory.
func CopyFromReader(zw *zip.Writer, name string, r io.Reader) error {
	h := &zip.FileHeader{Name: SanitizePath(name), Method: zip.Deflate}
	h.SetMode(0o644)
	h.Modified = FixedZipTime
	w, err := zw.CreateHeader(h)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
