package srcwalk

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestCollectFilesFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Foo.java"), "class Foo {}")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignore me")
	writeFile(t, filepath.Join(dir, "sub", "Bar.java"), "class Bar {}")

	files, total, err := CollectFiles(dir, map[string]struct{}{".java": {}}, nil, nil, 0, 0, false, false)
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("len(files) = %d, want 2: %+v", len(files), files)
	}
	if files[0].RelPath != "Foo.java" || files[1].RelPath != "sub/Bar.java" {
		t.Errorf("unexpected rel paths: %+v", files)
	}
	if total != files[0].Size+files[1].Size {
		t.Errorf("total = %d, want sum of sizes", total)
	}
}

func TestCollectFilesRespectsGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "build/\n*.class\n")
	writeFile(t, filepath.Join(dir, "Keep.java"), "class Keep {}")
	writeFile(t, filepath.Join(dir, "Skip.class"), "binary")
	writeFile(t, filepath.Join(dir, "build", "Generated.java"), "class Generated {}")

	files, _, err := CollectFiles(dir, nil, nil, nil, 0, 0, true, false)
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	var gotRel []string
	for _, f := range files {
		gotRel = append(gotRel, f.RelPath)
	}
	if len(gotRel) != 2 || gotRel[0] != ".gitignore" || gotRel[1] != "Keep.java" {
		t.Errorf("unexpected files with gitignore active: %+v", gotRel)
	}
}

func TestCollectFilesClasspathGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "main", "Foo.kt"), "class Foo")
	writeFile(t, filepath.Join(dir, "src", "main", "Bar.txt"), "ignored")

	files, _, err := CollectFiles(dir, nil, nil, []string{"**/*.kt"}, 0, 0, false, false)
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	if len(files) != 1 || files[0].RelPath != "src/main/Foo.kt" {
		t.Fatalf("unexpected files: %+v", files)
	}
}

func TestCollectFilesExcludesDirPrefix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "target", "Out.java"), "class Out {}")
	writeFile(t, filepath.Join(dir, "Keep.java"), "class Keep {}")

	files, _, err := CollectFiles(dir, map[string]struct{}{".java": {}}, map[string]struct{}{"target": {}}, nil, 0, 0, false, false)
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	if len(files) != 1 || files[0].RelPath != "Keep.java" {
		t.Fatalf("unexpected files: %+v", files)
	}
}

func TestHashTreeMatchesContent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "A.java"), "aaaa")
	writeFile(t, filepath.Join(dir, "B.java"), "bbbb")

	files, _, err := CollectFiles(dir, map[string]struct{}{".java": {}}, nil, nil, 0, 0, false, false)
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	hashes, err := HashTree(context.Background(), files)
	if err != nil {
		t.Fatalf("HashTree: %v", err)
	}
	if len(hashes) != 2 {
		t.Fatalf("len(hashes) = %d, want 2", len(hashes))
	}
	for _, f := range files {
		if hashes[f.RelPath] != f.SHA256Hex {
			t.Errorf("hash mismatch for %s: tree=%s walk=%s", f.RelPath, hashes[f.RelPath], f.SHA256Hex)
		}
	}
}
