// Package srcwalk provides a deterministic, filterable filesystem walker
// used by the extract command to gather candidate source files ahead of
// range-map extraction (spec §4.6 "Incremental extraction", §6.4 -cp).
package srcwalk

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// FileInfo is a minimal, deterministic descriptor of a collected file.
type FileInfo struct {
	RelPath   string // project-relative path with forward slashes
	AbsPath   string // absolute filesystem path
	Size      int64  // size in bytes
	SHA256Hex string // lowercase hex sha256 of the file contents
	Ext       string // lowercase extension including dot (e.g., ".java")
}

type walkerConfig struct {
	src            string
	exts           map[string]struct{}
	exclude        map[string]struct{}
	classpath      []string // -cp glob patterns, doublestar syntax
	maxBytes       int64
	maxFileBytes   int64
	useGitignore   bool
	followSymlinks bool
}

type walkState struct {
	cfg      walkerConfig
	root     string
	ignore   *ignore.GitIgnore
	total    int64
	files    []FileInfo
}

// CollectFiles walks src and returns files matching the provided filters.
// classpath entries are doublestar glob patterns (spec §6.4's -cp, split on
// the OS path separator by the caller); a file matches if its relative path
// matches any extension in exts or any classpath glob.
func CollectFiles(
	src string,
	exts, exclude map[string]struct{},
	classpath []string,
	maxBytes int64,
	maxFileBytes int64,
	useGitignore bool,
	followSymlinks bool,
) ([]FileInfo, int64, error) {
	cfg := walkerConfig{
		src:            src,
		exts:           exts,
		exclude:        exclude,
		classpath:      classpath,
		maxBytes:       maxBytes,
		maxFileBytes:   maxFileBytes,
		useGitignore:   useGitignore,
		followSymlinks: followSymlinks,
	}
	root, gi, err := resolveRootAndIgnore(cfg)
	if err != nil {
		return nil, 0, err
	}
	files, total, err := scanDir(root, cfg, gi)
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, total, nil
}

func resolveRootAndIgnore(cfg walkerConfig) (string, *ignore.GitIgnore, error) {
	srcAbs, err := filepath.Abs(cfg.src)
	if err != nil {
		return "", nil, err
	}
	if !cfg.useGitignore {
		return srcAbs, nil, nil
	}
	gi, err := ignore.CompileIgnoreFile(filepath.Join(srcAbs, ".gitignore"))
	if err != nil {
		// No .gitignore, or unreadable: walk unfiltered rather than failing
		// the whole extraction over an optional file.
		return srcAbs, nil, nil
	}
	return srcAbs, gi, nil
}

func scanDir(root string, cfg walkerConfig, gi *ignore.GitIgnore) ([]FileInfo, int64, error) {
	state := &walkState{cfg: cfg, root: root, ignore: gi}
	if err := filepath.WalkDir(root, state.visit); err != nil {
		return nil, 0, err
	}
	return state.files, state.total, nil
}

func (ws *walkState) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return nil
	}
	if ws.cfg.maxBytes > 0 && ws.total >= ws.cfg.maxBytes {
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}
	rel, ok := ws.relative(path)
	if !ok {
		return nil
	}
	if ws.shouldSkip(rel, d) {
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}
	if d.IsDir() {
		return ws.handleDir(d)
	}
	return ws.handleFile(path, rel, d)
}

func (ws *walkState) relative(path string) (string, bool) {
	rel, err := filepath.Rel(ws.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") || rel == ".." {
		return "", false
	}
	return rel, true
}

func (ws *walkState) shouldSkip(rel string, d fs.DirEntry) bool {
	if rel == "." {
		return false
	}
	base := filepath.Base(rel)
	if _, bad := ws.cfg.exclude[base]; bad || hasExcludedPrefix(base, ws.cfg.exclude) {
		return true
	}
	if ws.cfg.useGitignore && ws.ignore != nil {
		matchRel := rel
		if d.IsDir() {
			matchRel += "/"
		}
		if ws.ignore.MatchesPath(matchRel) {
			return true
		}
	}
	return false
}

func (ws *walkState) handleDir(d fs.DirEntry) error {
	if !ws.cfg.followSymlinks && isSymlink(d) {
		return filepath.SkipDir
	}
	return nil
}

func (ws *walkState) handleFile(path, rel string, d fs.DirEntry) error {
	if !ws.cfg.followSymlinks && isSymlink(d) {
		return nil
	}
	info, err := d.Info()
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	if ws.cfg.maxFileBytes > 0 && info.Size() > ws.cfg.maxFileBytes {
		return nil
	}
	if !shouldInclude(rel, ws.cfg) {
		return nil
	}
	sumHex, err := sha256File(path)
	if err != nil {
		return nil
	}
	if ws.cfg.maxBytes > 0 && ws.total+info.Size() > ws.cfg.maxBytes {
		return nil
	}
	ws.files = append(ws.files, FileInfo{
		RelPath:   rel,
		AbsPath:   path,
		Size:      info.Size(),
		SHA256Hex: sumHex,
		Ext:       strings.ToLower(filepath.Ext(path)),
	})
	ws.total += info.Size()
	return nil
}

func shouldInclude(rel string, cfg walkerConfig) bool {
	ext := strings.ToLower(filepath.Ext(rel))
	if len(cfg.exts) == 0 && len(cfg.classpath) == 0 {
		return true
	}
	if _, ok := cfg.exts[ext]; ok {
		return true
	}
	return matchesClasspath(rel, cfg.classpath)
}

// isSymlink reports whether the DirEntry is a symlink (file or directory).
func isSymlink(d fs.DirEntry) bool {
	return d.Type()&fs.ModeSymlink != 0
}

// matchesClasspath reports whether rel matches any -cp doublestar glob.
// Invalid patterns are skipped rather than failing the whole walk: a typo
// in one -cp entry should not abort extraction of files matched by others.
func matchesClasspath(rel string, classpath []string) bool {
	for _, pat := range classpath {
		if pat == "" {
			continue
		}
		ok, err := doublestar.Match(pat, rel)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// hasExcludedPrefix reports whether base begins with any of the exclude keys.
func hasExcludedPrefix(base string, exclude map[string]struct{}) bool {
	for k := range exclude {
		if strings.HasPrefix(base, k) {
			return true
		}
	}
	return false
}

// sha256File computes a hex-encoded sha256 for the file at path.
func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
