// Command supersrg remaps JVM class files and their originating source
// directly against a recorded RangeMap (SPEC_FULL §6.4). It does not parse
// Java itself; extract's incremental pass delegates that to a pluggable
// Analyser (internal/orchestrate), currently a deterministic stub until a
// real AST front end is wired in.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/techcable-oss/supersrg/internal/cache"
	"github.com/techcable-oss/supersrg/internal/codec"
	"github.com/techcable-oss/supersrg/internal/config"
	"github.com/techcable-oss/supersrg/internal/mapping"
	"github.com/techcable-oss/supersrg/internal/meta"
	"github.com/techcable-oss/supersrg/internal/orchestrate"
	"github.com/techcable-oss/supersrg/internal/rangemap"
	"github.com/techcable-oss/supersrg/internal/ranges"
	"github.com/techcable-oss/supersrg/internal/srcwalk"
	"github.com/techcable-oss/supersrg/internal/srgerr"
	"github.com/techcable-oss/supersrg/internal/validate"
)

// loadConfig resolves --config the way lci's loadConfigWithOverrides does:
// the flag itself is optional, but an explicitly given path that fails to
// parse is a command error, not a silent fallback.
func loadConfig(c *cli.Context) (config.Config, error) {
	return config.Load(c.String("config"))
}

func buildApp() *cli.App {
	return &cli.App{
		Name:                   "supersrg",
		Usage:                  "remap JVM class files and source against a recorded RangeMap",
		Version:                meta.Detect().String(),
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML config file path (workers, queue capacity, cache dir)",
			},
		},
		Commands: []*cli.Command{
			extractCommand(),
			applyCommand(),
			remapJarCommand(),
			versionCommand(),
		},
	}
}

func main() {
	if err := buildApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "supersrg: %v\n", err)
		os.Exit(1)
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print build metadata",
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, meta.Detect().String())
			return nil
		},
	}
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "incrementally extract a RangeMap from a source tree",
		ArgsUsage: "<sourceDir> <rangeMap>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "cp", Usage: "classpath glob entries (OS path-separator joined per value)"},
			&cli.StringFlag{Name: "cache", Usage: "content-addressed blob cache directory, overrides config cache_dir"},
			&cli.BoolFlag{Name: "rebuild", Usage: "clear the cache and the existing RangeMap before extracting"},
			&cli.BoolFlag{Name: "diff", Usage: "emit a DiffReport describing what changed, to stdout"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("%w: usage: extract <sourceDir> <rangeMap>", srgerr.Command)
			}
			return runExtract(c)
		},
	}
}

func runExtract(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("%w: %v", srgerr.Command, err)
	}

	srcDir := c.Args().Get(0)
	rangeMapPath := c.Args().Get(1)

	cacheDir := cfg.ResolveCacheDir(c.String("cache"), mustAbs(srcDir))

	if c.Bool("rebuild") {
		if err := cache.Clear(cacheDir); err != nil {
			return fmt.Errorf("%w: clearing cache: %v", srgerr.Command, err)
		}
	}

	existing := rangemap.Empty()
	if !c.Bool("rebuild") {
		loaded, err := loadRangeMap(rangeMapPath)
		switch {
		case err == nil:
			existing = loaded
		case os.IsNotExist(err):
			// first run: nothing to fold into.
		default:
			return fmt.Errorf("%w: reading existing range map: %v", srgerr.Command, err)
		}
	}

	var classpath []string
	for _, entry := range c.StringSlice("cp") {
		classpath = append(classpath, strings.Split(entry, string(os.PathListSeparator))...)
	}

	exts := map[string]struct{}{".java": {}}
	files, _, err := srcwalk.CollectFiles(srcDir, exts, nil, classpath, 0, 0, true, false)
	if err != nil {
		return fmt.Errorf("%w: walking source tree: %v", srgerr.Command, err)
	}

	result, err := orchestrate.RunExtraction(c.Context, cfg, files, existing, stubAnalyser{})
	if err != nil {
		return fmt.Errorf("extraction: %w", err)
	}

	if err := saveRangeMap(rangeMapPath, result.RangeMap); err != nil {
		return fmt.Errorf("%w: writing range map: %v", srgerr.Command, err)
	}

	if err := refreshCacheBlobs(cacheDir, result.Plan.Changed); err != nil {
		return fmt.Errorf("%w: refreshing blob cache: %v", srgerr.Command, err)
	}

	if c.Bool("diff") {
		report, err := buildDiffReport(srcDir, cacheDir, existing, result.Plan)
		if err != nil {
			return fmt.Errorf("%w: building diff report: %v", srgerr.Command, err)
		}
		if err := validate.DiffReportJSON(report); err != nil {
			return fmt.Errorf("diff report failed validation: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return nil
}

// refreshCacheBlobs saves every changed file's current bytes into the
// cache, keyed by its new content hash, so a future extract --diff run can
// read back "the previous blob" once the file changes again.
func refreshCacheBlobs(cacheDir string, changed []srcwalk.FileInfo) error {
	for _, fi := range changed {
		digest, err := hex.DecodeString(fi.SHA256Hex)
		if err != nil {
			return fmt.Errorf("decoding content hash for %s: %w", fi.RelPath, err)
		}
		f, err := os.Open(fi.AbsPath)
		if err != nil {
			return err
		}
		err = cache.SaveBlob(cacheDir, digest, f)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// buildDiffReport describes one extraction run: which files the
// incremental hash compare left untouched, and which were reprocessed.
// For a reprocessed file, the previous blob (if the cache still holds it
// under the hash recorded in existing) yields a unified diff; a file with
// no prior recorded hash (first time seen) gets a whole-file addition patch.
func buildDiffReport(srcDir, cacheDir string, existing *rangemap.RangeMap, plan orchestrate.IncrementalPlan) (validate.DiffReport, error) {
	report := validate.DiffReport{
		Version:    1,
		SourceDir:  srcDir,
		Skipped:    make([]validate.SkippedEntry, 0, len(plan.Skipped)),
		Reanalyzed: make([]validate.ReanalyzeEntry, 0, len(plan.Changed)),
	}
	for _, fi := range plan.Skipped {
		report.Skipped = append(report.Skipped, validate.SkippedEntry{Path: fi.RelPath, Hash: fi.SHA256Hex})
	}
	for _, fi := range plan.Changed {
		entry := validate.ReanalyzeEntry{Path: fi.RelPath, CurrentHash: fi.SHA256Hex}
		current, err := os.ReadFile(fi.AbsPath)
		if err != nil {
			return validate.DiffReport{}, err
		}
		if prevHash := existing.Hash(fi.RelPath); prevHash != nil {
			entry.PreviousHash = hexEncode(prevHash)
			if prev, readErr := cache.ReadBlob(cacheDir, prevHash); readErr == nil {
				entry.Patch, entry.Oversize = validate.UnifiedPatch(fi.RelPath, prev, current)
			}
		} else {
			entry.Patch, entry.Oversize = validate.AddedPatch(fi.RelPath, current)
		}
		report.Reanalyzed = append(report.Reanalyzed, entry)
	}
	return report, nil
}

func applyCommand() *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "apply a RangeMap's recorded references against mappings, writing remapped source",
		ArgsUsage: "<srcDir> <outDir> <rangeMap> <mappings>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 4 {
				return fmt.Errorf("%w: usage: apply <srcDir> <outDir> <rangeMap> <mappings>", srgerr.Command)
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return fmt.Errorf("%w: %v", srgerr.Command, err)
			}
			srcDir, outDir, rangeMapPath, mappingsPath := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2), c.Args().Get(3)

			rm, err := loadRangeMap(rangeMapPath)
			if err != nil {
				return fmt.Errorf("%w: reading range map: %v", srgerr.Command, err)
			}
			m, err := loadMapping(mappingsPath)
			if err != nil {
				return fmt.Errorf("%w: reading mappings: %v", srgerr.Command, err)
			}
			reportProgress("applying %d known files", len(rm.KnownFiles()))
			return orchestrate.ApplySource(c.Context, srcDir, outDir, rm, m, cfg.ResolvedWorkers())
		},
	}
}

func remapJarCommand() *cli.Command {
	return &cli.Command{
		Name:      "remap-jar",
		Usage:     "remap a jar's class files against mappings",
		ArgsUsage: "<in.jar> <out.jar> <mappings>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return fmt.Errorf("%w: usage: remap-jar <in.jar> <out.jar> <mappings>", srgerr.Command)
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return fmt.Errorf("%w: %v", srgerr.Command, err)
			}
			inPath, outPath, mappingsPath := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)

			m, err := loadMapping(mappingsPath)
			if err != nil {
				return fmt.Errorf("%w: reading mappings: %v", srgerr.Command, err)
			}
			reportProgress("remapping %s", inPath)
			return orchestrate.RemapJar(c.Context, inPath, outPath, m, cfg.ResolvedWorkers(), cfg.QueueCapacity)
		},
	}
}

// reportProgress prints a one-line status to stderr only when it is a
// terminal, matching the teacher's "don't pollute piped output" posture.
func reportProgress(format string, args ...any) {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func loadRangeMap(path string) (*rangemap.RangeMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return rangemap.Decode(f)
}

func saveRangeMap(path string, rm *rangemap.RangeMap) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if err := rangemap.Encode(f, rm); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), path)
}

func loadMapping(path string) (*mapping.Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return codec.Decode(f)
}

func hexEncode(b []byte) string { return hex.EncodeToString(b) }

func mustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// stubAnalyser satisfies orchestrate.Analyser with no references at all.
// Real Java AST analysis is out of scope (SPEC_FULL §1); this lets extract
// run its incremental hash/cache machinery end to end against an analyser
// that a real front end can replace without touching the orchestration.
type stubAnalyser struct{}

func (stubAnalyser) AnalyseFile(context.Context, srcwalk.FileInfo) ([]ranges.FieldReference, []ranges.MethodReference, error) {
	return nil, nil, nil
}
