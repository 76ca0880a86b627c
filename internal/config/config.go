// Package config carries the CLI-independent defaults every supersrg
// subcommand shares: worker counts, orchestration queue capacity, and the
// cache directory layout. The teacher hardcoded these as package-level
// constants (tmp/.ccache, a fixed manifest schema version); this package
// keeps the same small set of knobs but makes them loadable from an
// optional TOML file via --config, the way a production CLI would.
package config

import (
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"

	"github.com/techcable-oss/supersrg/internal/cache"
)

// Config holds the defaults the extract/apply/remap-jar subcommands fall
// back to when a flag is not set explicitly.
type Config struct {
	// Workers is the worker pool size for remap-jar, apply, and the
	// incremental-extraction hash pass. 0 means "use max(2, NumCPU())".
	Workers int `toml:"workers"`

	// QueueCapacity bounds the jar-remap result channel (spec §5's
	// "workers must hold a short-lived lock" posture needs a bounded
	// handoff so memory cannot grow unbounded under a slow writer).
	QueueCapacity int `toml:"queue_capacity"`

	// CacheDir is the base directory for extract --cache content-addressed
	// blobs, overriding internal/cache's own default ("tmp/.srgcache").
	CacheDir string `toml:"cache_dir"`
}

// Default returns the built-in defaults, matching the teacher's own
// hardcoded constants where this domain has a direct analogue.
func Default() Config {
	return Config{
		Workers:       0,
		QueueCapacity: 256,
		CacheDir:      "",
	}
}

// ResolvedWorkers returns cfg.Workers, or max(2, NumCPU()) if unset (spec
// §4.6's incremental-extraction hash pass worker count, reused as the
// default for the other worker pools too).
func (cfg Config) ResolvedWorkers() int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	if n := runtime.NumCPU(); n > 2 {
		return n
	}
	return 2
}

// ResolveCacheDir picks the extract --cache directory for a source tree,
// in priority order: an explicit override (the --cache flag) wins, then
// cfg.CacheDir from the loaded config file, then a deterministic default
// derived from the tree's absolute path (internal/cache.CacheDir). Centralizing
// this three-way precedence here, rather than in cmd/supersrg, keeps the CLI
// layer from having to know internal/cache's default-root convention.
func (cfg Config) ResolveCacheDir(override, srcAbs string) string {
	if override != "" {
		return override
	}
	if cfg.CacheDir != "" {
		return cfg.CacheDir
	}
	return cache.CacheDir(srcAbs)
}

// Load reads a TOML config file at path, overlaying it on Default(). An
// empty path or a missing file is not an error: the caller gets the
// built-in defaults, matching the teacher's "config is optional" posture
// (cmd/class-collector/main.go never required a config file either).
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
