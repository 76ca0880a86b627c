package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadNonexistentFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverlaysOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supersrg.toml")
	body := "workers = 4\ncache_dir = \"/tmp/custom-cache\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Workers)
	require.Equal(t, "/tmp/custom-cache", cfg.CacheDir)
	require.Equal(t, Default().QueueCapacity, cfg.QueueCapacity)
}

func TestResolvedWorkersFallsBackToCPUCount(t *testing.T) {
	cfg := Config{Workers: 0}
	require.GreaterOrEqual(t, cfg.ResolvedWorkers(), 2)
}

func TestResolvedWorkersHonorsExplicitValue(t *testing.T) {
	cfg := Config{Workers: 7}
	require.Equal(t, 7, cfg.ResolvedWorkers())
}
