package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	var cfg Config

	require.Equal(t, 5*time.Second, cfg.Probe.CommandTimeout())
	require.Equal(t, []string{"timeout"}, cfg.Probe.GetRequiredExecutables())
	require.Equal(t, "node_modules", cfg.Probe.GetDependencyCacheDir())
	require.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce())
	require.Empty(t, cfg.Log.File)
	require.Zero(t, cfg.Log.MaxLineWidth)
}

func TestLoadExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[probe]
command_timeout_seconds = 10
required_executables = ["timeout", "jq"]
dependency_cache_dir = "vendor"

[log]
file = "/tmp/ralph-doctor.log"
max_line_width = 120

[watch]
debounce_ms = 250
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, cfg.Probe.CommandTimeout())
	require.Equal(t, []string{"timeout", "jq"}, cfg.Probe.GetRequiredExecutables())
	require.Equal(t, "vendor", cfg.Probe.GetDependencyCacheDir())
	require.Equal(t, "/tmp/ralph-doctor.log", cfg.Log.File)
	require.Equal(t, 120, cfg.Log.MaxLineWidth)
	require.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce())
}

func TestLoadExplicitMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[probe\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadDefaultMissingIsEmpty(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Equal(t, "node_modules", cfg.Probe.GetDependencyCacheDir())
}

func TestLoadDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.Equal(t, filepath.Join(dir, AppName, ConfigFile), DefaultPath())

	require.NoError(t, os.MkdirAll(filepath.Join(dir, AppName), 0755))
	require.NoError(t, os.WriteFile(DefaultPath(), []byte("[watch]\ndebounce_ms = 42\n"), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 42*time.Millisecond, cfg.Watch.Debounce())
}
