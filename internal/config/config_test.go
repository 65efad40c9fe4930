package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/cvsync/internal/config"
)

func TestLoad_MissingFileIsZeroConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.Defaults.Verbose)
	assert.Nil(t, cfg.Defaults.BaseBWLimit)
}

func TestLoad_ParsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := filepath.Join(dir, "cvsync", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`
[defaults]
verbose = true
base-bwlimit = "100M"
no-sidecar = true
`), 0644))

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.Defaults.Verbose)
	assert.True(t, *cfg.Defaults.Verbose)
	require.NotNil(t, cfg.Defaults.BaseBWLimit)
	assert.Equal(t, "100M", *cfg.Defaults.BaseBWLimit)
	require.NotNil(t, cfg.Defaults.NoSidecar)
	assert.True(t, *cfg.Defaults.NoSidecar)
	assert.Nil(t, cfg.Defaults.Quiet)
}

func TestLoad_InvalidTomlErrors(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := filepath.Join(dir, "cvsync", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("not [valid"), 0644))

	_, err := config.Load()
	assert.Error(t, err)
}

func TestPath_UsesXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/cvsync/config.toml", config.Path())
}
