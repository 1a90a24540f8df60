package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Limits.MaxResults, cfg.Limits.MaxResults)
	assert.Equal(t, DefaultSensitivePatterns, cfg.SensitivePatterns)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fscontext.toml")
	data := `
roots = ["/srv/data"]
allow_cwd = false

[limits]
max_results = 50
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/data"}, cfg.Roots)
	assert.Equal(t, 50, cfg.Limits.MaxResults)
	// Unset keys keep defaults.
	assert.Equal(t, Default().Limits.MaxFileSize, cfg.Limits.MaxFileSize)
	assert.Equal(t, Default().Limits.Concurrency, cfg.Limits.Concurrency)
}

func TestLoadRejectsBrokenTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("roots = [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateNormalizesRoots(t *testing.T) {
	cfg := Default()
	cfg.Roots = []string{"relative/dir"}
	require.NoError(t, cfg.Validate())
	assert.True(t, filepath.IsAbs(cfg.Roots[0]))
}

func TestValidateAllowCwd(t *testing.T) {
	cfg := Default()
	cfg.AllowCwd = true
	require.NoError(t, cfg.Validate())

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Contains(t, cfg.Roots, cwd)
}

func TestValidateRejectsEmptyRoot(t *testing.T) {
	cfg := Default()
	cfg.Roots = []string{""}
	assert.Error(t, cfg.Validate())
}

func TestValidateBackfillsLimits(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Default().Limits.MaxResults, cfg.Limits.MaxResults)
	assert.Equal(t, Default().Limits.SearchTimeoutSec, cfg.Limits.SearchTimeoutSec)
	assert.Positive(t, cfg.Limits.Workers)
}
