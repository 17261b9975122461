package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 200, cfg.MaxFileSizeMB)
	assert.Equal(t, 5, cfg.CVFolds)
	assert.Equal(t, int64(42), cfg.RandomSeed)
	assert.Equal(t, "artifacts", cfg.OutputDir)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CV_FOLDS", "10")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MAX_FILE_SIZE_MB", "50")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.CVFolds)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 50, cfg.MaxFileSizeMB)
}

func TestLoadConfigInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("CV_FOLDS", "not-a-number")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.CVFolds)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("CV_FOLDS", "1")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "cv_folds: 3\nrandom_seed: 7\noutput_dir: /tmp/out\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.CVFolds)
	assert.Equal(t, int64(7), cfg.RandomSeed)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, "info", cfg.LogLevel, "unset fields keep defaults")
}

func TestLoadConfigFileEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cv_folds: 3\n"), 0o644))
	t.Setenv("CV_FOLDS", "8")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.CVFolds)
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile("/no/such/config.yaml")
	assert.Error(t, err)
}
