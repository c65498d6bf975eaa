package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8091", cfg.Server.Port)
	assert.Equal(t, "hybrid", cfg.Backend.Mode)
	assert.Equal(t, "http://localhost:5263/v1/chat/completions", cfg.Backend.LocalURL)
	assert.Equal(t, "mistral-small-latest", cfg.Backend.HostedModel)
	assert.Equal(t, 6000, cfg.Backend.MaxTokens)
	assert.Equal(t, 10, cfg.Verifier.MaxTokens)
	assert.Equal(t, 10, cfg.History.MaxTurns)
	assert.False(t, cfg.Splitter.ModelAssisted)
}

func TestLoadConfigModelAssistedSplitter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("splitter:\n  model_assisted: true\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Splitter.ModelAssisted)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"server:\n  port: \"9000\"\nbackend:\n  mode: local\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "local", cfg.Backend.Mode)
	// Untouched fields keep their defaults
	assert.Equal(t, "./hotline.db", cfg.Database.Path)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9000\"\n"), 0o644))

	t.Setenv("PORT", "7777")
	t.Setenv("BACKEND_MODE", "hosted")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "7777", cfg.Server.Port)
	assert.Equal(t, "hosted", cfg.Backend.Mode)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadEnvParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"# comment\nTEST_HOTLINE_KEY=value\nTEST_HOTLINE_QUOTED=\"quoted value\"\n"), 0o644))

	t.Setenv("TEST_HOTLINE_KEY", "")
	t.Setenv("TEST_HOTLINE_QUOTED", "")
	os.Unsetenv("TEST_HOTLINE_KEY")
	os.Unsetenv("TEST_HOTLINE_QUOTED")

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "value", os.Getenv("TEST_HOTLINE_KEY"))
	assert.Equal(t, "quoted value", os.Getenv("TEST_HOTLINE_QUOTED"))
}

func TestLoadEnvMissingFileIsNotAnError(t *testing.T) {
	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), ".env")))
}
