package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.AI.Provider != "openai" {
		t.Errorf("expected Provider=openai, got %s", cfg.AI.Provider)
	}
	if cfg.Detector.PollIntervalSeconds != 3 {
		t.Errorf("expected PollIntervalSeconds=3, got %d", cfg.Detector.PollIntervalSeconds)
	}
	if cfg.Detector.StablePolls != 2 {
		t.Errorf("expected StablePolls=2, got %d", cfg.Detector.StablePolls)
	}
	if cfg.AI.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.AI.MaxRetries)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.AI.Provider = "anthropic"
	cfg.AI.Anthropic.APIKey = "sk-test"
	cfg.Vault.Path = "/tmp/vault"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", loaded.AI.Provider)
	assert.Equal(t, "sk-test", loaded.AI.Anthropic.APIKey)
	assert.Equal(t, "/tmp/vault", loaded.Vault.Path)
}

func TestConfig_LoadMissingUsesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 180, cfg.Detector.TimeoutSeconds)
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("PAPERLENS_VAULT", "/env/vault")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "env-key", cfg.AI.OpenAI.APIKey)
	assert.Equal(t, "/env/vault", cfg.Vault.Path)

	// A key set in the file wins over the environment.
	cfg = DefaultConfig()
	cfg.AI.OpenAI.APIKey = "file-key"
	cfg.applyEnvOverrides()
	assert.Equal(t, "file-key", cfg.AI.OpenAI.APIKey)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.AI.Provider = "not-a-provider"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Detector.TimeoutSeconds = 1
	assert.Error(t, cfg.Validate())
}

func TestDetectorConfig_ToDetect(t *testing.T) {
	d := DefaultConfig().Detector.ToDetect()
	assert.Equal(t, 3*time.Second, d.PollInterval)
	assert.Equal(t, 2, d.StableThreshold)
	assert.Equal(t, 10, d.MinContentLen)
	assert.Equal(t, 10, d.RecoverAfterPolls)
	assert.Equal(t, 180*time.Second, d.Timeout)
}
