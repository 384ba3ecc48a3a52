package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rewind.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 5, cfg.StepBudget)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Name)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
model:
  name: gpt-4o
step_budget: 3
store:
  backend: redis
  redis:
    addr: redis.internal:6379
    prefix: "agent:"
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.Model.Name)
	assert.Equal(t, 3, cfg.StepBudget)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "agent:", cfg.Store.Redis.Prefix)
	// Untouched keys keep defaults.
	assert.Equal(t, "OPENAI_API_KEY", cfg.Model.APIKeyEnv)
}

func TestLoad_InvalidBackend(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: postgres
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}

func TestLoad_InvalidBudget(t *testing.T) {
	path := writeConfig(t, "step_budget: 0\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
