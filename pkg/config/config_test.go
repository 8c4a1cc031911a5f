package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 8, cfg.TaskPool.Workers)
	assert.Equal(t, "block", cfg.TaskPool.Policy)
	assert.Equal(t, 255, cfg.Autocomplete.MaxTermLength)
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
database:
  driver: sqlite3
  path: /tmp/docsearch.db
taskPool:
  workers: 2
  maxQueueDepth: 4
  policy: discard
  timeouts:
    search: 250ms
autocomplete:
  initials: ["f"]
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	t.Setenv("SP_TASKPOOL_WORKERS", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.TaskPool.Workers)
	assert.Equal(t, 4, cfg.TaskPool.MaxQueueDepth)
	assert.Equal(t, 250*time.Millisecond, cfg.TaskPool.Timeouts["search"])
	assert.Equal(t, []string{"f"}, cfg.Autocomplete.Initials)
	assert.Contains(t, cfg.Database.DSN(), "/tmp/docsearch.db")
}

func TestValidateRejectsBadPool(t *testing.T) {
	cfg := defaultConfig()
	cfg.TaskPool.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.TaskPool.MaxQueueDepth = -1
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.TaskPool.Policy = "drop-oldest"
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())
}

func TestWarningsFlagSmallRejectingPool(t *testing.T) {
	cfg := defaultConfig()
	assert.Empty(t, cfg.Warnings())

	cfg.TaskPool.Workers = 1
	cfg.TaskPool.MaxQueueDepth = 1
	cfg.TaskPool.PersistParallelism = 4
	assert.Empty(t, cfg.Warnings(), "block waits for capacity")

	cfg.TaskPool.Policy = "throw"
	require.NoError(t, cfg.Validate())
	warnings := cfg.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "fan-out (5)")

	cfg.TaskPool.MaxQueueDepth = 4
	assert.Empty(t, cfg.Warnings())
}
