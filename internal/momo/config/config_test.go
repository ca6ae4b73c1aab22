package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "momo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  host: 0.0.0.0
storage:
  data_path: /var/lib/momo
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Processing.MaxWorkers)
	assert.Equal(t, 0.7, cfg.Relationship.SimilarityThreshold)
	assert.Equal(t, 30, cfg.Forgetting.EpisodeDecayDays)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "/var/lib/momo", cfg.Storage.DataPath)
}

func TestLoadPreservesExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "momo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
processing:
  max_workers: 16
forgetting:
  episode_decay_days: 7
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Processing.MaxWorkers)
	assert.Equal(t, 7, cfg.Forgetting.EpisodeDecayDays)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/momo.yaml")
	assert.Error(t, err)
}
