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

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Pipeline.InitialDelay)
	assert.Equal(t, 2.0, cfg.Pipeline.BackoffMultiplier)
	assert.Equal(t, 0.10, cfg.Pipeline.MaxErrorRate)
	assert.Equal(t, "csv", cfg.Source.Type)
	assert.Equal(t, "memory", cfg.Lineage.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataforge.yaml")
	content := `
server:
  port: 9090
pipeline:
  max_attempts: 5
  quality_threshold: 95
source:
  type: s3
  bucket: landing
lineage:
  backend: redis
  redis_addr: redis:6379
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 95.0, cfg.Pipeline.QualityThreshold)
	assert.Equal(t, "s3", cfg.Source.Type)
	assert.Equal(t, "landing", cfg.Source.Bucket)
	assert.Equal(t, "redis", cfg.Lineage.Backend)
	assert.Equal(t, "redis:6379", cfg.Lineage.RedisAddr)

	// Unset keys keep their defaults.
	assert.Equal(t, time.Second, cfg.Pipeline.InitialDelay)
}
