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
	assert.Equal(t, "fs", cfg.Source.Kind)
	assert.Equal(t, "data", cfg.Source.DataDir)
	assert.Equal(t, filepath.Join("output", "index.dsnap"), cfg.Index.SnapshotPath())
	assert.Equal(t, 4, cfg.Index.BuildWorkers)
	assert.False(t, cfg.Index.WatchReload)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.MaxResults)
	assert.Equal(t, 10, cfg.Search.SuggestLimit)
	assert.Equal(t, 60*time.Second, cfg.Redis.CacheTTL)
	assert.False(t, cfg.Kafka.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9999
  readTimeout: 5s
source:
  kind: postgres
index:
  snapshotDir: /var/lib/docsearch
  buildWorkers: 8
  watchReload: true
search:
  defaultLimit: 25
kafka:
  enabled: true
  brokers:
    - broker-1:9092
    - broker-2:9092
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres", cfg.Source.Kind)
	assert.Equal(t, 8, cfg.Index.BuildWorkers)
	assert.True(t, cfg.Index.WatchReload)
	assert.Equal(t, 25, cfg.Search.DefaultLimit)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)

	// Untouched sections keep their defaults.
	assert.Equal(t, 100, cfg.Search.MaxResults)
	assert.Equal(t, "index.dsnap", cfg.Index.SnapshotFile)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DS_SERVER_PORT", "7070")
	t.Setenv("DS_SOURCE_KIND", "postgres")
	t.Setenv("DS_INDEX_SNAPSHOT_DIR", "/srv/index")
	t.Setenv("DS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DS_REDIS_ADDR", "redis:6379")
	t.Setenv("DS_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Source.Kind)
	assert.Equal(t, filepath.Join("/srv/index", "index.dsnap"), cfg.Index.SnapshotPath())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverridesIgnoreInvalidPort(t *testing.T) {
	t.Setenv("DS_SERVER_PORT", "not-a-port")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		Database: "docs",
		User:     "svc",
		Password: "secret",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=svc password=secret dbname=docs sslmode=require",
		p.DSN(),
	)
}
