package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
log:
  level: debug
  format: console
metrics:
  enabled: true
graph:
  strict_endpoints: false
ranking:
  damping: 0.85
  tolerance: 1e-6
  max_iterations: 50
  half_life_years: 20
  velocity_window_years: 5
  max_chain_hops: 6
  strength_weighted: true
  weights:
    pagerank: 0.4
    authority: 0.3
    temporal: 0.2
    citations: 0.1
ingest:
  kafka:
    enabled: false
  spool:
    enabled: true
    dir: /var/spool/citerank
    debounce: 3s
redis:
  enabled: true
  addr: localhost:6379
  key_prefix: citerank
worker:
  recompute_debounce: 10s
  batch_size: 200
  health_port: 9091
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err)
	return path
}

func setEnvVars(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		os.Setenv(k, v)
	}
	t.Cleanup(func() {
		for k := range vars {
			os.Unsetenv(k)
		}
	})
}

func TestLoad_ValidConfig(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 0.85, cfg.Ranking.Damping)
	assert.Equal(t, 50, cfg.Ranking.MaxIterations)
	assert.True(t, cfg.Ranking.StrengthWeighted)
	assert.Equal(t, 0.4, cfg.Ranking.Weights.PageRank)
	assert.True(t, cfg.Ingest.Spool.Enabled)
	assert.Equal(t, "/var/spool/citerank", cfg.Ingest.Spool.Dir)
	assert.Equal(t, 3*time.Second, cfg.Ingest.Spool.Debounce)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Worker.RecomputeDebounce)
	assert.Equal(t, 200, cfg.Worker.BatchSize)
}

func TestLoad_EmptyFileYieldsDefaults(t *testing.T) {
	// A standalone engine needs no configuration at all: every ranking
	// tunable has a default and every adapter starts disabled.
	path := createTempConfigFile(t, "")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultDamping, cfg.Ranking.Damping)
	assert.Equal(t, DefaultMaxIterations, cfg.Ranking.MaxIterations)
	assert.Equal(t, DefaultWeightPageRank, cfg.Ranking.Weights.PageRank)
	assert.False(t, cfg.Ingest.Kafka.Enabled)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("non_existent_config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := createTempConfigFile(t, "ranking: [")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	invalid := `
ranking:
  damping: 1.5
`
	path := createTempConfigFile(t, invalid)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "ranking.damping")
}

func TestLoad_EnvOverride(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	setEnvVars(t, map[string]string{
		"CITERANK_REDIS_ADDR": "redis.internal:6380",
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
}

func TestLoad_EnvOverride_NestedKey(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	setEnvVars(t, map[string]string{
		"CITERANK_RANKING_MAX_ITERATIONS": "25",
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Ranking.MaxIterations)
}

func TestLoadFromEnv_BareEnvironment(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultDamping, cfg.Ranking.Damping)
	assert.False(t, cfg.Neo4j.Enabled)
}

func TestWatch_InvokesCallbackOnChange(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	changed := make(chan *Config, 1)
	Watch(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	// Rewrite the file with a different max_iterations.
	updated := []byte(`
ranking:
  max_iterations: 42
`)
	require.NoError(t, os.WriteFile(path, updated, 0o644))

	select {
	case cfg := <-changed:
		assert.Equal(t, 42, cfg.Ranking.MaxIterations)
	case <-time.After(5 * time.Second):
		t.Fatal("config change callback was not invoked")
	}
}

func TestWatch_SkipsCallbackOnInvalidChange(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	changed := make(chan *Config, 1)
	Watch(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	invalid := []byte(`
ranking:
  damping: 2.0
`)
	require.NoError(t, os.WriteFile(path, invalid, 0o644))

	select {
	case <-changed:
		t.Fatal("callback must not fire for a config that fails validation")
	case <-time.After(500 * time.Millisecond):
		// expected: invalid config swallowed
	}
}

func TestMustLoad_Success(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	assert.NotPanics(t, func() {
		MustLoad(path)
	})
}

func TestMustLoad_Panic(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad("non_existent.yaml")
	})
}
