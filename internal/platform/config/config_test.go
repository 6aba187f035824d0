package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sanctions-gateway/internal/decision"
)

// isolate points the loader at a missing env file so a developer .env never
// leaks into tests.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(envFileVar, filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv(configVar, "")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"us_ofac_sdn", "un_sc_sanctions"}, cfg.Matcher.Datasets)
	assert.Equal(t, decision.Thresholds{Info: 0.50, Review: 0.70, Block: 0.85}, cfg.Thresholds)
	assert.Equal(t, 15*time.Second, cfg.Matcher.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Matcher.ConnectTimeout)
	assert.Equal(t, 10, cfg.Response.MaxMatches)
	assert.Equal(t, 100, cfg.Audit.MaxSizeMB)
	assert.True(t, cfg.Matcher.ReadinessCheck)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("SANCTIONS_MATCHER__BASE_URL", "http://yente.internal:8000")
	t.Setenv("SANCTIONS_MATCHER__DATASETS", "us_ofac_sdn,eu_fsf,gb_hmt_sanctions")
	t.Setenv("SANCTIONS_MATCHER__TIMEOUT", "3s")
	t.Setenv("SANCTIONS_THRESHOLDS__REVIEW", "0.65")
	t.Setenv("SANCTIONS_RESPONSE__MAX_MATCHES", "25")
	t.Setenv("SANCTIONS_AUDIT__KAFKA__BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://yente.internal:8000", cfg.Matcher.BaseURL)
	assert.Equal(t, []string{"us_ofac_sdn", "eu_fsf", "gb_hmt_sanctions"}, cfg.Matcher.Datasets)
	assert.Equal(t, 3*time.Second, cfg.Matcher.Timeout)
	assert.InDelta(t, 0.65, cfg.Thresholds.Review, 1e-9)
	assert.InDelta(t, 0.50, cfg.Thresholds.Info, 1e-9, "unset keys keep defaults")
	assert.Equal(t, 25, cfg.Response.MaxMatches)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Audit.Kafka.Brokers)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SANCTIONS_SERVER__ADDR=:9191\n"), 0o600))
	t.Setenv(envFileVar, envPath)
	t.Setenv(configVar, "")
	t.Cleanup(func() { _ = os.Unsetenv("SANCTIONS_SERVER__ADDR") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9191", cfg.Server.Addr)
}

func TestLoadYAMLFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
matcher:
  datasets: [us_ofac_sdn]
  max_retries: 0
thresholds:
  info: 0.4
  review: 0.6
  block: 0.8
audit:
  dir: /var/log/sanctions
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv(configVar, path)
	t.Setenv("SANCTIONS_THRESHOLDS__BLOCK", "0.9")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"us_ofac_sdn"}, cfg.Matcher.Datasets)
	assert.Equal(t, uint64(0), cfg.Matcher.MaxRetries)
	assert.InDelta(t, 0.4, cfg.Thresholds.Info, 1e-9)
	assert.InDelta(t, 0.9, cfg.Thresholds.Block, 1e-9, "env wins over file")
	assert.Equal(t, "/var/log/sanctions", cfg.Audit.Dir)
}

func TestLoadRejectsInvalidThresholds(t *testing.T) {
	isolate(t)
	t.Setenv("SANCTIONS_THRESHOLDS__REVIEW", "0.9")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, decision.ErrInvalidThresholds)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty datasets", func(c *Config) { c.Matcher.Datasets = nil }},
		{"duplicate dataset", func(c *Config) { c.Matcher.Datasets = []string{"a", "a"} }},
		{"blank dataset", func(c *Config) { c.Matcher.Datasets = []string{"a", " "} }},
		{"relative base url", func(c *Config) { c.Matcher.BaseURL = "yente:5000" }},
		{"zero timeout", func(c *Config) { c.Matcher.Timeout = 0 }},
		{"zero max matches", func(c *Config) { c.Response.MaxMatches = 0 }},
		{"kafka without topic", func(c *Config) {
			c.Audit.Kafka.Brokers = []string{"k:9092"}
			c.Audit.Kafka.Topic = ""
		}},
		{"cache without ttl", func(c *Config) {
			c.Cache.RedisURL = "redis://localhost:6379/0"
			c.Cache.TTL = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, New().Validate())
}

func TestLoadEnvListsAreSplitAndTrimmed(t *testing.T) {
	isolate(t)
	t.Setenv("SANCTIONS_MATCHER__DATASETS", " us_ofac_sdn , un_sc_sanctions,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"us_ofac_sdn", "un_sc_sanctions"}, cfg.Matcher.Datasets)
	assert.Empty(t, cfg.Audit.Kafka.Brokers)
}

func TestEnvKeyValue(t *testing.T) {
	key, value := envKeyValue("SANCTIONS_AUDIT__KAFKA__BROKERS", "kafka-1:9092,kafka-2:9092")
	assert.Equal(t, "audit.kafka.brokers", key)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, value)

	key, value = envKeyValue("SANCTIONS_MATCHER__BASE_URL", "http://a,b")
	assert.Equal(t, "matcher.base_url", key)
	assert.Equal(t, "http://a,b", value)
}
