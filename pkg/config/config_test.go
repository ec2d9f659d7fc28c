package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
environment: test
analytics:
  base_url: http://localhost:5000
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 5, c.Forecast.Steps)
	assert.Equal(t, time.Hour, c.Forecast.Step)
	assert.Equal(t, 5*time.Second, c.Redis.DialTimeout)
	assert.Equal(t, StorageMemory, c.Storage.Backend)
	assert.Equal(t, "@every 5m", c.Forecast.RefreshCron)
	assert.Equal(t, "forecast.submitted", c.Kafka.SubmissionsTopic)
	assert.Equal(t, "finrisk:queue", c.Queue.Prefix)
	assert.Equal(t, 3, c.Queue.RetryLimit)
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"missing environment": "analytics: {base_url: http://x}",
		"missing analytics":   "environment: test",
		"bad backend":         minimal + "storage: {backend: sqlite}",
		"redis without addr":  minimal + "storage: {backend: redis}",
		"negative steps":      minimal + "forecast: {steps: -1}",
		"kafka no brokers":    minimal + "kafka: {enabled: true}",
		"queue without redis": minimal + "queue: {enabled: true}",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))

	t.Setenv("ANALYTICS_URL", "http://analytics:5000")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "http://analytics:5000", c.Analytics.BaseURL)
	assert.Equal(t, StorageRedis, c.Storage.Backend)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "debug", c.Log.Level)
}
