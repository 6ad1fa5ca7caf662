package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(writeConfig(t, "environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "reject", c.Surface.DuplicatePolicy)
	assert.Equal(t, 50, c.Surface.DefaultResolution)
	assert.Equal(t, "surface.samples", c.Kafka.SamplesTopic)
	assert.Equal(t, "surface.grids", c.Kafka.GridsTopic)
	assert.Equal(t, 10*time.Minute, c.Redis.TTL)
	assert.Equal(t, 2*time.Second, c.Broadcast.Interval)
	assert.True(t, c.Broadcast.Enabled)
	assert.False(t, c.Kafka.Enabled)
	assert.Equal(t, "vol_samples", c.ClickHouse.Table)
	assert.Equal(t, []string{"*"}, c.Server.CORSOrigins)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, `
environment: prod
server:
  port: 9090
surface:
  duplicate_policy: average
  grid_workers: 8
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
  consumer:
    workers: 16
broadcast:
  enabled: false
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "average", c.Surface.DuplicatePolicy)
	assert.Equal(t, 8, c.Surface.GridWorkers)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 16, c.Kafka.Consumer.Workers)
	assert.Equal(t, 3, c.Kafka.Consumer.RetryMax)
	assert.False(t, c.Broadcast.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"policy":        "surface:\n  duplicate_policy: newest\n",
		"kafka brokers": "kafka:\n  enabled: true\n",
		"port":          "server:\n  port: 70000\n",
		"steps":         "broadcast:\n  steps: 1000\n",
		"digest":        "log:\n  digest:\n    enabled: true\n",
		"yaml":          "server: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	env := map[string]string{
		"LOG_LEVEL":        "debug",
		"KAFKA_BROKERS":    "a:1,b:2",
		"REDIS_ADDR":       "cache:6379",
		"DUPLICATE_POLICY": "average",
		"PORT":             "8181",
	}
	require.NoError(t, c.applyEnv(func(k string) string { return env[k] }))

	assert.Equal(t, "debug", c.Log.Level)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"a:1", "b:2"}, c.Kafka.Brokers)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "cache:6379", c.Redis.Addr)
	assert.Equal(t, "average", c.Surface.DuplicatePolicy)
	assert.Equal(t, 8181, c.Server.Port)
	assert.False(t, c.ClickHouse.Enabled)
}

func TestApplyEnv_RejectsBadValues(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Error(t, c.applyEnv(func(k string) string {
		if k == "PORT" {
			return "http"
		}
		return ""
	}))

	c, err = Parse([]byte("environment: test\n"))
	require.NoError(t, err)
	assert.Error(t, c.applyEnv(func(k string) string {
		if k == "DUPLICATE_POLICY" {
			return "newest"
		}
		return ""
	}))
}
