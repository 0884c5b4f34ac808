package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", `schedule:
  feed:
    type: "file"
    conf:
      path: "schedule.yaml"
  refresh_interval_seconds: 900
  timezone: "UTC"
risk:
  imminent_minutes: 90
  stale_after_minutes: 720
alerts:
  limit: 10
  interval_seconds: 60
registry:
  backend: "sqlite"
  dsn: "file:facilities.db"
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  client_id: "cli"
  qos:
    alerts: 1
metrics:
  sinks:
    - type: "nop"
  prometheus_addr: ":9100"
http:
  token: "secret"
history:
  backend: "sqlite"
logging:
  level: "debug"
  format: "console"
sentry:
  traces_sample_rate: 0.2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"feed.type", cfg.Schedule.Feed.Type, "file"},
		{"feed.path", cfg.Schedule.Feed.Conf["path"], "schedule.yaml"},
		{"refresh", cfg.Schedule.RefreshInterval(), 15 * time.Minute},
		{"imminent", cfg.Risk.ImminentMinutes, 90},
		{"elevated default", cfg.Risk.ElevatedStage, 3},
		{"alerts.limit", cfg.Alerts.Limit, 10},
		{"registry.backend", cfg.Registry.Backend, "sqlite"},
		{"mqtt.broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"mqtt.alert_topic", cfg.MQTT.AlertTopic, "outagewatch/alerts"},
		{"mqtt.qos", cfg.MQTT.QoS["alerts"], byte(1)},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"prometheus_addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"http.addr", cfg.HTTP.Addr, ":8080"},
		{"http.token", cfg.HTTP.Token, "secret"},
		{"logging.level", cfg.Logging.Level, "debug"},
		{"logging.format", cfg.Logging.Format, "console"},
		{"history.backend", cfg.History.Backend, "sqlite"},
		{"history.path default", cfg.History.Path, "alerts.db"},
		{"sentry.rate", cfg.Sentry.TracesSampleRate, 0.2},
		{"sentry.enabled", cfg.Sentry.Enabled(), false},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: got %v want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadDefaultsJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"schedule":{"feed":{"type":"file","conf":{"path":"s.json"}}}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Africa/Johannesburg", cfg.Schedule.Timezone)
	assert.Equal(t, 5, cfg.Alerts.Limit)
	assert.Equal(t, "memory", cfg.Registry.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Empty(t, cfg.History.Backend)
	assert.Equal(t, 2*time.Second, cfg.Sentry.FlushTimeout())
	assert.False(t, cfg.MQTT.Enabled)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeFile(t, "config.yaml", "schedule:\n  feed:\n    type: file\n  timezone: UTC\n")
	t.Setenv("OW_SCHEDULE__TIMEZONE", "Africa/Johannesburg")
	t.Setenv("OW_HTTP__ADDR", ":9999")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Africa/Johannesburg", cfg.Schedule.Timezone)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "config.toml", ""))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "config.yaml", "schedule:\n  timezone: UTC\n"))
	assert.ErrorContains(t, err, "schedule")

	_, err = Load(writeFile(t, "config.yaml", "schedule:\n  feed:\n    type: file\n  timezone: Mars/Olympus\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "config.yaml", "schedule:\n  feed:\n    type: file\nmqtt:\n  enabled: true\n"))
	assert.ErrorContains(t, err, "mqtt")

	_, err = Load(writeFile(t, "config.yaml", "schedule:\n  feed:\n    type: file\nlogging:\n  level: chatty\n"))
	assert.ErrorContains(t, err, "logging")

	_, err = Load(writeFile(t, "config.yaml", "schedule:\n  feed:\n    type: file\nhistory:\n  backend: parquet\n"))
	assert.ErrorContains(t, err, "history")

	_, err = Load(writeFile(t, "config.yaml", "schedule:\n  feed:\n    type: file\nsentry:\n  traces_sample_rate: 3\n"))
	assert.ErrorContains(t, err, "sentry")
}
