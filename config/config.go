package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/outagewatch/core/history"
	"github.com/kilianp07/outagewatch/core/metrics"
	"github.com/kilianp07/outagewatch/core/risk"
	"github.com/kilianp07/outagewatch/infra/mqtt"
	"github.com/kilianp07/outagewatch/infra/registry"
)

// EnvPrefix prefixes environment overrides. OW_SCHEDULE__TIMEZONE sets
// schedule.timezone.
const EnvPrefix = "OW_"

type Config struct {
	Schedule ScheduleConfig  `json:"schedule"`
	Risk     risk.Config     `json:"risk"`
	Alerts   AlertsConfig    `json:"alerts"`
	History  history.Config  `json:"history"`
	Registry registry.Config `json:"registry"`
	MQTT     mqtt.Config     `json:"mqtt"`
	Metrics  metrics.Config  `json:"metrics"`
	HTTP     HTTPConfig      `json:"http"`
	Logging  LoggingConfig   `json:"logging"`
	Sentry   SentryConfig    `json:"sentry"`
}

// Load reads the YAML or JSON file at path, applies OW_ environment
// overrides (a .env file in the working directory is honoured) and
// validates every section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	_ = godotenv.Load()
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Schedule.SetDefaults()
	c.Risk.SetDefaults()
	c.Alerts.SetDefaults()
	c.History.SetDefaults()
	c.Registry.SetDefaults()
	c.MQTT.SetDefaults()
	c.HTTP.SetDefaults()
	c.Logging.SetDefaults()
	c.Sentry.SetDefaults()
}

// Validate checks every section and prefixes errors with the section name.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"schedule", c.Schedule.Validate},
		{"risk", c.Risk.Validate},
		{"alerts", c.Alerts.Validate},
		{"history", c.History.Validate},
		{"registry", c.Registry.Validate},
		{"mqtt", c.MQTT.Validate},
		{"logging", c.Logging.Validate},
		{"sentry", c.Sentry.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}
