package config

import (
	"fmt"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/kilianp07/outagewatch/core/factory"
)

// ScheduleConfig selects the schedule feed and how often it is refreshed.
type ScheduleConfig struct {
	Feed factory.ModuleConfig `json:"feed"`
	// RefreshIntervalSeconds is the period of automatic reloads. 0 disables them.
	RefreshIntervalSeconds int `json:"refresh_interval_seconds"`
	// Timezone is the IANA zone slot times are expressed in.
	Timezone string `json:"timezone"`
}

func (c *ScheduleConfig) SetDefaults() {
	if c.Timezone == "" {
		c.Timezone = "Africa/Johannesburg"
	}
}

func (c ScheduleConfig) Validate() error {
	if c.Feed.Type == "" {
		return fmt.Errorf("feed.type is required")
	}
	if c.RefreshIntervalSeconds < 0 {
		return fmt.Errorf("refresh_interval_seconds must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}

// Location loads the configured time zone.
func (c ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// RefreshInterval returns the reload period.
func (c ScheduleConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// AlertsConfig controls the periodic alert scan.
type AlertsConfig struct {
	Limit int `json:"limit"`
	// IntervalSeconds is the period of the alert scan in serve mode. 0
	// disables the scan.
	IntervalSeconds int `json:"interval_seconds"`
}

func (c *AlertsConfig) SetDefaults() {
	if c.Limit <= 0 {
		c.Limit = 5
	}
}

func (c AlertsConfig) Validate() error {
	if c.IntervalSeconds < 0 {
		return fmt.Errorf("interval_seconds must not be negative")
	}
	return nil
}

// Interval returns the scan period.
func (c AlertsConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// Token, when set, is required as a bearer token on every API call.
	Token string `json:"token"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}
