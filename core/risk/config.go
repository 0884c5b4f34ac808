package risk

import (
	"fmt"
	"time"
)

// Config defines the thresholds used by the risk assessor.
type Config struct {
	// ImminentMinutes is how close the next outage must be for a degraded
	// backup to raise the risk to HIGH.
	ImminentMinutes int `json:"imminent_minutes"`
	// ElevatedStage is the stage that raises the risk to MODERATE when
	// scheduled within ElevatedHorizonHours.
	ElevatedStage        int `json:"elevated_stage"`
	ElevatedHorizonHours int `json:"elevated_horizon_hours"`
	// EmergencyStage triggers the facility emergency protocol recommendation.
	EmergencyStage int `json:"emergency_stage"`
	// LookaheadHours bounds the search for the next outage window.
	LookaheadHours int `json:"lookahead_hours"`
	// StaleAfterMinutes flags assessments built on an old snapshot. 0 disables it.
	StaleAfterMinutes int `json:"stale_after_minutes"`
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	c := Config{}
	c.SetDefaults()
	return c
}

// SetDefaults applies the reference thresholds to unset fields.
func (c *Config) SetDefaults() {
	if c.ImminentMinutes <= 0 {
		c.ImminentMinutes = 120
	}
	if c.ElevatedStage <= 0 {
		c.ElevatedStage = 3
	}
	if c.ElevatedHorizonHours <= 0 {
		c.ElevatedHorizonHours = 24
	}
	if c.EmergencyStage <= 0 {
		c.EmergencyStage = 5
	}
	if c.LookaheadHours <= 0 {
		c.LookaheadHours = 7 * 24
	}
}

// Validate checks threshold ranges.
func (c Config) Validate() error {
	if c.ElevatedStage > 8 || c.EmergencyStage > 8 {
		return fmt.Errorf("stage thresholds must be within 0-8")
	}
	if c.StaleAfterMinutes < 0 {
		return fmt.Errorf("stale_after_minutes must not be negative")
	}
	if c.LookaheadHours < c.ElevatedHorizonHours {
		return fmt.Errorf("lookahead_hours must cover elevated_horizon_hours")
	}
	return nil
}

func (c Config) imminent() time.Duration { return time.Duration(c.ImminentMinutes) * time.Minute }

func (c Config) elevatedHorizon() time.Duration {
	return time.Duration(c.ElevatedHorizonHours) * time.Hour
}

func (c Config) lookahead() time.Duration { return time.Duration(c.LookaheadHours) * time.Hour }

// StaleAfter returns the staleness threshold as a duration.
func (c Config) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterMinutes) * time.Minute
}
