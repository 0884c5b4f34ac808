package model

import (
	"fmt"
	"strings"
)

// Stage is the load-shedding severity level. Stage 0 means no shedding.
type Stage int

const (
	StageNone Stage = 0
	MaxStage  Stage = 8
)

// Valid reports whether s lies in the published range 0-8.
func (s Stage) Valid() bool { return s >= StageNone && s <= MaxStage }

// Tier maps the stage to its reference risk tier. The mapping is monotonic.
func (s Stage) Tier() RiskTier {
	switch {
	case s >= 7:
		return RiskCritical
	case s >= 5:
		return RiskHigh
	case s >= 3:
		return RiskModerate
	default:
		return RiskLow
	}
}

// Label returns a short display label for the stage.
func (s Stage) Label() string {
	if s <= StageNone {
		return "No load shedding"
	}
	return fmt.Sprintf("Stage %d", int(s))
}

// RiskTier is the ordered severity of a facility's outage exposure.
type RiskTier int

const (
	RiskLow RiskTier = iota
	RiskModerate
	RiskHigh
	RiskCritical
)

// String returns the canonical upper case tier name.
func (t RiskTier) String() string {
	switch t {
	case RiskLow:
		return "LOW"
	case RiskModerate:
		return "MODERATE"
	case RiskHigh:
		return "HIGH"
	case RiskCritical:
		return "CRITICAL"
	default:
		return "unknown"
	}
}

// ParseRiskTier converts a tier name to a RiskTier.
func ParseRiskTier(s string) (RiskTier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return RiskLow, nil
	case "MODERATE":
		return RiskModerate, nil
	case "HIGH":
		return RiskHigh, nil
	case "CRITICAL":
		return RiskCritical, nil
	default:
		return 0, fmt.Errorf("unknown risk tier: %s", s)
	}
}

func (t RiskTier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *RiskTier) UnmarshalText(b []byte) error {
	v, err := ParseRiskTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Confidence qualifies how much of an assessment rests on verified data.
type Confidence string

const (
	ConfidenceHigh Confidence = "HIGH"
	ConfidenceLow  Confidence = "LOW"
)
