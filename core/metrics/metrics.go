package metrics

import (
	"time"

	"github.com/kilianp07/outagewatch/core/model"
)

// AssessmentEvent describes one computed risk assessment.
type AssessmentEvent struct {
	FacilityID    string
	Risk          model.RiskTier
	Stage         model.Stage
	BackupReady   bool
	Stale         bool
	MarginMinutes *float64
	Duration      time.Duration
	Time          time.Time
}

// MetricsSink records risk assessments for observability purposes.
type MetricsSink interface {
	RecordAssessment(ev AssessmentEvent) error
}

// AlertsEvent summarises an alert scan.
type AlertsEvent struct {
	Active   int
	Overflow int
	Skipped  int
	MaxStage model.Stage
	Time     time.Time
}

// AlertRecorder records alert scans.
type AlertRecorder interface {
	RecordAlerts(ev AlertsEvent) error
}

// ReloadEvent describes a schedule reload attempt.
type ReloadEvent struct {
	Version  uint64
	Areas    int
	Issues   int
	Success  bool
	Duration time.Duration
	Time     time.Time
}

// ReloadRecorder records schedule reloads.
type ReloadRecorder interface {
	RecordReload(ev ReloadEvent) error
}

// PublishEvent describes an alert batch sent to the broker.
type PublishEvent struct {
	BatchID string
	Alerts  int
	Err     error
	Time    time.Time
}

// PublishRecorder records alert publications.
type PublishRecorder interface {
	RecordPublish(ev PublishEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordAssessment(AssessmentEvent) error { return nil }
func (NopSink) RecordAlerts(AlertsEvent) error         { return nil }
func (NopSink) RecordReload(ReloadEvent) error         { return nil }
func (NopSink) RecordPublish(PublishEvent) error       { return nil }
