package events

import (
	"time"

	"github.com/kilianp07/outagewatch/core/model"
)

// Event is any value published on the engine bus.
type Event interface{}

// ScheduleReloaded is published after each reload attempt. On failure Err is
// set and Version is the version still being served.
type ScheduleReloaded struct {
	Version  uint64
	Areas    int
	Issues   int
	Duration time.Duration
	Err      error
	At       time.Time
}

// AlertsComputed is published when an alert scan completes.
type AlertsComputed struct {
	Alerts   []model.PowerOutageAlert
	Total    int
	Overflow int
	Skipped  int
	At       time.Time
}

// AlertsPublished is published after an alert batch was sent, or failed to
// be sent, to the message broker.
type AlertsPublished struct {
	BatchID string
	Alerts  int
	Err     error
	At      time.Time
}
