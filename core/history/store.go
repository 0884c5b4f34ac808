// Package history keeps a history of alert scans: which facilities were in an
// outage window at each scan and whether the batch reached the broker.
package history

import (
	"context"
	"time"

	"github.com/kilianp07/outagewatch/core/model"
)

// Record captures one alert scan.
type Record struct {
	Timestamp time.Time                `json:"timestamp"`
	BatchID   string                   `json:"batch_id,omitempty"`
	Alerts    []model.PowerOutageAlert `json:"alerts"`
	Total     int                      `json:"total"`
	Overflow  int                      `json:"overflow"`
	Skipped   int                      `json:"skipped"`
	Published bool                     `json:"published"`
	Error     string                   `json:"error,omitempty"`
}

// Query defines filters for retrieving records. Zero values match anything.
type Query struct {
	Start      time.Time
	End        time.Time
	FacilityID string
	MinStage   model.Stage
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Matches reports whether r satisfies q.
func (q Query) Matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.FacilityID == "" && q.MinStage == model.StageNone {
		return true
	}
	for _, a := range r.Alerts {
		if q.FacilityID != "" && a.FacilityID != q.FacilityID {
			continue
		}
		if a.Stage >= q.MinStage {
			return true
		}
	}
	return false
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return []Record{}, nil }
func (NopStore) Close() error                                   { return nil }
