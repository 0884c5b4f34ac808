package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordAssessment(AssessmentEvent) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordReload(ReloadEvent) error {
	r.count++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks and optional
// recorders are only called when implemented.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordAssessment(AssessmentEvent{FacilityID: "f1"}); err != nil {
		t.Fatalf("record assessment: %v", err)
	}
	if err := m.RecordReload(ReloadEvent{Success: true}); err != nil {
		t.Fatalf("record reload: %v", err)
	}
	if err := m.RecordAlerts(AlertsEvent{}); err != nil {
		t.Fatalf("record alerts: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("events not forwarded: %d %d", s1.count, s2.count)
	}
}

func TestMultiSinkContinuesAfterError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	err := NewMultiSink(s1, s2).RecordAssessment(AssessmentEvent{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if s2.count != 1 {
		t.Fatalf("second sink skipped after first failure")
	}
}
