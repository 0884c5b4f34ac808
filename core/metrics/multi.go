package metrics

import "errors"

// MultiSink fans events out to multiple sinks. Every sink is called even
// when an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordAssessment(ev AssessmentEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordAssessment(ev))
	}
	return errors.Join(errs...)
}

// RecordAlerts forwards to sinks implementing AlertRecorder.
func (m *MultiSink) RecordAlerts(ev AlertsEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(AlertRecorder); ok {
			errs = append(errs, rec.RecordAlerts(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordReload forwards to sinks implementing ReloadRecorder.
func (m *MultiSink) RecordReload(ev ReloadEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(ReloadRecorder); ok {
			errs = append(errs, rec.RecordReload(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordPublish forwards to sinks implementing PublishRecorder.
func (m *MultiSink) RecordPublish(ev PublishEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(PublishRecorder); ok {
			errs = append(errs, rec.RecordPublish(ev))
		}
	}
	return errors.Join(errs...)
}
