package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/outagewatch/core/metrics"
)

// PromSink records engine events in Prometheus metrics.
type PromSink struct {
	assessments   *prometheus.CounterVec
	latency       prometheus.Histogram
	margin        *prometheus.GaugeVec
	activeAlerts  prometheus.Gauge
	overflow      prometheus.Gauge
	skipped       prometheus.Gauge
	maxStage      prometheus.Gauge
	reloads       *prometheus.CounterVec
	version       prometheus.Gauge
	areas         prometheus.Gauge
	issues        prometheus.Gauge
	reloadLatency prometheus.Histogram
	publishes     *prometheus.CounterVec
}

// NewPromSink registers engine metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	s, err := NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.assessments, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outagewatch_assessments_total",
		Help: "Risk assessments computed, by risk tier",
	}, []string{"risk", "stale"})); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outagewatch_assessment_duration_seconds",
		Help:    "Time spent computing one assessment",
		Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
	})); err != nil {
		return nil, err
	}
	if s.margin, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "outagewatch_survival_margin_minutes",
		Help: "Latest survivability margin per facility",
	}, []string{"facility_id"})); err != nil {
		return nil, err
	}
	if s.activeAlerts, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outagewatch_active_alerts",
		Help: "Facilities currently inside an outage window",
	})); err != nil {
		return nil, err
	}
	if s.overflow, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outagewatch_alert_overflow",
		Help: "Active facilities left out of the capped alert list",
	})); err != nil {
		return nil, err
	}
	if s.skipped, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outagewatch_alert_skipped_facilities",
		Help: "Facilities skipped during the last alert scan",
	})); err != nil {
		return nil, err
	}
	if s.maxStage, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outagewatch_max_active_stage",
		Help: "Highest stage among active alerts",
	})); err != nil {
		return nil, err
	}
	if s.reloads, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outagewatch_schedule_reloads_total",
		Help: "Schedule reload attempts by result",
	}, []string{"success"})); err != nil {
		return nil, err
	}
	if s.version, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outagewatch_schedule_version",
		Help: "Version of the schedule snapshot being served",
	})); err != nil {
		return nil, err
	}
	if s.areas, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outagewatch_schedule_areas",
		Help: "Areas in the served schedule snapshot",
	})); err != nil {
		return nil, err
	}
	if s.issues, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outagewatch_schedule_issues",
		Help: "Malformed records repaired in the served snapshot",
	})); err != nil {
		return nil, err
	}
	if s.reloadLatency, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outagewatch_schedule_reload_duration_seconds",
		Help:    "Time spent fetching and applying a schedule",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.publishes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outagewatch_alert_publish_total",
		Help: "Alert batches published to the broker by result",
	}, []string{"success"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordAssessment counts the assessment and tracks the facility margin.
func (s *PromSink) RecordAssessment(ev coremetrics.AssessmentEvent) error {
	s.assessments.WithLabelValues(ev.Risk.String(), strconv.FormatBool(ev.Stale)).Inc()
	s.latency.Observe(ev.Duration.Seconds())
	if ev.MarginMinutes != nil {
		s.margin.WithLabelValues(ev.FacilityID).Set(*ev.MarginMinutes)
	} else {
		s.margin.DeleteLabelValues(ev.FacilityID)
	}
	return nil
}

// RecordAlerts sets the alert gauges.
func (s *PromSink) RecordAlerts(ev coremetrics.AlertsEvent) error {
	s.activeAlerts.Set(float64(ev.Active))
	s.overflow.Set(float64(ev.Overflow))
	s.skipped.Set(float64(ev.Skipped))
	s.maxStage.Set(float64(ev.MaxStage))
	return nil
}

// RecordReload counts the attempt and, on success, updates the snapshot gauges.
func (s *PromSink) RecordReload(ev coremetrics.ReloadEvent) error {
	s.reloads.WithLabelValues(strconv.FormatBool(ev.Success)).Inc()
	s.reloadLatency.Observe(ev.Duration.Seconds())
	if ev.Success {
		s.version.Set(float64(ev.Version))
		s.areas.Set(float64(ev.Areas))
		s.issues.Set(float64(ev.Issues))
	}
	return nil
}

// RecordPublish counts alert batches sent to the broker.
func (s *PromSink) RecordPublish(ev coremetrics.PublishEvent) error {
	s.publishes.WithLabelValues(strconv.FormatBool(ev.Err == nil)).Inc()
	return nil
}
