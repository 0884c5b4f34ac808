// Package engine exposes the outage risk operations to the presentation
// layer. Every query reads a single schedule snapshot and is safe for
// concurrent callers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/outagewatch/core/alerts"
	"github.com/kilianp07/outagewatch/core/clock"
	"github.com/kilianp07/outagewatch/core/equipment"
	"github.com/kilianp07/outagewatch/core/events"
	"github.com/kilianp07/outagewatch/core/logger"
	"github.com/kilianp07/outagewatch/core/metrics"
	"github.com/kilianp07/outagewatch/core/model"
	"github.com/kilianp07/outagewatch/core/registry"
	"github.com/kilianp07/outagewatch/core/risk"
	"github.com/kilianp07/outagewatch/core/schedule"
	"github.com/kilianp07/outagewatch/core/stage"
	"github.com/kilianp07/outagewatch/internal/eventbus"
)

// Options configures an Engine. Only Registry is mandatory.
type Options struct {
	Store      *schedule.Store
	Feed       schedule.Feed
	Registry   registry.Registry
	Risk       risk.Config
	Location   *time.Location
	AlertLimit int
	Clock      clock.Clock
	Sink       metrics.MetricsSink
	Bus        *eventbus.Bus[events.Event]
	Logger     logger.Logger
}

// Engine wires the schedule store, resolver, assessor and aggregator.
type Engine struct {
	store      *schedule.Store
	feed       schedule.Feed
	registry   registry.Registry
	resolver   *stage.Resolver
	assessor   *risk.Assessor
	aggregator *alerts.Aggregator
	alertLimit int
	clock      clock.Clock
	sink       metrics.MetricsSink
	bus        *eventbus.Bus[events.Event]
	log        logger.Logger
}

// New builds an Engine from opts.
func New(opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, errors.New("engine: facility registry is required")
	}
	opts.Risk.SetDefaults()
	if err := opts.Risk.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Store == nil {
		opts.Store = schedule.NewStore(opts.Clock, opts.Logger)
	}
	if opts.Sink == nil {
		opts.Sink = metrics.NopSink{}
	}
	if opts.AlertLimit <= 0 {
		opts.AlertLimit = alerts.DefaultLimit
	}
	resolver := stage.NewResolver(opts.Location)
	return &Engine{
		store:      opts.Store,
		feed:       opts.Feed,
		registry:   opts.Registry,
		resolver:   resolver,
		assessor:   risk.NewAssessor(opts.Risk, resolver, opts.Logger),
		aggregator: alerts.NewAggregator(resolver, opts.Logger),
		alertLimit: opts.AlertLimit,
		clock:      opts.Clock,
		sink:       opts.Sink,
		bus:        opts.Bus,
		log:        opts.Logger,
	}, nil
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time { return e.clock.Now() }

// Location returns the time zone windows are materialized in.
func (e *Engine) Location() *time.Location { return e.resolver.Location() }

// Snapshot returns the schedule snapshot currently served.
func (e *Engine) Snapshot() *schedule.Snapshot { return e.store.Snapshot() }

// RiskConfig returns the effective risk thresholds.
func (e *Engine) RiskConfig() risk.Config { return e.assessor.Config() }

func (e *Engine) at(t time.Time) time.Time {
	if t.IsZero() {
		return e.clock.Now()
	}
	return t
}

// Lookahead returns the configured search horizon for outage windows.
func (e *Engine) Lookahead() time.Duration {
	return time.Duration(e.assessor.Config().LookaheadHours) * time.Hour
}

// ResolveWindows returns the outage windows of key in [from, from+horizon].
// A zero from means now. A zero horizon returns only the window covering from.
func (e *Engine) ResolveWindows(key model.AreaKey, from time.Time, horizon time.Duration) ([]model.OutageWindow, error) {
	if horizon < 0 {
		return nil, fmt.Errorf("negative horizon %s", horizon)
	}
	return e.resolver.ResolveWindows(e.store.Snapshot(), key, e.at(from), horizon)
}

// CurrentStage returns the stage in effect for key at t.
func (e *Engine) CurrentStage(key model.AreaKey, t time.Time) (model.Stage, error) {
	return e.resolver.CurrentStage(e.store.Snapshot(), key, e.at(t))
}

// Assess computes the risk assessment of one facility.
func (e *Engine) Assess(facilityID string, now time.Time) (model.PowerRiskAssessment, error) {
	p, err := e.registry.Get(facilityID)
	if err != nil {
		return model.PowerRiskAssessment{}, err
	}
	return e.assess(e.store.Snapshot(), p, e.at(now)), nil
}

// AssessAll assesses every registered facility against one snapshot.
func (e *Engine) AssessAll(now time.Time) []model.PowerRiskAssessment {
	snap := e.store.Snapshot()
	now = e.at(now)
	profiles := e.registry.List(registry.Filter{})
	out := make([]model.PowerRiskAssessment, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, e.assess(snap, p, now))
	}
	return out
}

func (e *Engine) assess(snap *schedule.Snapshot, p model.FacilityProfile, now time.Time) model.PowerRiskAssessment {
	started := time.Now()
	res := e.assessor.Assess(snap, p, now)
	if err := e.sink.RecordAssessment(metrics.AssessmentEvent{
		FacilityID:    res.FacilityID,
		Risk:          res.Risk,
		Stage:         res.Stage,
		BackupReady:   res.BackupReady,
		Stale:         res.Stale,
		MarginMinutes: res.MarginMinutes,
		Duration:      time.Since(started),
		Time:          now,
	}); err != nil && e.log != nil {
		e.log.Warnf("record assessment %s: %v", res.FacilityID, err)
	}
	return res
}

// ActiveAlerts lists facilities currently in an outage window, capped at
// limit (non-positive selects the configured default).
func (e *Engine) ActiveAlerts(now time.Time, limit int) alerts.AlertList {
	if limit <= 0 {
		limit = e.alertLimit
	}
	now = e.at(now)
	list := e.aggregator.ActiveAlerts(e.store.Snapshot(), e.registry.List(registry.Filter{}), now, limit)
	e.publish(events.AlertsComputed{
		Alerts:   list.Alerts,
		Total:    list.Total,
		Overflow: list.Overflow,
		Skipped:  list.Skipped,
		At:       now,
	})
	return list
}

// Rank orders equipment for mitigation.
func (e *Engine) Rank(list []model.CriticalEquipment) []model.CriticalEquipment {
	return equipment.Rank(list)
}

// Survivability ranks the equipment of a facility against an outage duration.
func (e *Engine) Survivability(facilityID string, outage time.Duration) ([]equipment.ItemSurvival, error) {
	p, err := e.registry.Get(facilityID)
	if err != nil {
		return nil, err
	}
	return equipment.Survivability(p.Equipment, outage), nil
}

// Summary aggregates the assessments of every facility.
func (e *Engine) Summary(now time.Time) alerts.Summary {
	now = e.at(now)
	return alerts.Summarize(e.AssessAll(now), now)
}

// Reload fetches the configured feed and swaps the snapshot on success. The
// previous snapshot keeps being served when the reload fails.
func (e *Engine) Reload(ctx context.Context) (*schedule.Snapshot, error) {
	return e.ReloadFrom(ctx, e.feed)
}

// ReloadFrom is Reload with an explicit feed.
func (e *Engine) ReloadFrom(ctx context.Context, feed schedule.Feed) (*schedule.Snapshot, error) {
	started := time.Now()
	snap, err := e.store.Reload(ctx, feed)
	ev := events.ScheduleReloaded{Duration: time.Since(started), Err: err, At: e.clock.Now()}
	if err != nil {
		cur := e.store.Snapshot()
		ev.Version = cur.Version
		if e.log != nil {
			e.log.Errorf("schedule reload failed, serving v%d: %v", cur.Version, err)
		}
	} else {
		ev.Version, ev.Areas, ev.Issues = snap.Version, len(snap.Areas()), len(snap.Issues)
		if e.log != nil {
			e.log.Infof("schedule v%d loaded: %d areas, %d issues", snap.Version, ev.Areas, ev.Issues)
		}
	}
	e.publish(ev)
	return snap, err
}

func (e *Engine) publish(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
