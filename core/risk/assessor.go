// Package risk combines resolved outage windows with a facility's backup
// power and equipment inventory into a risk tier and ordered
// recommendations. Assessments are pure functions of the snapshot, the
// facility profile and the reference time.
package risk

import (
	"fmt"
	"time"

	"github.com/kilianp07/outagewatch/core/equipment"
	"github.com/kilianp07/outagewatch/core/logger"
	"github.com/kilianp07/outagewatch/core/model"
	"github.com/kilianp07/outagewatch/core/schedule"
	"github.com/kilianp07/outagewatch/core/stage"
)

// Recommendation texts. They are stable so callers can match them exactly.
const (
	RecScheduleUnavailable = "schedule data unavailable — verify manually"
	RecServiceBackup       = "service backup power system"
	RecEmergencyProtocol   = "activate facility emergency protocol"
	RecStaleSchedule       = "schedule data is stale, verify the published schedule"
)

// RecArrangeAlternatePower is issued for equipment whose runtime does not
// cover the outage.
func RecArrangeAlternatePower(name string) string {
	return "arrange alternate power for " + name
}

// RecSwitchAlternatePower is issued instead when the item already has an
// alternative supply available.
func RecSwitchAlternatePower(name string) string {
	return "switch " + name + " to alternate power source"
}

// Assessor evaluates facility risk against a schedule snapshot.
type Assessor struct {
	cfg      Config
	resolver *stage.Resolver
	log      logger.Logger
}

// NewAssessor creates an Assessor. Unset thresholds take their defaults.
func NewAssessor(cfg Config, r *stage.Resolver, log logger.Logger) *Assessor {
	cfg.SetDefaults()
	if r == nil {
		r = stage.NewResolver(nil)
	}
	return &Assessor{cfg: cfg, resolver: r, log: log}
}

// Config returns the effective thresholds.
func (a *Assessor) Config() Config { return a.cfg }

// Assess computes the risk assessment of profile at now.
func (a *Assessor) Assess(snap *schedule.Snapshot, p model.FacilityProfile, now time.Time) model.PowerRiskAssessment {
	res := model.PowerRiskAssessment{
		FacilityID: p.Facility.ID,
		Risk:       model.RiskLow,
		Backup:     p.Backup,
		Confidence: model.ConfidenceHigh,
		AssessedAt: now,
		Stale:      snap.Stale(now, a.cfg.StaleAfter()),
	}
	res.BackupReady = p.Backup == model.BackupFullyOperational

	windows, err := a.resolver.ResolveWindows(snap, p.Facility.Area, now, a.cfg.lookahead())
	if err != nil {
		a.debugf("facility %s: %v", p.Facility.ID, err)
		res.Confidence = model.ConfidenceLow
		res.Recommendations = []string{RecScheduleUnavailable}
		return res
	}
	if entries, err := snap.Entries(p.Facility.Area); err == nil {
		for _, e := range entries {
			res.EmergencyContacts = append(res.EmergencyContacts, e.EmergencyContacts...)
		}
	}

	active, next := stage.Split(windows, now)
	res.Active, res.Next = active, next
	if active != nil {
		res.Stage = active.Stage
	}

	basis := active
	if basis == nil {
		basis = next
	}
	var margin *float64
	if basis != nil {
		if rt, ok := equipment.CriticalRuntime(p.Equipment); ok {
			m := rt - basis.Duration().Minutes()
			margin = &m
		}
	}
	res.MarginMinutes = margin
	if p.Backup == model.BackupPartial && (margin == nil || *margin >= 0) {
		res.BackupReady = true
	}

	res.Risk = a.tier(p.Backup, active, next, windows, margin, now)
	res.Recommendations = a.recommend(p, basis, active, next)
	if res.Stale {
		res.Confidence = model.ConfidenceLow
		res.Recommendations = append(res.Recommendations, RecStaleSchedule)
	}
	return res
}

func (a *Assessor) tier(backup model.BackupPowerStatus, active, next *model.OutageWindow, windows []model.OutageWindow, margin *float64, now time.Time) model.RiskTier {
	if active != nil && ((margin != nil && *margin < 0) || backup == model.BackupNone) {
		return model.RiskCritical
	}
	if backup.Degraded() {
		if active != nil || (next != nil && next.Start.Sub(now) <= a.cfg.imminent()) {
			return model.RiskHigh
		}
	}
	limit := now.Add(a.cfg.elevatedHorizon())
	for _, w := range windows {
		if int(w.Stage) >= a.cfg.ElevatedStage && w.Start.Before(limit) {
			return model.RiskModerate
		}
	}
	return model.RiskLow
}

func (a *Assessor) recommend(p model.FacilityProfile, basis, active, next *model.OutageWindow) []string {
	recs := []string{}
	if basis != nil {
		for _, it := range equipment.Survivability(p.Equipment, basis.Duration()) {
			if it.Survives || it.Equipment.Tier == model.TierNonEssential {
				continue
			}
			if it.Equipment.AlternativePower {
				recs = append(recs, RecSwitchAlternatePower(it.Equipment.Name))
			} else {
				recs = append(recs, RecArrangeAlternatePower(it.Equipment.Name))
			}
		}
	}
	if p.Backup != model.BackupFullyOperational {
		recs = append(recs, RecServiceBackup)
	}
	emergency := model.Stage(a.cfg.EmergencyStage)
	if (active != nil && active.Stage >= emergency) || (next != nil && next.Stage >= emergency) {
		recs = append(recs, RecEmergencyProtocol)
	}
	return recs
}

func (a *Assessor) debugf(format string, args ...any) {
	if a.log != nil {
		a.log.Debugf(format, args...)
	}
}

// Describe renders a one-line summary, used by CLI output and logs.
func Describe(r model.PowerRiskAssessment) string {
	next := "none"
	if r.Next != nil {
		next = fmt.Sprintf("%s-%s stage %d", r.Next.Start.Format(time.RFC3339), r.Next.End.Format("15:04"), r.Next.Stage)
	}
	return fmt.Sprintf("%s risk=%s stage=%d backup=%s ready=%t next=%s", r.FacilityID, r.Risk, r.Stage, r.Backup, r.BackupReady, next)
}
