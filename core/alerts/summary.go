package alerts

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/outagewatch/core/model"
)

// Summary aggregates a set of assessments for the fleet overview.
type Summary struct {
	Facilities  int            `json:"facilities"`
	ByRisk      map[string]int `json:"by_risk"`
	InOutage    int            `json:"in_outage"`
	BackupReady int            `json:"backup_ready"`
	Stale       int            `json:"stale"`
	// Margin statistics only cover facilities with a survivability margin.
	MarginSamples       int       `json:"margin_samples"`
	MeanMarginMinutes   float64   `json:"mean_margin_minutes"`
	MedianMarginMinutes float64   `json:"median_margin_minutes"`
	MinMarginMinutes    float64   `json:"min_margin_minutes"`
	ComputedAt          time.Time `json:"computed_at"`
}

// Summarize counts assessments per risk tier and computes margin statistics.
func Summarize(assessments []model.PowerRiskAssessment, now time.Time) Summary {
	s := Summary{
		Facilities: len(assessments),
		ByRisk:     map[string]int{},
		ComputedAt: now,
	}
	for t := model.RiskLow; t <= model.RiskCritical; t++ {
		s.ByRisk[t.String()] = 0
	}
	var margins []float64
	for _, a := range assessments {
		s.ByRisk[a.Risk.String()]++
		if a.Active != nil {
			s.InOutage++
		}
		if a.BackupReady {
			s.BackupReady++
		}
		if a.Stale {
			s.Stale++
		}
		if a.MarginMinutes != nil {
			margins = append(margins, *a.MarginMinutes)
		}
	}
	s.MarginSamples = len(margins)
	if len(margins) == 0 {
		return s
	}
	sort.Float64s(margins)
	s.MeanMarginMinutes = stat.Mean(margins, nil)
	s.MedianMarginMinutes = stat.Quantile(0.5, stat.Empirical, margins, nil)
	s.MinMarginMinutes = margins[0]
	return s
}
