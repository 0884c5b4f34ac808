// Package alerts builds the dashboard list of facilities that are inside an
// outage window right now.
package alerts

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/outagewatch/core/logger"
	"github.com/kilianp07/outagewatch/core/model"
	"github.com/kilianp07/outagewatch/core/monitoring"
	"github.com/kilianp07/outagewatch/core/schedule"
	"github.com/kilianp07/outagewatch/core/stage"
)

// DefaultLimit is the number of alerts returned when no positive limit is given.
const DefaultLimit = 5

// AlertList is the capped, ordered result of an alert scan.
type AlertList struct {
	Alerts []model.PowerOutageAlert `json:"alerts"`
	// Overflow counts active facilities left out by the limit.
	Overflow int `json:"overflow"`
	Total    int `json:"total"`
	// Skipped counts facilities whose schedule could not be evaluated.
	Skipped    int       `json:"skipped"`
	ComputedAt time.Time `json:"computed_at"`
}

// Aggregator scans facility profiles for active outages.
type Aggregator struct {
	resolver *stage.Resolver
	log      logger.Logger
}

// NewAggregator returns an Aggregator resolving windows with r.
func NewAggregator(r *stage.Resolver, log logger.Logger) *Aggregator {
	if r == nil {
		r = stage.NewResolver(nil)
	}
	return &Aggregator{resolver: r, log: log}
}

// ActiveAlerts emits one alert per facility currently inside an outage
// window, ordered by stage descending, start ascending, then facility name and
// ID. The list is capped at limit; limit <= 0 selects DefaultLimit.
func (a *Aggregator) ActiveAlerts(snap *schedule.Snapshot, profiles []model.FacilityProfile, now time.Time, limit int) AlertList {
	if limit <= 0 {
		limit = DefaultLimit
	}
	res := AlertList{ComputedAt: now}
	var all []model.PowerOutageAlert
	for _, p := range profiles {
		alert, ok, err := a.evaluate(snap, p, now)
		if err != nil {
			res.Skipped++
			if !errors.Is(err, model.ErrNotFound) {
				monitoring.CaptureException(err, map[string]string{"facility_id": p.Facility.ID})
			}
			a.warnf("skip facility %s: %v", p.Facility.ID, err)
			continue
		}
		if ok {
			all = append(all, alert)
		}
	}
	Sort(all)
	res.Total = len(all)
	if len(all) > limit {
		res.Overflow = len(all) - limit
		all = all[:limit]
	}
	res.Alerts = all
	if res.Alerts == nil {
		res.Alerts = []model.PowerOutageAlert{}
	}
	return res
}

func (a *Aggregator) evaluate(snap *schedule.Snapshot, p model.FacilityProfile, now time.Time) (alert model.PowerOutageAlert, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.CaptureRecovered(r, map[string]string{"facility_id": p.Facility.ID})
			err = fmt.Errorf("evaluate facility: panic: %v", r)
		}
	}()
	w, err := a.resolver.ActiveWindow(snap, p.Facility.Area, now)
	if err != nil {
		return alert, false, err
	}
	if w == nil {
		return alert, false, nil
	}
	return model.PowerOutageAlert{
		FacilityID:   p.Facility.ID,
		FacilityName: p.Facility.Name,
		Stage:        w.Stage,
		Start:        w.Start,
		End:          w.End,
		Backup:       p.Backup,
	}, true, nil
}

func (a *Aggregator) warnf(format string, args ...any) {
	if a.log != nil {
		a.log.Warnf(format, args...)
	}
}

// Sort orders alerts by stage descending, start ascending, facility name and
// finally facility ID.
func Sort(list []model.PowerOutageAlert) {
	sort.SliceStable(list, func(i, j int) bool {
		x, y := list[i], list[j]
		if x.Stage != y.Stage {
			return x.Stage > y.Stage
		}
		if !x.Start.Equal(y.Start) {
			return x.Start.Before(y.Start)
		}
		if x.FacilityName != y.FacilityName {
			return x.FacilityName < y.FacilityName
		}
		return x.FacilityID < y.FacilityID
	})
}
