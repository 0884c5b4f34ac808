// Package stage turns published weekly schedules into concrete outage
// windows for a point in time.
//
// Stage and block binding: each slot of a block carries the lowest published
// stage at which it sheds. When a stage is published for the area (area,
// municipality or national scope, most specific wins) the slots at or below
// that stage materialize and carry the published stage. When nothing is
// published the schedule is authoritative and every slot materializes with
// its own stage.
package stage

import (
	"sort"
	"time"

	"github.com/kilianp07/outagewatch/core/model"
	"github.com/kilianp07/outagewatch/core/schedule"
)

// Resolver materializes windows in a fixed location.
type Resolver struct {
	loc *time.Location
}

// NewResolver returns a resolver evaluating clock times in loc. A nil
// location defaults to UTC.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc}
}

// Location returns the time zone the schedules are interpreted in.
func (r *Resolver) Location() *time.Location { return r.loc }

// ResolveWindows returns the windows of key that intersect
// [from, from+horizon], in ascending start order with overlaps merged.
func (r *Resolver) ResolveWindows(snap *schedule.Snapshot, key model.AreaKey, from time.Time, horizon time.Duration) ([]model.OutageWindow, error) {
	entries, err := snap.Entries(key)
	if err != nil {
		return nil, err
	}
	if horizon < 0 {
		horizon = 0
	}
	published, hasPublished := snap.Stages.Lookup(key)
	if hasPublished && published == model.StageNone {
		return []model.OutageWindow{}, nil
	}

	from = from.In(r.loc)
	to := from.Add(horizon)
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, r.loc)
	var windows []model.OutageWindow
	for ; !day.After(to); day = day.AddDate(0, 0, 1) {
		wd := model.ISOWeekday(day.Weekday())
		for _, e := range entries {
			for _, s := range e.Slots {
				if s.Day != wd {
					continue
				}
				st := s.Stage
				if hasPublished {
					if s.Stage > published {
						continue
					}
					st = published
				}
				w := model.OutageWindow{
					Start: atClock(day, s.Start),
					End:   atClock(day, s.End),
					Stage: st,
				}
				if !w.End.After(from) || w.Start.After(to) || !w.End.After(w.Start) {
					continue
				}
				windows = append(windows, w)
			}
		}
	}
	return Merge(windows), nil
}

// CurrentStage returns the stage of the window containing t, or stage 0.
func (r *Resolver) CurrentStage(snap *schedule.Snapshot, key model.AreaKey, t time.Time) (model.Stage, error) {
	w, err := r.ActiveWindow(snap, key, t)
	if err != nil {
		return model.StageNone, err
	}
	if w == nil {
		return model.StageNone, nil
	}
	return w.Stage, nil
}

// ActiveWindow returns the window containing t or nil.
func (r *Resolver) ActiveWindow(snap *schedule.Snapshot, key model.AreaKey, t time.Time) (*model.OutageWindow, error) {
	ws, err := r.ResolveWindows(snap, key, t, 0)
	if err != nil {
		return nil, err
	}
	for i := range ws {
		if ws[i].Contains(t) {
			w := ws[i]
			return &w, nil
		}
	}
	return nil, nil
}

// Split separates resolved windows into the one containing now (if any), the
// following window and the full list.
func Split(windows []model.OutageWindow, now time.Time) (active, next *model.OutageWindow) {
	for i := range windows {
		w := windows[i]
		if w.Contains(now) {
			active = &w
			continue
		}
		if w.Start.After(now) || w.Start.Equal(now) {
			next = &w
			return active, next
		}
	}
	return active, next
}

// Merge sorts windows by start and folds overlapping ones into their union,
// keeping the higher stage. Windows that merely touch stay separate.
func Merge(in []model.OutageWindow) []model.OutageWindow {
	out := make([]model.OutageWindow, 0, len(in))
	if len(in) == 0 {
		return out
	}
	ws := append([]model.OutageWindow(nil), in...)
	sort.Slice(ws, func(i, j int) bool {
		if !ws[i].Start.Equal(ws[j].Start) {
			return ws[i].Start.Before(ws[j].Start)
		}
		return ws[i].End.Before(ws[j].End)
	})
	cur := ws[0]
	for _, w := range ws[1:] {
		if w.Start.Before(cur.End) {
			if w.End.After(cur.End) {
				cur.End = w.End
			}
			if w.Stage > cur.Stage {
				cur.Stage = w.Stage
			}
			continue
		}
		out = append(out, cur)
		cur = w
	}
	return append(out, cur)
}

func atClock(day time.Time, c model.ClockTime) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, day.Location())
}
