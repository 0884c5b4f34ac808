// Package schedule holds the published rotating outage schedules. A
// Snapshot is immutable once built; the Store swaps whole snapshots
// atomically so readers never observe a partially applied refresh.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kilianp07/outagewatch/core/model"
)

// StageTable maps published stages by scope. Keys are "" (national),
// "municipality" or "municipality/area".
type StageTable map[string]model.Stage

// Lookup returns the most specific published stage for k.
func (t StageTable) Lookup(k model.AreaKey) (model.Stage, bool) {
	if len(t) == 0 {
		return 0, false
	}
	k = k.Normalize()
	for _, scope := range []string{k.AreaOnly().String(), k.Municipality, ""} {
		if s, ok := t[scope]; ok {
			return s, true
		}
	}
	return 0, false
}

// FeedData is the raw content delivered by a schedule feed.
type FeedData struct {
	Entries []model.ScheduleEntry
	Stages  StageTable
}

// Issue records a repaired defect found while building a snapshot.
type Issue struct {
	Key    model.AreaKey `json:"key"`
	Reason string        `json:"reason"`
}

func (i Issue) String() string { return i.Key.String() + ": " + i.Reason }

// Snapshot is one immutable version of the schedule set.
type Snapshot struct {
	Version  uint64
	LoadedAt time.Time
	Stages   StageTable
	Issues   []Issue

	entries map[model.AreaKey][]model.ScheduleEntry
}

// Entries returns the schedule entries for the area of k. When k names a
// block only that block is returned.
func (s *Snapshot) Entries(k model.AreaKey) ([]model.ScheduleEntry, error) {
	if s == nil {
		return nil, fmt.Errorf("schedule %s: %w", k, model.ErrNotFound)
	}
	k = k.Normalize()
	all := s.entries[k.AreaOnly()]
	if k.Block == "" {
		if len(all) == 0 {
			return nil, fmt.Errorf("schedule %s: %w", k, model.ErrNotFound)
		}
		return all, nil
	}
	for _, e := range all {
		if e.Key().Block == k.Block {
			return []model.ScheduleEntry{e}, nil
		}
	}
	return nil, fmt.Errorf("schedule %s: %w", k, model.ErrNotFound)
}

// Areas lists the area keys present in the snapshot in sorted order.
func (s *Snapshot) Areas() []model.AreaKey {
	if s == nil {
		return nil
	}
	out := make([]model.AreaKey, 0, len(s.entries))
	for k := range s.entries {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Len returns the number of block entries held.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, es := range s.entries {
		n += len(es)
	}
	return n
}

// Loaded reports whether the snapshot came from a feed.
func (s *Snapshot) Loaded() bool { return s != nil && s.Version > 0 }

// Age is the time elapsed since the snapshot was loaded.
func (s *Snapshot) Age(now time.Time) time.Duration {
	if !s.Loaded() {
		return 0
	}
	return now.Sub(s.LoadedAt)
}

// Stale reports whether the snapshot is older than threshold. A zero
// threshold disables the check.
func (s *Snapshot) Stale(now time.Time, threshold time.Duration) bool {
	if threshold <= 0 || !s.Loaded() {
		return false
	}
	return s.Age(now) > threshold
}

// Build validates data and produces a snapshot. Invalid slots and entries are
// dropped and reported as issues; overlapping slots are kept for the stage
// resolver to merge but still reported.
func Build(data FeedData, version uint64, loadedAt time.Time) (*Snapshot, error) {
	snap := &Snapshot{
		Version:  version,
		LoadedAt: loadedAt,
		Stages:   StageTable{},
		entries:  map[model.AreaKey][]model.ScheduleEntry{},
	}
	for scope, st := range data.Stages {
		key := strings.ToLower(strings.TrimSpace(scope))
		if !st.Valid() {
			snap.Issues = append(snap.Issues, Issue{Reason: fmt.Sprintf("published stage %d for %q out of range", st, scope)})
			continue
		}
		snap.Stages[key] = st
	}

	blocks := map[model.AreaKey]int{}
	for _, e := range data.Entries {
		key := e.Key()
		if key.Municipality == "" || key.Area == "" {
			snap.Issues = append(snap.Issues, Issue{Key: key, Reason: "entry without municipality or area dropped"})
			continue
		}
		slots, issues := normalizeSlots(key, e.Slots)
		snap.Issues = append(snap.Issues, issues...)
		area := key.AreaOnly()
		if idx, ok := blocks[key]; ok {
			// duplicate block: merge slots into the first entry
			prev := &snap.entries[area][idx]
			prev.Slots = append(prev.Slots, slots...)
			prev.EmergencyContacts = appendUnique(prev.EmergencyContacts, e.EmergencyContacts...)
			snap.Issues = append(snap.Issues, Issue{Key: key, Reason: "duplicate block entry merged"})
			continue
		}
		entry := model.ScheduleEntry{
			Municipality:      key.Municipality,
			Area:              key.Area,
			Block:             key.Block,
			ExternalID:        e.ExternalID,
			Slots:             slots,
			EmergencyContacts: append([]string(nil), e.EmergencyContacts...),
		}
		blocks[key] = len(snap.entries[area])
		snap.entries[area] = append(snap.entries[area], entry)
	}
	for area, es := range snap.entries {
		for i := range es {
			sortSlots(es[i].Slots)
			snap.Issues = append(snap.Issues, overlapIssues(es[i].Key(), es[i].Slots)...)
		}
		sort.Slice(es, func(i, j int) bool { return es[i].Block < es[j].Block })
		snap.entries[area] = es
	}
	if len(snap.entries) == 0 {
		return nil, fmt.Errorf("%w: feed contained no usable schedule entries", model.ErrMalformedSchedule)
	}
	sort.SliceStable(snap.Issues, func(i, j int) bool { return snap.Issues[i].Key.String() < snap.Issues[j].Key.String() })
	return snap, nil
}

func normalizeSlots(key model.AreaKey, in []model.TimeSlot) ([]model.TimeSlot, []Issue) {
	out := make([]model.TimeSlot, 0, len(in))
	var issues []Issue
	for _, s := range in {
		if s.Stage == model.StageNone {
			s.Stage = 1
		}
		if err := s.Validate(); err != nil {
			issues = append(issues, Issue{Key: key, Reason: err.Error()})
			continue
		}
		out = append(out, s)
	}
	return out, issues
}

func sortSlots(slots []model.TimeSlot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Day != slots[j].Day {
			return slots[i].Day < slots[j].Day
		}
		if slots[i].Start != slots[j].Start {
			return slots[i].Start < slots[j].Start
		}
		return slots[i].Stage < slots[j].Stage
	})
}

// overlapIssues expects slots sorted by day and start.
func overlapIssues(key model.AreaKey, slots []model.TimeSlot) []Issue {
	var issues []Issue
	for i := 1; i < len(slots); i++ {
		a, b := slots[i-1], slots[i]
		if a.Day == b.Day && b.Start < a.End {
			issues = append(issues, Issue{
				Key:    key,
				Reason: fmt.Sprintf("%v: day %d slots %s-%s and %s-%s overlap", model.ErrMalformedSchedule, a.Day, a.Start, a.End, b.Start, b.End),
			})
		}
	}
	return issues
}

func appendUnique(dst []string, src ...string) []string {
	for _, s := range src {
		found := false
		for _, d := range dst {
			if d == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}
