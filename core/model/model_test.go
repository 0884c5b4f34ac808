package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestStageTierMonotonic(t *testing.T) {
	prev := RiskLow
	for s := StageNone; s <= MaxStage; s++ {
		tier := s.Tier()
		if tier < prev {
			t.Fatalf("tier decreased at stage %d: %v < %v", s, tier, prev)
		}
		prev = tier
	}
	if Stage(9).Valid() || Stage(-1).Valid() {
		t.Fatalf("out of range stages reported valid")
	}
	if StageNone.Label() != "No load shedding" || Stage(4).Label() != "Stage 4" {
		t.Fatalf("unexpected labels %q %q", StageNone.Label(), Stage(4).Label())
	}
}

func TestParseClockTime(t *testing.T) {
	cases := []struct {
		in      string
		want    ClockTime
		wantErr bool
	}{
		{"08:00", NewClockTime(8, 0), false},
		{"23:30", NewClockTime(23, 30), false},
		{"24:00", NewClockTime(24, 0), false},
		{"24:30", 0, true},
		{"10:75", 0, true},
		{"noon", 0, true},
	}
	for _, c := range cases {
		got, err := ParseClockTime(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", c.in)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Errorf("%s: got %v err %v", c.in, got, err)
		}
	}
}

func TestTimeSlotValidate(t *testing.T) {
	ok := TimeSlot{Day: 1, Start: NewClockTime(8, 0), End: NewClockTime(10, 0), Stage: 2}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid slot rejected: %v", err)
	}
	if ok.Duration() != 2*time.Hour {
		t.Fatalf("duration %v", ok.Duration())
	}
	bad := []TimeSlot{
		{Day: 0, Start: 0, End: 60},
		{Day: 8, Start: 0, End: 60},
		{Day: 1, Start: 60, End: 60},
		{Day: 1, Start: 120, End: 60},
		{Day: 1, Start: 0, End: 60, Stage: 9},
	}
	for _, s := range bad {
		err := s.Validate()
		if !errors.Is(err, ErrMalformedSchedule) {
			t.Errorf("slot %+v: expected malformed error, got %v", s, err)
		}
	}
}

func TestOutageWindowContainsExclusiveEnd(t *testing.T) {
	start := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	w := OutageWindow{Start: start, End: start.Add(2 * time.Hour), Stage: 2}
	if !w.Contains(start) {
		t.Fatalf("start must be inside")
	}
	if w.Contains(start.Add(2 * time.Hour)) {
		t.Fatalf("end must be outside")
	}
	if w.Contains(start.Add(-time.Nanosecond)) {
		t.Fatalf("before start must be outside")
	}
}

func TestParseAreaKey(t *testing.T) {
	k, err := ParseAreaKey(" Tshwane/Centurion/B7")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if k != (AreaKey{Municipality: "tshwane", Area: "centurion", Block: "b7"}) {
		t.Fatalf("unexpected key %#v", k)
	}
	if k.String() != "tshwane/centurion/b7" || k.AreaOnly().String() != "tshwane/centurion" {
		t.Fatalf("unexpected string forms %s %s", k, k.AreaOnly())
	}
	for _, in := range []string{"", "tshwane", "a/b/c/d", "/area"} {
		if _, err := ParseAreaKey(in); err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}

func TestEnumTextRoundTrip(t *testing.T) {
	type doc struct {
		Backup BackupPowerStatus `json:"backup"`
		Tier   PriorityTier      `json:"tier"`
		Risk   RiskTier          `json:"risk"`
		Start  ClockTime         `json:"start"`
	}
	in := `{"backup":"maintenance_required","tier":"LIFE_SUPPORT","risk":"HIGH","start":"06:30"}`
	var d doc
	if err := json.Unmarshal([]byte(in), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Backup != BackupMaintenanceRequired || d.Tier != TierLifeSupport || d.Risk != RiskHigh || d.Start != NewClockTime(6, 30) {
		t.Fatalf("unexpected decode %#v", d)
	}
	if err := json.Unmarshal([]byte(`{"backup":"SOMETIMES"}`), &d); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestBackupReliabilityOrder(t *testing.T) {
	order := []BackupPowerStatus{BackupFullyOperational, BackupPartial, BackupMinimal, BackupNone, BackupMaintenanceRequired}
	for i := 1; i < len(order); i++ {
		if !order[i-1].MoreReliableThan(order[i]) {
			t.Fatalf("%v should be more reliable than %v", order[i-1], order[i])
		}
	}
	if BackupNone.Degraded() || BackupFullyOperational.Degraded() || !BackupMinimal.Degraded() {
		t.Fatalf("degraded classification wrong")
	}
}

func TestFacilityProfileValidate(t *testing.T) {
	p := FacilityProfile{Facility: Facility{ID: "f1", Area: AreaKey{Municipality: "m", Area: "a"}}}
	if err := p.Validate(); err != nil {
		t.Fatalf("valid profile rejected: %v", err)
	}
	p.Equipment = []CriticalEquipment{{Name: "", RuntimeMinutes: 10}}
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error for unnamed equipment")
	}
	if err := (FacilityProfile{}).Validate(); err == nil {
		t.Fatalf("expected error for empty profile")
	}
}
