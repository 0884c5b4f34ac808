package risk

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/outagewatch/core/model"
	"github.com/kilianp07/outagewatch/core/schedule"
	"github.com/kilianp07/outagewatch/core/stage"
)

// monday is 2025-03-03, a Monday.
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func snapshot(t *testing.T, loadedAt time.Time, slots ...model.TimeSlot) *schedule.Snapshot {
	t.Helper()
	snap, err := schedule.Build(schedule.FeedData{Entries: []model.ScheduleEntry{{
		Municipality: "tshwane", Area: "centurion", Block: "b1",
		Slots: slots, EmergencyContacts: []string{"012 358 9999"},
	}}}, 1, loadedAt)
	require.NoError(t, err)
	return snap
}

func slot(day, fromH, toH int, st model.Stage) model.TimeSlot {
	return model.TimeSlot{Day: day, Start: model.NewClockTime(fromH, 0), End: model.NewClockTime(toH, 0), Stage: st}
}

func profile(backup model.BackupPowerStatus, eq ...model.CriticalEquipment) model.FacilityProfile {
	return model.FacilityProfile{
		Facility: model.Facility{ID: "clinic-1", Name: "Centurion Clinic",
			Area: model.AreaKey{Municipality: "tshwane", Area: "centurion", Block: "b1"}},
		Equipment: eq,
		Backup:    backup,
	}
}

func newAssessor() *Assessor { return NewAssessor(Config{}, stage.NewResolver(time.UTC), nil) }

func TestAssessCriticalWhenLifeSupportCannotBridge(t *testing.T) {
	snap := snapshot(t, monday, slot(1, 8, 10, 4))
	p := profile(model.BackupPartial, model.CriticalEquipment{Name: "ventilator", PowerDrawW: 400, RuntimeMinutes: 90, Tier: model.TierLifeSupport})

	res := newAssessor().Assess(snap, p, monday.Add(9*time.Hour))

	assert.Equal(t, model.RiskCritical, res.Risk)
	assert.Equal(t, model.Stage(4), res.Stage)
	assert.False(t, res.BackupReady)
	require.NotNil(t, res.MarginMinutes)
	assert.Equal(t, -30.0, *res.MarginMinutes)
	assert.Equal(t, []string{RecArrangeAlternatePower("ventilator"), RecServiceBackup}, res.Recommendations)
	assert.Equal(t, []string{"012 358 9999"}, res.EmergencyContacts)
	assert.Equal(t, model.ConfidenceHigh, res.Confidence)
}

func TestAssessLowWhenNextOutageFarAndLowStage(t *testing.T) {
	snap := snapshot(t, monday, slot(1, 8, 10, 2))
	res := newAssessor().Assess(snap, profile(model.BackupFullyOperational), monday.Add(2*time.Hour))

	assert.Equal(t, model.RiskLow, res.Risk)
	assert.True(t, res.BackupReady)
	assert.Nil(t, res.Active)
	require.NotNil(t, res.Next)
	assert.Equal(t, monday.Add(8*time.Hour), res.Next.Start)
	assert.Empty(t, res.Recommendations)
	assert.Nil(t, res.MarginMinutes)
}

func TestAssessNextIsFollowingWindowWhenInside(t *testing.T) {
	snap := snapshot(t, monday, slot(1, 8, 10, 2), slot(1, 16, 18, 2))
	res := newAssessor().Assess(snap, profile(model.BackupFullyOperational), monday.Add(9*time.Hour))
	require.NotNil(t, res.Active)
	require.NotNil(t, res.Next)
	assert.Equal(t, monday.Add(16*time.Hour), res.Next.Start)

	// exactly at the end of the window the facility is out of it
	res = newAssessor().Assess(snap, profile(model.BackupFullyOperational), monday.Add(10*time.Hour))
	assert.Nil(t, res.Active)
	assert.Equal(t, model.StageNone, res.Stage)
}

func TestAssessHighForDegradedBackupBeforeImminentOutage(t *testing.T) {
	snap := snapshot(t, monday, slot(1, 8, 10, 2))
	for _, b := range []model.BackupPowerStatus{model.BackupPartial, model.BackupMinimal, model.BackupMaintenanceRequired} {
		res := newAssessor().Assess(snap, profile(b), monday.Add(6*time.Hour+30*time.Minute))
		assert.Equal(t, model.RiskHigh, res.Risk, "backup %s", b)
		assert.Contains(t, res.Recommendations, RecServiceBackup)
	}
	// three hours ahead is no longer imminent
	res := newAssessor().Assess(snap, profile(model.BackupMinimal), monday.Add(5*time.Hour))
	assert.Equal(t, model.RiskLow, res.Risk)
}

func TestAssessModerateForElevatedStageWithin24h(t *testing.T) {
	snap := snapshot(t, monday, slot(2, 6, 8, 4))
	res := newAssessor().Assess(snap, profile(model.BackupFullyOperational), monday.Add(12*time.Hour))
	assert.Equal(t, model.RiskModerate, res.Risk)

	res = newAssessor().Assess(snap, profile(model.BackupFullyOperational), monday.Add(5*time.Hour))
	assert.Equal(t, model.RiskLow, res.Risk, "25 hours ahead is outside the horizon")
}

func TestAssessCriticalWithoutBackupDuringOutage(t *testing.T) {
	snap := snapshot(t, monday, slot(1, 8, 10, 1))
	res := newAssessor().Assess(snap, profile(model.BackupNone), monday.Add(8*time.Hour))
	assert.Equal(t, model.RiskCritical, res.Risk)
	assert.False(t, res.BackupReady)
}

func TestAssessEmergencyProtocolAndPartialReady(t *testing.T) {
	snap := snapshot(t, monday, slot(1, 8, 10, 6))
	p := profile(model.BackupPartial,
		model.CriticalEquipment{Name: "incubator", RuntimeMinutes: 240, Tier: model.TierLifeSupport},
		model.CriticalEquipment{Name: "lab fridge", RuntimeMinutes: 30, Tier: model.TierSupport, AlternativePower: true},
		model.CriticalEquipment{Name: "kettle", RuntimeMinutes: 0, Tier: model.TierNonEssential},
	)
	res := newAssessor().Assess(snap, p, monday.Add(3*time.Hour))

	assert.True(t, res.BackupReady, "partial backup with a positive margin is ready")
	assert.Equal(t, model.RiskModerate, res.Risk)
	assert.Equal(t, []string{
		RecSwitchAlternatePower("lab fridge"),
		RecServiceBackup,
		RecEmergencyProtocol,
	}, res.Recommendations)
}

func TestAssessUnavailableSchedule(t *testing.T) {
	snap := snapshot(t, monday, slot(1, 8, 10, 6))
	p := profile(model.BackupNone)
	p.Facility.Area = model.AreaKey{Municipality: "johannesburg", Area: "soweto"}

	res := newAssessor().Assess(snap, p, monday.Add(9*time.Hour))
	assert.Equal(t, model.RiskLow, res.Risk)
	assert.Equal(t, []string{RecScheduleUnavailable}, res.Recommendations)
	assert.Equal(t, model.ConfidenceLow, res.Confidence)
}

func TestAssessStaleSnapshot(t *testing.T) {
	snap := snapshot(t, monday, slot(1, 8, 10, 2))
	a := NewAssessor(Config{StaleAfterMinutes: 60}, stage.NewResolver(time.UTC), nil)
	res := a.Assess(snap, profile(model.BackupFullyOperational), monday.Add(3*time.Hour))
	assert.True(t, res.Stale)
	assert.Equal(t, model.ConfidenceLow, res.Confidence)
	assert.Equal(t, RecStaleSchedule, res.Recommendations[len(res.Recommendations)-1])
}

func TestAssessIdempotent(t *testing.T) {
	snap := snapshot(t, monday, slot(1, 8, 10, 5), slot(3, 12, 14, 2))
	p := profile(model.BackupMinimal,
		model.CriticalEquipment{Name: "ventilator", RuntimeMinutes: 60, Tier: model.TierLifeSupport, PowerDrawW: 400},
		model.CriticalEquipment{Name: "dialysis", RuntimeMinutes: 45, Tier: model.TierLifeSupport, PowerDrawW: 600},
	)
	a := newAssessor()
	now := monday.Add(9 * time.Hour)
	first, err := json.Marshal(a.Assess(snap, p, now))
	require.NoError(t, err)
	second, err := json.Marshal(a.Assess(snap, p, now))
	require.NoError(t, err)
	if !bytes.Equal(first, second) {
		t.Fatalf("assessments differ:\n%s\n%s", first, second)
	}
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, 120, c.ImminentMinutes)
	assert.Equal(t, 3, c.ElevatedStage)
	assert.NoError(t, c.Validate())
	c.EmergencyStage = 9
	assert.Error(t, c.Validate())
}
