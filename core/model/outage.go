package model

import "time"

// OutageWindow is one concrete outage for a block, derived from a schedule
// and a reference time. Start is inclusive, End exclusive.
type OutageWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Stage Stage     `json:"stage"`
}

// Contains reports whether t falls inside the window.
func (w OutageWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Duration returns the length of the window.
func (w OutageWindow) Duration() time.Duration { return w.End.Sub(w.Start) }

// PowerOutageAlert is the dashboard projection of a facility currently in an
// outage window.
type PowerOutageAlert struct {
	FacilityID   string            `json:"facility_id"`
	FacilityName string            `json:"facility_name"`
	Stage        Stage             `json:"stage"`
	Start        time.Time         `json:"start"`
	End          time.Time         `json:"end"`
	Backup       BackupPowerStatus `json:"backup"`
}

// PowerRiskAssessment is the outcome of a risk query for one facility.
type PowerRiskAssessment struct {
	FacilityID        string            `json:"facility_id"`
	Risk              RiskTier          `json:"risk"`
	Stage             Stage             `json:"stage"`
	Backup            BackupPowerStatus `json:"backup"`
	BackupReady       bool              `json:"backup_ready"`
	Active            *OutageWindow     `json:"active,omitempty"`
	Next              *OutageWindow     `json:"next,omitempty"`
	MarginMinutes     *float64          `json:"margin_minutes,omitempty"`
	Recommendations   []string          `json:"recommendations"`
	EmergencyContacts []string          `json:"emergency_contacts,omitempty"`
	Stale             bool              `json:"stale"`
	Confidence        Confidence        `json:"confidence"`
	AssessedAt        time.Time         `json:"assessed_at"`
}
