package model

import (
	"fmt"
	"strings"
)

// BackupPowerStatus describes the condition of a facility's on-site backup
// supply. Values are ordered by decreasing reliability.
type BackupPowerStatus int

const (
	BackupFullyOperational BackupPowerStatus = iota
	BackupPartial
	BackupMinimal
	BackupNone
	BackupMaintenanceRequired
)

// String returns the canonical status name.
func (b BackupPowerStatus) String() string {
	switch b {
	case BackupFullyOperational:
		return "FULLY_OPERATIONAL"
	case BackupPartial:
		return "PARTIAL"
	case BackupMinimal:
		return "MINIMAL"
	case BackupNone:
		return "NONE"
	case BackupMaintenanceRequired:
		return "MAINTENANCE_REQUIRED"
	default:
		return "unknown"
	}
}

// MoreReliableThan reports whether b ranks above o in the reliability order.
func (b BackupPowerStatus) MoreReliableThan(o BackupPowerStatus) bool { return b < o }

// Degraded is true for statuses that provide some but unreliable backup.
func (b BackupPowerStatus) Degraded() bool {
	return b == BackupPartial || b == BackupMinimal || b == BackupMaintenanceRequired
}

// ParseBackupPowerStatus converts a status name to a BackupPowerStatus.
func ParseBackupPowerStatus(s string) (BackupPowerStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FULLY_OPERATIONAL":
		return BackupFullyOperational, nil
	case "PARTIAL":
		return BackupPartial, nil
	case "MINIMAL":
		return BackupMinimal, nil
	case "NONE":
		return BackupNone, nil
	case "MAINTENANCE_REQUIRED":
		return BackupMaintenanceRequired, nil
	default:
		return 0, fmt.Errorf("unknown backup power status: %s", s)
	}
}

func (b BackupPowerStatus) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *BackupPowerStatus) UnmarshalText(t []byte) error {
	v, err := ParseBackupPowerStatus(string(t))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// PriorityTier ranks equipment by clinical importance. LifeSupport is highest.
type PriorityTier int

const (
	TierLifeSupport PriorityTier = iota
	TierCriticalCare
	TierDiagnostic
	TierSupport
	TierNonEssential
)

// String returns the canonical tier name.
func (p PriorityTier) String() string {
	switch p {
	case TierLifeSupport:
		return "LIFE_SUPPORT"
	case TierCriticalCare:
		return "CRITICAL_CARE"
	case TierDiagnostic:
		return "DIAGNOSTIC"
	case TierSupport:
		return "SUPPORT"
	case TierNonEssential:
		return "NON_ESSENTIAL"
	default:
		return "unknown"
	}
}

// ParsePriorityTier converts a tier name to a PriorityTier.
func ParsePriorityTier(s string) (PriorityTier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LIFE_SUPPORT":
		return TierLifeSupport, nil
	case "CRITICAL_CARE":
		return TierCriticalCare, nil
	case "DIAGNOSTIC":
		return TierDiagnostic, nil
	case "SUPPORT":
		return TierSupport, nil
	case "NON_ESSENTIAL":
		return TierNonEssential, nil
	default:
		return 0, fmt.Errorf("unknown priority tier: %s", s)
	}
}

func (p PriorityTier) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *PriorityTier) UnmarshalText(t []byte) error {
	v, err := ParsePriorityTier(string(t))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// GeoLocation is a WGS84 coordinate.
type GeoLocation struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Facility is a registered healthcare site. It is referenced by ID only.
type Facility struct {
	ID       string      `json:"id" yaml:"id"`
	Name     string      `json:"name" yaml:"name"`
	Location GeoLocation `json:"location" yaml:"location"`
	Province string      `json:"province" yaml:"province"`
	Area     AreaKey     `json:"area" yaml:"area"`
}

// CriticalEquipment is a powered device the facility cannot lose lightly.
type CriticalEquipment struct {
	Name             string       `json:"name" yaml:"name"`
	PowerDrawW       float64      `json:"power_draw_w" yaml:"power_draw_w"`
	RuntimeMinutes   int          `json:"runtime_minutes" yaml:"runtime_minutes"`
	Tier             PriorityTier `json:"tier" yaml:"tier"`
	AlternativePower bool         `json:"alternative_power" yaml:"alternative_power"`
}

// FacilityProfile bundles a facility with its equipment inventory and the
// current state of its backup power.
type FacilityProfile struct {
	Facility  Facility            `json:"facility" yaml:"facility"`
	Equipment []CriticalEquipment `json:"equipment" yaml:"equipment"`
	Backup    BackupPowerStatus   `json:"backup" yaml:"backup"`
}

// Validate checks the mandatory fields of a profile.
func (p FacilityProfile) Validate() error {
	if p.Facility.ID == "" {
		return fmt.Errorf("facility id is required")
	}
	if p.Facility.Area.Municipality == "" || p.Facility.Area.Area == "" {
		return fmt.Errorf("facility %s: municipality and area are required", p.Facility.ID)
	}
	for _, e := range p.Equipment {
		if e.Name == "" {
			return fmt.Errorf("facility %s: equipment name is required", p.Facility.ID)
		}
		if e.RuntimeMinutes < 0 || e.PowerDrawW < 0 {
			return fmt.Errorf("facility %s: equipment %s has negative values", p.Facility.ID, e.Name)
		}
	}
	return nil
}
