package model

import (
	"fmt"
	"strings"
	"time"
)

// AreaKey identifies a municipality area and optionally one rotation block
// inside it. Keys are compared after normalization.
type AreaKey struct {
	Municipality string `json:"municipality" yaml:"municipality"`
	Area         string `json:"area" yaml:"area"`
	Block        string `json:"block,omitempty" yaml:"block,omitempty"`
}

// Normalize lower-cases and trims all parts of the key.
func (k AreaKey) Normalize() AreaKey {
	return AreaKey{
		Municipality: strings.ToLower(strings.TrimSpace(k.Municipality)),
		Area:         strings.ToLower(strings.TrimSpace(k.Area)),
		Block:        strings.ToLower(strings.TrimSpace(k.Block)),
	}
}

// AreaOnly drops the block from the key.
func (k AreaKey) AreaOnly() AreaKey {
	return AreaKey{Municipality: k.Municipality, Area: k.Area}
}

func (k AreaKey) String() string {
	if k.Block == "" {
		return k.Municipality + "/" + k.Area
	}
	return k.Municipality + "/" + k.Area + "/" + k.Block
}

// ParseAreaKey parses "municipality/area[/block]".
func ParseAreaKey(s string) (AreaKey, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return AreaKey{}, fmt.Errorf("invalid area key %q", s)
	}
	k := AreaKey{Municipality: parts[0], Area: parts[1]}
	if len(parts) == 3 {
		k.Block = parts[2]
	}
	k = k.Normalize()
	if k.Municipality == "" || k.Area == "" {
		return AreaKey{}, fmt.Errorf("invalid area key %q", s)
	}
	return k, nil
}

// ClockTime is a time of day expressed in minutes after midnight. 24:00 is
// allowed as an end of day marker.
type ClockTime int

const minutesPerDay = 24 * 60

// NewClockTime builds a ClockTime from hours and minutes.
func NewClockTime(h, m int) ClockTime { return ClockTime(h*60 + m) }

// ParseClockTime parses "HH:MM".
func ParseClockTime(s string) (ClockTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return NewClockTime(h, m), nil
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute()) }

func (c ClockTime) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ClockTime) UnmarshalText(b []byte) error {
	v, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ISOWeekday converts a time.Weekday to 1 (Monday) .. 7 (Sunday).
func ISOWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// TimeSlot is one recurring weekly outage slot of a block. Stage is the
// lowest published stage at which the slot sheds the block.
type TimeSlot struct {
	Day   int       `json:"day" yaml:"day"`
	Start ClockTime `json:"start" yaml:"start"`
	End   ClockTime `json:"end" yaml:"end"`
	Stage Stage     `json:"stage" yaml:"stage"`
}

// Duration is the length of the slot. Invalid slots report zero.
func (s TimeSlot) Duration() time.Duration {
	if s.End <= s.Start {
		return 0
	}
	return time.Duration(s.End-s.Start) * time.Minute
}

// Validate enforces day range, start < end within one day and a known stage.
func (s TimeSlot) Validate() error {
	if s.Day < 1 || s.Day > 7 {
		return fmt.Errorf("%w: day %d out of range", ErrMalformedSchedule, s.Day)
	}
	if s.Start < 0 || s.End > minutesPerDay {
		return fmt.Errorf("%w: slot %s-%s outside the day", ErrMalformedSchedule, s.Start, s.End)
	}
	if s.End <= s.Start {
		return fmt.Errorf("%w: slot %s-%s has no duration", ErrMalformedSchedule, s.Start, s.End)
	}
	if !s.Stage.Valid() {
		return fmt.Errorf("%w: stage %d out of range", ErrMalformedSchedule, s.Stage)
	}
	return nil
}

// ScheduleEntry is the published rotating schedule for one block.
type ScheduleEntry struct {
	Municipality      string     `json:"municipality" yaml:"municipality"`
	Area              string     `json:"area" yaml:"area"`
	Block             string     `json:"block" yaml:"block"`
	ExternalID        string     `json:"external_id" yaml:"external_id"`
	Slots             []TimeSlot `json:"slots" yaml:"slots"`
	EmergencyContacts []string   `json:"emergency_contacts" yaml:"emergency_contacts"`
}

// Key returns the normalized block key of the entry.
func (e ScheduleEntry) Key() AreaKey {
	return AreaKey{Municipality: e.Municipality, Area: e.Area, Block: e.Block}.Normalize()
}
