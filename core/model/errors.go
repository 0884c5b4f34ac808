package model

import "errors"

var (
	// ErrNotFound is returned for unknown facilities or areas.
	ErrNotFound = errors.New("not found")
	// ErrStaleData flags a schedule snapshot older than the configured threshold.
	ErrStaleData = errors.New("schedule data is stale")
	// ErrMalformedSchedule marks overlapping, zero-length or out of range slots.
	ErrMalformedSchedule = errors.New("malformed schedule")
)
