// Package events defines the events emitted on the engine's event bus.
//
// Available event types:
//   - ScheduleReloaded: a new schedule snapshot was swapped in, or a reload failed
//   - AlertsComputed: an alert scan finished
package events
