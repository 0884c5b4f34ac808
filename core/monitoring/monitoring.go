// Package monitoring reports unexpected per-facility failures to an error
// tracker without interrupting the query that hit them.
package monitoring

import (
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// CaptureRecovered reports a value recovered from a panic.
	CaptureRecovered(v any, tags map[string]string)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CaptureRecovered(any, map[string]string)   {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	get().CaptureException(err, tags)
}

// CaptureRecovered records a recovered panic value with optional tags.
func CaptureRecovered(v any, tags map[string]string) {
	if v == nil {
		return
	}
	get().CaptureRecovered(v, tags)
}

// Flush flushes buffered events.
func Flush(d time.Duration) { get().Flush(d) }
