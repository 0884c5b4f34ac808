package monitoring

import (
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/outagewatch/config"
	coremon "github.com/kilianp07/outagewatch/core/monitoring"
)

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestSentryMonitorTagsEvents(t *testing.T) {
	var mu sync.Mutex
	var events []*sentry.Event
	drop := func(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
		return nil
	}
	cfg := config.SentryConfig{DSN: "https://public@sentry.example.com/1"}
	cfg.SetDefaults()
	m, err := newSentryMonitor(cfg, drop)
	require.NoError(t, err)

	m.CaptureException(errors.New("feed down"), map[string]string{"module": "feed"})
	m.CaptureException(nil, nil)
	m.CaptureRecovered("boom", map[string]string{"facility_id": "f1"})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.Equal(t, "feed", events[0].Tags["module"])
	assert.Equal(t, "outagewatch", events[0].Tags["service"])
	assert.Equal(t, "production", events[0].Environment)
	assert.Equal(t, "f1", events[1].Tags["facility_id"])
	require.NotEmpty(t, events[1].Exception)
	assert.Equal(t, "panic: boom", events[1].Exception[0].Value)
}

func TestNewSentryMonitorBadDSN(t *testing.T) {
	_, err := NewSentryMonitor(config.SentryConfig{DSN: "::not a dsn"})
	assert.Error(t, err)
}
