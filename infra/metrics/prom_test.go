package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/outagewatch/core/metrics"
	"github.com/kilianp07/outagewatch/core/model"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	margin := -30.0
	require.NoError(t, sink.RecordAssessment(coremetrics.AssessmentEvent{
		FacilityID: "f1", Risk: model.RiskCritical, MarginMinutes: &margin, Duration: time.Millisecond,
	}))
	require.NoError(t, sink.RecordAlerts(coremetrics.AlertsEvent{Active: 7, Overflow: 2, MaxStage: 6}))
	require.NoError(t, sink.RecordReload(coremetrics.ReloadEvent{Version: 3, Areas: 12, Success: true}))
	require.NoError(t, sink.RecordReload(coremetrics.ReloadEvent{Version: 9, Success: false}))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.assessments.WithLabelValues("CRITICAL", "false")))
	assert.Equal(t, -30.0, testutil.ToFloat64(sink.margin.WithLabelValues("f1")))
	assert.Equal(t, 7.0, testutil.ToFloat64(sink.activeAlerts))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.overflow))
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.version), "failed reloads keep the served version")
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.reloads.WithLabelValues("false")))
}

func TestPromSinkReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, second.RecordAlerts(coremetrics.AlertsEvent{Active: 4}))
	assert.Equal(t, 4.0, testutil.ToFloat64(first.activeAlerts))
}
