package metrics

import (
	"context"

	"github.com/kilianp07/outagewatch/core/events"
	coremetrics "github.com/kilianp07/outagewatch/core/metrics"
	"github.com/kilianp07/outagewatch/core/model"
	"github.com/kilianp07/outagewatch/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// reload and alert events. It stops when the context is canceled or the bus
// is closed. The returned channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.Event], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				record(sink, ev)
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev events.Event) {
	switch e := ev.(type) {
	case events.ScheduleReloaded:
		if r, ok := sink.(coremetrics.ReloadRecorder); ok {
			_ = r.RecordReload(coremetrics.ReloadEvent{
				Version:  e.Version,
				Areas:    e.Areas,
				Issues:   e.Issues,
				Success:  e.Err == nil,
				Duration: e.Duration,
				Time:     e.At,
			})
		}
	case events.AlertsComputed:
		if r, ok := sink.(coremetrics.AlertRecorder); ok {
			var maxStage model.Stage
			for _, a := range e.Alerts {
				if a.Stage > maxStage {
					maxStage = a.Stage
				}
			}
			_ = r.RecordAlerts(coremetrics.AlertsEvent{
				Active:   e.Total,
				Overflow: e.Overflow,
				Skipped:  e.Skipped,
				MaxStage: maxStage,
				Time:     e.At,
			})
		}
	case events.AlertsPublished:
		if r, ok := sink.(coremetrics.PublishRecorder); ok {
			_ = r.RecordPublish(coremetrics.PublishEvent{BatchID: e.BatchID, Alerts: e.Alerts, Err: e.Err, Time: e.At})
		}
	}
}
