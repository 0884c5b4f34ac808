package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/outagewatch/core/events"
	coremetrics "github.com/kilianp07/outagewatch/core/metrics"
	"github.com/kilianp07/outagewatch/core/model"
	"github.com/kilianp07/outagewatch/internal/eventbus"
)

type captureSink struct {
	coremetrics.NopSink
	mu      sync.Mutex
	reloads []coremetrics.ReloadEvent
	alerts  []coremetrics.AlertsEvent
	pubs    []coremetrics.PublishEvent
}

func (c *captureSink) RecordPublish(ev coremetrics.PublishEvent) error {
	c.mu.Lock()
	c.pubs = append(c.pubs, ev)
	c.mu.Unlock()
	return nil
}

func (c *captureSink) RecordReload(ev coremetrics.ReloadEvent) error {
	c.mu.Lock()
	c.reloads = append(c.reloads, ev)
	c.mu.Unlock()
	return nil
}

func (c *captureSink) RecordAlerts(ev coremetrics.AlertsEvent) error {
	c.mu.Lock()
	c.alerts = append(c.alerts, ev)
	c.mu.Unlock()
	return nil
}

func TestEventCollector(t *testing.T) {
	bus := eventbus.New[events.Event]()
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := StartEventCollector(ctx, bus, sink)

	bus.Publish(events.ScheduleReloaded{Version: 2, Areas: 5, At: time.Now()})
	bus.Publish(events.AlertsComputed{
		Alerts: []model.PowerOutageAlert{{Stage: 4}, {Stage: 6}},
		Total:  3, Overflow: 1,
	})
	bus.Publish(events.AlertsPublished{BatchID: "b1", Alerts: 2})
	bus.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop after bus close")
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.reloads) != 1 || !sink.reloads[0].Success || sink.reloads[0].Version != 2 {
		t.Fatalf("unexpected reloads %#v", sink.reloads)
	}
	if len(sink.alerts) != 1 || sink.alerts[0].MaxStage != 6 || sink.alerts[0].Active != 3 {
		t.Fatalf("unexpected alerts %#v", sink.alerts)
	}
	if len(sink.pubs) != 1 || sink.pubs[0].BatchID != "b1" || sink.pubs[0].Alerts != 2 {
		t.Fatalf("unexpected publications %#v", sink.pubs)
	}
}
