package app

import (
	"context"
	"fmt"

	"github.com/kilianp07/outagewatch/config"
	"github.com/kilianp07/outagewatch/core/clock"
	"github.com/kilianp07/outagewatch/core/engine"
	"github.com/kilianp07/outagewatch/core/events"
	coremetrics "github.com/kilianp07/outagewatch/core/metrics"
	"github.com/kilianp07/outagewatch/infra/feed"
	"github.com/kilianp07/outagewatch/infra/logger"
	_ "github.com/kilianp07/outagewatch/infra/metrics" // registers metrics sinks
	"github.com/kilianp07/outagewatch/infra/registry"
	"github.com/kilianp07/outagewatch/internal/eventbus"
)

// Components are the parts built from configuration that the engine runs on.
type Components struct {
	Engine *engine.Engine
	Bus    *eventbus.Bus[events.Event]
	Sink   coremetrics.MetricsSink
	close  func() error
}

// Close releases the registry backend and closes the bus.
func (c *Components) Close() error {
	c.Bus.Close()
	if c.close != nil {
		return c.close()
	}
	return nil
}

// BuildEngine wires the feed, registry, metrics sink and bus described by
// cfg into an engine. The schedule is not loaded yet.
func BuildEngine(ctx context.Context, cfg *config.Config) (*Components, error) {
	loc, err := cfg.Schedule.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	f, err := feed.New(cfg.Schedule.Feed)
	if err != nil {
		return nil, fmt.Errorf("schedule feed: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	reg, closeReg, err := registry.New(ctx, cfg.Registry, logger.New("registry"))
	if err != nil {
		return nil, fmt.Errorf("facility registry: %w", err)
	}
	bus := eventbus.New[events.Event]()
	eng, err := engine.New(engine.Options{
		Feed:       f,
		Registry:   reg,
		Risk:       cfg.Risk,
		Location:   loc,
		AlertLimit: cfg.Alerts.Limit,
		Clock:      clock.System{},
		Sink:       sink,
		Bus:        bus,
		Logger:     logger.New("engine"),
	})
	if err != nil {
		bus.Close()
		_ = closeReg()
		return nil, err
	}
	return &Components{Engine: eng, Bus: bus, Sink: sink, close: closeReg}, nil
}
