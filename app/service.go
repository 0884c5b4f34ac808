package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/outagewatch/api/outage"
	"github.com/kilianp07/outagewatch/config"
	"github.com/kilianp07/outagewatch/core/events"
	"github.com/kilianp07/outagewatch/core/history"
	coremqtt "github.com/kilianp07/outagewatch/core/mqtt"
	"github.com/kilianp07/outagewatch/infra/logger"
	"github.com/kilianp07/outagewatch/infra/metrics"
	"github.com/kilianp07/outagewatch/infra/mqtt"
)

// Service runs the engine with its periodic reload, the alert scan, the
// HTTP API and the optional MQTT bridge.
type Service struct {
	*Components
	cfg       *config.Config
	publisher coremqtt.AlertPublisher
	mqtt      *mqtt.PahoClient
	history   history.Store
	reloads   chan coremqtt.ReloadRequest
	log       logger.Logger
}

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	comps, err := BuildEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}
	hist, err := history.New(cfg.History)
	if err != nil {
		_ = comps.Close()
		return nil, fmt.Errorf("alert history: %w", err)
	}
	svc := &Service{
		Components: comps,
		cfg:        cfg,
		history:    hist,
		reloads:    make(chan coremqtt.ReloadRequest, 1),
		log:        logger.New("service"),
	}
	if cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		if err := client.OnReload(svc.requestReload); err != nil {
			client.Disconnect()
			_ = svc.Close()
			return nil, err
		}
		svc.mqtt, svc.publisher = client, client
	}
	return svc, nil
}

func (s *Service) requestReload(r coremqtt.ReloadRequest) {
	select {
	case s.reloads <- r:
	default:
		s.log.Debugf("reload %s coalesced with a pending request", r.RequestID)
	}
}

// Run starts the service and blocks until the context is cancelled or the
// API server fails.
func (s *Service) Run(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	collected := metrics.StartEventCollector(ctx, s.Bus, s.Sink)
	defer func() { <-collected }()
	defer stop()

	if _, err := s.Engine.Reload(ctx); err != nil {
		s.log.Errorf("initial schedule load: %v", err)
	}

	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	srv := &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           outage.NewHandler(s.Engine, s.cfg.HTTP.Token, logger.New("api"), outage.WithHistory(s.history), outage.WithMaxHorizon(s.Engine.Lookahead())),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Infof("api listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	refresh := newTicker(s.cfg.Schedule.RefreshInterval())
	defer refresh.stop()
	scan := newTicker(s.cfg.Alerts.Interval())
	defer scan.stop()

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err := <-errc:
			runErr = fmt.Errorf("api server: %w", err)
			break loop
		case <-refresh.c:
			_, _ = s.Engine.Reload(ctx)
		case r := <-s.reloads:
			s.log.With(map[string]any{"request_id": r.RequestID, "source": r.Source}).Infof("schedule reload requested")
			_, _ = s.Engine.Reload(ctx)
		case <-scan.c:
			s.ScanAlerts(ctx)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warnf("api shutdown: %v", err)
	}
	return runErr
}

// ScanAlerts computes the active alerts, publishes them when a publisher is
// configured and appends the scan to the alert history.
func (s *Service) ScanAlerts(ctx context.Context) {
	list := s.Engine.ActiveAlerts(time.Time{}, s.cfg.Alerts.Limit)
	rec := history.Record{
		Timestamp: list.ComputedAt,
		Alerts:    list.Alerts,
		Total:     list.Total,
		Overflow:  list.Overflow,
		Skipped:   list.Skipped,
	}
	if s.publisher != nil {
		batchID, err := s.publisher.PublishAlerts(ctx, list)
		if err != nil {
			s.log.With(map[string]any{"batch_id": batchID, "alerts": len(list.Alerts)}).Errorf("publish alerts: %v", err)
			rec.Error = err.Error()
		}
		rec.BatchID, rec.Published = batchID, err == nil
		s.Bus.Publish(events.AlertsPublished{BatchID: batchID, Alerts: len(list.Alerts), Err: err, At: s.Engine.Now()})
	}
	if err := s.history.Append(ctx, rec); err != nil {
		s.log.Warnf("alert history: %v", err)
	}
}

// History returns the alert history store.
func (s *Service) History() history.Store { return s.history }

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	var herr error
	if s.history != nil {
		herr = s.history.Close()
	}
	return errors.Join(s.Components.Close(), herr)
}

type ticker struct {
	c <-chan time.Time
	t *time.Ticker
}

// newTicker returns a ticker that never fires when d is not positive.
func newTicker(d time.Duration) ticker {
	if d <= 0 {
		return ticker{}
	}
	t := time.NewTicker(d)
	return ticker{c: t.C, t: t}
}

func (t ticker) stop() {
	if t.t != nil {
		t.t.Stop()
	}
}
