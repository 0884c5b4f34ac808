package metrics_test

import (
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/outagewatch/core/factory"
	metrics "github.com/kilianp07/outagewatch/core/metrics"
	_ "github.com/kilianp07/outagewatch/infra/metrics"
)

func TestSinkTypesRegistered(t *testing.T) {
	got := strings.Join(metrics.SinkTypes(), ",")
	if got != "influx,nop,prometheus" {
		t.Fatalf("unexpected sink types %s", got)
	}
}

func TestNewMetricsSinkCounts(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	if err != nil {
		t.Fatalf("single: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("single sink must not be wrapped, got %T", s)
	}
}

func TestMetricsConfigFromYAML(t *testing.T) {
	data := `prometheus_addr: ":9100"
sinks:
  - type: nop
  - type: influx
    conf:
      url: http://127.0.0.1:1
      org: health
      bucket: outages
`
	var cfg metrics.Config
	if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	if cfg.PrometheusAddr != ":9100" {
		t.Fatalf("unexpected addr %q", cfg.PrometheusAddr)
	}
	s, err := metrics.NewMetricsSink(cfg.Sinks)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m, ok := s.(*metrics.MultiSink)
	if !ok || len(m.Sinks) != 2 {
		t.Fatalf("expected MultiSink with two sinks, got %T", s)
	}
}

func TestNewMetricsSinkUnknownType(t *testing.T) {
	_, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "statsd"}})
	if err == nil || !strings.Contains(err.Error(), `sink 1: metrics sink "statsd"`) {
		t.Fatalf("expected indexed error, got %v", err)
	}
	if !errors.Is(err, factory.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}
