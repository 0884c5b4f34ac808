// Package metrics defines the sinks that observe the risk engine. A sink
// must record assessments and may additionally implement AlertRecorder,
// ReloadRecorder or PublishRecorder. Sinks like PromSink and InfluxSink live
// in infra/metrics and register themselves with the factory; NewMetricsSink
// returns a MultiSink automatically when several sinks are configured.
package metrics
