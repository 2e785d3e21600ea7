// Package metrics defines the sinks recording dispenser telemetry. Sinks
// such as PromSink and InfluxSink are registered by infra/metrics and built
// from configuration with NewMetricsSink; several configured sinks are
// combined in a MultiSink. Events reach the sinks through the event bus.
package metrics
