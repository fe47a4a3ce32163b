// Package metrics defines the sinks that record planning runs. Sinks like
// PromSink and InfluxSink (in infra/metrics) are registered by name and
// created from configuration; NewMetricsSink returns a MultiSink when several
// are configured. StartEventCollector feeds a sink from the planner event bus.
package metrics
