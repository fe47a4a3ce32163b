// Package infra contains technical adapters such as the solver backends, the
// MQTT publisher and the metrics sinks. These packages should depend only on
// the interfaces defined in the core packages.
package infra
