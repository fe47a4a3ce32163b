package metrics

import (
	"fmt"

	"github.com/kilianp07/unitcommit/core/factory"
)

// Built-in sinks live in infra/metrics and register themselves from init, so
// a binary only knows the sinks it links.
var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a sink factory under name. Names are the values
// accepted in metrics.sinks[].type.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink names.
func SinkTypes() []string { return sinkRegistry.Types() }

// NewMetricsSink builds the sinks listed in the metrics section. No entry
// yields a NopSink and a single entry is returned unwrapped. When an entry
// fails, the sinks already built are closed and the error names the entry.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	built := make([]MetricsSink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			CloseSinks(NewMultiSink(built...))
			return nil, fmt.Errorf("metrics sink #%d (%s): %w", i+1, c.Type, err)
		}
		built = append(built, s)
	}
	switch len(built) {
	case 0:
		return NopSink{}, nil
	case 1:
		return built[0], nil
	default:
		return NewMultiSink(built...), nil
	}
}

type closer interface{ Close() }

// CloseSinks closes sink, and every sink nested in a MultiSink, when it holds
// a connection.
func CloseSinks(sink MetricsSink) {
	if m, ok := sink.(*MultiSink); ok {
		for _, s := range m.Sinks {
			CloseSinks(s)
		}
		return
	}
	if c, ok := sink.(closer); ok {
		c.Close()
	}
}
