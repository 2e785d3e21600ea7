package metrics

import (
	"io"

	"github.com/kilianp07/kitty3000/core/events"
)

// MetricsSink records dispenser events for observability purposes.
type MetricsSink interface {
	RecordCommand(ev events.CommandEvent) error
	RecordDispense(ev events.DispenseEvent) error
	RecordRecalibration(ev events.RecalibrationEvent) error
	RecordTreats(ev events.TreatsEvent) error
	RecordConfig(ev events.ConfigEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordCommand(events.CommandEvent) error             { return nil }
func (NopSink) RecordDispense(events.DispenseEvent) error           { return nil }
func (NopSink) RecordRecalibration(events.RecalibrationEvent) error { return nil }
func (NopSink) RecordTreats(events.TreatsEvent) error               { return nil }
func (NopSink) RecordConfig(events.ConfigEvent) error               { return nil }

// DropRecorder is implemented by sinks able to report events lost on a full
// bus subscription.
type DropRecorder interface {
	RecordDropped(n uint64) error
}

// Record routes ev to the matching sink method. Unknown events are ignored.
func Record(s MetricsSink, ev events.Event) error {
	switch e := ev.(type) {
	case events.CommandEvent:
		return s.RecordCommand(e)
	case events.DispenseEvent:
		return s.RecordDispense(e)
	case events.RecalibrationEvent:
		return s.RecordRecalibration(e)
	case events.TreatsEvent:
		return s.RecordTreats(e)
	case events.ConfigEvent:
		return s.RecordConfig(e)
	}
	return nil
}

// Close releases s if it holds resources such as an HTTP client.
func Close(s MetricsSink) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
