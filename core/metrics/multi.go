package metrics

import (
	"errors"

	"github.com/kilianp07/kitty3000/core/events"
)

// MultiSink fans events out to multiple sinks. Every sink is called even if
// an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) each(fn func(MetricsSink) error) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordCommand(ev events.CommandEvent) error {
	return m.each(func(s MetricsSink) error { return s.RecordCommand(ev) })
}

func (m *MultiSink) RecordDispense(ev events.DispenseEvent) error {
	return m.each(func(s MetricsSink) error { return s.RecordDispense(ev) })
}

func (m *MultiSink) RecordRecalibration(ev events.RecalibrationEvent) error {
	return m.each(func(s MetricsSink) error { return s.RecordRecalibration(ev) })
}

func (m *MultiSink) RecordTreats(ev events.TreatsEvent) error {
	return m.each(func(s MetricsSink) error { return s.RecordTreats(ev) })
}

func (m *MultiSink) RecordConfig(ev events.ConfigEvent) error {
	return m.each(func(s MetricsSink) error { return s.RecordConfig(ev) })
}

// RecordDropped forwards to sinks implementing DropRecorder.
func (m *MultiSink) RecordDropped(n uint64) error {
	return m.each(func(s MetricsSink) error {
		if dr, ok := s.(DropRecorder); ok {
			return dr.RecordDropped(n)
		}
		return nil
	})
}

// Close closes every sink holding resources.
func (m *MultiSink) Close() error {
	return m.each(Close)
}
