package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/kitty3000/core/events"
	coremetrics "github.com/kilianp07/kitty3000/core/metrics"
)

// PromSink records dispenser events in Prometheus metrics.
type PromSink struct {
	commands       *prometheus.CounterVec
	dispenses      prometheus.Counter
	recalibrations *prometheus.CounterVec
	treats         prometheus.Gauge
	configs        prometheus.Counter
	dropped        prometheus.Counter
}

var _ coremetrics.DropRecorder = (*PromSink)(nil)

// NewPromSink registers dispenser metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kitty3000_commands_total",
			Help: "Commands handled by the dispatch loop",
		}, []string{"command", "success"}),
		dispenses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kitty3000_dispenses_total",
			Help: "Completed dispense cycles",
		}),
		recalibrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kitty3000_recalibrations_total",
			Help: "Corrective rotations by reason",
		}, []string{"reason"}),
		treats: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kitty3000_treats_remaining",
			Help: "Treats left in the dispenser",
		}),
		configs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kitty3000_remote_config_updates_total",
			Help: "Accepted remote configuration messages",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kitty3000_events_dropped_total",
			Help: "Telemetry events lost on a full subscription",
		}),
	}
	var err error
	if s.commands, err = register(reg, s.commands); err != nil {
		return nil, err
	}
	if s.dispenses, err = register(reg, s.dispenses); err != nil {
		return nil, err
	}
	if s.recalibrations, err = register(reg, s.recalibrations); err != nil {
		return nil, err
	}
	if s.treats, err = register(reg, s.treats); err != nil {
		return nil, err
	}
	if s.configs, err = register(reg, s.configs); err != nil {
		return nil, err
	}
	if s.dropped, err = register(reg, s.dropped); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when c was registered
// by an earlier sink.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (s *PromSink) RecordCommand(ev events.CommandEvent) error {
	s.commands.WithLabelValues(ev.Command.String(), strconv.FormatBool(ev.Err == nil)).Inc()
	return nil
}

func (s *PromSink) RecordDispense(events.DispenseEvent) error {
	s.dispenses.Inc()
	return nil
}

func (s *PromSink) RecordRecalibration(ev events.RecalibrationEvent) error {
	s.recalibrations.WithLabelValues(ev.Reason).Inc()
	return nil
}

func (s *PromSink) RecordTreats(ev events.TreatsEvent) error {
	s.treats.Set(float64(ev.Remaining))
	return nil
}

func (s *PromSink) RecordConfig(events.ConfigEvent) error {
	s.configs.Inc()
	return nil
}

// RecordDropped adds n to the dropped events counter.
func (s *PromSink) RecordDropped(n uint64) error {
	s.dropped.Add(float64(n))
	return nil
}
