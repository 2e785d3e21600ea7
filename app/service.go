package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/kitty3000/config"
	"github.com/kilianp07/kitty3000/core/dispenser"
	"github.com/kilianp07/kitty3000/core/events"
	coremetrics "github.com/kilianp07/kitty3000/core/metrics"
	"github.com/kilianp07/kitty3000/core/model"
	coremqtt "github.com/kilianp07/kitty3000/core/mqtt"
	"github.com/kilianp07/kitty3000/infra/homeassistant"
	"github.com/kilianp07/kitty3000/infra/logger"
	"github.com/kilianp07/kitty3000/infra/metrics"
	"github.com/kilianp07/kitty3000/infra/motor"
	"github.com/kilianp07/kitty3000/infra/mqtt"
	"github.com/kilianp07/kitty3000/internal/eventbus"
)

// Service wires the transport, the motor and the dispatch loop of one
// dispenser.
type Service struct {
	Dispenser *dispenser.Dispenser
	State     *dispenser.State
	Topics    dispenser.Topics

	client transport
	bus    *eventbus.Bus[events.Event]
	sink   coremetrics.MetricsSink
	listen string
	log    logger.Logger
}

// transport is the slice of *mqtt.PahoClient the service drives directly.
type transport interface {
	coremqtt.Client
	Connect(ctx context.Context) error
	IsConnectionOpen() bool
	Disconnect()
}

// New creates a Service from the configuration. No connection is made
// until Run.
func New(cfg *config.Config) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	settings := cfg.Logging.Settings()
	settings.Device = cfg.Device.ID
	if err := logger.Configure(settings); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	logg := logger.New("service")
	topics := cfg.Device.Topics()

	mqttCfg := cfg.MQTT
	mqttCfg.LWTTopic = topics.Availability
	mqttCfg.LWTPayload = string(model.Offline)
	mqttCfg.LWTRetain = true
	client, err := mqtt.NewPahoClient(mqttCfg)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}

	m, err := motor.New(cfg.Motor)
	if err != nil {
		return nil, fmt.Errorf("motor: %w", err)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	state := dispenser.NewState()
	disp, err := dispenser.New(state, client, m, topics, dispenser.Options{
		DeviceID:           cfg.Device.ID,
		Capacity:           cfg.Device.Capacity,
		Version:            cfg.Device.Version,
		DispenseAngle:      cfg.Device.DispenseAngle,
		IdleInterval:       cfg.Dispenser.IdleInterval,
		ConfigPollInterval: cfg.Dispenser.ConfigPollInterval,
	}, logger.New("dispenser"))
	if err != nil {
		return nil, err
	}
	if cfg.Discovery.Enabled {
		disp.SetDiscovery(homeassistant.NewPublisher(client, cfg.Discovery))
	} else {
		logg.Infof("home assistant discovery disabled")
	}
	bus := eventbus.New[events.Event]()
	disp.SetEventBus(bus)
	client.OnConnect(disp.OnConnect)

	return &Service{
		Dispenser: disp,
		State:     state,
		Topics:    topics,
		client:    client,
		bus:       bus,
		sink:      sink,
		listen:    cfg.Metrics.Listen,
		log:       logg,
	}, nil
}

// Run connects to the broker and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("metrics"))
	if s.listen != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.listen); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if err := s.client.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	s.log.Infof("dispenser started on %s", s.Topics.Command)
	return s.Dispenser.Run(ctx)
}

// Close marks the device offline and releases resources held by the
// service. A clean disconnect does not trigger the last will, so offline is
// published explicitly while a session is open. Without one the broker has
// already sent the will, or will send it.
func (s *Service) Close() error {
	var errs []error
	if s.client.IsConnectionOpen() {
		if err := s.client.Publish(s.Topics.Availability, []byte(model.Offline), true); err != nil && !errors.Is(err, coremqtt.ErrNotConnected) {
			errs = append(errs, fmt.Errorf("publish offline: %w", err))
		}
	} else {
		s.log.Debugf("no open session, %s left to the last will", s.Topics.Availability)
	}
	s.client.Disconnect()
	s.bus.Close()
	if err := coremetrics.Close(s.sink); err != nil {
		errs = append(errs, fmt.Errorf("close metrics sink: %w", err))
	}
	return errors.Join(errs...)
}
