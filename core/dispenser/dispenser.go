package dispenser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kilianp07/kitty3000/core/discovery"
	"github.com/kilianp07/kitty3000/core/events"
	"github.com/kilianp07/kitty3000/core/logger"
	"github.com/kilianp07/kitty3000/core/model"
	"github.com/kilianp07/kitty3000/core/motor"
	"github.com/kilianp07/kitty3000/core/mqtt"
)

// ErrNotConfigured is returned when a command needing the remote
// configuration runs before one was accepted. Run prevents this by waiting
// for the configuration first.
var ErrNotConfigured = errors.New("dispenser: remote config not available")

const (
	// DefaultDispenseAngle is the rotation releasing a single treat.
	DefaultDispenseAngle = 30.44
	// DefaultIdleInterval bounds the wait of an idle tick.
	DefaultIdleInterval = 500 * time.Millisecond

	reasonManual   = "manual"
	reasonPeriodic = "periodic"
)

// Options tune the dispatch loop and describe the local device.
type Options struct {
	DeviceID           string
	Capacity           int
	Version            string
	DispenseAngle      float64
	IdleInterval       time.Duration
	ConfigPollInterval time.Duration
}

func (o *Options) setDefaults() {
	if o.DispenseAngle == 0 {
		o.DispenseAngle = DefaultDispenseAngle
	}
	if o.IdleInterval <= 0 {
		o.IdleInterval = DefaultIdleInterval
	}
	if o.ConfigPollInterval <= 0 {
		o.ConfigPollInterval = DefaultConfigPollInterval
	}
}

// Dispenser runs the command dispatch loop.
type Dispenser struct {
	state     *State
	router    *Router
	client    mqtt.Client
	motor     motor.Motor
	topics    Topics
	discovery discovery.Publisher
	events    EventPublisher
	log       logger.Logger
	opts      Options
	now       func() time.Time
}

// New creates a Dispenser. Discovery is disabled until SetDiscovery is
// called with a real publisher.
func New(state *State, client mqtt.Client, m motor.Motor, topics Topics, opts Options, log logger.Logger) (*Dispenser, error) {
	if state == nil || client == nil || m == nil || log == nil {
		return nil, fmt.Errorf("dispenser: nil parameter provided to New")
	}
	opts.setDefaults()
	return &Dispenser{
		state:     state,
		router:    NewRouter(state, topics, log),
		client:    client,
		motor:     m,
		topics:    topics,
		discovery: discovery.NopPublisher{},
		events:    nopEvents{},
		log:       log,
		opts:      opts,
		now:       time.Now,
	}, nil
}

// SetDiscovery configures the registration publisher used once the remote
// configuration is known.
func (d *Dispenser) SetDiscovery(p discovery.Publisher) {
	if p == nil {
		p = discovery.NopPublisher{}
	}
	d.discovery = p
}

// SetEventBus configures where telemetry events are published.
func (d *Dispenser) SetEventBus(p EventPublisher) {
	if p == nil {
		p = nopEvents{}
	}
	d.events = p
	d.router.SetEventPublisher(p)
}

// Router returns the inbound message router sharing this dispenser's state.
func (d *Dispenser) Router() *Router { return d.router }

// OnConnect subscribes to the inbound topics and marks the device online.
// It must run after every (re)connection since a clean session drops
// previous subscriptions.
func (d *Dispenser) OnConnect() {
	for _, topic := range d.topics.Subscriptions() {
		if err := d.client.Subscribe(topic, d.router.HandleMessage); err != nil {
			d.log.Errorf("subscribe %s: %v", topic, err)
		}
	}
	if err := d.client.Publish(d.topics.Availability, []byte(model.Online), true); err != nil {
		d.log.Errorf("publish availability: %v", err)
		return
	}
	d.log.Infof("published %s on %s", model.Online, d.topics.Availability)
}

// Run waits for the remote configuration, announces the device and then
// executes commands until ctx is canceled.
func (d *Dispenser) Run(ctx context.Context) error {
	cfg, err := WaitForConfig(ctx, d.state, d.opts.ConfigPollInterval, d.topics.Config, d.log)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	d.announce(ctx, cfg)
	for {
		if err := d.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (d *Dispenser) announce(ctx context.Context, cfg model.RemoteConfig) {
	if _, ok := d.discovery.(discovery.NopPublisher); ok {
		d.log.Debugf("discovery disabled, %s not announced", cfg.Name)
		return
	}
	dev := discovery.Device{
		ID:                d.opts.DeviceID,
		Name:              cfg.Name,
		Capacity:          d.opts.Capacity,
		Version:           d.opts.Version,
		AvailabilityTopic: d.topics.Availability,
		CommandTopic:      d.topics.Command,
		TreatsTopic:       d.topics.Treats,
	}
	if err := d.discovery.Publish(ctx, dev); err != nil {
		d.log.Warnf("discovery not published, continuing without it: %v", err)
		return
	}
	d.log.Infof("discovery configured for %s", cfg.Name)
}

// Tick handles at most one pending command. The command is cleared only
// after its handler returned. Handler failures are logged; only a missing
// configuration or a canceled context is returned.
func (d *Dispenser) Tick(ctx context.Context) error {
	cmd, seq := d.state.Pending()
	if !cmd.Known() {
		return d.idle(ctx)
	}

	var err error
	switch cmd {
	case model.CommandDispense:
		cfg, ok := d.state.RemoteConfig()
		if !ok {
			return ErrNotConfigured
		}
		err = d.dispense(ctx, cfg)
	case model.CommandSetTreatCount:
		err = d.publishTreats(d.state.Treats())
	case model.CommandAdjust:
		cfg, ok := d.state.RemoteConfig()
		if !ok {
			return ErrNotConfigured
		}
		err = d.recalibrate(ctx, cfg.AdjustmentAngle, motor.Forward, reasonManual)
	}
	d.state.ClearPending(seq)
	if err != nil {
		d.log.Errorf("%s failed: %v", cmd, err)
	}
	d.events.Publish(events.CommandEvent{Command: cmd, Err: err, Time: d.now()})
	return nil
}

func (d *Dispenser) idle(ctx context.Context) error {
	timer := time.NewTimer(d.opts.IdleInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.state.Wake():
	case <-timer.C:
	}
	return nil
}

// dispense releases one treat. The rotation happens even when the inventory
// is already zero; the counter is informational only.
func (d *Dispenser) dispense(ctx context.Context, cfg model.RemoteConfig) error {
	if err := d.motor.RotateByAngle(ctx, d.opts.DispenseAngle); err != nil {
		return fmt.Errorf("rotate: %w", err)
	}
	count, wrapped := d.state.AdvanceCounter(cfg.AdjustmentFreq)
	if wrapped {
		d.log.Infof("adjusting after %d dispenses", cfg.AdjustmentFreq)
		if err := d.recalibrate(ctx, cfg.AdjustmentAngle, motor.Reverse, reasonPeriodic); err != nil {
			d.log.Errorf("periodic adjustment: %v", err)
		}
	}
	remaining := d.state.ConsumeTreat()
	now := d.now()
	d.events.Publish(events.DispenseEvent{TreatsRemaining: remaining, Counter: count, Time: now})
	d.events.Publish(events.TreatsEvent{Remaining: remaining, Source: "dispense", Time: now})
	return d.publishTreats(remaining)
}

// recalibrate issues one corrective rotation of angle degrees in dir.
func (d *Dispenser) recalibrate(ctx context.Context, angle float64, dir motor.Direction, reason string) error {
	signed := angle * float64(dir)
	if err := d.motor.RotateByAngle(ctx, signed); err != nil {
		return fmt.Errorf("recalibrate %s: %w", dir, err)
	}
	d.events.Publish(events.RecalibrationEvent{AngleDegrees: signed, Reason: reason, Time: d.now()})
	return nil
}

func (d *Dispenser) publishTreats(n int) error {
	if err := d.client.Publish(d.topics.Treats, []byte(strconv.Itoa(n)), true); err != nil {
		return fmt.Errorf("publish treats: %w", err)
	}
	return nil
}
