package motor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	coremotor "github.com/kilianp07/kitty3000/core/motor"
	"github.com/kilianp07/kitty3000/infra/logger"
)

// Pin is a digital output line driving one coil input.
type Pin interface {
	Out(high bool) error
}

// halfStep is the 8-phase sequence for a 4-wire unipolar stepper such as
// the 28BYJ-48 behind a ULN2003 board.
var halfStep = [8][4]bool{
	{true, false, false, false},
	{true, true, false, false},
	{false, true, false, false},
	{false, true, true, false},
	{false, false, true, false},
	{false, false, true, true},
	{false, false, false, true},
	{true, false, false, true},
}

const (
	// DefaultStepsPerRev is the half-step count of a 28BYJ-48 output shaft.
	DefaultStepsPerRev = 4096
	// DefaultStepDelay is the pause between two phases.
	DefaultStepDelay = 2 * time.Millisecond
)

// StepperConfig configures a Stepper.
type StepperConfig struct {
	Pins        []string      `json:"pins"`
	StepsPerRev int           `json:"steps_per_rev"`
	StepDelay   time.Duration `json:"step_delay"`
	// Hold keeps the coils energised after a move.
	Hold bool `json:"hold"`
}

// SetDefaults applies the 28BYJ-48 defaults.
func (c *StepperConfig) SetDefaults() {
	if c.StepsPerRev <= 0 {
		c.StepsPerRev = DefaultStepsPerRev
	}
	if c.StepDelay <= 0 {
		c.StepDelay = DefaultStepDelay
	}
}

// Validate checks the pin map.
func (c StepperConfig) Validate() error {
	if len(c.Pins) != 4 {
		return fmt.Errorf("stepper: exactly 4 pins required, got %d", len(c.Pins))
	}
	return nil
}

// Stepper drives a 4-phase stepper motor through four output pins.
type Stepper struct {
	mu          sync.Mutex
	pins        [4]Pin
	phase       int
	stepsPerRev int
	delay       time.Duration
	hold        bool
	log         logger.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

var _ coremotor.Motor = (*Stepper)(nil)

// NewStepper creates a Stepper on the given pins, ordered IN1..IN4.
func NewStepper(pins []Pin, cfg StepperConfig) (*Stepper, error) {
	cfg.SetDefaults()
	if len(pins) != 4 {
		return nil, fmt.Errorf("stepper: exactly 4 pins required, got %d", len(pins))
	}
	s := &Stepper{
		stepsPerRev: cfg.StepsPerRev,
		delay:       cfg.StepDelay,
		hold:        cfg.Hold,
		log:         logger.New("stepper"),
		sleep:       sleepCtx,
	}
	copy(s.pins[:], pins)
	return s, nil
}

// StepsForAngle converts degrees to a step count and direction for a motor
// with stepsPerRev steps per output revolution.
func StepsForAngle(degrees float64, stepsPerRev int) (int, coremotor.Direction) {
	dir := coremotor.Forward
	if degrees < 0 {
		dir = coremotor.Reverse
	}
	steps := int(math.Round(math.Abs(degrees) / 360 * float64(stepsPerRev)))
	return steps, dir
}

// RotateByAngle turns the shaft by degrees.
func (s *Stepper) RotateByAngle(ctx context.Context, degrees float64) error {
	steps, dir := StepsForAngle(degrees, s.stepsPerRev)
	s.log.Debugf("rotate %.2f° = %d steps %s", degrees, steps, dir)
	return s.Step(ctx, steps, dir)
}

// Step advances count half-steps in dir.
func (s *Stepper) Step(ctx context.Context, count int, dir coremotor.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < count; i++ {
		s.phase = (s.phase + int(dir) + len(halfStep)) % len(halfStep)
		if err := s.energise(halfStep[s.phase]); err != nil {
			return err
		}
		if err := s.sleep(ctx, s.delay); err != nil {
			_ = s.release()
			return err
		}
	}
	if !s.hold {
		return s.release()
	}
	return nil
}

func (s *Stepper) energise(levels [4]bool) error {
	for i, p := range s.pins {
		if err := p.Out(levels[i]); err != nil {
			return fmt.Errorf("stepper: pin %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Stepper) release() error {
	return s.energise([4]bool{})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
