package motor

import (
	"context"
	"sync"
	"time"

	coremotor "github.com/kilianp07/kitty3000/core/motor"
	"github.com/kilianp07/kitty3000/infra/logger"
)

// SimConfig configures a SimMotor.
type SimConfig struct {
	StepsPerRev int           `json:"steps_per_rev"`
	StepDelay   time.Duration `json:"step_delay"`
}

// SimMotor stands in for the hardware: it tracks the shaft position and
// takes as long as a real move would.
type SimMotor struct {
	mu          sync.Mutex
	position    int
	stepsPerRev int
	delay       time.Duration
	log         logger.Logger
}

var _ coremotor.Motor = (*SimMotor)(nil)

// NewSimMotor creates a simulated motor.
func NewSimMotor(cfg SimConfig) *SimMotor {
	if cfg.StepsPerRev <= 0 {
		cfg.StepsPerRev = DefaultStepsPerRev
	}
	return &SimMotor{stepsPerRev: cfg.StepsPerRev, delay: cfg.StepDelay, log: logger.New("sim_motor")}
}

// RotateByAngle converts degrees to steps like the real driver.
func (m *SimMotor) RotateByAngle(ctx context.Context, degrees float64) error {
	steps, dir := StepsForAngle(degrees, m.stepsPerRev)
	return m.Step(ctx, steps, dir)
}

// Step moves the simulated shaft.
func (m *SimMotor) Step(ctx context.Context, count int, dir coremotor.Direction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delay > 0 {
		if err := sleepCtx(ctx, time.Duration(count)*m.delay); err != nil {
			return err
		}
	}
	m.position += count * int(dir)
	m.log.Infof("moved %d steps %s, position %d", count, dir, m.position)
	return nil
}

// Position returns the cumulative signed step count.
func (m *SimMotor) Position() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}
