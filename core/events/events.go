package events

import (
	"time"

	"github.com/kilianp07/kitty3000/core/model"
)

// Event is implemented by every dispenser event.
type Event interface {
	EventTime() time.Time
}

// CommandEvent is published when the dispatch loop handles a command.
type CommandEvent struct {
	Command model.Command
	Err     error
	Time    time.Time
}

// DispenseEvent is published after each dispense cycle.
type DispenseEvent struct {
	TreatsRemaining int
	Counter         int
	Time            time.Time
}

// RecalibrationEvent is published for every corrective rotation.
// Reason is either "manual" or "periodic".
type RecalibrationEvent struct {
	AngleDegrees float64
	Reason       string
	Time         time.Time
}

// TreatsEvent is published whenever the inventory counter changes.
// Source is "dispense" or "remote".
type TreatsEvent struct {
	Remaining int
	Source    string
	Time      time.Time
}

// ConfigEvent is published when a remote configuration is accepted.
type ConfigEvent struct {
	Config model.RemoteConfig
	Time   time.Time
}

func (e CommandEvent) EventTime() time.Time       { return e.Time }
func (e DispenseEvent) EventTime() time.Time      { return e.Time }
func (e RecalibrationEvent) EventTime() time.Time { return e.Time }
func (e TreatsEvent) EventTime() time.Time        { return e.Time }
func (e ConfigEvent) EventTime() time.Time        { return e.Time }
