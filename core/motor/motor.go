// Package motor defines the actuation capability used by the dispenser.
package motor

import (
	"context"
	"errors"
)

// Direction selects the rotation sense of a step sequence.
type Direction int

const (
	Forward Direction = 1
	Reverse Direction = -1
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// ErrUnknownPin is returned when a configured GPIO line cannot be resolved.
var ErrUnknownPin = errors.New("unknown gpio pin")

// Motor is a time-extended actuator. Both calls block until the movement is
// complete.
type Motor interface {
	// RotateByAngle turns the shaft by degrees, negative values turn in reverse.
	RotateByAngle(ctx context.Context, degrees float64) error
	// Step advances the shaft by count steps in the given direction.
	Step(ctx context.Context, count int, dir Direction) error
}
