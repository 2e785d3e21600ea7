// Package discovery declares the optional registration capability used to
// announce the dispenser to a home automation hub.
package discovery

import "context"

// Device carries the identity published with every registration document.
type Device struct {
	ID                string
	Name              string
	Capacity          int
	Version           string
	AvailabilityTopic string
	CommandTopic      string
	TreatsTopic       string
}

// Publisher registers the dispenser entities. Implementations must be
// idempotent since registration happens on every boot.
type Publisher interface {
	Publish(ctx context.Context, dev Device) error
}

// NopPublisher is used when discovery is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Device) error { return nil }
