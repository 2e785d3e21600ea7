package model

// Availability is the retained value published on the availability topic.
type Availability string

const (
	Online  Availability = "online"
	Offline Availability = "offline"
)
