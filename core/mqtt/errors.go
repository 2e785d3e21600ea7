package mqtt

import "errors"

// ErrNotConnected is returned when an operation needs a live session.
var ErrNotConnected = errors.New("mqtt client not connected")

// ErrTimeout is returned when the broker did not confirm an operation in
// time. A QoS 1 or 2 publish may still be delivered after it.
var ErrTimeout = errors.New("mqtt operation timed out")
