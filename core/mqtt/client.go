package mqtt

import "github.com/kilianp07/kitty3000/core/model"

// Handler receives inbound messages. It runs on the transport's goroutine
// and must not block.
type Handler func(msg model.Message)

// Client is the subset of an MQTT session the dispenser relies on.
// Reconnection, last-will and QoS selection belong to the implementation.
type Client interface {
	// Publish sends payload on topic, optionally retained by the broker.
	Publish(topic string, payload []byte, retained bool) error

	// Subscribe registers handler for messages on topic.
	Subscribe(topic string, handler Handler) error

	// OnConnect registers fn to run after every successful (re)connection.
	OnConnect(fn func())
}
