package model

// Message is an inbound publish delivered by the transport.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}
