// Package dispenser implements the command dispatch state machine of the
// treat dispenser.
//
// Inbound MQTT messages are demultiplexed by Router into a shared State.
// Dispenser.Run waits until a remote configuration is available, announces
// the device, then loops: each tick picks up at most one pending command,
// runs its handler to completion and only then clears it. Commands are kept
// in a single slot, so a newer command overwrites an unprocessed one.
package dispenser
