// Package events defines the dispenser events emitted on the event bus.
//
// Available event types:
//   - CommandEvent: a command was picked up by the dispatch loop
//   - DispenseEvent: one treat release cycle completed
//   - RecalibrationEvent: a corrective rotation was issued
//   - TreatsEvent: the inventory counter changed
//   - ConfigEvent: a remote configuration was accepted
package events
