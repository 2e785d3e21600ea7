package metrics

import (
	"context"

	"github.com/kilianp07/kitty3000/core/events"
	coremetrics "github.com/kilianp07/kitty3000/core/metrics"
	"github.com/kilianp07/kitty3000/infra/logger"
	"github.com/kilianp07/kitty3000/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records every event on
// sink. Deliveries lost on full subscriptions are reported to sinks that
// implement DropRecorder. The returned channel is closed once the collector
// has stopped, which happens when ctx is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.Event], sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log = logger.OrNop(log)
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		var seenDropped uint64
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := coremetrics.Record(sink, ev); err != nil {
					log.Warnf("record %T: %v", ev, err)
				}
				if dr, ok := sink.(coremetrics.DropRecorder); ok {
					if d := bus.Dropped(); d > seenDropped {
						if err := dr.RecordDropped(d - seenDropped); err != nil {
							log.Warnf("record dropped events: %v", err)
						}
						seenDropped = d
					}
				}
			}
		}
	}()
	return done
}
