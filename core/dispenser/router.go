package dispenser

import (
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/kitty3000/core/events"
	"github.com/kilianp07/kitty3000/core/logger"
	"github.com/kilianp07/kitty3000/core/model"
)

// EventPublisher receives telemetry events. Publish must not block.
type EventPublisher interface {
	Publish(events.Event)
}

type nopEvents struct{}

func (nopEvents) Publish(events.Event) {}

// Router turns inbound messages into state mutations. HandleMessage is
// registered as the transport callback and never blocks.
type Router struct {
	state  *State
	topics Topics
	log    logger.Logger
	events EventPublisher
	now    func() time.Time
}

// NewRouter creates a Router writing into state.
func NewRouter(state *State, topics Topics, log logger.Logger) *Router {
	return &Router{state: state, topics: topics, log: log, events: nopEvents{}, now: time.Now}
}

// HandleMessage routes msg by exact topic match. Unknown topics and
// undecodable payloads are dropped.
func (r *Router) HandleMessage(msg model.Message) {
	r.log.Debugw("received message", map[string]any{
		"topic":    msg.Topic,
		"payload":  string(msg.Payload),
		"retained": msg.Retained,
	})
	switch msg.Topic {
	case r.topics.Command:
		cmd := model.ParseCommand(msg.Payload)
		if !cmd.Known() {
			r.log.Warnf("unknown command %q stored, no handler will run", string(cmd))
		}
		r.state.SetPending(cmd)
	case r.topics.Treats:
		n, err := strconv.Atoi(strings.TrimSpace(string(msg.Payload)))
		if err != nil {
			r.log.Errorf("invalid treat count %q: %v", string(msg.Payload), err)
			return
		}
		stored := r.state.SetTreats(n)
		r.events.Publish(events.TreatsEvent{Remaining: stored, Source: "remote", Time: r.now()})
	case r.topics.Config:
		cfg, err := model.DecodeRemoteConfig(msg.Payload)
		if err != nil {
			r.log.Errorf("rejected remote config: %v", err)
			return
		}
		r.state.SetRemoteConfig(cfg)
		r.log.Infof("remote config accepted: name=%s adjustment-freq=%d adjustment-angle=%.2f",
			cfg.Name, cfg.AdjustmentFreq, cfg.AdjustmentAngle)
		r.events.Publish(events.ConfigEvent{Config: cfg, Time: r.now()})
	}
}

// SetEventPublisher configures where config and inventory events go.
func (r *Router) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = nopEvents{}
	}
	r.events = p
}
