package dispenser

import "strings"

// DefaultBaseTopic is the namespace used when none is configured.
const DefaultBaseTopic = "esp32/kitty3000"

// Topics holds the MQTT topics of one dispenser.
type Topics struct {
	Command      string
	Treats       string
	Config       string
	Availability string
}

// NewTopics builds the topic set <base>/<deviceID>/<suffix>.
func NewTopics(base, deviceID string) Topics {
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		base = DefaultBaseTopic
	}
	prefix := base + "/" + deviceID
	return Topics{
		Command:      prefix + "/command",
		Treats:       prefix + "/treats",
		Config:       prefix + "/config",
		Availability: prefix + "/availability",
	}
}

// Subscriptions lists the topics the dispenser listens on.
func (t Topics) Subscriptions() []string {
	return []string{t.Command, t.Treats, t.Config}
}
