// Package homeassistant publishes MQTT discovery documents so Home Assistant
// creates the dispenser entities automatically.
package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/kilianp07/kitty3000/core/discovery"
	"github.com/kilianp07/kitty3000/core/model"
	"github.com/kilianp07/kitty3000/core/mqtt"
	"github.com/kilianp07/kitty3000/infra/logger"
)

// DefaultPrefix is the Home Assistant discovery prefix.
const DefaultPrefix = "homeassistant"

// Config configures the discovery publisher.
type Config struct {
	Enabled bool   `json:"enabled"`
	Prefix  string `json:"prefix"`
	// Identifier is the HA device identifier, defaults to kitty3000-<id>.
	Identifier   string `json:"identifier"`
	Manufacturer string `json:"manufacturer"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Manufacturer == "" {
		c.Manufacturer = "kitty3000"
	}
}

// DeviceInfo is the device registry block shared by every entity.
type DeviceInfo struct {
	Identifiers  string `json:"identifiers"`
	Name         string `json:"name"`
	SWVersion    string `json:"sw_version"`
	Model        string `json:"model"`
	Manufacturer string `json:"manufacturer"`
}

// NumberConfig is the discovery payload of the treats slider.
type NumberConfig struct {
	Name              string     `json:"name"`
	AvailabilityTopic string     `json:"availability_topic"`
	QoS               int        `json:"qos"`
	Device            DeviceInfo `json:"device"`
	StateTopic        string     `json:"state_topic"`
	CommandTopic      string     `json:"command_topic"`
	Min               int        `json:"min"`
	Max               int        `json:"max"`
	Mode              string     `json:"mode"`
	Retain            bool       `json:"retain"`
	StateClass        string     `json:"state_class"`
	UniqueID          string     `json:"unique_id"`
	ForceUpdate       bool       `json:"force_update"`
}

// ButtonConfig is the discovery payload of a command button.
type ButtonConfig struct {
	Name              string     `json:"name"`
	AvailabilityTopic string     `json:"availability_topic"`
	QoS               int        `json:"qos"`
	Device            DeviceInfo `json:"device"`
	CommandTopic      string     `json:"command_topic"`
	PayloadPress      string     `json:"payload_press"`
	UniqueID          string     `json:"unique_id"`
}

// Document is one retained discovery message.
type Document struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// Documents builds the treats slider, dispense button and adjust button
// registrations for dev.
func Documents(cfg Config, dev discovery.Device) []Document {
	cfg.SetDefaults()
	base := "kitty3000-" + dev.ID
	ident := cfg.Identifier
	if ident == "" {
		ident = base
	}
	info := DeviceInfo{
		Identifiers:  ident,
		Name:         dev.Name,
		SWVersion:    fmt.Sprintf("%s_%s", runtime.Version(), dev.Version),
		Model:        runtime.GOOS + "/" + runtime.GOARCH,
		Manufacturer: cfg.Manufacturer,
	}
	button := func(label string, cmd model.Command) Document {
		id := base + "-" + string(cmd)
		return Document{
			Topic: fmt.Sprintf("%s/button/%s/config", cfg.Prefix, id),
			Payload: ButtonConfig{
				Name:              label,
				AvailabilityTopic: dev.AvailabilityTopic,
				Device:            info,
				CommandTopic:      dev.CommandTopic,
				PayloadPress:      string(cmd),
				UniqueID:          id,
			},
		}
	}
	return []Document{
		{
			Topic: fmt.Sprintf("%s/number/%s/treats/config", cfg.Prefix, base),
			Payload: NumberConfig{
				Name:              "Treats remaining",
				AvailabilityTopic: dev.AvailabilityTopic,
				Device:            info,
				StateTopic:        dev.TreatsTopic,
				CommandTopic:      dev.TreatsTopic,
				Min:               0,
				Max:               dev.Capacity,
				Mode:              "slider",
				Retain:            true,
				StateClass:        "TOTAL",
				UniqueID:          base + "-treats",
				ForceUpdate:       true,
			},
		},
		button("Dispense", model.CommandDispense),
		button("Adjust", model.CommandAdjust),
	}
}

// Publisher implements discovery.Publisher over MQTT.
type Publisher struct {
	client mqtt.Client
	cfg    Config
	log    logger.Logger
}

var _ discovery.Publisher = (*Publisher)(nil)

// NewPublisher creates a discovery publisher using client.
func NewPublisher(client mqtt.Client, cfg Config) *Publisher {
	cfg.SetDefaults()
	return &Publisher{client: client, cfg: cfg, log: logger.New("ha_discovery")}
}

// Publish sends every discovery document retained. Repeating it is harmless.
func (p *Publisher) Publish(ctx context.Context, dev discovery.Device) error {
	for _, doc := range Documents(p.cfg, dev) {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(doc.Payload)
		if err != nil {
			return fmt.Errorf("encode %s: %w", doc.Topic, err)
		}
		if err := p.client.Publish(doc.Topic, payload, true); err != nil {
			return err
		}
		p.log.Debugf("published discovery document %s", doc.Topic)
	}
	return nil
}
