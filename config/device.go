package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/kitty3000/core/dispenser"
)

// DeviceConfig identifies the dispenser. It is read once at startup.
type DeviceConfig struct {
	ID string `json:"id"`
	// Capacity is the number of treats a full hopper holds.
	Capacity  int    `json:"capacity"`
	BaseTopic string `json:"base_topic"`
	// DispenseAngle is the rotation in degrees releasing one treat.
	DispenseAngle float64 `json:"dispense_angle"`
	Version       string  `json:"version"`
}

// SetDefaults applies sane defaults.
func (c *DeviceConfig) SetDefaults() {
	if c.BaseTopic == "" {
		c.BaseTopic = dispenser.DefaultBaseTopic
	}
	c.BaseTopic = strings.TrimSuffix(c.BaseTopic, "/")
	if c.DispenseAngle == 0 {
		c.DispenseAngle = dispenser.DefaultDispenseAngle
	}
	if c.Version == "" {
		c.Version = "dev"
	}
}

// Validate checks mandatory fields.
func (c DeviceConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("device: id is required")
	}
	if strings.ContainsAny(c.ID, "/+#") {
		return fmt.Errorf("device: id %q must not contain MQTT separators or wildcards", c.ID)
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("device: capacity must be positive")
	}
	if c.DispenseAngle < 0 {
		return fmt.Errorf("device: dispense_angle must be positive")
	}
	return nil
}

// Topics derives the device topic set.
func (c DeviceConfig) Topics() dispenser.Topics {
	return dispenser.NewTopics(c.BaseTopic, c.ID)
}

// DispenserConfig tunes the dispatch loop timings.
type DispenserConfig struct {
	IdleInterval       time.Duration `json:"idle_interval"`
	ConfigPollInterval time.Duration `json:"config_poll_interval"`
}

// SetDefaults applies sane defaults.
func (c *DispenserConfig) SetDefaults() {
	if c.IdleInterval == 0 {
		c.IdleInterval = dispenser.DefaultIdleInterval
	}
	if c.ConfigPollInterval == 0 {
		c.ConfigPollInterval = dispenser.DefaultConfigPollInterval
	}
}

// Validate checks mandatory fields.
func (c DispenserConfig) Validate() error {
	if c.IdleInterval < 0 || c.ConfigPollInterval < 0 {
		return fmt.Errorf("dispenser: intervals must not be negative")
	}
	return nil
}
