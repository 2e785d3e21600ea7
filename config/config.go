package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/kitty3000/core/factory"
	"github.com/kilianp07/kitty3000/core/metrics"
	"github.com/kilianp07/kitty3000/infra/homeassistant"
	"github.com/kilianp07/kitty3000/infra/mqtt"
)

type Config struct {
	Device    DeviceConfig         `json:"device"`
	MQTT      mqtt.Config          `json:"mqtt"`
	Motor     factory.ModuleConfig `json:"motor"`
	Dispenser DispenserConfig      `json:"dispenser"`
	Discovery homeassistant.Config `json:"discovery"`
	Metrics   metrics.Config       `json:"metrics"`
	Logging   LoggingConfig        `json:"logging"`
}

// Load reads a YAML or JSON file, applies K_ environment overrides
// (K_DEVICE__ID=2 sets device.id) and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.Device.SetDefaults()
	c.Dispenser.SetDefaults()
	c.Discovery.SetDefaults()
	c.Logging.SetDefaults()
	if c.Motor.Type == "" {
		c.Motor.Type = "stepper"
	}
}

// Validate checks every section and joins the errors.
func (c Config) Validate() error {
	return errors.Join(
		c.Device.Validate(),
		c.MQTT.Validate(),
		c.Dispenser.Validate(),
		c.Logging.Validate(),
	)
}
