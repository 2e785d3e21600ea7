package config

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kilianp07/kitty3000/infra/logger"
)

// LoggingConfig defines the process-wide log level and output format.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	switch c.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging: unknown format %s", c.Format)
	}
	return nil
}

// Settings converts the section for logger.Configure.
func (c LoggingConfig) Settings() logger.Settings {
	return logger.Settings{Level: c.Level, Format: c.Format}
}
