package metrics

import "github.com/kilianp07/kitty3000/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// Listen is the address of the Prometheus HTTP endpoint, empty disables it.
	Listen string `json:"listen"`
}
