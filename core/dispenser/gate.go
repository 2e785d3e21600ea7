package dispenser

import (
	"context"
	"time"

	"github.com/kilianp07/kitty3000/core/logger"
	"github.com/kilianp07/kitty3000/core/model"
)

// DefaultConfigPollInterval is how often WaitForConfig checks the state.
const DefaultConfigPollInterval = time.Second

// WaitForConfig blocks until state holds a remote configuration or ctx is
// done. topic is only used for the periodic wait log.
func WaitForConfig(ctx context.Context, state *State, interval time.Duration, topic string, log logger.Logger) (model.RemoteConfig, error) {
	if interval <= 0 {
		interval = DefaultConfigPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if cfg, ok := state.RemoteConfig(); ok {
			return cfg, nil
		}
		log.Infof("waiting for MQTT configuration at %s", topic)
		select {
		case <-ctx.Done():
			return model.RemoteConfig{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
