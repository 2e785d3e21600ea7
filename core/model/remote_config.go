package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRemoteConfig is returned when a configuration payload is missing
// a required key or carries an out of range value.
var ErrInvalidRemoteConfig = errors.New("invalid remote config")

// RemoteConfig is the device configuration pushed over MQTT. A new payload
// always replaces the previous one as a whole.
type RemoteConfig struct {
	Name            string  `json:"name"`
	AdjustmentFreq  int     `json:"adjustment-freq"`
	AdjustmentAngle float64 `json:"adjustment-angle"`
}

type rawRemoteConfig struct {
	Name            *string  `json:"name"`
	AdjustmentFreq  *float64 `json:"adjustment-freq"`
	AdjustmentAngle *float64 `json:"adjustment-angle"`
}

// DecodeRemoteConfig parses a JSON payload and checks that every required
// key is present and valid.
func DecodeRemoteConfig(payload []byte) (RemoteConfig, error) {
	var raw rawRemoteConfig
	if err := json.Unmarshal(payload, &raw); err != nil {
		return RemoteConfig{}, fmt.Errorf("%w: %v", ErrInvalidRemoteConfig, err)
	}
	switch {
	case raw.Name == nil:
		return RemoteConfig{}, fmt.Errorf("%w: missing name", ErrInvalidRemoteConfig)
	case raw.AdjustmentFreq == nil:
		return RemoteConfig{}, fmt.Errorf("%w: missing adjustment-freq", ErrInvalidRemoteConfig)
	case raw.AdjustmentAngle == nil:
		return RemoteConfig{}, fmt.Errorf("%w: missing adjustment-angle", ErrInvalidRemoteConfig)
	}
	cfg := RemoteConfig{Name: *raw.Name, AdjustmentAngle: *raw.AdjustmentAngle}
	freq := *raw.AdjustmentFreq
	if freq != math.Trunc(freq) || freq > math.MaxInt32 {
		return RemoteConfig{}, fmt.Errorf("%w: adjustment-freq must be an integer, got %v", ErrInvalidRemoteConfig, freq)
	}
	cfg.AdjustmentFreq = int(freq)
	if err := cfg.Validate(); err != nil {
		return RemoteConfig{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c RemoteConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidRemoteConfig)
	}
	if c.AdjustmentFreq <= 0 {
		return fmt.Errorf("%w: adjustment-freq must be positive, got %d", ErrInvalidRemoteConfig, c.AdjustmentFreq)
	}
	if math.IsNaN(c.AdjustmentAngle) || math.IsInf(c.AdjustmentAngle, 0) {
		return fmt.Errorf("%w: adjustment-angle is not finite", ErrInvalidRemoteConfig)
	}
	return nil
}
