package motor

import (
	"github.com/kilianp07/kitty3000/core/factory"
	coremotor "github.com/kilianp07/kitty3000/core/motor"
)

var registry = factory.NewRegistry[coremotor.Motor]()

// init registers the built-in motor drivers.
func init() {
	_ = registry.Register("stepper", func(conf map[string]any) (coremotor.Motor, error) {
		var c StepperConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		pins, err := OpenPins(c.Pins)
		if err != nil {
			return nil, err
		}
		return NewStepper(pins, c)
	})

	_ = registry.Register("sim", func(conf map[string]any) (coremotor.Motor, error) {
		var c SimConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSimMotor(c), nil
	})
}

// New creates the motor driver described by cfg.
func New(cfg factory.ModuleConfig) (coremotor.Motor, error) {
	return registry.Create(cfg)
}
