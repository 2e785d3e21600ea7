// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[motor.Motor]()
//	reg.Register("sim", func(conf map[string]any) (motor.Motor, error) {
//	    var c struct{ StepsPerRev int `json:"steps_per_rev"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewSimMotor(c.StepsPerRev), nil
//	})
//	m, err := reg.Create(factory.ModuleConfig{Type: "sim", Conf: map[string]any{"steps_per_rev": 4096}})
package factory
