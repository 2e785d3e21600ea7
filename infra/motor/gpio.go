package motor

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	coremotor "github.com/kilianp07/kitty3000/core/motor"
)

type periphPin struct {
	pin gpio.PinIO
}

func (p periphPin) Out(high bool) error {
	return p.pin.Out(gpio.Level(high))
}

// OpenPins initialises the host drivers and resolves pins by name, for
// example "GPIO17".
func OpenPins(names []string) ([]Pin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio init: %w", err)
	}
	pins := make([]Pin, 0, len(names))
	for _, n := range names {
		p := gpioreg.ByName(n)
		if p == nil {
			return nil, fmt.Errorf("%w: %s", coremotor.ErrUnknownPin, n)
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("gpio %s: %w", n, err)
		}
		pins = append(pins, periphPin{pin: p})
	}
	return pins, nil
}
