package led

import (
	"errors"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/sn3218"
	"periph.io/x/host/v3"
)

// piglowChannels maps arm and colour to the SN3218 output channel.
// Rows are arms, columns follow the Colour order.
var piglowChannels = [NumArms][NumColours]int{
	{6, 7, 8, 5, 4, 9},
	{17, 16, 15, 13, 11, 10},
	{0, 1, 2, 3, 14, 12},
}

// sn3218Chip is the subset of *sn3218.Dev used by PiGlow.
type sn3218Chip interface {
	Brightness(channel int, value byte) error
	BrightnessAll(value byte) error
	SwitchAll(state bool) error
	Halt() error
}

// PiGlow drives a Pimoroni PiGlow through its SN3218 controller.
type PiGlow struct {
	dev    sn3218Chip
	bus    i2c.BusCloser
	scale  int
	closed bool
	logger *slog.Logger
}

// OpenPiGlow initialises the periph host, opens the I²C bus (empty name
// selects the first bus) and enables all 18 outputs.
// scale is a brightness percentage in 1..100 applied to every write.
func OpenPiGlow(busName string, scale int, logger *slog.Logger) (*PiGlow, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus %q: %w", busName, err)
	}

	dev, err := sn3218.New(bus)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to open sn3218: %w", err)
	}

	p, err := newPiGlow(dev, scale, logger)
	if err != nil {
		bus.Close()
		return nil, err
	}
	p.bus = bus

	logger.Info("PiGlow opened", "bus", bus.String(), "scale", p.scale)
	return p, nil
}

func newPiGlow(dev sn3218Chip, scale int, logger *slog.Logger) (*PiGlow, error) {
	if scale <= 0 || scale > 100 {
		scale = 100
	}

	if err := dev.SwitchAll(true); err != nil {
		return nil, fmt.Errorf("failed to enable sn3218 outputs: %w", err)
	}
	if err := dev.BrightnessAll(0); err != nil {
		return nil, fmt.Errorf("failed to clear sn3218 outputs: %w", err)
	}

	return &PiGlow{
		dev:    dev,
		scale:  scale,
		logger: logger,
	}, nil
}

// SetColour sets the colour on all three arms.
func (p *PiGlow) SetColour(c Colour, level uint8) error {
	if p.closed {
		return ErrClosed
	}
	if c < Red || c > White {
		return fmt.Errorf("invalid colour %d", int(c))
	}

	v := p.scaled(level)
	for arm := range piglowChannels {
		if err := p.dev.Brightness(piglowChannels[arm][c], v); err != nil {
			return fmt.Errorf("set %s on arm %d: %w", c, arm+1, err)
		}
	}
	return nil
}

// SetArm sets all six LEDs of the arm.
func (p *PiGlow) SetArm(a Arm, level uint8) error {
	if p.closed {
		return ErrClosed
	}
	if !a.valid() {
		return fmt.Errorf("invalid arm %d", int(a))
	}

	v := p.scaled(level)
	for _, ch := range piglowChannels[a-1] {
		if err := p.dev.Brightness(ch, v); err != nil {
			return fmt.Errorf("set arm %d: %w", int(a), err)
		}
	}
	return nil
}

// AllOff zeroes every channel in a single bus transaction.
func (p *PiGlow) AllOff() error {
	if p.closed {
		return ErrClosed
	}
	return p.dev.BrightnessAll(0)
}

// Close clears the LEDs, halts the chip and releases the bus.
func (p *PiGlow) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if err := p.dev.BrightnessAll(0); err != nil {
		errs = append(errs, err)
	}
	if err := p.dev.Halt(); err != nil {
		errs = append(errs, err)
	}
	if p.bus != nil {
		if err := p.bus.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *PiGlow) scaled(level uint8) byte {
	if p.scale == 100 {
		return level
	}
	return byte(int(level) * p.scale / 100)
}
