package led

import (
	"errors"
	"fmt"
	"strings"
)

// Colour selects one LED colour. On a PiGlow each colour exists once per arm.
type Colour int

// PiGlow colours, ordered from the outside of an arm inwards.
const (
	Red Colour = iota
	Orange
	Yellow
	Green
	Blue
	White
)

var colourNames = [...]string{"red", "orange", "yellow", "green", "blue", "white"}

func (c Colour) String() string {
	if c < 0 || int(c) >= len(colourNames) {
		return fmt.Sprintf("colour(%d)", int(c))
	}
	return colourNames[c]
}

// ParseColour looks up a colour by name.
func ParseColour(name string) (Colour, error) {
	for i, n := range colourNames {
		if strings.EqualFold(n, name) {
			return Colour(i), nil
		}
	}
	return 0, fmt.Errorf("unknown colour %q", name)
}

// Colours returns every colour in channel order.
func Colours() []Colour {
	return []Colour{Red, Orange, Yellow, Green, Blue, White}
}

// Arm is one of the three spiral arms of the board.
type Arm int

// Arms are numbered from one, matching the silkscreen.
const (
	Arm1 Arm = iota + 1
	Arm2
	Arm3
)

// Arms returns every arm in order.
func Arms() []Arm {
	return []Arm{Arm1, Arm2, Arm3}
}

func (a Arm) valid() bool {
	return a >= Arm1 && a <= Arm3
}

// NumColours is the number of colours on each arm.
const NumColours = 6

// NumArms is the number of arms on the board.
const NumArms = 3

// ErrClosed is returned by peripherals after Close.
var ErrClosed = errors.New("led: peripheral closed")

// Peripheral is the brightness interface the animation engine drives.
// Levels use the driver's native 0-255 scale. Implementations are only
// called from a single goroutine and need not be safe for concurrent use.
type Peripheral interface {
	// SetColour sets every LED of the colour, across all arms.
	SetColour(c Colour, level uint8) error

	// SetArm sets all LEDs of one arm.
	SetArm(a Arm, level uint8) error

	// AllOff turns every LED off.
	AllOff() error

	// Close turns the LEDs off and releases the hardware.
	Close() error
}
