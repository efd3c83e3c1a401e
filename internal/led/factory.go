package led

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// Driver names accepted by New.
const (
	DriverAuto   = "auto"
	DriverPiGlow = "piglow"
	DriverSysfs  = "sysfs"
	DriverNoop   = "noop"
)

// Options selects and configures the LED driver.
type Options struct {
	Driver   string // auto, piglow, sysfs or noop
	I2CBus   string // empty selects the first I²C bus
	Scale    int    // brightness percentage, 1..100
	SysfsMap string // "white=ACT,red=PWR"
}

// New creates the configured peripheral. In auto mode a Raspberry Pi gets
// a PiGlow when one answers on the bus, then the sysfs LEDs when a mapping
// is configured, and the no-op driver otherwise. Explicit drivers fail
// instead of falling back.
func New(opts Options, logger *slog.Logger) (Peripheral, error) {
	switch strings.ToLower(opts.Driver) {
	case DriverPiGlow:
		return OpenPiGlow(opts.I2CBus, opts.Scale, logger)

	case DriverSysfs:
		return openSysfs(opts.SysfsMap)

	case DriverNoop:
		logger.Info("Using no-op LED driver")
		return NewNoop(logger), nil

	case DriverAuto, "":
		return autodetect(opts, logger), nil

	default:
		return nil, fmt.Errorf("unknown LED driver %q", opts.Driver)
	}
}

func autodetect(opts Options, logger *slog.Logger) Peripheral {
	boardModel := detectBoard()
	logger.Info("Detecting board for LED control", "board_model", boardModel)

	if strings.Contains(boardModel, "Raspberry Pi") {
		p, err := OpenPiGlow(opts.I2CBus, opts.Scale, logger)
		if err == nil {
			logger.Info("Detected PiGlow on Raspberry Pi")
			return p
		}
		logger.Warn("PiGlow not available", "error", err)
	}

	if opts.SysfsMap != "" {
		p, err := openSysfs(opts.SysfsMap)
		if err == nil {
			logger.Info("Using sysfs LED driver", "map", opts.SysfsMap)
			return p
		}
		logger.Warn("Sysfs LEDs not available", "error", err)
	}

	logger.Info("No LED support detected, using no-op driver", "board_model", boardModel)
	return NewNoop(logger)
}

func openSysfs(spec string) (Peripheral, error) {
	leds, err := ParseSysfsMap(spec)
	if err != nil {
		return nil, err
	}
	if len(leds) == 0 {
		return nil, fmt.Errorf("sysfs driver needs at least one colour mapping")
	}
	return newSysfs(sysfsLEDPath, leds)
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}

	// Device tree strings are NUL terminated.
	return strings.TrimRight(string(data), "\x00")
}
