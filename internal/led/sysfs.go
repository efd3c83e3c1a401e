package led

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs implements Peripheral on kernel LEDs under /sys/class/leds.
// Each colour maps to one kernel LED. Boards have no arms, so SetArm
// drives every mapped LED.
type sysfs struct {
	root    string
	leds    map[Colour]string // colour -> sysfs LED name
	maxLeds map[Colour]int    // colour -> max_brightness
	closed  bool
}

// newSysfs prepares the mapped LEDs for manual control by clearing their
// trigger and reading max_brightness.
func newSysfs(root string, leds map[Colour]string) (*sysfs, error) {
	s := &sysfs{
		root:    root,
		leds:    leds,
		maxLeds: make(map[Colour]int, len(leds)),
	}

	for c, name := range leds {
		ledPath := filepath.Join(root, name)
		if _, err := os.Stat(ledPath); err != nil {
			return nil, fmt.Errorf("LED %q for %s not found at %s: %w", name, c, ledPath, err)
		}

		// Trigger must be none or the kernel keeps overriding brightness.
		if err := os.WriteFile(filepath.Join(ledPath, "trigger"), []byte("none"), 0o644); err != nil {
			return nil, fmt.Errorf("failed to set LED trigger: %w", err)
		}

		s.maxLeds[c] = readMaxBrightness(ledPath)
	}

	return s, nil
}

// ParseSysfsMap parses "white=ACT,red=PWR" into a colour mapping.
func ParseSysfsMap(spec string) (map[Colour]string, error) {
	leds := make(map[Colour]string)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		colourName, ledName, ok := strings.Cut(part, "=")
		if !ok || ledName == "" {
			return nil, fmt.Errorf("invalid sysfs LED mapping %q", part)
		}
		c, err := ParseColour(strings.TrimSpace(colourName))
		if err != nil {
			return nil, err
		}
		leds[c] = strings.TrimSpace(ledName)
	}
	return leds, nil
}

func readMaxBrightness(ledPath string) int {
	data, err := os.ReadFile(filepath.Join(ledPath, "max_brightness"))
	if err != nil {
		return 1
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || v <= 0 {
		return 1
	}
	return v
}

func (s *sysfs) SetColour(c Colour, level uint8) error {
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.leds[c]; !ok {
		return nil
	}
	return s.write(c, level)
}

func (s *sysfs) SetArm(_ Arm, level uint8) error {
	if s.closed {
		return ErrClosed
	}
	for c := range s.leds {
		if err := s.write(c, level); err != nil {
			return err
		}
	}
	return nil
}

func (s *sysfs) AllOff() error {
	return s.SetArm(Arm1, 0)
}

func (s *sysfs) Close() error {
	if s.closed {
		return nil
	}
	err := s.AllOff()
	s.closed = true
	return err
}

// write rescales a 0-255 level to the LED's own max_brightness.
func (s *sysfs) write(c Colour, level uint8) error {
	maxLevel := s.maxLeds[c]
	v := int(level) * maxLevel / 255
	if level > 0 && v == 0 {
		v = 1
	}

	brightnessPath := filepath.Join(s.root, s.leds[c], "brightness")
	if err := os.WriteFile(brightnessPath, []byte(strconv.Itoa(v)), 0o644); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}
	return nil
}
