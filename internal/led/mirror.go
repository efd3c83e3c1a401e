package led

import "sync"

// Levels is a copy of the last level written to every LED, indexed by
// arm (0-based) and colour.
type Levels [NumArms][NumColours]uint8

// Mirror wraps a Peripheral and remembers the last successful write per
// LED so other goroutines can read the current picture without touching
// the hardware.
type Mirror struct {
	Peripheral

	mu     sync.RWMutex
	levels Levels
}

// NewMirror wraps p.
func NewMirror(p Peripheral) *Mirror {
	return &Mirror{Peripheral: p}
}

func (m *Mirror) SetColour(c Colour, level uint8) error {
	if err := m.Peripheral.SetColour(c, level); err != nil {
		return err
	}
	if c < Red || c > White {
		return nil
	}

	m.mu.Lock()
	for arm := range m.levels {
		m.levels[arm][c] = level
	}
	m.mu.Unlock()
	return nil
}

func (m *Mirror) SetArm(a Arm, level uint8) error {
	if err := m.Peripheral.SetArm(a, level); err != nil {
		return err
	}
	if !a.valid() {
		return nil
	}

	m.mu.Lock()
	for c := range m.levels[a-1] {
		m.levels[a-1][c] = level
	}
	m.mu.Unlock()
	return nil
}

func (m *Mirror) AllOff() error {
	if err := m.Peripheral.AllOff(); err != nil {
		return err
	}

	m.mu.Lock()
	m.levels = Levels{}
	m.mu.Unlock()
	return nil
}

// Levels returns a copy of the current LED levels.
func (m *Mirror) Levels() Levels {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.levels
}
