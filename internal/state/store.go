// Package state holds the animation selection shared between the event
// handler and the frame scheduler.
package state

import (
	"sync"

	"github.com/smazurov/glownode/internal/animation"
)

// Snapshot is the (active animation, progress) pair, always read and
// written together.
type Snapshot struct {
	Active   animation.Kind
	Progress int
}

// Store guards the shared Snapshot. The zero value is not usable; use New.
type Store struct {
	mu   sync.Mutex
	snap Snapshot
}

// New returns a store with no active animation and zero progress.
func New() *Store {
	return &Store{snap: Snapshot{Active: animation.None}}
}

// SetActive selects the animation. Progress is kept.
func (s *Store) SetActive(kind animation.Kind) {
	s.mu.Lock()
	s.snap.Active = kind
	s.mu.Unlock()
}

// SetProgress records progress and selects kind in one step.
func (s *Store) SetProgress(value int, kind animation.Kind) {
	s.mu.Lock()
	s.snap = Snapshot{Active: kind, Progress: value}
	s.mu.Unlock()
}

// Snapshot returns a consistent copy of both fields.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}
