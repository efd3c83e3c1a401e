// Package scheduler runs the frame loop that renders the selected
// animation onto the LED peripheral.
//
// The loop reads the shared state only when the frame counter is 0, so an
// animation always finishes its cycle before a new selection takes effect.
// A failed peripheral write stops the loop.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/smazurov/glownode/internal/animation"
	"github.com/smazurov/glownode/internal/events"
	"github.com/smazurov/glownode/internal/led"
	"github.com/smazurov/glownode/internal/metrics"
	"github.com/smazurov/glownode/internal/state"
)

// DefaultPeriod is the tick interval when none is configured.
const DefaultPeriod = 100 * time.Millisecond

// ErrAlreadyRun is returned by Run on a scheduler that has already run.
var ErrAlreadyRun = errors.New("scheduler: Run called twice")

// FaultError reports a peripheral failure during a frame.
type FaultError struct {
	Kind  animation.Kind
	Frame int
	Cause error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("peripheral fault rendering %s frame %d: %v", e.Kind, e.Frame, e.Cause)
}

func (e *FaultError) Unwrap() error {
	return e.Cause
}

// Status is a point-in-time view of the loop for the API.
type Status struct {
	Effective animation.Kind
	Progress  int
	Frame     int
	Period    time.Duration
	Running   bool
	Fault     string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPeriod sets the tick interval. Non-positive values are ignored.
func WithPeriod(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.period.Store(int64(d))
		}
	}
}

// WithClock replaces the real clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithBus publishes animation changes and faults on bus.
func WithBus(b *events.Bus) Option {
	return func(s *Scheduler) {
		s.bus = b
	}
}

// WithCloseOnExit makes Run close the peripheral when it returns, so the
// last call to the peripheral still happens on the loop's goroutine.
func WithCloseOnExit() Option {
	return func(s *Scheduler) {
		s.closeOnExit = true
	}
}

// WithRenderers replaces the dispatch table.
func WithRenderers(r map[animation.Kind]animation.Renderer) Option {
	return func(s *Scheduler) {
		s.renderers = r
	}
}

// Scheduler owns the frame counter and is the only caller of the
// peripheral. Tick and Run must be used from one goroutine; Status,
// Period and SetPeriod are safe from any goroutine.
type Scheduler struct {
	store      *state.Store
	peripheral led.Peripheral
	renderers  map[animation.Kind]animation.Renderer
	clock      clockwork.Clock
	bus        *events.Bus
	logger     *slog.Logger
	period     atomic.Int64

	closeOnExit bool

	// Loop state, owned by the goroutine calling Tick.
	frame     int
	effective animation.Kind
	progress  int
	adopted   bool
	cleared   bool

	mu     sync.RWMutex
	status Status

	ran  atomic.Bool
	done chan struct{}
}

// New creates a scheduler rendering the store's selection onto peripheral.
func New(store *state.Store, peripheral led.Peripheral, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:      store,
		peripheral: peripheral,
		renderers:  animation.Renderers(),
		clock:      clockwork.NewRealClock(),
		logger:     slog.Default(),
		effective:  animation.None,
		done:       make(chan struct{}),
	}
	s.period.Store(int64(DefaultPeriod))

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Period returns the current tick interval.
func (s *Scheduler) Period() time.Duration {
	return time.Duration(s.period.Load())
}

// SetPeriod changes the tick interval from the next tick on.
func (s *Scheduler) SetPeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	if old := time.Duration(s.period.Swap(int64(d))); old != d {
		s.logger.Info("Tick period changed", "from", old, "to", d)
	}
}

// Done is closed when Run returns.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Status returns a copy of the loop state as of the last tick.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	st.Period = s.Period()
	st.Running = s.ran.Load() && !isClosed(s.done)
	return st
}

// Tick runs one iteration of the loop without waiting.
func (s *Scheduler) Tick() error {
	metrics.IncTicks()

	if s.frame == 0 {
		if err := s.adopt(s.store.Snapshot()); err != nil {
			return err
		}
	}

	render, ok := s.renderers[s.effective]
	if s.effective == animation.None || !ok {
		if !s.cleared {
			if err := s.peripheral.AllOff(); err != nil {
				return s.fault(err)
			}
			s.cleared = true
		}
		s.recordStatus()
		return nil
	}

	next, err := render(s.peripheral, s.frame, s.progress)
	if err != nil {
		return s.fault(err)
	}
	metrics.IncFrames(s.effective.String())

	s.frame = next
	s.recordStatus()
	return nil
}

// adopt takes a new snapshot at an animation boundary. Switching to a
// different animation clears the LEDs once so nothing from the previous
// pattern stays lit. A progress change under PrintProgress clears too,
// since the renderer leaves colours at or below their threshold alone.
func (s *Scheduler) adopt(snap state.Snapshot) error {
	if !s.adopted || snap.Active != s.effective {
		from := s.effective
		s.effective = snap.Active
		s.adopted = true
		s.cleared = false

		if err := s.peripheral.AllOff(); err != nil {
			return s.fault(err)
		}
		s.cleared = true

		if from != snap.Active {
			s.logger.Info("Changing animation", "from", from.String(), "to", snap.Active.String())
		}
		metrics.SetActiveAnimation(from.String(), snap.Active.String())
		if s.bus != nil && from != snap.Active {
			s.bus.Publish(events.AnimationChangedEvent{
				From:      from.String(),
				To:        snap.Active.String(),
				Progress:  snap.Progress,
				Timestamp: s.clock.Now().Format(time.RFC3339),
			})
		}

		if _, ok := s.renderers[snap.Active]; !ok && snap.Active != animation.None {
			s.logger.Warn("No renderer for animation, LEDs stay off", "animation", snap.Active.String())
		}
	} else if snap.Active == animation.PrintProgress && snap.Progress != s.progress {
		if err := s.peripheral.AllOff(); err != nil {
			return s.fault(err)
		}
	}

	if snap.Progress != s.progress {
		s.logger.Info("Changing progress", "from", s.progress, "to", snap.Progress)
		s.progress = snap.Progress
	}
	return nil
}

func (s *Scheduler) fault(err error) error {
	fe := &FaultError{Kind: s.effective, Frame: s.frame, Cause: err}

	metrics.IncFaults()
	s.mu.Lock()
	s.status.Fault = fe.Error()
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(events.PeripheralFaultEvent{
			Animation: s.effective.String(),
			Frame:     s.frame,
			Error:     err.Error(),
			Timestamp: s.clock.Now().Format(time.RFC3339),
		})
	}
	return fe
}

func (s *Scheduler) recordStatus() {
	s.mu.Lock()
	s.status.Effective = s.effective
	s.status.Progress = s.progress
	s.status.Frame = s.frame
	s.mu.Unlock()
}

// Run ticks until ctx is cancelled or a frame fails. Cancellation returns
// nil; a peripheral failure returns a *FaultError. Run may only be called
// once per Scheduler. With WithCloseOnExit the peripheral is closed
// before Done is closed.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	defer close(s.done)
	if s.closeOnExit {
		defer func() {
			if err := s.peripheral.Close(); err != nil {
				s.logger.Warn("Error closing LED peripheral", "error", err)
			}
		}()
	}

	current := s.Period()
	ticker := s.clock.NewTicker(current)
	defer ticker.Stop()

	s.logger.Info("Animation loop started", "period", current)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Animation loop stopped")
			return nil

		case <-ticker.Chan():
			if err := s.Tick(); err != nil {
				s.logger.Error("Peripheral write failed, stopping animation loop", "error", err)
				return err
			}

			if p := s.Period(); p != current {
				ticker.Reset(p)
				current = p
			}
		}
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
