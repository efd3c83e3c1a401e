package scheduler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/smazurov/glownode/internal/animation"
	"github.com/smazurov/glownode/internal/events"
	"github.com/smazurov/glownode/internal/led"
	"github.com/smazurov/glownode/internal/state"
)

type fakePeripheral struct {
	mu      sync.Mutex
	allOffs int
	writes  int
	failAt  int // fail the n-th call to any method, 0 disables
	calls   int
	closed  bool
}

var errBus = errors.New("i2c write failed")

func (f *fakePeripheral) call() error {
	if f.closed {
		return led.ErrClosed
	}
	f.calls++
	if f.failAt > 0 && f.calls >= f.failAt {
		return errBus
	}
	return nil
}

func (f *fakePeripheral) SetColour(led.Colour, uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	return f.call()
}

func (f *fakePeripheral) SetArm(led.Arm, uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	return f.call()
}

func (f *fakePeripheral) AllOff() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allOffs++
	return f.call()
}

func (f *fakePeripheral) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePeripheral) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakePeripheral) counts() (allOffs, writes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allOffs, f.writes
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduler(store *state.Store, p led.Peripheral, opts ...Option) *Scheduler {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(store, p, opts...)
}

func TestNoneClearsOnce(t *testing.T) {
	store := state.New()
	p := &fakePeripheral{}
	s := newTestScheduler(store, p)

	for i := 0; i < 10; i++ {
		if err := s.Tick(); err != nil {
			t.Fatal(err)
		}
	}

	allOffs, writes := p.counts()
	if allOffs != 1 {
		t.Errorf("AllOff called %d times while idle, want 1", allOffs)
	}
	if writes != 0 {
		t.Errorf("%d writes while idle", writes)
	}
	if st := s.Status(); st.Effective != animation.None || st.Frame != 0 {
		t.Errorf("status = %+v", st)
	}
}

func TestReturnToNoneClearsAgain(t *testing.T) {
	store := state.New()
	p := &fakePeripheral{}
	s := newTestScheduler(store, p)

	store.SetProgress(50, animation.PrintProgress)
	for i := 0; i < animation.CycleLength(animation.PrintProgress); i++ {
		if err := s.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	store.SetActive(animation.None)
	for i := 0; i < 5; i++ {
		if err := s.Tick(); err != nil {
			t.Fatal(err)
		}
	}

	// once entering progress, once on the way back to none
	if allOffs, _ := p.counts(); allOffs != 2 {
		t.Errorf("AllOff called %d times, want 2", allOffs)
	}
	if s.Status().Effective != animation.None {
		t.Errorf("effective = %s, want none", s.Status().Effective)
	}
}

func TestSelectionOnlyAdoptedAtFrameZero(t *testing.T) {
	store := state.New()
	s := newTestScheduler(store, &fakePeripheral{})

	store.SetActive(animation.PrintStarted)
	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}
	store.SetActive(animation.PrintDone)

	cycle := animation.CycleLength(animation.PrintStarted)
	for i := 1; i < cycle; i++ {
		if err := s.Tick(); err != nil {
			t.Fatal(err)
		}
		if got := s.Status().Effective; got != animation.PrintStarted {
			t.Fatalf("tick %d: switched to %s before the sweep finished", i, got)
		}
	}
	if s.Status().Frame != 0 {
		t.Fatalf("frame = %d after a full cycle, want 0", s.Status().Frame)
	}

	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}
	if got := s.Status().Effective; got != animation.PrintDone {
		t.Errorf("effective = %s after restart, want print_done", got)
	}
}

func TestProgressAdoptedWithAnimation(t *testing.T) {
	store := state.New()
	s := newTestScheduler(store, &fakePeripheral{})

	store.SetProgress(30, animation.PrintProgress)
	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}
	store.SetProgress(90, animation.PrintProgress)
	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}
	if got := s.Status().Progress; got != 30 {
		t.Errorf("progress = %d mid-cycle, want 30", got)
	}

	for s.Status().Frame != 0 {
		if err := s.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}
	if got := s.Status().Progress; got != 90 {
		t.Errorf("progress = %d after restart, want 90", got)
	}
}

func TestProgressDropClearsHigherTiers(t *testing.T) {
	store := state.New()
	mirror := led.NewMirror(led.NewNoop(quietLogger()))
	s := newTestScheduler(store, mirror)

	runCycle := func() {
		t.Helper()
		if err := s.Tick(); err != nil {
			t.Fatal(err)
		}
		for s.Status().Frame != 0 {
			if err := s.Tick(); err != nil {
				t.Fatal(err)
			}
		}
	}

	store.SetProgress(50, animation.PrintProgress)
	runCycle()
	levels := mirror.Levels()
	if levels[0][led.Blue] == 0 || levels[0][led.Green] == 0 {
		t.Fatalf("blue/green should have been lit at 50%%: %v", levels)
	}

	store.SetProgress(10, animation.PrintProgress)
	for range 3 {
		runCycle()
	}

	levels = mirror.Levels()
	for arm := range levels {
		for _, c := range []led.Colour{led.Blue, led.Green, led.Yellow, led.Orange} {
			if levels[arm][c] != 0 {
				t.Errorf("arm %d colour %v = %d at 10%%, want 0", arm, c, levels[arm][c])
			}
		}
	}
	if got := s.Status().Progress; got != 10 {
		t.Errorf("progress = %d, want 10", got)
	}
}

func TestTickFault(t *testing.T) {
	store := state.New()
	store.SetActive(animation.PrintFailed)
	// AllOff on adoption succeeds, first SetColour fails.
	p := &fakePeripheral{failAt: 2}

	bus := events.New()
	faults := make(chan events.PeripheralFaultEvent, 1)
	unsub := bus.Subscribe(func(ev events.PeripheralFaultEvent) { faults <- ev })
	defer unsub()

	s := newTestScheduler(store, p, WithBus(bus))
	err := s.Tick()

	var fe *FaultError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FaultError", err)
	}
	if fe.Kind != animation.PrintFailed || fe.Frame != 0 {
		t.Errorf("fault = %+v", fe)
	}
	if !errors.Is(err, errBus) {
		t.Errorf("fault does not wrap the bus error")
	}
	if s.Status().Fault == "" {
		t.Error("status does not record the fault")
	}

	select {
	case ev := <-faults:
		if ev.Animation != "print_failed" || ev.Error != errBus.Error() {
			t.Errorf("fault event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Error("no fault event published")
	}
}

func TestAnimationChangedEvent(t *testing.T) {
	store := state.New()
	bus := events.New()
	changes := make(chan events.AnimationChangedEvent, 4)
	unsub := bus.Subscribe(func(ev events.AnimationChangedEvent) { changes <- ev })
	defer unsub()

	s := newTestScheduler(store, &fakePeripheral{}, WithBus(bus))
	store.SetActive(animation.PrinterConnected)
	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-changes:
		if ev.From != "none" || ev.To != "printer_connected" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no animation-changed event")
	}
}

func TestMissingRendererStaysDark(t *testing.T) {
	store := state.New()
	store.SetActive(animation.PrintDone)
	p := &fakePeripheral{}
	s := newTestScheduler(store, p, WithRenderers(map[animation.Kind]animation.Renderer{}))

	for i := 0; i < 3; i++ {
		if err := s.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	if allOffs, writes := p.counts(); allOffs != 1 || writes != 0 {
		t.Errorf("allOffs=%d writes=%d, want 1 and 0", allOffs, writes)
	}
}

func TestFirstAdoptionOfNoneIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	p := &fakePeripheral{}
	s := New(state.New(), p, WithLogger(logger))

	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "Changing animation") {
		t.Errorf("logged a change for the initial none selection:\n%s", buf.String())
	}
	if allOffs, _ := p.counts(); allOffs != 1 {
		t.Errorf("allOffs = %d, want 1 for the first adoption", allOffs)
	}
}

func TestRunClosesPeripheralOnExit(t *testing.T) {
	for _, closeOnExit := range []bool{true, false} {
		p := &fakePeripheral{}
		opts := []Option{WithClock(clockwork.NewFakeClock())}
		if closeOnExit {
			opts = append(opts, WithCloseOnExit())
		}
		s := newTestScheduler(state.New(), p, opts...)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := s.Run(ctx); err != nil {
			t.Fatalf("Run = %v", err)
		}
		<-s.Done()

		if got := p.isClosed(); got != closeOnExit {
			t.Errorf("closeOnExit=%v: peripheral closed = %v", closeOnExit, got)
		}
	}
}

func TestSetPeriod(t *testing.T) {
	s := newTestScheduler(state.New(), &fakePeripheral{}, WithPeriod(50*time.Millisecond))
	if s.Period() != 50*time.Millisecond {
		t.Fatalf("period = %v", s.Period())
	}
	s.SetPeriod(0)
	if s.Period() != 50*time.Millisecond {
		t.Errorf("zero period should be ignored")
	}
	s.SetPeriod(20 * time.Millisecond)
	if s.Status().Period != 20*time.Millisecond {
		t.Errorf("status period = %v", s.Status().Period)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := state.New()
	store.SetActive(animation.PrinterConnected)
	p := &fakePeripheral{}
	s := newTestScheduler(store, p, WithClock(clock), WithPeriod(100*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	if err := clock.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatalf("ticker never started: %v", err)
	}

	clock.Advance(100 * time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, writes := p.counts(); writes > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no frame rendered after one period")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run returned %v on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	select {
	case <-s.Done():
	default:
		t.Error("Done not closed")
	}
	if s.Status().Running {
		t.Error("status still running")
	}
	if err := s.Run(context.Background()); !errors.Is(err, ErrAlreadyRun) {
		t.Errorf("second Run = %v, want ErrAlreadyRun", err)
	}
}

func TestRunStopsOnFault(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := &fakePeripheral{failAt: 1}
	s := newTestScheduler(state.New(), p, WithClock(clock))

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background()) }()

	waitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatalf("ticker never started: %v", err)
	}
	clock.Advance(DefaultPeriod)

	select {
	case err := <-errCh:
		var fe *FaultError
		if !errors.As(err, &fe) {
			t.Fatalf("Run returned %v, want *FaultError", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept going after a peripheral fault")
	}
}
