package lifecycle

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/glownode/internal/animation"
	"github.com/smazurov/glownode/internal/events"
	"github.com/smazurov/glownode/internal/state"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOnEventMapping(t *testing.T) {
	tests := []struct {
		event string
		want  animation.Kind
	}{
		{"connected", animation.PrinterConnected},
		{"print_started", animation.PrintStarted},
		{"print_done", animation.PrintDone},
		{"print_failed", animation.PrintFailed},
		{"print_cancelled", animation.PrintFailed},
		{"disconnected", animation.None},
		{"PrintStarted", animation.PrintStarted},
		{"PRINT_DONE", animation.PrintDone},
		{"PrintCancelled", animation.PrintFailed},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			store := state.New()
			// Start from something that differs from every target.
			store.SetProgress(5, animation.PrintProgress)

			h := NewHandler(store, nil, newTestLogger())
			h.OnEvent(tt.event)

			if got := store.Snapshot().Active; got != tt.want {
				t.Errorf("OnEvent(%q) active = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestOnEventIgnoresUnknown(t *testing.T) {
	for _, name := range []string{
		"", "garbage_value", "FileUploaded", "print", "connected!",
		"print-started", "PRINT STARTED", "print started", " connected", "print.done",
	} {
		store := state.New()
		store.SetActive(animation.PrintStarted)

		h := NewHandler(store, nil, newTestLogger())
		h.OnEvent(name)

		if got := store.Snapshot(); got.Active != animation.PrintStarted {
			t.Errorf("OnEvent(%q) changed active to %v", name, got.Active)
		}
	}
}

func TestOnProgressAlwaysSwitches(t *testing.T) {
	for _, kind := range animation.Kinds() {
		store := state.New()
		store.SetActive(kind)

		h := NewHandler(store, nil, newTestLogger())
		h.OnProgress(37)

		got := store.Snapshot()
		if got.Active != animation.PrintProgress || got.Progress != 37 {
			t.Errorf("from %v: snapshot = %+v, want {PrintProgress 37}", kind, got)
		}
	}
}

func TestOnProgressPassesOutOfRange(t *testing.T) {
	store := state.New()
	h := NewHandler(store, nil, newTestLogger())

	h.OnProgress(-3)
	if got := store.Snapshot().Progress; got != -3 {
		t.Errorf("progress = %d, want -3", got)
	}
	h.OnProgress(140)
	if got := store.Snapshot().Progress; got != 140 {
		t.Errorf("progress = %d, want 140", got)
	}
}

func TestSourceSink(t *testing.T) {
	store := state.New()
	h := NewHandler(store, nil, newTestLogger())

	var sink Sink = h.Source("http")
	sink.OnEvent("print_done")
	if got := store.Snapshot().Active; got != animation.PrintDone {
		t.Errorf("active = %v, want PrintDone", got)
	}
	sink.OnProgress(12)
	if got := store.Snapshot(); got.Active != animation.PrintProgress || got.Progress != 12 {
		t.Errorf("snapshot = %+v", got)
	}
}

func TestHandlerBusSubscription(t *testing.T) {
	bus := events.New()
	store := state.New()
	h := NewHandler(store, bus, newTestLogger())

	changes := make(chan events.StateChangedEvent, 4)
	unsub := bus.Subscribe(func(e events.StateChangedEvent) { changes <- e })
	defer unsub()

	h.Start()
	defer h.Stop()

	bus.Publish(events.PrintEvent{Name: "print_started", Source: "test"})

	select {
	case e := <-changes:
		if e.Animation != "print_started" {
			t.Errorf("StateChangedEvent animation = %q, want print_started", e.Animation)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for state change")
	}

	bus.Publish(events.ProgressEvent{Progress: 64, Source: "test"})

	select {
	case e := <-changes:
		if e.Animation != "print_progress" || e.Progress != 64 {
			t.Errorf("StateChangedEvent = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for progress change")
	}
}

func TestHandlerStopUnsubscribes(t *testing.T) {
	bus := events.New()
	store := state.New()
	h := NewHandler(store, bus, newTestLogger())

	h.Start()
	h.Stop()

	bus.Publish(events.PrintEvent{Name: "print_failed"})
	time.Sleep(20 * time.Millisecond)

	if got := store.Snapshot().Active; got != animation.None {
		t.Errorf("active = %v after Stop, want None", got)
	}
}

func TestConcurrentProgressNeverTorn(t *testing.T) {
	store := state.New()
	h := NewHandler(store, nil, newTestLogger())

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 500 {
				if i%2 == 0 {
					h.OnProgress(w*1000 + i)
				} else {
					h.OnEvent("print_done")
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		snap := store.Snapshot()
		// A progress write always pairs with PrintProgress, so PrintProgress
		// must carry a value some writer produced with an even index.
		if snap.Active == animation.PrintProgress && snap.Progress%1000%2 != 0 {
			t.Fatalf("torn snapshot %+v", snap)
		}
		select {
		case <-done:
			return
		default:
		}
	}
}
