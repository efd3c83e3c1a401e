// Package lifecycle translates print lifecycle notifications into
// animation selections on the shared state store.
package lifecycle

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/glownode/internal/animation"
	"github.com/smazurov/glownode/internal/events"
	"github.com/smazurov/glownode/internal/metrics"
	"github.com/smazurov/glownode/internal/state"
)

// Lifecycle event names understood by the handler.
const (
	EventConnected      = "connected"
	EventDisconnected   = "disconnected"
	EventPrintStarted   = "print_started"
	EventPrintDone      = "print_done"
	EventPrintFailed    = "print_failed"
	EventPrintCancelled = "print_cancelled"
)

// Sink receives print lifecycle notifications. Calls never block on I/O.
type Sink interface {
	OnEvent(name string)
	OnProgress(value int)
}

// eventKinds is keyed by normalised name, so "print_started",
// "PrintStarted" and "PRINT_STARTED" all match.
var eventKinds = map[string]animation.Kind{
	normalise(EventConnected):      animation.PrinterConnected,
	normalise(EventPrintStarted):   animation.PrintStarted,
	normalise(EventPrintDone):      animation.PrintDone,
	normalise(EventPrintFailed):    animation.PrintFailed,
	normalise(EventPrintCancelled): animation.PrintFailed,
	normalise(EventDisconnected):   animation.None,
}

// KindForEvent returns the animation an event selects. ok is false for
// events the handler ignores.
func KindForEvent(name string) (kind animation.Kind, ok bool) {
	kind, ok = eventKinds[normalise(name)]
	return kind, ok
}

// normalise folds case and drops underscores. Other separators are kept,
// so "print-started" or "print started" stay unknown.
func normalise(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "")
}

// Handler is the only writer of the state store.
type Handler struct {
	store  *state.Store
	bus    *events.Bus
	logger *slog.Logger

	mu            sync.Mutex
	unsubscribers []func()
}

// NewHandler creates a handler writing to store. bus may be nil.
func NewHandler(store *state.Store, bus *events.Bus, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		bus:    bus,
		logger: logger,
	}
}

// OnEvent selects the animation for a lifecycle event. Unknown names are
// ignored.
func (h *Handler) OnEvent(name string) {
	h.handleEvent(name, "direct")
}

// OnProgress stores the progress and selects the progress animation. The
// value is not range checked.
func (h *Handler) OnProgress(value int) {
	h.handleProgress(value, "direct")
}

// Source returns a Sink that tags its calls with source in logs and metrics.
func (h *Handler) Source(source string) Sink {
	return sourced{h: h, source: source}
}

// Start subscribes the handler to PrintEvent and ProgressEvent on the bus.
func (h *Handler) Start() {
	if h.bus == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.unsubscribers = append(h.unsubscribers,
		h.bus.Subscribe(func(e events.PrintEvent) {
			h.handleEvent(e.Name, sourceOr(e.Source, "bus"))
		}),
		h.bus.Subscribe(func(e events.ProgressEvent) {
			h.handleProgress(e.Progress, sourceOr(e.Source, "bus"))
		}),
	)
	h.logger.Info("Lifecycle handler started")
}

// Stop unsubscribes from the bus.
func (h *Handler) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, unsub := range h.unsubscribers {
		unsub()
	}
	h.unsubscribers = nil
	h.logger.Info("Lifecycle handler stopped")
}

func (h *Handler) handleEvent(name, source string) {
	kind, ok := KindForEvent(name)
	if !ok {
		h.logger.Debug("Ignoring event", "event", name, "source", source)
		return
	}

	h.logger.Info("Received event", "event", name, "source", source, "animation", kind.String())
	metrics.IncEvents(normalisedName(name), source)

	h.store.SetActive(kind)
	h.publishState()
}

func (h *Handler) handleProgress(value int, source string) {
	h.logger.Info("Received print progress", "progress", value, "source", source)
	metrics.IncEvents("progress", source)
	metrics.SetProgress(value)

	h.store.SetProgress(value, animation.PrintProgress)
	h.publishState()
}

func (h *Handler) publishState() {
	if h.bus == nil {
		return
	}
	snap := h.store.Snapshot()
	h.bus.Publish(events.StateChangedEvent{
		Animation: snap.Active.String(),
		Progress:  snap.Progress,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// normalisedName maps accepted spellings back to the canonical event name
// so metrics labels stay bounded.
func normalisedName(name string) string {
	n := normalise(name)
	for _, canonical := range []string{
		EventConnected, EventDisconnected, EventPrintStarted,
		EventPrintDone, EventPrintFailed, EventPrintCancelled,
	} {
		if normalise(canonical) == n {
			return canonical
		}
	}
	return n
}

func sourceOr(source, fallback string) string {
	if source == "" {
		return fallback
	}
	return source
}

type sourced struct {
	h      *Handler
	source string
}

func (s sourced) OnEvent(name string)  { s.h.handleEvent(name, s.source) }
func (s sourced) OnProgress(value int) { s.h.handleProgress(value, s.source) }
