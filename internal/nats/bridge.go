package nats

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/glownode/internal/events"
	"github.com/smazurov/glownode/internal/lifecycle"
)

// Bridge forwards printer notifications from NATS to the lifecycle sink and
// mirrors scheduler events from the bus back onto NATS.
type Bridge struct {
	url      string
	subjects Subjects
	sink     lifecycle.Sink
	eventBus *events.Bus
	conn     *nats.Conn
	subs     []*nats.Subscription
	unsubs   []func()
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewBridge creates a bridge for the subjects under prefix. eventBus may be
// nil, in which case nothing is published back.
func NewBridge(url, prefix string, sink lifecycle.Sink, eventBus *events.Bus, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		url:      url,
		subjects: SubjectsFor(prefix),
		sink:     sink,
		eventBus: eventBus,
		logger:   logger.With("component", "nats-bridge"),
	}
}

// Subjects returns the subjects the bridge uses.
func (b *Bridge) Subjects() Subjects {
	return b.subjects
}

// Start connects to NATS, subscribes to the printer subjects and starts
// mirroring bus events.
func (b *Bridge) Start() error {
	return b.StartAt("")
}

// StartAt is Start against url instead of the one given to NewBridge,
// for an embedded server whose port is only known once it runs. An empty
// url keeps the configured one.
func (b *Bridge) StartAt(url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		return errors.New("nats bridge already started")
	}
	if url != "" {
		b.url = url
	}

	conn, err := nats.Connect(b.url,
		nats.Name("glownode-bridge"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS bridge disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS bridge reconnected")
		}),
	)
	if err != nil {
		return err
	}

	b.conn = conn
	b.logger.Info("NATS bridge connected", "url", b.url)

	eventSub, err := conn.Subscribe(b.subjects.PrinterEvent, b.handleEvent)
	if err != nil {
		b.cleanup()
		return err
	}
	b.subs = append(b.subs, eventSub)

	progressSub, err := conn.Subscribe(b.subjects.PrinterProgress, b.handleProgress)
	if err != nil {
		b.cleanup()
		return err
	}
	b.subs = append(b.subs, progressSub)

	// Make sure the server has the subscriptions before reporting ready.
	if err := conn.Flush(); err != nil {
		b.cleanup()
		return err
	}

	if b.eventBus != nil {
		b.unsubs = append(b.unsubs,
			b.eventBus.Subscribe(b.publishAnimation),
			b.eventBus.Subscribe(b.publishFault),
		)
	}

	b.logger.Info("NATS bridge subscribed",
		"event_subject", b.subjects.PrinterEvent,
		"progress_subject", b.subjects.PrinterProgress)
	return nil
}

func (b *Bridge) handleEvent(msg *nats.Msg) {
	m, err := UnmarshalEvent(msg.Data)
	if err != nil {
		b.logger.Warn("Failed to decode event", "error", err, "subject", msg.Subject)
		return
	}
	b.sink.OnEvent(m.Event)
}

func (b *Bridge) handleProgress(msg *nats.Msg) {
	m, err := UnmarshalProgress(msg.Data)
	if err != nil {
		b.logger.Warn("Failed to decode progress", "error", err, "subject", msg.Subject)
		return
	}
	b.sink.OnProgress(m.Progress)
}

func (b *Bridge) publishAnimation(e events.AnimationChangedEvent) {
	b.publish(b.subjects.StatusAnimation, AnimationMessage{
		From:      e.From,
		To:        e.To,
		Progress:  e.Progress,
		Timestamp: e.Timestamp,
	})
}

func (b *Bridge) publishFault(e events.PeripheralFaultEvent) {
	b.publish(b.subjects.StatusFault, FaultMessage{
		Animation: e.Animation,
		Frame:     e.Frame,
		Error:     e.Error,
		Timestamp: e.Timestamp,
	})
}

type marshaler interface {
	Marshal() ([]byte, error)
}

func (b *Bridge) publish(subject string, m marshaler) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	if conn == nil {
		return
	}

	data, err := m.Marshal()
	if err != nil {
		b.logger.Warn("Failed to marshal message", "error", err, "subject", subject)
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		b.logger.Warn("Failed to publish", "error", err, "subject", subject)
		return
	}
	b.logger.Debug("Published status", "subject", subject)
}

// cleanup unsubscribes and closes the connection. Caller holds mu.
func (b *Bridge) cleanup() {
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil

	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil

	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

// Stop closes the bridge connection.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cleanup()
	b.logger.Info("NATS bridge stopped")
}

// IsConnected returns true if the bridge is connected to NATS.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}
