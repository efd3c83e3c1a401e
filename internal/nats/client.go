package nats

import (
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher sends printer notifications to a running glownode. It backs the
// `send` command and anything else that wants to drive the LEDs over NATS.
type Publisher struct {
	conn     *nats.Conn
	subjects Subjects
	source   string
	logger   *slog.Logger
}

// NewPublisher connects to url. source is stamped on every message.
func NewPublisher(url, prefix, source string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("glownode-publisher"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(5),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		conn:     conn,
		subjects: SubjectsFor(prefix),
		source:   source,
		logger:   logger.With("component", "nats-publisher"),
	}, nil
}

// Event publishes a lifecycle event and waits for the server to accept it.
func (p *Publisher) Event(name string) error {
	msg := EventMessage{
		Event:     name,
		Source:    p.source,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	data, err := msg.Marshal()
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subjects.PrinterEvent, data); err != nil {
		return err
	}
	if err := p.conn.Flush(); err != nil {
		return err
	}

	p.logger.Info("Sent event", "event", name, "subject", p.subjects.PrinterEvent)
	return nil
}

// Progress publishes a progress percentage and waits for the server to
// accept it.
func (p *Publisher) Progress(value int) error {
	msg := ProgressMessage{
		Progress:  value,
		Source:    p.source,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	data, err := msg.Marshal()
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subjects.PrinterProgress, data); err != nil {
		return err
	}
	if err := p.conn.Flush(); err != nil {
		return err
	}

	p.logger.Info("Sent progress", "progress", value, "subject", p.subjects.PrinterProgress)
	return nil
}

// Close closes the publisher connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
