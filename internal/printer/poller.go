package printer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/smazurov/glownode/internal/lifecycle"
	"github.com/smazurov/glownode/internal/metrics"
)

// DefaultInterval is the poll interval when none is configured.
const DefaultInterval = 2 * time.Second

// Poller polls a Client and reports state transitions to a sink.
type Poller struct {
	client   Client
	sink     lifecycle.Sink
	kind     string
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger

	mu   sync.Mutex
	last Status
}

// PollerOptions configures a Poller. Zero values select defaults.
type PollerOptions struct {
	Kind     string
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// NewPoller creates a poller. The printer is assumed offline until the
// first successful poll.
func NewPoller(client Client, sink lifecycle.Sink, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Poller{
		client:   client,
		sink:     sink,
		kind:     opts.Kind,
		interval: opts.Interval,
		clock:    opts.Clock,
		logger:   opts.Logger,
		last:     Status{State: StateOffline},
	}
}

// Last returns the most recent observation.
func (p *Poller) Last() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Run polls immediately and then every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Printer poller started", "kind", p.kind, "interval", p.interval)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Printer poller stopped")
			return
		case <-ticker.Chan():
			p.Poll(ctx)
		}
	}
}

// Poll takes one observation and emits the events for the transition from
// the previous one. A failed request counts as offline.
func (p *Poller) Poll(ctx context.Context) {
	st, err := p.client.Status(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.IncPollErrors(p.kind)
		p.logger.Debug("Printer poll failed", "kind", p.kind, "error", err)
		st = Status{State: StateOffline}
	}

	p.mu.Lock()
	prev := p.last
	p.last = st
	p.mu.Unlock()

	if st.State != prev.State {
		p.logger.Info("Printer state changed", "from", string(prev.State), "to", string(st.State), "progress", st.Progress)
	}
	p.transition(prev, st)
}

func (p *Poller) transition(prev, cur Status) {
	wasOnline := prev.Online && prev.State != StateOffline
	isOnline := cur.Online && cur.State != StateOffline

	switch {
	case !wasOnline && isOnline:
		p.sink.OnEvent(lifecycle.EventConnected)
	case wasOnline && !isOnline:
		p.sink.OnEvent(lifecycle.EventDisconnected)
		return
	case !isOnline:
		return
	}

	active := func(s State) bool { return s == StatePrinting || s == StatePaused }

	switch {
	case cur.State == StatePrinting && !active(prev.State):
		// The start sweep plays first, progress follows on the next change.
		p.sink.OnEvent(lifecycle.EventPrintStarted)
	case cur.State == StatePrinting && cur.Progress != prev.Progress:
		p.sink.OnProgress(cur.Progress)
	case active(prev.State) && cur.State == StateFinished:
		p.sink.OnEvent(lifecycle.EventPrintDone)
	case active(prev.State) && cur.State == StateError:
		p.sink.OnEvent(lifecycle.EventPrintFailed)
	case active(prev.State) && cur.State == StateIdle:
		p.sink.OnEvent(lifecycle.EventPrintCancelled)
	}
}
