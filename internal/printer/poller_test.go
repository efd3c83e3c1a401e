package printer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	script []Status
	errs   []error
	i      int
}

func (c *scriptedClient) Status(context.Context) (Status, error) {
	if c.i >= len(c.script) {
		return c.script[len(c.script)-1], nil
	}
	st := c.script[c.i]
	var err error
	if c.i < len(c.errs) {
		err = c.errs[c.i]
	}
	c.i++
	return st, err
}

type call struct {
	event    string
	progress int
}

type recordingSink struct {
	calls []call
}

func (s *recordingSink) OnEvent(name string)  { s.calls = append(s.calls, call{event: name}) }
func (s *recordingSink) OnProgress(value int) { s.calls = append(s.calls, call{progress: value}) }

func online(state State, progress int) Status {
	return Status{State: state, Progress: progress, Online: true}
}

func pollAll(t *testing.T, p *Poller, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		p.Poll(context.Background())
	}
}

func TestPollerPrintLifecycle(t *testing.T) {
	client := &scriptedClient{script: []Status{
		online(StateIdle, 0),
		online(StatePrinting, 0),
		online(StatePrinting, 0),
		online(StatePrinting, 35),
		online(StatePaused, 35),
		online(StatePrinting, 36),
		online(StateFinished, 100),
		online(StateIdle, 0),
	}}
	sink := &recordingSink{}
	p := NewPoller(client, sink, PollerOptions{Kind: KindPrusaLink, Logger: quietLogger()})

	pollAll(t, p, len(client.script))

	assert.Equal(t, []call{
		{event: "connected"},
		{event: "print_started"},
		{progress: 35},
		{progress: 36},
		{event: "print_done"},
	}, sink.calls)
	assert.Equal(t, StateIdle, p.Last().State)
}

func TestPollerFailureAndCancel(t *testing.T) {
	client := &scriptedClient{script: []Status{
		online(StatePrinting, 10),
		online(StateError, 10),
		online(StatePrinting, 0),
		online(StateIdle, 0),
	}}
	sink := &recordingSink{}
	p := NewPoller(client, sink, PollerOptions{Logger: quietLogger()})

	pollAll(t, p, 4)

	assert.Equal(t, []call{
		{event: "connected"},
		{event: "print_started"},
		{event: "print_failed"},
		{event: "print_started"},
		{event: "print_cancelled"},
	}, sink.calls)
}

func TestPollerOfflineTransitions(t *testing.T) {
	client := &scriptedClient{
		script: []Status{
			online(StateIdle, 0),
			{State: StateOffline},
			{State: StateOffline},
			online(StateIdle, 0),
		},
		errs: []error{nil, errors.New("connection refused"), &StatusError{Code: 503}},
	}
	sink := &recordingSink{}
	p := NewPoller(client, sink, PollerOptions{Kind: KindOctoPrint, Logger: quietLogger()})

	pollAll(t, p, 4)

	assert.Equal(t, []call{
		{event: "connected"},
		{event: "disconnected"},
		{event: "connected"},
	}, sink.calls)
}

func TestPollerRun(t *testing.T) {
	clock := clockwork.NewFakeClock()
	client := &scriptedClient{script: []Status{online(StateIdle, 0)}}
	sink := &recordingSink{}
	p := NewPoller(client, sink, PollerOptions{Interval: time.Second, Clock: clock, Logger: quietLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, []call{{event: "connected"}}, sink.calls)
}
