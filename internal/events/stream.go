package events

import (
	"sync"
	"sync/atomic"

	"github.com/kelindar/event"
)

// Stream collects events of several types into one channel for a
// select loop, such as an SSE handler. Delivery never blocks the
// publisher: when the buffer is full the event is counted and dropped.
type Stream struct {
	ch      chan any
	dropped atomic.Uint64

	mu     sync.Mutex
	unsubs []func()
	closed bool
}

// NewStream creates a stream buffering up to size events.
func NewStream(size int) *Stream {
	if size < 1 {
		size = 1
	}
	return &Stream{ch: make(chan any, size)}
}

// Listen subscribes s to events of type T on bus. Subscribing after
// Close is a no-op.
func Listen[T Event](s *Stream, bus *Bus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	unsub := event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case s.ch <- e:
		default:
			s.dropped.Add(1)
		}
	})
	s.unsubs = append(s.unsubs, unsub)
}

// C returns the receive side of the stream.
func (s *Stream) C() <-chan any {
	return s.ch
}

// Dropped reports how many events did not fit in the buffer.
func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}

// Close removes every subscription. The channel is left open so a
// concurrent delivery cannot panic.
func (s *Stream) Close() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.closed = true
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}
