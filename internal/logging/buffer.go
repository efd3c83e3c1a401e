package logging

import (
	"strings"
	"sync"
	"time"
)

// LogEntry represents a single log line stored in the ring buffer.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Query selects entries from the buffer. Zero fields match everything.
type Query struct {
	Limit    int    // newest n entries after filtering
	Module   string // exact module name
	MinLevel string // debug, info, warn or error
}

// RingBuffer keeps the most recent log entries for the API.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	full    bool
}

// NewRingBuffer creates a new ring buffer with the specified capacity.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{entries: make([]LogEntry, size)}
}

// Write adds a log entry to the buffer, overwriting the oldest entry if full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.next] = entry
	rb.next++
	if rb.next == len(rb.entries) {
		rb.next = 0
		rb.full = true
	}
}

// ReadAll returns all entries in chronological order.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.Select(Query{})
}

// Count returns the number of entries in the buffer.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if rb.full {
		return len(rb.entries)
	}
	return rb.next
}

// Select returns the entries matching q, oldest first.
func (rb *RingBuffer) Select(q Query) []LogEntry {
	rb.mu.RLock()
	var ordered []LogEntry
	if rb.full {
		ordered = append(ordered, rb.entries[rb.next:]...)
	}
	ordered = append(ordered, rb.entries[:rb.next]...)
	rb.mu.RUnlock()

	minLevel := levelRank(q.MinLevel)
	out := ordered[:0]
	for _, e := range ordered {
		if q.Module != "" && e.Module != q.Module {
			continue
		}
		if levelRank(e.Level) < minLevel {
			continue
		}
		out = append(out, e)
	}

	if len(out) == 0 {
		return nil
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[len(out)-q.Limit:]
	}
	return out
}

// levelRank orders the level names written by BufferHandler. Unknown
// names rank lowest.
func levelRank(level string) int {
	switch strings.ToLower(level) {
	case "info":
		return 1
	case "warn", "warning":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}
