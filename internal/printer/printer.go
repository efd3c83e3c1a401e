// Package printer polls 3D printer hosts over HTTP and turns their state
// transitions into lifecycle events.
package printer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// State is the normalised printer state shared by all host clients.
type State string

// Printer states.
const (
	StateIdle     State = "idle"
	StatePrinting State = "printing"
	StatePaused   State = "paused"
	StateFinished State = "finished"
	StateError    State = "error"
	StateOffline  State = "offline"
)

// Supported host kinds.
const (
	KindNone      = "none"
	KindPrusaLink = "prusalink"
	KindOctoPrint = "octoprint"
)

// ErrNoJob is returned when the host reports no active job.
var ErrNoJob = errors.New("printer: no active job")

// StatusError is returned when the host answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("printer host returned %d: %s", e.Code, e.Status)
}

// Status is one observation of the printer.
type Status struct {
	State    State
	Progress int
	Online   bool
}

// Client reads the printer's current status.
type Client interface {
	Status(ctx context.Context) (Status, error)
}

// Config selects and configures a host client.
type Config struct {
	Kind    string
	Host    string
	APIKey  string
	Timeout time.Duration
	Retries int
}

// New returns the client for cfg.Kind. Kind "none" or empty returns a nil
// client and no error.
func New(cfg Config, logger *slog.Logger) (Client, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	if kind == "" || kind == KindNone {
		return nil, nil
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("printer kind %q needs a host", kind)
	}

	switch kind {
	case KindPrusaLink:
		return NewPrusaLink(cfg, logger), nil
	case KindOctoPrint:
		return NewOctoPrint(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown printer kind %q (want %s, %s or %s)", cfg.Kind, KindNone, KindPrusaLink, KindOctoPrint)
	}
}

// clampProgress rounds a host percentage into 0..100.
func clampProgress(p float64) int {
	switch {
	case p <= 0:
		return 0
	case p >= 100:
		return 100
	default:
		return int(p + 0.5)
	}
}
