package printer

import (
	"context"
	"log/slog"
	"strings"
)

// OctoPrint reads job status from an OctoPrint server.
type OctoPrint struct {
	hostClient
}

type octoJob struct {
	State    string `json:"state"`
	Progress struct {
		Completion *float64 `json:"completion"`
	} `json:"progress"`
}

// NewOctoPrint creates an OctoPrint client.
func NewOctoPrint(cfg Config, logger *slog.Logger) *OctoPrint {
	return &OctoPrint{hostClient: newHostClient(cfg, logger)}
}

// Status fetches /api/job.
func (c *OctoPrint) Status(ctx context.Context) (Status, error) {
	var raw octoJob
	if err := c.getJSON(ctx, "/api/job", &raw); err != nil {
		return Status{State: StateOffline}, err
	}

	var completion float64
	if raw.Progress.Completion != nil {
		completion = *raw.Progress.Completion
	}

	st := Status{
		State:    octoState(raw.State, completion),
		Progress: clampProgress(completion),
		Online:   true,
	}
	if st.State == StateOffline {
		st.Online = false
	}
	return st, nil
}

// octoState maps OctoPrint's state text. OctoPrint has no finished state,
// a completed job reads as Operational at 100%.
func octoState(text string, completion float64) State {
	s := strings.ToLower(text)
	switch {
	case strings.HasPrefix(s, "offline"), strings.HasPrefix(s, "closed"):
		return StateOffline
	case strings.Contains(s, "error"):
		return StateError
	case strings.HasPrefix(s, "paus"):
		return StatePaused
	case strings.HasPrefix(s, "printing"), strings.HasPrefix(s, "finishing"):
		return StatePrinting
	case strings.HasPrefix(s, "operational") && completion >= 100:
		return StateFinished
	default:
		return StateIdle
	}
}
