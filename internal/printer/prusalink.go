package printer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// PrusaLink reads status from a Prusa printer's local PrusaLink API.
type PrusaLink struct {
	hostClient
}

type prusaStatus struct {
	Printer struct {
		State string `json:"state"`
	} `json:"printer"`
	Job *prusaJob `json:"job"`
}

type prusaJob struct {
	ID       int     `json:"id"`
	Progress float64 `json:"progress"`
}

// NewPrusaLink creates a PrusaLink client.
func NewPrusaLink(cfg Config, logger *slog.Logger) *PrusaLink {
	return &PrusaLink{hostClient: newHostClient(cfg, logger)}
}

// Status fetches /api/v1/status. Older firmware omits the job section, in
// which case /api/v1/job is asked for progress.
func (c *PrusaLink) Status(ctx context.Context) (Status, error) {
	var raw prusaStatus
	if err := c.getJSON(ctx, "/api/v1/status", &raw); err != nil {
		return Status{State: StateOffline}, err
	}

	st := Status{State: prusaState(raw.Printer.State), Online: true}
	if st.State != StatePrinting && st.State != StatePaused {
		return st, nil
	}

	job := raw.Job
	if job == nil {
		job = &prusaJob{}
		err := c.getJSON(ctx, "/api/v1/job", job)
		switch {
		case errors.Is(err, ErrNoJob):
		case err != nil:
			return Status{State: StateOffline}, err
		}
	}
	st.Progress = clampProgress(job.Progress)
	return st, nil
}

func prusaState(s string) State {
	switch strings.ToUpper(s) {
	case "PRINTING":
		return StatePrinting
	case "PAUSED":
		return StatePaused
	case "FINISHED":
		return StateFinished
	case "ERROR", "ATTENTION":
		return StateError
	default:
		// IDLE, READY, BUSY, STOPPED
		return StateIdle
	}
}
