// Package systemd reports service readiness and liveness to systemd via
// the sd_notify protocol. Every call is a no-op when the process is not
// started by systemd.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages.
type Notifier struct {
	enabled bool
	logger  *slog.Logger
}

// NewNotifier creates a notifier. enabled=false turns every call into a
// no-op regardless of the environment.
func NewNotifier(enabled bool, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{enabled: enabled, logger: logger}
}

func (n *Notifier) send(state string) bool {
	if !n.enabled {
		return false
	}
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return false
	}
	return sent
}

// Ready tells systemd that startup finished.
func (n *Notifier) Ready() {
	if n.send(daemon.SdNotifyReady) {
		n.logger.Info("Notified systemd ready")
	}
}

// Stopping tells systemd that shutdown has begun.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(text string) {
	n.send("STATUS=" + text)
}

// Watchdog pings the systemd watchdog at half the configured interval
// while healthy returns true, until ctx is cancelled. It returns at once
// when the unit has no WatchdogSec.
func (n *Notifier) Watchdog(ctx context.Context, healthy func() bool) {
	if !n.enabled {
		return
	}
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("Failed to read watchdog settings", "error", err)
		return
	}
	if interval == 0 {
		return
	}

	period := interval / 2
	n.logger.Info("systemd watchdog enabled", "interval", interval)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if healthy != nil && !healthy() {
				n.logger.Warn("Skipping watchdog ping, service unhealthy")
				continue
			}
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
