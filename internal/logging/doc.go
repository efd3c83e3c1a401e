// Package logging provides structured logging with per-module log levels.
//
// Records go to stdout when it is attached to a terminal, pipe or file, to
// the systemd journal when journald is reachable, and always to an
// in-memory ring buffer that backs GET /api/logs and the log-entry SSE
// stream.
//
// Initialize once at startup, then fetch one logger per subsystem:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"scheduler": "debug",
//			"nats":      "warn",
//		},
//	})
//
//	logger := logging.GetLogger("lifecycle")
//	logger.Info("Received event", "event", name)
//
// Levels are held in slog.LevelVar values, so SetLevels applies a reloaded
// configuration to loggers that already exist.
//
// Journal entries carry SYSLOG_IDENTIFIER=glownode and one upper-case
// field per attribute:
//
//	journalctl -t glownode -f
//	journalctl -t glownode MODULE=scheduler
//	journalctl -t glownode -p err
package logging
