// Package nats connects glownode to a NATS broker so printer hosts and
// scripts can drive the LEDs without HTTP.
//
// # Architecture
//
//   - Server: optional embedded NATS server for single-host setups
//   - Bridge: subscribes to printer subjects and forwards them to the
//     lifecycle sink; mirrors scheduler events from the bus onto NATS
//   - Publisher: client used by `glownode send`
//
// # Subject Hierarchy
//
//	glownode.printer.event      # lifecycle event (client → glownode)
//	glownode.printer.progress   # progress percent (client → glownode)
//	glownode.status.animation   # animation now rendering (glownode → clients)
//	glownode.status.fault       # peripheral fault (glownode → clients)
//
// The prefix is configurable. Messaging is fire-and-forget core NATS.
//
// # Debugging with nats CLI
//
// Watch everything glownode sends and receives:
//
//	nats sub "glownode.>"
//
// Start a print by hand. JSON and bare payloads are both accepted:
//
//	nats pub glownode.printer.event '{"event":"print_started"}'
//	nats pub glownode.printer.event print_started
//	nats pub glownode.printer.progress 42
//
// # Message Formats
//
// EventMessage (glownode.printer.event):
//
//	{"event": "print_done", "source": "octoprint", "timestamp": "2025-01-01T12:00:00Z"}
//
// ProgressMessage (glownode.printer.progress):
//
//	{"progress": 42, "source": "octoprint", "timestamp": "2025-01-01T12:00:00Z"}
//
// AnimationMessage (glownode.status.animation):
//
//	{"from": "print_started", "to": "print_progress", "progress": 42, "timestamp": "2025-01-01T12:00:00Z"}
//
// FaultMessage (glownode.status.fault):
//
//	{"animation": "print_failed", "frame": 17, "error": "i2c: remote I/O error", "timestamp": "2025-01-01T12:00:00Z"}
package nats
