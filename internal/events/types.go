package events

// Event type constants for kelindar/event.
const (
	TypePrintEvent uint32 = iota + 1
	TypeProgress
	TypeStateChanged
	TypeAnimationChanged
	TypePeripheralFault
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// PrintEvent is a named print lifecycle notification from any source.
type PrintEvent struct {
	Name      string `json:"name" example:"print_started" doc:"Lifecycle event name"`
	Source    string `json:"source" example:"prusalink" doc:"Where the event came from"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PrintEvent.
func (e PrintEvent) Type() uint32 { return TypePrintEvent }

// ProgressEvent carries a print progress percentage.
type ProgressEvent struct {
	Progress  int    `json:"progress" example:"42" doc:"Print progress in percent"`
	Source    string `json:"source" example:"octoprint" doc:"Where the update came from"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProgressEvent.
func (e ProgressEvent) Type() uint32 { return TypeProgress }

// StateChangedEvent is published when the requested animation or progress
// changes. The scheduler adopts it at the next animation boundary.
type StateChangedEvent struct {
	Animation string `json:"animation" example:"print_progress" doc:"Requested animation"`
	Progress  int    `json:"progress" example:"42" doc:"Last progress value"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StateChangedEvent.
func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }

// AnimationChangedEvent is published when the scheduler starts rendering
// a different animation.
type AnimationChangedEvent struct {
	From      string `json:"from" example:"print_started" doc:"Previous animation"`
	To        string `json:"to" example:"print_progress" doc:"New animation"`
	Progress  int    `json:"progress" example:"42" doc:"Progress adopted with the animation"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for AnimationChangedEvent.
func (e AnimationChangedEvent) Type() uint32 { return TypeAnimationChanged }

// PeripheralFaultEvent is published when a LED write fails and the
// scheduler stops.
type PeripheralFaultEvent struct {
	Animation string `json:"animation" example:"print_failed" doc:"Animation being rendered"`
	Frame     int    `json:"frame" example:"17" doc:"Frame that failed"`
	Error     string `json:"error" example:"i2c: remote I/O error" doc:"Peripheral error"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PeripheralFaultEvent.
func (e PeripheralFaultEvent) Type() uint32 { return TypePeripheralFault }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"scheduler" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
