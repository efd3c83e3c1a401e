package models

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"a1b2c3d" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/arm" doc:"OS and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// Lifecycle input models
type EventRequestData struct {
	Event string `json:"event" minLength:"1" example:"print_started" doc:"Lifecycle event name: connected, disconnected, print_started, print_done, print_failed or print_cancelled. Case, underscores and dashes are ignored."`
}

type EventRequest struct {
	Body EventRequestData
}

type ProgressRequestData struct {
	Progress int `json:"progress" example:"42" doc:"Print progress in percent. Values outside 0-100 are accepted and only change which colours light up."`
}

type ProgressRequest struct {
	Body ProgressRequestData
}

type AcceptedData struct {
	Animation string `json:"animation" example:"print_started" doc:"Animation requested by this call"`
	Message   string `json:"message" example:"Queued for the next animation boundary" doc:"Status message"`
}

type AcceptedResponse struct {
	Body AcceptedData
}

// State models
type RequestedState struct {
	Animation string `json:"animation" example:"print_progress" doc:"Animation requested by the last event"`
	Progress  int    `json:"progress" example:"42" doc:"Last progress value"`
}

type RenderState struct {
	Animation string `json:"animation" example:"print_started" doc:"Animation currently being drawn"`
	Progress  int    `json:"progress" example:"40" doc:"Progress adopted with the current animation"`
	Frame     int    `json:"frame" example:"17" doc:"Next frame to draw"`
	PeriodMs  int64  `json:"period_ms" example:"100" doc:"Tick period in milliseconds"`
	Running   bool   `json:"running" example:"true" doc:"Whether the animation loop is running"`
	Fault     string `json:"fault,omitempty" doc:"Peripheral fault that stopped the loop"`
}

type StateData struct {
	Requested RequestedState `json:"requested" doc:"Selection held in the shared state"`
	Rendering RenderState    `json:"rendering" doc:"What the scheduler is drawing"`
}

type StateResponse struct {
	Body StateData
}

// LED models
type ArmLevels struct {
	Arm    int              `json:"arm" example:"1" doc:"Arm number, 1 to 3"`
	Levels map[string]uint8 `json:"levels" doc:"Brightness per colour, 0-255"`
}

type LEDData struct {
	Arms []ArmLevels `json:"arms" doc:"Last level written to each LED"`
}

type LEDResponse struct {
	Body LEDData
}

// Animation catalogue models
type AnimationInfo struct {
	Name   string `json:"name" example:"print_started" doc:"Animation name"`
	Frames int    `json:"frames" example:"97" doc:"Frames per cycle, 0 for none"`
}

type AnimationListData struct {
	Animations []AnimationInfo `json:"animations" doc:"Known animations"`
	Count      int             `json:"count" example:"6" doc:"Number of animations"`
}

type AnimationListResponse struct {
	Body AnimationListData
}

// Log models
type LogsRequest struct {
	Limit  int    `query:"limit" minimum:"0" default:"100" doc:"Newest entries to return, 0 for all"`
	Module string `query:"module" example:"scheduler" doc:"Only entries from this module"`
	Level  string `query:"level" enum:"debug,info,warn,error" doc:"Minimum level"`
}

type LogEntry struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"lifecycle" doc:"Source module"`
	Message    string         `json:"message" example:"Received event" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

type LogsData struct {
	Entries []LogEntry `json:"entries" doc:"Log entries, oldest first"`
	Count   int        `json:"count" example:"100" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}

// Metrics summary models
type MetricsSummaryData struct {
	Ticks      uint64 `json:"ticks" example:"1200" doc:"Scheduler ticks since start"`
	Faults     uint64 `json:"faults" example:"0" doc:"Peripheral faults since start"`
	Events     uint64 `json:"events" example:"12" doc:"Lifecycle events received"`
	PollErrors uint64 `json:"poll_errors" example:"1" doc:"Failed printer polls"`
	Active     string `json:"active" example:"print_progress" doc:"Animation being drawn"`
}

type MetricsSummaryResponse struct {
	Body MetricsSummaryData
}
