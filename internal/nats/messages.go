package nats

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "glownode"

// Subject suffixes below the configured prefix.
const (
	suffixPrinterEvent    = "printer.event"
	suffixPrinterProgress = "printer.progress"
	suffixStatusAnimation = "status.animation"
	suffixStatusFault     = "status.fault"
)

// Subjects holds the full subject names for one prefix.
type Subjects struct {
	PrinterEvent    string
	PrinterProgress string
	StatusAnimation string
	StatusFault     string
}

// SubjectsFor returns the subjects under prefix. An empty prefix uses
// DefaultPrefix.
func SubjectsFor(prefix string) Subjects {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Subjects{
		PrinterEvent:    fmt.Sprintf("%s.%s", prefix, suffixPrinterEvent),
		PrinterProgress: fmt.Sprintf("%s.%s", prefix, suffixPrinterProgress),
		StatusAnimation: fmt.Sprintf("%s.%s", prefix, suffixStatusAnimation),
		StatusFault:     fmt.Sprintf("%s.%s", prefix, suffixStatusFault),
	}
}

// EventMessage is a lifecycle event sent to <prefix>.printer.event.
type EventMessage struct {
	Event     string `json:"event"`
	Source    string `json:"source,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Marshal serializes the message to JSON.
func (m EventMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ProgressMessage is a progress update sent to <prefix>.printer.progress.
type ProgressMessage struct {
	Progress  int    `json:"progress"`
	Source    string `json:"source,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Marshal serializes the message to JSON.
func (m ProgressMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// AnimationMessage reports the animation now being rendered.
type AnimationMessage struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Progress  int    `json:"progress"`
	Timestamp string `json:"timestamp"`
}

// Marshal serializes the message to JSON.
func (m AnimationMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// FaultMessage reports a peripheral failure that stopped the scheduler.
type FaultMessage struct {
	Animation string `json:"animation"`
	Frame     int    `json:"frame"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// Marshal serializes the message to JSON.
func (m FaultMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

var errEmptyPayload = errors.New("empty payload")

// UnmarshalEvent decodes an event payload. Besides JSON, a bare event
// name such as `print_started` is accepted.
func UnmarshalEvent(data []byte) (EventMessage, error) {
	var m EventMessage
	text := strings.TrimSpace(string(data))
	if text == "" {
		return m, errEmptyPayload
	}
	if !strings.HasPrefix(text, "{") {
		m.Event = text
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, err
	}
	if m.Event == "" {
		return m, errors.New("missing event name")
	}
	return m, nil
}

// UnmarshalProgress decodes a progress payload. Besides JSON, a bare
// integer is accepted.
func UnmarshalProgress(data []byte) (ProgressMessage, error) {
	var m ProgressMessage
	text := strings.TrimSpace(string(data))
	if text == "" {
		return m, errEmptyPayload
	}
	if !strings.HasPrefix(text, "{") {
		n, err := strconv.Atoi(text)
		if err != nil {
			return m, fmt.Errorf("invalid progress %q: %w", text, err)
		}
		m.Progress = n
		return m, nil
	}
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalAnimation deserializes an AnimationMessage from JSON.
func UnmarshalAnimation(data []byte) (AnimationMessage, error) {
	var m AnimationMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalFault deserializes a FaultMessage from JSON.
func UnmarshalFault(data []byte) (FaultMessage, error) {
	var m FaultMessage
	err := json.Unmarshal(data, &m)
	return m, err
}
