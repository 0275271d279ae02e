// Package mqtt publishes run lifecycle events with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// Topic is the MQTT topic for rig run lifecycle events.
const Topic = "lab/rig/soak/events"

// RunEvent represents a run lifecycle event.
type RunEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "RUN_STARTED", "MOTOR_ACTIVATED", "RUN_STOPPED"
	Reason     string // stop reason (RUN_STOPPED only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatRunPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Publisher publishes run events to MQTT.
type Publisher interface {
	// PublishRun sends a run lifecycle event to the broker.
	// Returns error if publishing fails (should not crash the run).
	PublishRun(event RunEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// RunPayload represents the MQTT message payload structure.
// Used for simple events that don't carry a full run snapshot.
type RunPayload struct {
	Run RunPayloadInner `json:"run"`
}

// RunPayloadInner contains the run event details.
type RunPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatRunPayload creates the JSON payload for a run event.
// If event.RawPayload is set, it is returned directly (used for full run
// snapshots built by internal/status).
func FormatRunPayload(event RunEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := RunPayload{
		Run: RunPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
