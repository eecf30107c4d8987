// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TopicPrefix is the root of all topics published by this daemon.
const TopicPrefix = "sensors/button"

// EventTopic returns the topic for button events of the named sensor.
func EventTopic(sensor string) string {
	return TopicPrefix + "/" + sensor + "/events"
}

// SystemTopic returns the topic for lifecycle events of the named sensor.
func SystemTopic(sensor string) string {
	return TopicPrefix + "/" + sensor + "/system"
}

// CheckSensorName reports whether name can be used as a single topic level.
// Wildcards and level separators would publish to the wrong topic, and
// brokers reject NUL.
func CheckSensorName(name string) error {
	if name == "" {
		return errors.New("sensor name must not be empty")
	}
	if i := strings.IndexAny(name, "+#/\x00"); i >= 0 {
		return fmt.Errorf("sensor name %q: %q is not allowed in an mqtt topic level", name, name[i])
	}
	return nil
}

// State is the logical button state carried by an event.
type State string

const (
	StatePressed  State = "PRESSED"
	StateReleased State = "RELEASED"
)

// StateOf maps a pressed flag to a State.
func StateOf(pressed bool) State {
	if pressed {
		return StatePressed
	}
	return StateReleased
}

// Event is a single edge notification from a button.
type Event struct {
	Timestamp time.Time
	Sensor    string
	State     State
	Value     int // raw line level
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a button event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Button ButtonPayload `json:"button"`
}

// ButtonPayload contains the button event details.
type ButtonPayload struct {
	Timestamp string `json:"timestamp"`
	Sensor    string `json:"sensor"`
	State     string `json:"state"`
	Value     int    `json:"value"`
}

// FormatPayload creates the JSON payload for a button event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Button: ButtonPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Sensor:    event.Sensor,
			State:     string(event.State),
			Value:     event.Value,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}
