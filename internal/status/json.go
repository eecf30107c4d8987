package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Sensor        string     `json:"sensor"`
	State         string     `json:"state"`
	Value         int        `json:"value"`
	ISRInstalled  bool       `json:"isr_installed"`
	LastChange    string     `json:"last_change,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"event_counts"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Edges      int `json:"edges"`
	Pressed    int `json:"pressed"`
	Released   int `json:"released"`
	Dropped    int `json:"dropped"`
	ReadErrors int `json:"read_errors"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Pin       int    `json:"pin"`
	Chip      string `json:"chip"`
	Edge      string `json:"edge"`
	Pull      string `json:"pull"`
	ActiveLow bool   `json:"active_low"`
	Broker    string `json:"broker"`
	HTTPAddr  string `json:"http_addr"`
}

// StateString returns PRESSED, RELEASED or UNKNOWN for the snapshot.
func (s Snapshot) StateString() string {
	switch {
	case !s.Known:
		return "UNKNOWN"
	case s.Pressed:
		return "PRESSED"
	default:
		return "RELEASED"
	}
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Sensor:        snap.Name,
		State:         snap.StateString(),
		Value:         snap.Value,
		ISRInstalled:  snap.ISRInstalled,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Edges:      snap.Counts.Edges,
			Pressed:    snap.Counts.Pressed,
			Released:   snap.Counts.Released,
			Dropped:    snap.Counts.Dropped,
			ReadErrors: snap.Counts.ReadErrors,
		},
		Config: ConfigJSON{
			Pin:       snap.Config.Pin,
			Chip:      snap.Config.Chip,
			Edge:      snap.Config.Edge,
			Pull:      snap.Config.Pull,
			ActiveLow: snap.Config.ActiveLow,
			Broker:    snap.Config.Broker,
			HTTPAddr:  snap.Config.HTTPAddr,
		},
	}
	if !snap.LastChange.IsZero() {
		inner.LastChange = snap.LastChange.UTC().Format(time.RFC3339Nano)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
