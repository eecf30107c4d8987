// Package status provides a thread-safe status tracker for the button-sensor daemon.
// It is read by HTTP handlers and written from runLoop.
package status

import (
	"sync"
	"time"
)

// Config contains daemon configuration for display.
type Config struct {
	Pin       int
	Chip      string
	Edge      string
	Pull      string
	ActiveLow bool
	Broker    string
	HTTPAddr  string
}

// Counts tracks edge notifications since startup.
type Counts struct {
	Edges    int
	Pressed  int
	Released int

	// Dropped counts notifications lost because runLoop was behind.
	Dropped    int
	ReadErrors int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Name          string
	Known         bool // false until the first successful read
	Pressed       bool
	Value         int
	ISRInstalled  bool
	LastChange    time.Time
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker for the named sensor.
func NewTracker(name string, startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Name:      name,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetLevel records a read of the button without counting an edge.
func (t *Tracker) SetLevel(pressed bool, value int) {
	t.mu.Lock()
	t.snap.Known = true
	t.snap.Pressed = pressed
	t.snap.Value = value
	t.mu.Unlock()
}

// RecordEdge records an edge notification and the level read after it.
func (t *Tracker) RecordEdge(at time.Time, pressed bool, value int) {
	t.mu.Lock()
	t.snap.Known = true
	t.snap.Pressed = pressed
	t.snap.Value = value
	t.snap.LastChange = at
	t.snap.Counts.Edges++
	if pressed {
		t.snap.Counts.Pressed++
	} else {
		t.snap.Counts.Released++
	}
	t.mu.Unlock()
}

// AddDropped adds n to the dropped-notification count.
func (t *Tracker) AddDropped(n int) {
	t.mu.Lock()
	t.snap.Counts.Dropped += n
	t.mu.Unlock()
}

// RecordReadError counts a failed read after an edge notification.
func (t *Tracker) RecordReadError() {
	t.mu.Lock()
	t.snap.Counts.ReadErrors++
	t.mu.Unlock()
}

// SetISRInstalled sets whether the button ISR is armed.
func (t *Tracker) SetISRInstalled(installed bool) {
	t.mu.Lock()
	t.snap.ISRInstalled = installed
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
