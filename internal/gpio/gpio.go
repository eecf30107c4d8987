// Package gpio provides single-line GPIO input access with edge notification.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultChip is the GPIO chip used when none is configured.
const DefaultChip = "gpiochip0"

// DefaultConsumer is the consumer label shown by gpioinfo for requested lines.
const DefaultConsumer = "button-sensor"

// ErrUnsupported is returned when edge detection or line access is unavailable.
var ErrUnsupported = errors.New("gpio: not supported")

// Edge is a signal transition that can trigger a notification.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeNone:
		return "none"
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return fmt.Sprintf("edge(%d)", int(e))
	}
}

// Matches reports whether an observed edge (rising or falling) is selected by e.
func (e Edge) Matches(observed Edge) bool {
	switch e {
	case EdgeBoth:
		return observed == EdgeRising || observed == EdgeFalling
	case EdgeRising, EdgeFalling:
		return observed == e
	}
	return false
}

// ParseEdge parses none, rising, falling or both.
func ParseEdge(s string) (Edge, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return EdgeNone, nil
	case "rising":
		return EdgeRising, nil
	case "falling":
		return EdgeFalling, nil
	case "both":
		return EdgeBoth, nil
	}
	return EdgeNone, fmt.Errorf("unknown edge %q", s)
}

// Pull is the bias applied to an input line.
type Pull int

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

func (p Pull) String() string {
	switch p {
	case PullNone:
		return "none"
	case PullUp:
		return "up"
	case PullDown:
		return "down"
	default:
		return fmt.Sprintf("pull(%d)", int(p))
	}
}

// ParsePull parses none, up or down. An empty string is PullNone.
func ParsePull(s string) (Pull, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return PullNone, nil
	case "up":
		return PullUp, nil
	case "down":
		return PullDown, nil
	}
	return PullNone, fmt.Errorf("unknown pull %q", s)
}

// Direction is the usage of a line.
type Direction int

const (
	DirIn Direction = iota
	DirOut
)

func (d Direction) String() string {
	if d == DirOut {
		return "out"
	}
	return "in"
}

// Event is delivered to a Handler when a watched edge occurs.
type Event struct {
	Offset int
	// Edge is the transition that happened: EdgeRising or EdgeFalling.
	Edge Edge
	// Timestamp is kernel monotonic time, only meaningful between events.
	Timestamp time.Duration
}

// Handler receives edge events. It runs in the GPIO layer's notification
// goroutine, concurrently with the goroutine that armed it.
type Handler func(Event)

// LineConfig describes how a line is requested.
type LineConfig struct {
	Chip     string
	Pull     Pull
	Consumer string
}

func (c LineConfig) withDefaults() LineConfig {
	if c.Chip == "" {
		c.Chip = DefaultChip
	}
	if c.Consumer == "" {
		c.Consumer = DefaultConsumer
	}
	return c
}

// Line is a single requested input line.
type Line interface {
	// Offset returns the line offset on its chip.
	Offset() int

	// Value returns the current level (0 or 1), read from hardware.
	Value() (int, error)

	// Watch arms edge detection and routes events to h, replacing any
	// existing watch. On error the previous watch, if any, is unchanged.
	Watch(edge Edge, h Handler) error

	// Unwatch disarms edge detection. It is a no-op if nothing is armed.
	// On error the line stays armed and events still reach the handler.
	Unwatch() error

	// Close releases the line.
	Close() error
}

// Opener requests a line as input.
type Opener func(offset int, cfg LineConfig) (Line, error)
