package gpio

import (
	"errors"
	"fmt"
	"sync"
)

// ErrFakeClosed is returned by FakeLine methods after Close.
var ErrFakeClosed = errors.New("fake line closed")

// FakeLine is a test double for a single input line.
// Every method call is appended to Calls so tests can assert ordering,
// e.g. "unwatch" before "close".
type FakeLine struct {
	mu sync.Mutex

	offset  int
	edge    Edge
	handler Handler

	// Level is the value returned by Value().
	Level int

	// Calls records method calls in order: "value", "watch:<edge>", "unwatch", "close".
	Calls []string

	// Closed tracks if Close was called.
	Closed bool

	// ReadError, WatchError, UnwatchError and CloseError, if set, are
	// returned by the corresponding method.
	ReadError    error
	WatchError   error
	UnwatchError error
	CloseError   error
}

// NewFakeLine creates a FakeLine at the given offset with level 0.
func NewFakeLine(offset int) *FakeLine {
	return &FakeLine{offset: offset}
}

// Offset returns the line offset.
func (f *FakeLine) Offset() int {
	return f.offset
}

// Value returns the scripted level.
func (f *FakeLine) Value() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "value")
	if f.Closed {
		return 0, ErrFakeClosed
	}
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	return f.Level, nil
}

// Watch arms the fake for edge.
func (f *FakeLine) Watch(edge Edge, h Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "watch:"+edge.String())
	if f.Closed {
		return ErrFakeClosed
	}
	if f.WatchError != nil {
		return f.WatchError
	}
	if h == nil {
		return errors.New("nil handler")
	}
	if edge != EdgeRising && edge != EdgeFalling && edge != EdgeBoth {
		return fmt.Errorf("%w: edge %s", ErrUnsupported, edge)
	}
	f.edge = edge
	f.handler = h
	return nil
}

// Unwatch disarms the fake.
func (f *FakeLine) Unwatch() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "unwatch")
	if f.UnwatchError != nil {
		return f.UnwatchError
	}
	f.edge = EdgeNone
	f.handler = nil
	return nil
}

// Close marks the line as closed. A handler still armed at Close stays
// attached, so a test can detect a leaked registration with Watching().
func (f *FakeLine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "close")
	if f.CloseError != nil {
		return f.CloseError
	}
	f.Closed = true
	return nil
}

// SetReadError sets ReadError while other goroutines may be reading.
func (f *FakeLine) SetReadError(err error) {
	f.mu.Lock()
	f.ReadError = err
	f.mu.Unlock()
}

// Watching reports whether a handler is currently armed.
func (f *FakeLine) Watching() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler != nil
}

// Trigger simulates the line making the given transition. The level is
// updated and, if the armed edge matches, the handler is invoked
// synchronously on the caller's goroutine.
// It returns whether the handler was invoked.
func (f *FakeLine) Trigger(edge Edge) bool {
	f.mu.Lock()
	switch edge {
	case EdgeRising:
		f.Level = 1
	case EdgeFalling:
		f.Level = 0
	}
	h := f.handler
	armed := f.edge
	f.mu.Unlock()

	if h == nil || !armed.Matches(edge) {
		return false
	}
	h(Event{Offset: f.offset, Edge: edge})
	return true
}

// FakeOpener hands out FakeLines and records every request.
type FakeOpener struct {
	mu sync.Mutex

	// Lines contains every line opened, in order.
	Lines []*FakeLine

	// Configs contains the LineConfig of each request.
	Configs []LineConfig

	// OpenError, if set, is returned instead of a line.
	OpenError error

	// Level is the initial level of lines handed out.
	Level int
}

// NewFakeOpener creates a FakeOpener.
func NewFakeOpener() *FakeOpener {
	return &FakeOpener{}
}

// Open returns a new FakeLine.
func (o *FakeOpener) Open(offset int, cfg LineConfig) (Line, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Configs = append(o.Configs, cfg.withDefaults())
	if o.OpenError != nil {
		return nil, o.OpenError
	}
	l := NewFakeLine(offset)
	l.Level = o.Level
	o.Lines = append(o.Lines, l)
	return l, nil
}

// Last returns the most recently opened line, or nil.
func (o *FakeOpener) Last() *FakeLine {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.Lines) == 0 {
		return nil
	}
	return o.Lines[len(o.Lines)-1]
}
