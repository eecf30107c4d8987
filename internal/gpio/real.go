//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// cdevLine is the part of *gpiocdev.Line that RealLine uses.
type cdevLine interface {
	Value() (int, error)
	Reconfigure(options ...gpiocdev.LineConfigOption) error
	Close() error
}

// RealLine is an input line on a Linux GPIO character device.
type RealLine struct {
	line   cdevLine
	offset int

	mu      sync.Mutex
	handler Handler
}

// Open requests offset on cfg.Chip as an input.
// The request carries an event handler from the start so Watch and Unwatch
// only reconfigure edge detection and never release the line.
func Open(offset int, cfg LineConfig) (Line, error) {
	cfg = cfg.withDefaults()

	r := &RealLine{offset: offset}
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithConsumer(cfg.Consumer),
		gpiocdev.WithEventHandler(r.dispatch),
	}
	switch cfg.Pull {
	case PullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case PullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	}

	l, err := gpiocdev.RequestLine(cfg.Chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request %s line %d: %w", cfg.Chip, offset, err)
	}
	r.line = l
	return r, nil
}

// Offset returns the line offset.
func (r *RealLine) Offset() int {
	return r.offset
}

// Value returns the raw line level.
func (r *RealLine) Value() (int, error) {
	v, err := r.line.Value()
	if err != nil {
		return 0, fmt.Errorf("read line %d: %w", r.offset, err)
	}
	return v, nil
}

// Watch enables edge detection for edge and routes events to h.
func (r *RealLine) Watch(edge Edge, h Handler) error {
	if h == nil {
		return errors.New("nil handler")
	}

	var opt gpiocdev.LineConfigOption
	switch edge {
	case EdgeRising:
		opt = gpiocdev.WithRisingEdge
	case EdgeFalling:
		opt = gpiocdev.WithFallingEdge
	case EdgeBoth:
		opt = gpiocdev.WithBothEdges
	default:
		return fmt.Errorf("%w: edge %s", ErrUnsupported, edge)
	}

	r.mu.Lock()
	prev := r.handler
	r.handler = h
	r.mu.Unlock()

	if err := r.line.Reconfigure(opt); err != nil {
		// The old edge configuration is still in force.
		r.setHandler(prev)
		return fmt.Errorf("enable %s edge on line %d: %w", edge, r.offset, err)
	}
	return nil
}

// Unwatch disables edge detection. Events already queued by the kernel are
// dropped because the handler slot is cleared first. If the kernel refuses
// to disable edges the handler is put back, so the line stays armed.
func (r *RealLine) Unwatch() error {
	r.mu.Lock()
	prev := r.handler
	r.handler = nil
	r.mu.Unlock()

	if prev == nil {
		return nil
	}
	if err := r.line.Reconfigure(gpiocdev.WithoutEdges); err != nil {
		r.setHandler(prev)
		return fmt.Errorf("disable edges on line %d: %w", r.offset, err)
	}
	return nil
}

func (r *RealLine) setHandler(h Handler) {
	r.mu.Lock()
	r.handler = h
	r.mu.Unlock()
}

// Close returns the line to a plain input and releases it.
func (r *RealLine) Close() error {
	var errs []error

	if err := r.Unwatch(); err != nil {
		errs = append(errs, err)
	}
	if err := r.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line %d: %w", r.offset, err))
	}
	return errors.Join(errs...)
}

func (r *RealLine) dispatch(evt gpiocdev.LineEvent) {
	r.mu.Lock()
	h := r.handler
	r.mu.Unlock()
	if h == nil {
		return
	}

	edge := EdgeRising
	if evt.Type == gpiocdev.LineEventFallingEdge {
		edge = EdgeFalling
	}
	h(Event{
		Offset:    evt.Offset,
		Edge:      edge,
		Timestamp: evt.Timestamp,
	})
}
