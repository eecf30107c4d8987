// Package button models a push-button or switch read through a single GPIO
// input line, with an optional edge-triggered interrupt callback.
//
// A Sensor holds at most one ISR at a time. Installing a new ISR replaces
// the previous one, and Close uninstalls any ISR before the line is
// released. Lifecycle calls (InstallISR, UninstallISR, Close) on one Sensor
// must be serialized by the caller.
package button

import (
	"errors"
	"fmt"

	"github.com/sweeney/button-sensor/internal/gpio"
)

// DefaultName is the sensor name used when Config.Name is empty.
const DefaultName = "Button"

var (
	// ErrInvalidPin is returned for negative pin numbers.
	ErrInvalidPin = errors.New("button: invalid pin")
	// ErrAcquire is returned when the line cannot be opened or configured.
	ErrAcquire = errors.New("button: acquire line")
	// ErrRead is returned when the line level cannot be read.
	ErrRead = errors.New("button: read line")
	// ErrRegister is returned when an ISR cannot be armed.
	ErrRegister = errors.New("button: register isr")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("button: closed")
)

// Button is the read-only capability set of a button sensor.
type Button interface {
	Name() string
	Value() (int, error)
	IsPressed() (bool, error)
}

// ISR is an interrupt callback. It receives the opaque argument given to
// InstallISR and runs on the GPIO layer's notification goroutine.
type ISR func(arg any)

// Config controls how a Sensor acquires its line.
type Config struct {
	// Name identifies the sensor. Defaults to DefaultName.
	Name string
	// Chip is the GPIO chip. Defaults to gpio.DefaultChip.
	Chip string
	// Pull is the input bias.
	Pull gpio.Pull
	// ActiveLow inverts IsPressed: a low level reads as pressed.
	ActiveLow bool
	// Open requests the line. Defaults to gpio.Open.
	Open gpio.Opener
}

// Sensor is a button on one GPIO input line.
type Sensor struct {
	name         string
	activeLow    bool
	line         gpio.Line
	isrInstalled bool
}

var _ Button = (*Sensor)(nil)

// New acquires pin as an input.
func New(pin int, cfg Config) (*Sensor, error) {
	if pin < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPin, pin)
	}

	open := cfg.Open
	if open == nil {
		open = gpio.Open
	}
	line, err := open(pin, gpio.LineConfig{Chip: cfg.Chip, Pull: cfg.Pull})
	if err != nil {
		return nil, fmt.Errorf("%w: pin %d: %w", ErrAcquire, pin, err)
	}

	name := cfg.Name
	if name == "" {
		name = DefaultName
	}
	return &Sensor{
		name:      name,
		activeLow: cfg.ActiveLow,
		line:      line,
	}, nil
}

// NewFromDescriptor acquires the first input pin of a descriptor string
// (see gpio.ParseDescriptor). Options set in the descriptor override cfg.
// Other entries are validated but not acquired.
func NewFromDescriptor(desc string, cfg Config) (*Sensor, error) {
	specs, err := gpio.ParseDescriptor(desc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAcquire, err)
	}
	spec, ok := gpio.FirstInput(specs)
	if !ok {
		return nil, fmt.Errorf("%w: no input pin in descriptor %q", ErrAcquire, desc)
	}

	if spec.Chip != "" {
		cfg.Chip = spec.Chip
	}
	if spec.Pull != gpio.PullNone {
		cfg.Pull = spec.Pull
	}
	if spec.ActiveLow {
		cfg.ActiveLow = true
	}
	return New(spec.Pin, cfg)
}

// Name returns the sensor name.
func (s *Sensor) Name() string {
	return s.name
}

// Pin returns the line offset.
func (s *Sensor) Pin() int {
	if s.line == nil {
		return -1
	}
	return s.line.Offset()
}

// ActiveLow reports whether a low level means pressed.
func (s *Sensor) ActiveLow() bool {
	return s.activeLow
}

// Value returns the raw line level, 0 or 1, read from hardware on every call.
func (s *Sensor) Value() (int, error) {
	if s.line == nil {
		return 0, ErrClosed
	}
	v, err := s.line.Value()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRead, err)
	}
	if v != 0 {
		return 1, nil
	}
	return 0, nil
}

// IsPressed reports whether the line is at its active level.
func (s *Sensor) IsPressed() (bool, error) {
	pressed, _, err := s.State()
	return pressed, err
}

// State reads the line once and returns both the pressed state and the raw level.
func (s *Sensor) State() (pressed bool, value int, err error) {
	v, err := s.Value()
	if err != nil {
		return false, 0, err
	}
	return (v != 0) != s.activeLow, v, nil
}

// ISRInstalled reports whether an ISR is currently armed.
func (s *Sensor) ISRInstalled() bool {
	return s.isrInstalled
}

// InstallISR arms isr for edge, calling it with arg on each matching
// transition. An already installed ISR is uninstalled first. On error no
// ISR is installed.
func (s *Sensor) InstallISR(edge gpio.Edge, isr ISR, arg any) error {
	if s.line == nil {
		return ErrClosed
	}
	if isr == nil {
		return fmt.Errorf("%w: nil isr", ErrRegister)
	}

	if s.isrInstalled {
		if err := s.UninstallISR(); err != nil {
			return fmt.Errorf("%w: replace existing isr: %w", ErrRegister, err)
		}
	}

	err := s.line.Watch(edge, func(gpio.Event) { isr(arg) })
	if err != nil {
		return fmt.Errorf("%w: %s edge on pin %d: %w", ErrRegister, edge, s.line.Offset(), err)
	}
	s.isrInstalled = true
	return nil
}

// UninstallISR disarms the installed ISR. It is a no-op if none is installed.
func (s *Sensor) UninstallISR() error {
	if !s.isrInstalled {
		return nil
	}
	if err := s.line.Unwatch(); err != nil {
		return fmt.Errorf("uninstall isr on pin %d: %w", s.line.Offset(), err)
	}
	s.isrInstalled = false
	return nil
}

// Close uninstalls any ISR and releases the line. The line is released
// even if uninstalling fails. Calling Close again is a no-op.
func (s *Sensor) Close() error {
	if s.line == nil {
		return nil
	}

	var errs []error
	if err := s.UninstallISR(); err != nil {
		errs = append(errs, err)
	}
	if err := s.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin %d: %w", s.line.Offset(), err))
	}
	s.line = nil
	s.isrInstalled = false
	return errors.Join(errs...)
}
