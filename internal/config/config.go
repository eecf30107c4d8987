// Package config loads the optional YAML configuration file for the daemon.
// Command-line flags are applied on top of it by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/button-sensor/internal/button"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/mqtt"
)

// NoPin marks Pin as unset.
const NoPin = -1

// Config is the daemon configuration.
type Config struct {
	// Pin is the line offset. Mutually exclusive with Descriptor.
	Pin int `yaml:"pin"`
	// Descriptor is a GPIO descriptor string, e.g. "g:17:in:pullup".
	Descriptor string `yaml:"descriptor"`
	Chip       string `yaml:"chip"`
	Edge       string `yaml:"edge"`
	Pull       string `yaml:"pull"`
	ActiveLow  bool   `yaml:"active_low"`
	Name       string `yaml:"name"`
	Broker     string `yaml:"broker"`
	HTTP       string `yaml:"http"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Pin:    NoPin,
		Chip:   gpio.DefaultChip,
		Edge:   "both",
		Pull:   "none",
		Name:   button.DefaultName,
		Broker: "tcp://192.168.1.200:1883",
		HTTP:   ":80",
	}
}

// Load reads path and overlays it on Default.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML from r and overlays it on Default. Unknown keys are
// rejected. An empty document yields Default.
func Parse(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks field values and the pin/descriptor exclusivity.
func (c Config) Validate() error {
	var errs []error

	switch {
	case c.Pin == NoPin && c.Descriptor == "":
		errs = append(errs, errors.New("one of pin or descriptor is required"))
	case c.Pin != NoPin && c.Descriptor != "":
		errs = append(errs, errors.New("pin and descriptor are mutually exclusive"))
	case c.Pin < NoPin:
		errs = append(errs, fmt.Errorf("invalid pin %d", c.Pin))
	}
	if c.Descriptor != "" {
		if _, err := gpio.ParseDescriptor(c.Descriptor); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := gpio.ParseEdge(c.Edge); err != nil {
		errs = append(errs, err)
	}
	if _, err := gpio.ParsePull(c.Pull); err != nil {
		errs = append(errs, err)
	}
	if err := mqtt.CheckSensorName(c.Name); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ButtonConfig returns the sensor configuration. The Open field is left
// nil so the sensor uses the real GPIO opener.
func (c Config) ButtonConfig() (button.Config, error) {
	pull, err := gpio.ParsePull(c.Pull)
	if err != nil {
		return button.Config{}, err
	}
	return button.Config{
		Name:      c.Name,
		Chip:      c.Chip,
		Pull:      pull,
		ActiveLow: c.ActiveLow,
	}, nil
}
