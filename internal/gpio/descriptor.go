package gpio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrDescriptor is wrapped by all descriptor parse errors.
var ErrDescriptor = errors.New("invalid descriptor")

// PinSpec is one GPIO entry of a descriptor string.
type PinSpec struct {
	Pin       int
	Dir       Direction
	Pull      Pull
	ActiveLow bool
	Chip      string
}

var unsupportedIO = map[string]string{
	"a": "analog input",
	"i": "i2c",
	"p": "pwm",
	"s": "spi",
	"u": "uart",
}

// ParseDescriptor parses a comma-separated list of IO specs.
//
// A GPIO spec has the form g:<pin>[:<dir>[:<opt>...]] where dir is "in"
// (default) or "out" and opt is one of pullup, pulldown, activelow or
// chip=<name>. Example: "g:5:in:pullup:activelow,g:6:out".
func ParseDescriptor(desc string) ([]PinSpec, error) {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return nil, fmt.Errorf("%w: empty", ErrDescriptor)
	}

	var specs []PinSpec
	for i, item := range strings.Split(desc, ",") {
		spec, err := parsePinSpec(strings.TrimSpace(item))
		if err != nil {
			return nil, fmt.Errorf("%w: item %d %q: %v", ErrDescriptor, i, item, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parsePinSpec(item string) (PinSpec, error) {
	fields := strings.Split(item, ":")
	kind := strings.ToLower(fields[0])
	if name, ok := unsupportedIO[kind]; ok {
		return PinSpec{}, fmt.Errorf("unsupported io type %s (%s)", kind, name)
	}
	if kind != "g" {
		return PinSpec{}, fmt.Errorf("unknown io type %q", fields[0])
	}
	if len(fields) < 2 || fields[1] == "" {
		return PinSpec{}, errors.New("missing pin")
	}

	pin, err := strconv.Atoi(fields[1])
	if err != nil || pin < 0 {
		return PinSpec{}, fmt.Errorf("bad pin %q", fields[1])
	}
	spec := PinSpec{Pin: pin}

	if len(fields) > 2 {
		switch strings.ToLower(fields[2]) {
		case "", "in":
			spec.Dir = DirIn
		case "out":
			spec.Dir = DirOut
		default:
			return PinSpec{}, fmt.Errorf("unknown direction %q", fields[2])
		}
	}

	for _, opt := range fields[min(len(fields), 3):] {
		switch lower := strings.ToLower(opt); {
		case lower == "pullup":
			spec.Pull = PullUp
		case lower == "pulldown":
			spec.Pull = PullDown
		case lower == "activelow":
			spec.ActiveLow = true
		case strings.HasPrefix(lower, "chip="):
			spec.Chip = opt[len("chip="):]
			if spec.Chip == "" {
				return PinSpec{}, errors.New("empty chip name")
			}
		default:
			return PinSpec{}, fmt.Errorf("unknown option %q", opt)
		}
	}
	return spec, nil
}

// FirstInput returns the first input spec, if any.
func FirstInput(specs []PinSpec) (PinSpec, bool) {
	for _, s := range specs {
		if s.Dir == DirIn {
			return s, true
		}
	}
	return PinSpec{}, false
}
