//go:build !linux

package gpio

import "fmt"

// Open returns an error on non-Linux platforms.
func Open(offset int, cfg LineConfig) (Line, error) {
	return nil, fmt.Errorf("%w on this platform (requires Linux): line %d", ErrUnsupported, offset)
}
