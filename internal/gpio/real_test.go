//go:build linux

package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/go-gpiocdev"
)

// stubCdev stands in for a requested gpiocdev line.
type stubCdev struct {
	value        int
	reconfigErr  error
	reconfigures int
	closed       bool
}

func (s *stubCdev) Value() (int, error) { return s.value, nil }

func (s *stubCdev) Reconfigure(...gpiocdev.LineConfigOption) error {
	s.reconfigures++
	return s.reconfigErr
}

func (s *stubCdev) Close() error {
	s.closed = true
	return nil
}

func newStubLine() (*RealLine, *stubCdev) {
	cdev := &stubCdev{}
	return &RealLine{line: cdev, offset: 5}, cdev
}

func risingEvent() gpiocdev.LineEvent {
	return gpiocdev.LineEvent{Offset: 5, Type: gpiocdev.LineEventRisingEdge}
}

func TestRealLineDispatch(t *testing.T) {
	r, _ := newStubLine()

	var got []Event
	require.NoError(t, r.Watch(EdgeBoth, func(e Event) { got = append(got, e) }))
	r.dispatch(risingEvent())
	r.dispatch(gpiocdev.LineEvent{Offset: 5, Type: gpiocdev.LineEventFallingEdge})

	require.Len(t, got, 2)
	assert.Equal(t, EdgeRising, got[0].Edge)
	assert.Equal(t, EdgeFalling, got[1].Edge)
	assert.Equal(t, 5, got[0].Offset)
}

func TestRealLineUnwatchFailureStaysArmed(t *testing.T) {
	r, cdev := newStubLine()

	n := 0
	require.NoError(t, r.Watch(EdgeRising, func(Event) { n++ }))

	cdev.reconfigErr = errors.New("ioctl failed")
	require.Error(t, r.Unwatch())

	r.dispatch(risingEvent())
	assert.Equal(t, 1, n, "handler must still receive events while edges are enabled")

	cdev.reconfigErr = nil
	require.NoError(t, r.Unwatch())
	r.dispatch(risingEvent())
	assert.Equal(t, 1, n)
}

func TestRealLineWatchFailureKeepsPrevious(t *testing.T) {
	r, cdev := newStubLine()

	first, second := 0, 0
	require.NoError(t, r.Watch(EdgeRising, func(Event) { first++ }))

	cdev.reconfigErr = errors.New("ioctl failed")
	require.Error(t, r.Watch(EdgeFalling, func(Event) { second++ }))

	r.dispatch(risingEvent())
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
}

func TestRealLineWatchNoneRejected(t *testing.T) {
	r, cdev := newStubLine()

	err := r.Watch(EdgeNone, func(Event) {})
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Zero(t, cdev.reconfigures)
}

func TestRealLineUnwatchIdle(t *testing.T) {
	r, cdev := newStubLine()

	require.NoError(t, r.Unwatch())
	assert.Zero(t, cdev.reconfigures, "nothing armed, nothing to reconfigure")
}

func TestRealLineCloseDisarmsFirst(t *testing.T) {
	r, cdev := newStubLine()

	n := 0
	require.NoError(t, r.Watch(EdgeBoth, func(Event) { n++ }))
	require.NoError(t, r.Close())

	assert.Equal(t, 2, cdev.reconfigures)
	assert.True(t, cdev.closed)
	r.dispatch(risingEvent())
	assert.Zero(t, n)
}

func TestRealLineCloseReleasesOnUnwatchFailure(t *testing.T) {
	r, cdev := newStubLine()

	require.NoError(t, r.Watch(EdgeBoth, func(Event) {}))
	cdev.reconfigErr = errors.New("ioctl failed")

	assert.Error(t, r.Close())
	assert.True(t, cdev.closed)
}
