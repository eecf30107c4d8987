package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEdge(t *testing.T) {
	tests := []struct {
		in   string
		want Edge
	}{
		{"none", EdgeNone},
		{"rising", EdgeRising},
		{"Falling", EdgeFalling},
		{" BOTH ", EdgeBoth},
	}
	for _, tt := range tests {
		got, err := ParseEdge(tt.in)
		if assert.NoError(t, err, tt.in) {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}

	_, err := ParseEdge("sideways")
	assert.Error(t, err)
}

func TestEdgeMatches(t *testing.T) {
	tests := []struct {
		armed, observed Edge
		want            bool
	}{
		{EdgeRising, EdgeRising, true},
		{EdgeRising, EdgeFalling, false},
		{EdgeFalling, EdgeFalling, true},
		{EdgeBoth, EdgeRising, true},
		{EdgeBoth, EdgeFalling, true},
		{EdgeNone, EdgeRising, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.armed.Matches(tt.observed), "%s.Matches(%s)", tt.armed, tt.observed)
	}
}

func TestParsePull(t *testing.T) {
	for in, want := range map[string]Pull{"": PullNone, "none": PullNone, "up": PullUp, "DOWN": PullDown} {
		got, err := ParsePull(in)
		if assert.NoError(t, err, in) {
			assert.Equal(t, want, got, in)
		}
	}

	_, err := ParsePull("sideways")
	assert.Error(t, err)
}

func TestParseDescriptorSinglePin(t *testing.T) {
	pins, err := ParseDescriptor("g:5")
	require.NoError(t, err)
	assert.Equal(t, []PinSpec{{Pin: 5, Dir: DirIn}}, pins)
}

func TestParseDescriptorOptions(t *testing.T) {
	pins, err := ParseDescriptor("g:17:in:pullup:activelow:chip=gpiochip1, g:6:out")
	require.NoError(t, err)
	require.Len(t, pins, 2)

	assert.Equal(t, PinSpec{Pin: 17, Dir: DirIn, Pull: PullUp, ActiveLow: true, Chip: "gpiochip1"}, pins[0])
	assert.Equal(t, PinSpec{Pin: 6, Dir: DirOut}, pins[1])
}

func TestParseDescriptorChipKeepsCase(t *testing.T) {
	pins, err := ParseDescriptor("g:3:in:CHIP=GpioChip2")
	require.NoError(t, err)
	assert.Equal(t, "GpioChip2", pins[0].Chip)
}

func TestParseDescriptorErrors(t *testing.T) {
	for _, desc := range []string{
		"",
		"   ",
		"a:0",
		"i:1:0x40",
		"x:5",
		"g",
		"g:",
		"g:-1",
		"g:five",
		"g:5:sideways",
		"g:5:in:turbo",
		"g:5:in:chip=",
		"g:5,a:0",
	} {
		_, err := ParseDescriptor(desc)
		assert.ErrorIs(t, err, ErrDescriptor, "ParseDescriptor(%q)", desc)
	}
}

func TestFirstInput(t *testing.T) {
	got, ok := FirstInput([]PinSpec{
		{Pin: 6, Dir: DirOut},
		{Pin: 5, Dir: DirIn},
		{Pin: 4, Dir: DirIn},
	})
	require.True(t, ok)
	assert.Equal(t, 5, got.Pin)

	_, ok = FirstInput([]PinSpec{{Pin: 6, Dir: DirOut}})
	assert.False(t, ok)
}
