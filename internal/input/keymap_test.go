package input

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKeyLettersAndDigits(t *testing.T) {
	tests := []struct {
		name string
		want Key
	}{
		{"a", 0x41},
		{"z", 0x5A},
		{"A", 0x41}, // upper case shares the lower-case virtual key
		{"Z", 0x5A},
		{"0", 0x30},
		{"9", 0x39},
	}
	for _, tt := range tests {
		k, ok := LookupKey(tt.name)
		require.True(t, ok, "key %q", tt.name)
		assert.Equal(t, tt.want, k, "key %q", tt.name)
	}
}

func TestLookupKeyFunctionKeys(t *testing.T) {
	for i := 1; i <= 24; i++ {
		name := fmt.Sprintf("F%d", i)
		k, ok := LookupKey(name)
		require.True(t, ok, name)
		assert.Equal(t, Key(0x70+i-1), k, name)
	}
}

func TestLookupKeyNamedKeys(t *testing.T) {
	tests := []struct {
		name string
		want Key
	}{
		{"ctrl", 0x11},
		{"alt", 0x12},
		{"shift", 0x10},
		{"enter", 0x0D},
		{"esc", 0x1B},
		{"space", 0x20},
		{"delete", 0x2E},
		{"win", 0x5B},
		{"media_pp", 0xB3},
		{"page-up", 0x21},
	}
	for _, tt := range tests {
		k, ok := LookupKey(tt.name)
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.want, k, tt.name)
	}
}

func TestLookupKeyUnknown(t *testing.T) {
	for _, name := range []string{"", "Ctrl", "ESC", "notakey", "f1"} {
		_, ok := LookupKey(name)
		assert.False(t, ok, "name %q must not resolve", name)
	}
}

func TestParseButton(t *testing.T) {
	tests := []struct {
		in   string
		want Button
		ok   bool
	}{
		{"left", ButtonLeft, true},
		{"LEFT", ButtonLeft, true},
		{"Right", ButtonRight, true},
		{"middle", ButtonMiddle, true},
		{"side", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		b, ok := ParseButton(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, b, "input %q", tt.in)
		}
	}
}

func TestButtonString(t *testing.T) {
	assert.Equal(t, "left", ButtonLeft.String())
	assert.Equal(t, "right", ButtonRight.String())
	assert.Equal(t, "middle", ButtonMiddle.String())
	assert.Equal(t, "unknown", Button(9).String())
}
