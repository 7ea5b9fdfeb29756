// Package input provides the OS-facing keyboard and mouse injection
// backend. The engine drives it through the Backend interface; the concrete
// implementation is selected by build tags.
package input

import (
	"errors"
	"strings"
)

// ErrUnsupported is returned by New on platforms without an injection
// implementation. It is surfaced at startup, before any script can run.
var ErrUnsupported = errors.New("input injection is not supported on this platform")

// Key is a platform virtual-key code.
type Key uint16

// Button identifies a mouse button.
type Button int

const (
	ButtonLeft Button = iota + 1
	ButtonRight
	ButtonMiddle
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	}
	return "unknown"
}

// ParseButton resolves a case-insensitive button name.
func ParseButton(name string) (Button, bool) {
	switch strings.ToLower(name) {
	case "left":
		return ButtonLeft, true
	case "right":
		return ButtonRight, true
	case "middle":
		return ButtonMiddle, true
	}
	return 0, false
}

// Backend performs single primitive input actions against the OS. All calls
// are synchronous. Implementations assume one primary display whose size
// may change between calls and is re-queried on demand.
type Backend interface {
	// MoveCursor moves the pointer to (x, y) in pixels on the primary
	// display, or by (x, y) from the current position when relative is set.
	// Absolute coordinates outside the display bounds are rejected.
	MoveCursor(x, y int, relative bool) error

	// HoldButton presses and holds a mouse button until released.
	HoldButton(b Button) error

	// ReleaseButton releases a held mouse button.
	ReleaseButton(b Button) error

	// HoldKey presses and holds a keyboard key until released.
	HoldKey(k Key) error

	// ReleaseKey releases a held keyboard key.
	ReleaseKey(k Key) error

	// ResolveKey maps a key name from the key table to its virtual-key
	// code. Resolution is case-sensitive for named keys.
	ResolveKey(name string) (Key, bool)

	// DisplaySize returns the current primary display size in pixels.
	DisplaySize() (width, height int, err error)
}
