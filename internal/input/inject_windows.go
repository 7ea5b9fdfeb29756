//go:build windows

package input

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Windows implementation of input injection using the user32 SendInput API.

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procSendInput        = user32.NewProc("SendInput")
	procGetSystemMetrics = user32.NewProc("GetSystemMetrics")
)

// SendInput constants
// (https://docs.microsoft.com/en-us/windows/win32/api/winuser/ns-winuser-mouseinput)
const (
	inputMouse    = 0x00
	inputKeyboard = 0x01

	keyEventRelease = 0x0002

	mouseEventMove          = 0x0001
	mouseEventLeftPress     = 0x0002
	mouseEventLeftRelease   = 0x0004
	mouseEventRightPress    = 0x0008
	mouseEventRightRelease  = 0x0010
	mouseEventMiddlePress   = 0x0020
	mouseEventMiddleRelease = 0x0040
	mouseEventAbsolute      = 0x8000

	// Absolute mouse events address the display as a 0..65535 grid in both
	// axes regardless of the real resolution.
	mouseCoordinateSpan = 65535

	smCxScreen = 0
	smCyScreen = 1
)

type mouseInput struct {
	dx        int32
	dy        int32
	mouseData uint32
	flags     uint32
	time      uint32
	extraInfo uintptr
}

type keybdInput struct {
	vk        uint16
	scan      uint16
	flags     uint32
	time      uint32
	extraInfo uintptr
}

// rawInput mirrors the Windows INPUT struct: a type tag followed by a
// union sized for its largest member (MOUSEINPUT).
type rawInput struct {
	inputType uint32
	_         uint32 // union alignment on 64-bit
	union     [unsafe.Sizeof(mouseInput{})]byte
}

// Injector injects input events through SendInput.
type Injector struct{}

// New creates the Windows input backend.
func New() (Backend, error) {
	return &Injector{}, nil
}

func sendInput(in *rawInput) error {
	n, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(in)), unsafe.Sizeof(*in))
	if n != 1 {
		return fmt.Errorf("SendInput failed: %w", err)
	}
	return nil
}

func mouseEvent(dx, dy int32, flags uint32) *rawInput {
	in := &rawInput{inputType: inputMouse}
	mi := (*mouseInput)(unsafe.Pointer(&in.union[0]))
	mi.dx = dx
	mi.dy = dy
	mi.flags = flags
	return in
}

func keyEvent(k Key, flags uint32) *rawInput {
	in := &rawInput{inputType: inputKeyboard}
	ki := (*keybdInput)(unsafe.Pointer(&in.union[0]))
	ki.vk = uint16(k)
	ki.flags = flags
	return in
}

// MoveCursor moves the pointer to (x, y) on the primary display, or by
// (x, y) when relative is set. Absolute coordinates are validated against
// the display size, which is re-queried on every call.
func (i *Injector) MoveCursor(x, y int, relative bool) error {
	if relative {
		return sendInput(mouseEvent(int32(x), int32(y), mouseEventMove))
	}

	width, height, err := i.DisplaySize()
	if err != nil {
		return err
	}
	if x < 0 || x > width || y < 0 || y > height {
		return fmt.Errorf("coordinate (%d, %d) outside display bounds %dx%d", x, y, width, height)
	}
	dx := int32(x * (mouseCoordinateSpan / width))
	dy := int32(y * (mouseCoordinateSpan / height))
	return sendInput(mouseEvent(dx, dy, mouseEventMove|mouseEventAbsolute))
}

// HoldButton presses and holds a mouse button.
func (i *Injector) HoldButton(b Button) error {
	var flags uint32
	switch b {
	case ButtonLeft:
		flags = mouseEventLeftPress
	case ButtonRight:
		flags = mouseEventRightPress
	case ButtonMiddle:
		flags = mouseEventMiddlePress
	default:
		return fmt.Errorf("invalid mouse button %d", b)
	}
	return sendInput(mouseEvent(0, 0, flags))
}

// ReleaseButton releases a held mouse button.
func (i *Injector) ReleaseButton(b Button) error {
	var flags uint32
	switch b {
	case ButtonLeft:
		flags = mouseEventLeftRelease
	case ButtonRight:
		flags = mouseEventRightRelease
	case ButtonMiddle:
		flags = mouseEventMiddleRelease
	default:
		return fmt.Errorf("invalid mouse button %d", b)
	}
	return sendInput(mouseEvent(0, 0, flags))
}

// HoldKey presses and holds a keyboard key.
func (i *Injector) HoldKey(k Key) error {
	return sendInput(keyEvent(k, 0))
}

// ReleaseKey releases a held keyboard key.
func (i *Injector) ReleaseKey(k Key) error {
	return sendInput(keyEvent(k, keyEventRelease))
}

// ResolveKey maps a key name to its Windows virtual-key code.
func (i *Injector) ResolveKey(name string) (Key, bool) {
	return LookupKey(name)
}

// DisplaySize returns the primary display resolution in pixels.
func (i *Injector) DisplaySize() (int, int, error) {
	width, _, _ := procGetSystemMetrics.Call(smCxScreen)
	height, _, _ := procGetSystemMetrics.Call(smCyScreen)
	if width == 0 || height == 0 {
		return 0, 0, fmt.Errorf("GetSystemMetrics returned empty display size")
	}
	return int(width), int(height), nil
}
