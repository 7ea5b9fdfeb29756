package engine

import (
	"fmt"
	"strconv"
	"strings"

	"keyrun/internal/input"
)

// Command handlers. Each receives the comma-split parameters of its script
// line (arity already validated) and delegates to the input backend.
// Returned errors are action failures: logged by the executor, not fatal to
// the run.

// press resolves a '+'-joined key combination, holds every key in order,
// waits the hold duration and releases them in reverse order. Spaces and
// backslashes in the sequence are ignored.
func (e *Executor) press(params []string) error {
	sequence := strings.NewReplacer(" ", "", `\`, "").Replace(params[0])
	names := strings.Split(sequence, "+")

	held := make(map[input.Key]bool, len(names))
	codes := make([]input.Key, 0, len(names))
	for _, name := range names {
		code, ok := e.backend.ResolveKey(name)
		if !ok {
			return fmt.Errorf("key %q has no valid key code", name)
		}
		if held[code] {
			return fmt.Errorf("key %q repeated in combination %q", name, params[0])
		}
		held[code] = true
		codes = append(codes, code)
	}

	for i, code := range codes {
		if err := e.backend.HoldKey(code); err != nil {
			// Let go of anything already held before giving up.
			for j := i - 1; j >= 0; j-- {
				e.backend.ReleaseKey(codes[j]) //nolint:errcheck
			}
			return fmt.Errorf("hold key %q: %w", names[i], err)
		}
	}
	e.sleep(e.keyHold)
	var firstErr error
	for i := len(codes) - 1; i >= 0; i-- {
		if err := e.backend.ReleaseKey(codes[i]); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("release key %q: %w", names[i], err)
		}
	}
	return firstErr
}

// write presses each character of the sequence individually, in order,
// stopping at the first character with no key mapping.
func (e *Executor) write(params []string) error {
	sequence := params[0]
	for _, r := range sequence {
		code, ok := e.backend.ResolveKey(string(r))
		if !ok {
			return fmt.Errorf("could not write character %q in sequence %q", r, sequence)
		}
		if err := e.backend.HoldKey(code); err != nil {
			return fmt.Errorf("write character %q: %w", r, err)
		}
		e.sleep(e.keyHold)
		if err := e.backend.ReleaseKey(code); err != nil {
			return fmt.Errorf("write character %q: %w", r, err)
		}
	}
	return nil
}

// move places the pointer at absolute pixel coordinates on the primary
// display. Both coordinates must be non-negative decimal integers; the
// backend rejects positions outside the display bounds.
func (e *Executor) move(params []string) error {
	x, err := parseCoordinate(params[0])
	if err != nil {
		return fmt.Errorf("x: %w", err)
	}
	y, err := parseCoordinate(params[1])
	if err != nil {
		return fmt.Errorf("y: %w", err)
	}
	return e.backend.MoveCursor(x, y, false)
}

func (e *Executor) holdMouse(params []string) error {
	button, ok := input.ParseButton(params[0])
	if !ok {
		return fmt.Errorf("invalid mouse button %q", params[0])
	}
	return e.backend.HoldButton(button)
}

func (e *Executor) releaseMouse(params []string) error {
	button, ok := input.ParseButton(params[0])
	if !ok {
		return fmt.Errorf("invalid mouse button %q", params[0])
	}
	return e.backend.ReleaseButton(button)
}

func parseCoordinate(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("coordinate is empty")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("coordinate %q is not a non-negative integer", s)
		}
	}
	return strconv.Atoi(s)
}
