// Package engine executes parsed automation scripts: it walks a script's
// command sequence, applies delays, validates each command against the
// registry and dispatches to the input backend.
package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"keyrun/internal/input"
	"keyrun/internal/script"
)

// ErrUnknownScript is returned by Execute when the requested script is not
// in the table. No side effects have occurred.
var ErrUnknownScript = errors.New("no such script")

// StructuralError reports a script-level malformation found during a run:
// an unknown command name or a parameter count that does not match the
// registry. Structural errors abort the remaining commands; side effects of
// already-executed commands stand.
type StructuralError struct {
	Script  string
	Index   int // 0-based position within the script
	Command string
	Err     error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("script %q command %d (%s): %v", e.Script, e.Index, e.Command, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// defaultKeyHold is how long keys and buttons stay held during a press,
// matching the injection backend's event pacing.
const defaultKeyHold = 5 * time.Millisecond

// command is a registry entry: expected parameter count plus the handler
// invoked with the comma-split parameters.
type command struct {
	arity int
	run   func(e *Executor, params []string) error
}

// newRegistry builds the fixed command registry. It is constructed once per
// executor and read-only afterwards.
func newRegistry() map[string]command {
	return map[string]command{
		"press":         {arity: 1, run: (*Executor).press},
		"write":         {arity: 1, run: (*Executor).write},
		"move":          {arity: 2, run: (*Executor).move},
		"hold_mouse":    {arity: 1, run: (*Executor).holdMouse},
		"release_mouse": {arity: 1, run: (*Executor).releaseMouse},
	}
}

// Executor runs scripts from a table sequentially on the calling
// goroutine. It does not serialize concurrent Execute calls; callers that
// run scripts concurrently must coordinate access to the input backend
// themselves.
type Executor struct {
	table    script.Table
	backend  input.Backend
	registry map[string]command
	log      *zap.Logger

	keyHold time.Duration
	sleep   func(time.Duration)
	onEvent func(Event)
}

// Option configures an Executor.
type Option func(*Executor)

// WithKeyHold overrides the key/button hold duration used by press and
// write.
func WithKeyHold(d time.Duration) Option {
	return func(e *Executor) { e.keyHold = d }
}

// WithSleep replaces the blocking delay function. Used by tests to observe
// timing without sleeping.
func WithSleep(fn func(time.Duration)) Option {
	return func(e *Executor) { e.sleep = fn }
}

// SetEventSink registers a callback invoked for every execution event.
// The callback runs on the executing goroutine and must not block. Set it
// before the first Execute call.
func (e *Executor) SetEventSink(fn func(Event)) {
	e.onEvent = fn
}

// New creates an executor over a parsed script table and an input backend.
func New(table script.Table, backend input.Backend, logger *zap.Logger, opts ...Option) *Executor {
	e := &Executor{
		table:    table,
		backend:  backend,
		registry: newRegistry(),
		log:      logger,
		keyHold:  defaultKeyHold,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Names returns the names of all loaded scripts, sorted.
func (e *Executor) Names() []string {
	return e.table.Names()
}

// Execute runs the named script to completion. Each command sleeps its
// delay, is validated against the registry and is dispatched to its
// handler. Structural errors (unknown command, wrong parameter count) abort
// the run; handler action failures are logged and the run continues.
func (e *Executor) Execute(name string) error {
	sc := e.table.Get(name)
	if sc == nil {
		e.log.Error("no script with that name loaded", zap.String("script", name))
		return fmt.Errorf("%w: %q", ErrUnknownScript, name)
	}

	e.emit(Event{Type: EventScriptStart, Script: name})
	for i, cmd := range sc.Commands {
		e.sleep(time.Duration(cmd.DelayMs) * time.Millisecond)

		entry, ok := e.registry[cmd.Name]
		if !ok {
			err := &StructuralError{Script: name, Index: i, Command: cmd.Name, Err: errors.New("command does not exist")}
			e.fail(err)
			return err
		}
		params := strings.Split(cmd.RawParams, ",")
		if len(params) != entry.arity {
			err := &StructuralError{
				Script: name, Index: i, Command: cmd.Name,
				Err: fmt.Errorf("expects %d parameters, got %d", entry.arity, len(params)),
			}
			e.fail(err)
			return err
		}

		e.emit(Event{Type: EventCommand, Script: name, Index: i, Command: cmd.Name})
		if err := entry.run(e, params); err != nil {
			// Action failures do not abort the run; a bad key in a long
			// script should not discard the rest of it.
			e.log.Warn("command action failed",
				zap.String("script", name),
				zap.Int("index", i),
				zap.String("command", cmd.Name),
				zap.Error(err))
			e.emit(Event{Type: EventActionError, Script: name, Index: i, Command: cmd.Name, Error: err.Error()})
		}
	}
	e.emit(Event{Type: EventScriptEnd, Script: name})
	return nil
}

func (e *Executor) fail(err *StructuralError) {
	e.log.Error("script aborted", zap.Error(err))
	e.emit(Event{Type: EventScriptEnd, Script: err.Script, Index: err.Index, Command: err.Command, Error: err.Err.Error()})
}

func (e *Executor) emit(ev Event) {
	if e.onEvent != nil {
		ev.Timestamp = time.Now().UnixMilli()
		e.onEvent(ev)
	}
}

// Problem is a static validation finding for one command of one script.
type Problem struct {
	Script  string
	Index   int
	Command string
	Err     error
}

func (p Problem) String() string {
	return fmt.Sprintf("%s[%d] %s: %v", p.Script, p.Index, p.Command, p.Err)
}

// Lint validates every command of every loaded script against the registry
// without executing anything. It reports the structural errors a run would
// hit: unknown commands and parameter count mismatches.
func (e *Executor) Lint() []Problem {
	var problems []Problem
	for _, name := range e.table.Names() {
		for i, cmd := range e.table.Get(name).Commands {
			entry, ok := e.registry[cmd.Name]
			if !ok {
				problems = append(problems, Problem{Script: name, Index: i, Command: cmd.Name, Err: errors.New("command does not exist")})
				continue
			}
			if n := len(strings.Split(cmd.RawParams, ",")); n != entry.arity {
				problems = append(problems, Problem{
					Script: name, Index: i, Command: cmd.Name,
					Err: fmt.Errorf("expects %d parameters, got %d", entry.arity, n),
				})
			}
		}
	}
	return problems
}
