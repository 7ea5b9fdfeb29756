package engine

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"keyrun/internal/input"
	"keyrun/internal/script"
)

// fakeBackend records every primitive call in order.
type fakeBackend struct {
	ops []string

	// unresolvable lists key names ResolveKey refuses to map.
	unresolvable map[string]bool

	moveErr error
}

func (f *fakeBackend) record(format string, args ...any) {
	f.ops = append(f.ops, fmt.Sprintf(format, args...))
}

func (f *fakeBackend) MoveCursor(x, y int, relative bool) error {
	if f.moveErr != nil {
		return f.moveErr
	}
	f.record("move:%d,%d,%v", x, y, relative)
	return nil
}

func (f *fakeBackend) HoldButton(b input.Button) error {
	f.record("hold_btn:%s", b)
	return nil
}

func (f *fakeBackend) ReleaseButton(b input.Button) error {
	f.record("release_btn:%s", b)
	return nil
}

func (f *fakeBackend) HoldKey(k input.Key) error {
	f.record("hold:%#x", uint16(k))
	return nil
}

func (f *fakeBackend) ReleaseKey(k input.Key) error {
	f.record("release:%#x", uint16(k))
	return nil
}

func (f *fakeBackend) ResolveKey(name string) (input.Key, bool) {
	if f.unresolvable[name] {
		return 0, false
	}
	return input.LookupKey(name)
}

func (f *fakeBackend) DisplaySize() (int, int, error) {
	return 1920, 1080, nil
}

func mustParse(t *testing.T, text string) script.Table {
	t.Helper()
	table, err := script.Parse(strings.NewReader(text))
	require.NoError(t, err)
	return table
}

func newTestExecutor(t *testing.T, text string, backend *fakeBackend, opts ...Option) *Executor {
	t.Helper()
	opts = append([]Option{WithSleep(func(time.Duration) {})}, opts...)
	return New(mustParse(t, text), backend, zap.NewNop(), opts...)
}

func TestExecuteUnknownScript(t *testing.T) {
	backend := &fakeBackend{}
	exec := newTestExecutor(t, "---A\n0,press,\"a\"\n---\n", backend)

	err := exec.Execute("missing")
	assert.ErrorIs(t, err, ErrUnknownScript)
	assert.Empty(t, backend.ops, "no handler may run for an unknown script")
}

func TestExecuteAppliesDelaysBeforeEachCommand(t *testing.T) {
	backend := &fakeBackend{}
	var slept []time.Duration
	exec := New(
		mustParse(t, "---A\n100,hold_mouse,\"left\"\n250,release_mouse,\"left\"\n---\n"),
		backend, zap.NewNop(),
		WithSleep(func(d time.Duration) { slept = append(slept, d) }),
	)

	require.NoError(t, exec.Execute("A"))
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 250 * time.Millisecond}, slept)
	assert.Equal(t, []string{"hold_btn:left", "release_btn:left"}, backend.ops)
}

func TestExecuteUnknownCommandIsFatal(t *testing.T) {
	backend := &fakeBackend{}
	exec := newTestExecutor(t, "---A\n0,hold_mouse,\"left\"\n0,bogus,\"x\"\n0,release_mouse,\"left\"\n---\n", backend)

	err := exec.Execute("A")
	var serr *StructuralError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 1, serr.Index)
	assert.Equal(t, "bogus", serr.Command)
	// The first command ran, everything after the structural error did not.
	assert.Equal(t, []string{"hold_btn:left"}, backend.ops)
}

func TestExecuteArityMismatchHaltsBeforeHandler(t *testing.T) {
	backend := &fakeBackend{}
	// 3rd command has wrong arity for move: commands 1 and 2 run, then the
	// run halts before the 3rd handler is invoked.
	exec := newTestExecutor(t, `---A
0,hold_mouse,"left"
0,release_mouse,"left"
0,move,"10"
0,press,"a"
---
`, backend)

	err := exec.Execute("A")
	var serr *StructuralError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 2, serr.Index)
	assert.Equal(t, []string{"hold_btn:left", "release_btn:left"}, backend.ops)
}

func TestExecuteActionFailureDoesNotAbortRun(t *testing.T) {
	backend := &fakeBackend{unresolvable: map[string]bool{"nosuchkey": true}}
	exec := newTestExecutor(t, "---A\n0,press,\"nosuchkey\"\n0,hold_mouse,\"left\"\n---\n", backend)

	require.NoError(t, exec.Execute("A"))
	assert.Equal(t, []string{"hold_btn:left"}, backend.ops, "the failed press is skipped, the run continues")
}

func TestPressCombo(t *testing.T) {
	backend := &fakeBackend{}
	exec := newTestExecutor(t, "---A\n0,press,\"ctrl+c\"\n---\n", backend)

	require.NoError(t, exec.Execute("A"))
	// Held in order, released in reverse order.
	assert.Equal(t, []string{"hold:0x11", "hold:0x43", "release:0x43", "release:0x11"}, backend.ops)
}

func TestPressComboSpacesAndBackslashesIgnored(t *testing.T) {
	backend := &fakeBackend{}
	exec := newTestExecutor(t, "---A\n0,press,\"ctrl + alt + delete\"\n---\n", backend)

	require.NoError(t, exec.Execute("A"))
	assert.Equal(t, []string{
		"hold:0x11", "hold:0x12", "hold:0x2e",
		"release:0x2e", "release:0x12", "release:0x11",
	}, backend.ops)
}

func TestPressComboRepeatedKeyFails(t *testing.T) {
	backend := &fakeBackend{}
	exec := newTestExecutor(t, "---A\n0,press,\"ctrl+ctrl\"\n---\n", backend)

	// Action failure: the run still completes, but nothing was injected.
	require.NoError(t, exec.Execute("A"))
	assert.Empty(t, backend.ops)
}

func TestWriteStopsAtUnresolvableCharacter(t *testing.T) {
	backend := &fakeBackend{unresolvable: map[string]bool{"Z": true}}
	exec := newTestExecutor(t, "---A\n0,write,\"aZ9\"\n---\n", backend)

	// 'a' is attempted, 'Z' fails resolution, '9' is never attempted. The
	// handler failure is non-fatal to the run.
	require.NoError(t, exec.Execute("A"))
	assert.Equal(t, []string{"hold:0x41", "release:0x41"}, backend.ops)
}

func TestWritePressesEachCharacter(t *testing.T) {
	backend := &fakeBackend{}
	exec := newTestExecutor(t, "---A\n0,write,\"ab\"\n---\n", backend)

	require.NoError(t, exec.Execute("A"))
	assert.Equal(t, []string{"hold:0x41", "release:0x41", "hold:0x42", "release:0x42"}, backend.ops)
}

func TestMove(t *testing.T) {
	backend := &fakeBackend{}
	exec := newTestExecutor(t, "---A\n0,move,\"10,20\"\n---\n", backend)

	require.NoError(t, exec.Execute("A"))
	assert.Equal(t, []string{"move:10,20,false"}, backend.ops)
}

func TestMoveRejectsNonDigitCoordinates(t *testing.T) {
	tests := []string{"-1,20", "10,abc", "1.5,2", ",2"}
	for _, params := range tests {
		t.Run(params, func(t *testing.T) {
			backend := &fakeBackend{}
			exec := newTestExecutor(t, "---A\n0,move,\""+params+"\"\n---\n", backend)

			// Rejected before the backend is invoked; non-fatal to the run.
			require.NoError(t, exec.Execute("A"))
			assert.Empty(t, backend.ops)
		})
	}
}

func TestMouseButtonsCaseInsensitive(t *testing.T) {
	backend := &fakeBackend{}
	exec := newTestExecutor(t, "---A\n0,hold_mouse,\"LEFT\"\n0,release_mouse,\"Right\"\n---\n", backend)

	require.NoError(t, exec.Execute("A"))
	assert.Equal(t, []string{"hold_btn:left", "release_btn:right"}, backend.ops)
}

func TestMouseButtonInvalidName(t *testing.T) {
	backend := &fakeBackend{}
	exec := newTestExecutor(t, "---A\n0,hold_mouse,\"side\"\n---\n", backend)

	require.NoError(t, exec.Execute("A"))
	assert.Empty(t, backend.ops, "invalid button never reaches the backend")
}

func TestExecuteEmitsEvents(t *testing.T) {
	backend := &fakeBackend{unresolvable: map[string]bool{"nosuchkey": true}}
	exec := newTestExecutor(t, "---A\n0,press,\"nosuchkey\"\n0,hold_mouse,\"left\"\n---\n", backend)

	var types []EventType
	exec.SetEventSink(func(ev Event) { types = append(types, ev.Type) })

	require.NoError(t, exec.Execute("A"))
	assert.Equal(t, []EventType{
		EventScriptStart,
		EventCommand, EventActionError,
		EventCommand,
		EventScriptEnd,
	}, types)
}

func TestExecuteEmitsEndEventOnStructuralError(t *testing.T) {
	backend := &fakeBackend{}
	exec := newTestExecutor(t, "---A\n0,bogus,\"x\"\n---\n", backend)

	var last Event
	exec.SetEventSink(func(ev Event) { last = ev })

	require.Error(t, exec.Execute("A"))
	assert.Equal(t, EventScriptEnd, last.Type)
	assert.NotEmpty(t, last.Error)
}

func TestRegistryArity(t *testing.T) {
	want := map[string]int{
		"press":         1,
		"write":         1,
		"move":          2,
		"hold_mouse":    1,
		"release_mouse": 1,
	}
	registry := newRegistry()
	require.Len(t, registry, len(want))
	for name, arity := range want {
		require.Contains(t, registry, name)
		assert.Equal(t, arity, registry[name].arity, "arity of %s", name)
	}
}

func TestLint(t *testing.T) {
	exec := newTestExecutor(t, `---ok
0,press,"a"
---
---broken
0,bogus,"x"
0,move,"1"
0,move,"1,2"
---
`, &fakeBackend{})

	problems := exec.Lint()
	require.Len(t, problems, 2)
	assert.Equal(t, "broken", problems[0].Script)
	assert.Equal(t, 0, problems[0].Index)
	assert.Equal(t, "bogus", problems[0].Command)
	assert.Equal(t, 1, problems[1].Index)
	assert.Equal(t, "move", problems[1].Command)
}

func TestNames(t *testing.T) {
	exec := newTestExecutor(t, "---b\n---\n---a\n---\n", &fakeBackend{})
	assert.Equal(t, []string{"a", "b"}, exec.Names())
}

func TestMoveBackendErrorIsActionFailure(t *testing.T) {
	backend := &fakeBackend{moveErr: errors.New("out of bounds")}
	exec := newTestExecutor(t, "---A\n0,move,\"9999,9999\"\n0,hold_mouse,\"left\"\n---\n", backend)

	require.NoError(t, exec.Execute("A"))
	assert.Equal(t, []string{"hold_btn:left"}, backend.ops)
}
