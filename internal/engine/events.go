package engine

// EventType identifies an execution event.
type EventType string

const (
	// EventScriptStart is emitted before the first command of a run.
	EventScriptStart EventType = "script_start"

	// EventCommand is emitted after a command passed structural validation,
	// immediately before its handler runs.
	EventCommand EventType = "command"

	// EventActionError is emitted when a handler reports a non-fatal
	// action failure.
	EventActionError EventType = "action_error"

	// EventScriptEnd is emitted when a run finishes; Error is set when the
	// run was aborted by a structural error.
	EventScriptEnd EventType = "script_end"
)

// Event describes one step of a script run.
type Event struct {
	Type      EventType `json:"type"`
	Script    string    `json:"script"`
	Index     int       `json:"index,omitempty"`
	Command   string    `json:"command,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp int64     `json:"ts"` // Unix ms timestamp
}
