// Package script parses the line-oriented keyrun automation script format
// into named, ordered command sequences.
package script

import "sort"

// Command is a single timed automation step within a script.
type Command struct {
	// DelayMs is the blocking delay applied before the command runs.
	DelayMs int

	// Name is the command name, resolved against the engine registry at
	// execution time, not at parse time.
	Name string

	// RawParams is the unparsed parameter text captured between the quotes
	// of the source line. Splitting it on ',' yields the handler arguments.
	RawParams string
}

// Script is a named, ordered sequence of commands. Immutable after parsing.
type Script struct {
	Name     string
	Commands []Command
}

// Table maps script names to scripts. It is built in full by Parse and
// never mutated afterwards; it is safe to share across goroutines.
type Table map[string]*Script

// Get returns the named script, or nil if it does not exist.
func (t Table) Get(name string) *Script {
	return t[name]
}

// Names returns all script names in sorted order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
