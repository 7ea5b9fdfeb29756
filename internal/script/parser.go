package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// scriptTag opens a script when outside one (the rest of the line is the
// name) and closes the current script when inside one.
const scriptTag = "---"

// Sentinel parse failures, reachable through errors.Is on the returned
// *ParseError.
var (
	ErrEmptyName       = errors.New("script has no name")
	ErrDuplicateScript = errors.New("duplicate script name")
	ErrBadDelay        = errors.New("delay is not a non-negative integer")
	ErrBadLine         = errors.New("invalid command line")
)

// ParseError reports a fatal script syntax error. A parse failure discards
// the entire table; there is no partial result.
type ParseError struct {
	Line int    // 1-based line number in the input
	Text string // offending line after whitespace stripping
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("script parse error at line %d: %v [%s]", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads and parses the script file at path.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads line-oriented script text and returns the full script table.
// The load is all-or-none: any malformed line aborts parsing and no table
// is returned.
//
// A script that is still open at end of input is kept in the table as-is;
// its closing tag was simply never seen.
func Parse(r io.Reader) (Table, error) {
	table := make(Table)

	var current *Script // nil while outside a script body
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripOutsideQuotes(scanner.Text())

		if current == nil {
			// Traverse until a script opens.
			if !strings.HasPrefix(line, scriptTag) {
				continue
			}
			name := line[len(scriptTag):]
			if name == "" {
				return nil, &ParseError{Line: lineNo, Text: line, Err: ErrEmptyName}
			}
			if _, exists := table[name]; exists {
				return nil, &ParseError{Line: lineNo, Text: line, Err: fmt.Errorf("%w: %q", ErrDuplicateScript, name)}
			}
			current = &Script{Name: name}
			table[name] = current
			continue
		}

		// Empty rows, comments and reserved initial-value rows are skipped.
		if line == "" || line[0] == '#' || line[0] == '%' {
			continue
		}
		// A tag line inside a script closes it; trailing text is ignored.
		if strings.HasPrefix(line, scriptTag) {
			current = nil
			continue
		}

		cmd, err := parseCommand(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: line, Err: err}
		}
		current.Commands = append(current.Commands, cmd)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script text: %w", err)
	}
	return table, nil
}

// parseCommand extracts the (delay, command, params) triple from a stripped
// body line of the shape DELAY,COMMAND,"PARAMS". The four boundary indexes
// must exist and be strictly increasing.
func parseCommand(line string) (Command, error) {
	firstSep := strings.IndexByte(line, ',')
	secondSep := -1
	if firstSep >= 0 {
		if rel := strings.IndexByte(line[firstSep+1:], ','); rel >= 0 {
			secondSep = firstSep + 1 + rel
		}
	}
	openQuote := -1
	closeQuote := -1
	if secondSep >= 0 {
		if rel := strings.IndexByte(line[secondSep+1:], '"'); rel >= 0 {
			openQuote = secondSep + 1 + rel
		}
	}
	if openQuote >= 0 {
		if rel := strings.IndexByte(line[openQuote+1:], '"'); rel >= 0 {
			closeQuote = openQuote + 1 + rel
		}
	}
	if firstSep <= 0 || secondSep <= firstSep || openQuote <= secondSep || closeQuote <= openQuote {
		return Command{}, fmt.Errorf("%w: split indexes %d, %d, %d, %d",
			ErrBadLine, firstSep, secondSep, openQuote, closeQuote)
	}

	delayField := line[:firstSep]
	if !isDigits(delayField) {
		return Command{}, fmt.Errorf("%w: %q", ErrBadDelay, delayField)
	}
	delay, err := strconv.Atoi(delayField)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %q", ErrBadDelay, delayField)
	}

	return Command{
		DelayMs:   delay,
		Name:      line[firstSep+1 : secondSep],
		RawParams: line[openQuote+1 : closeQuote],
	}, nil
}

// stripOutsideQuotes removes all whitespace from line except inside spans
// delimited by '"' characters. A quote directly preceded by a backslash
// does not toggle the quoted state; that is the only escape rule.
func stripOutsideQuotes(line string) string {
	var b strings.Builder
	b.Grow(len(line))

	quoted := false
	prev := rune(0)
	for i, r := range line {
		if r == '"' && i != 0 && prev != '\\' {
			quoted = !quoted
		}
		if quoted || !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
