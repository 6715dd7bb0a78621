// Package parsers provides an interface for log parsing engines, the
// regular expression helpers they are built from, and the error types
// they report.
//
// Each module under here takes care of a specific log format, providing
// any necessary or relevant smarts for that style of logs.
package parsers

import (
	"fmt"
	"regexp"

	"github.com/3for/redeye/event"
)

// LineParser turns one raw log line into a structured event.
// Implementations compile their patterns up front and hold no per-line
// state, so a single parser serves an entire run.
type LineParser interface {
	ParseLine(line string) (event.Event, error)
}

// ExtRegexp is a Regexp with one additional method to make it easier to work
// with named groups
type ExtRegexp struct {
	*regexp.Regexp
}

// FindStringSubmatchMap behaves the same as FindStringSubmatch except instead
// of a list of matches with the names separate, it returns the full match and a
// map of named submatches
func (r *ExtRegexp) FindStringSubmatchMap(s string) (string, map[string]string) {
	match := r.FindStringSubmatch(s)
	if match == nil {
		return "", nil
	}

	captures := make(map[string]string)
	for i, name := range r.SubexpNames() {
		if i == 0 {
			continue
		}
		if name != "" {
			// ignore unnamed matches
			captures[name] = match[i]
		}
	}
	return match[0], captures
}

// ParseError reports a line that did not match the active log format,
// or a captured field that could not be converted to its declared type.
// It carries the original line for diagnostics.
type ParseError struct {
	Line string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid log line: %q", e.Line)
}

// TimestampError reports a line that matched the log format but whose
// timestamp field did not conform to the expected layout. Keeping it
// separate from ParseError lets a mistuned timestamp layout be told
// apart from garbage input.
type TimestampError struct {
	// Value is the raw timestamp capture that failed to parse.
	Value string
	// Err is the underlying time parsing error.
	Err error
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp %q: %v", e.Value, e.Err)
}

func (e *TimestampError) Unwrap() error {
	return e.Err
}
