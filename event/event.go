// Package event contains the structs used to pass parsed log entries
// between the parser and output modules.
package event

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// Kind identifies which variant of value a Value holds.
type Kind int

const (
	// KindNone is the kind of the zero Value. It has no payload and
	// cannot be serialized.
	KindNone Kind = iota
	// KindTimestamp is a timezone-aware point in time.
	KindTimestamp
	// KindText is a text string.
	KindText
	// KindInt is an unsigned 64 bit integer.
	KindInt
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTimestamp:
		return "timestamp"
	case KindText:
		return "text"
	case KindInt:
		return "int"
	}
	return "none"
}

// Value is a single typed field parsed out of a log entry. It holds
// exactly one of a timestamp, a text string, or an unsigned integer.
// The zero Value holds nothing and fails serialization, so a field
// that was never populated can't silently reach the output.
type Value struct {
	kind Kind
	time time.Time
	text string
	num  uint64
}

// Timestamp wraps a point in time as a field value.
func Timestamp(t time.Time) Value {
	return Value{kind: KindTimestamp, time: t}
}

// Text wraps a string as a field value. Empty strings are valid.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Int wraps an unsigned integer as a field value.
func Int(n uint64) Value {
	return Value{kind: KindInt, num: n}
}

// Kind reports which variant this value holds.
func (v Value) Kind() Kind {
	return v.kind
}

// String renders the payload for logs and summaries. Timestamps use
// RFC 3339.
func (v Value) String() string {
	switch v.kind {
	case KindTimestamp:
		return v.time.Format(time.RFC3339)
	case KindText:
		return v.text
	case KindInt:
		return strconv.FormatUint(v.num, 10)
	}
	return ""
}

// MarshalJSON renders the payload as its natural JSON type: timestamps
// as RFC 3339 strings, text as strings, integers as bare numbers with
// the full uint64 range intact.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindTimestamp:
		return v.time.MarshalJSON()
	case KindText:
		return json.Marshal(v.text)
	case KindInt:
		return strconv.AppendUint(nil, v.num, 10), nil
	}
	return nil, errors.New("event: cannot serialize a value of no kind")
}

// Event is a single log event: the named, typed values extracted from
// one log line. A parser returns it fully populated; enrichment may add
// derived fields before the event is serialized.
type Event struct {
	Data map[string]Value
}

// MarshalJSON renders the event as one flat JSON object. Keys are
// emitted in sorted order, so identical input yields identical output.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Data)
}
