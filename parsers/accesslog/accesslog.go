// Package accesslog consumes NCSA-style HTTP access logs, in either the
// Common or the Combined log format.
package accesslog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/3for/redeye/event"
	"github.com/3for/redeye/parsers"
	"github.com/3for/redeye/timefmt"
)

// DefaultTimestampFormat is the layout of the bracketed timestamp
// section of an access log entry, e.g. "10/Oct/1999:21:15:05 +0500".
const DefaultTimestampFormat = "%d/%b/%Y:%T %z"

// Output field names. These are the wire contract of the emitted JSON
// and must not change.
const (
	remoteHostField = "remote_host"
	identField      = "some_nonsense"
	usernameField   = "username"
	timestampField  = "@timestamp"
	requestField    = "request_url"
	methodField     = "method"
	pathField       = "request_uri"
	protocolField   = "protocol"
	statusField     = "status_code"
	bytesField      = "bytes"
	referrerField   = "referrer"
	userAgentField  = "user_agent"
)

// Format selects which access log grammar a Parser recognizes.
type Format int

const (
	// Common is the NCSA Common log format: remote host, RFC 1413
	// identity, username, timestamp, request line, status, bytes.
	Common Format = iota
	// Combined is the Common format with quoted referrer and user agent
	// fields appended.
	Combined
)

func (f Format) String() string {
	switch f {
	case Common:
		return "common"
	case Combined:
		return "combined"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Both grammars share the Common core. Tokens like the status code stay
// permissive (\S+); captures that must be numeric are rejected by the
// field extractor, not by the matcher.
const commonCore = `^(?P<host>\S+)` + // remote host (IP or hostname)
	`\s+(?P<ident>\S+)` + // RFC 1413 identity, almost always "-"
	`\s+(?P<user>\S+)` + // authenticated username
	`\s+\[(?P<timestamp>[^\]]+)\]` + // bracketed request timestamp
	`\s+"(?P<request>` + // quoted request line, captured whole...
	`(?P<method>\S+)\s(?P<path>\S+)\s(?P<protocol>\S+)` + // ...and piecewise
	`)"` +
	`\s+(?P<status>\S+)` + // response status code
	`\s+(?P<bytes>\S+)` // response size in bytes

var (
	commonRegex   = regexp.MustCompile(commonCore + `$`)
	combinedRegex = regexp.MustCompile(commonCore +
		`\s+"(?P<referrer>[^"]*)"` + // referrer URL
		`\s+"(?P<user_agent>[^"]*)"$`) // user agent string
)

// fieldSpec ties a capture group to the output field it populates and
// the kind of value the capture must convert to.
type fieldSpec struct {
	field string
	group string
	kind  event.Kind
}

var commonFields = []fieldSpec{
	{remoteHostField, "host", event.KindText},
	{identField, "ident", event.KindText},
	{usernameField, "user", event.KindText},
	{timestampField, "timestamp", event.KindTimestamp},
	{requestField, "request", event.KindText},
	{methodField, "method", event.KindText},
	{pathField, "path", event.KindText},
	{protocolField, "protocol", event.KindText},
	{statusField, "status", event.KindInt},
	{bytesField, "bytes", event.KindInt},
}

var combinedFields = append(append([]fieldSpec(nil), commonFields...),
	fieldSpec{referrerField, "referrer", event.KindText},
	fieldSpec{userAgentField, "user_agent", event.KindText},
)

// Options are the tunables exposed on the command line.
type Options struct {
	TimestampFormat string `long:"timestamp_format" description:"Layout of the bracketed timestamp field, in strftime or Go reference form" default:"%d/%b/%Y:%T %z"`
}

// Parser matches one access log grammar and extracts typed fields. It
// compiles nothing per line; construct once and reuse.
type Parser struct {
	format     Format
	regex      *regexp.Regexp
	timeLayout string
	fields     []fieldSpec
	groups     []int
}

// NewCommonParser returns a parser for the Common log format.
func NewCommonParser(options *Options) (*Parser, error) {
	return newParser(Common, options)
}

// NewCombinedParser returns a parser for the Combined log format.
func NewCombinedParser(options *Options) (*Parser, error) {
	return newParser(Combined, options)
}

func newParser(format Format, options *Options) (*Parser, error) {
	var (
		regex  *regexp.Regexp
		fields []fieldSpec
	)
	switch format {
	case Common:
		regex, fields = commonRegex, commonFields
	case Combined:
		regex, fields = combinedRegex, combinedFields
	default:
		return nil, fmt.Errorf("unknown access log format %v", format)
	}

	layout := DefaultTimestampFormat
	if options != nil && options.TimestampFormat != "" {
		layout = options.TimestampFormat
	}
	if strings.Contains(layout, timefmt.StrftimeChar) {
		layout = timefmt.ToGoLayout(layout)
	}

	groups := make([]int, len(fields))
	for i, fs := range fields {
		idx := regex.SubexpIndex(fs.group)
		if idx < 0 {
			return nil, fmt.Errorf("%s log pattern has no capture group %q", format, fs.group)
		}
		groups[i] = idx
	}

	return &Parser{
		format:     format,
		regex:      regex,
		timeLayout: layout,
		fields:     fields,
		groups:     groups,
	}, nil
}

// Format reports which grammar this parser recognizes.
func (p *Parser) Format() Format {
	return p.format
}

// ParseLine matches one log line against the parser's grammar and
// extracts it into an event. The line is whitespace-trimmed before
// matching; errors carry the line as received. On error no partial
// event is returned.
func (p *Parser) ParseLine(line string) (event.Event, error) {
	match := p.regex.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return event.Event{}, &parsers.ParseError{Line: line}
	}

	data := make(map[string]event.Value, len(p.fields))
	for i, fs := range p.fields {
		idx := p.groups[i]
		if idx < 1 || idx >= len(match) {
			// a capture the grammar promised is absent from the match
			return event.Event{}, &parsers.ParseError{Line: line}
		}
		value, err := p.extract(fs.kind, match[idx], line)
		if err != nil {
			return event.Event{}, err
		}
		data[fs.field] = value
	}
	return event.Event{Data: data}, nil
}

// extract converts one raw capture into a value of the declared kind.
func (p *Parser) extract(kind event.Kind, capture, line string) (event.Value, error) {
	switch kind {
	case event.KindText:
		return event.Text(capture), nil
	case event.KindInt:
		n, err := strconv.ParseUint(capture, 10, 64)
		if err != nil {
			return event.Value{}, &parsers.ParseError{Line: line}
		}
		return event.Int(n), nil
	case event.KindTimestamp:
		ts, err := timefmt.Parse(p.timeLayout, capture)
		if err != nil {
			return event.Value{}, &parsers.TimestampError{Value: capture, Err: err}
		}
		return event.Timestamp(ts), nil
	}
	return event.Value{}, &parsers.ParseError{Line: line}
}
