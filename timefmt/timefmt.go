package timefmt

import (
	"strings"
	"time"
)

// StrftimeChar marks a layout as C-style strftime rather than a Go
// reference layout.
const StrftimeChar = "%"

var (
	// DefaultNower returns current time when called with Now() unless overridden
	DefaultNower Nower = &RealNower{}
	// Location defaults to UTC unless overridden. It only matters for
	// layouts that carry no zone directive of their own.
	Location *time.Location = time.UTC

	// reference: http://man7.org/linux/man-pages/man3/strftime.3.html
	convertMapping = map[string]string{
		"%a": "Mon",
		"%A": "Monday",
		"%b": "Jan",
		"%B": "January",
		"%c": "", // locale not supported
		"%C": "06",
		"%d": "02",
		"%D": "01/02/06",
		"%e": "_2",
		"%E": "", // modifiers not supported
		"%f": "999",
		"%F": "2006-01-02",
		"%G": "", // week-based year not supported
		"%g": "", // week-based year not supported
		"%h": "Jan",
		"%H": "15",
		"%I": "03",
		"%j": "",   // day of year not supported
		"%k": "15", // same case as %H but accepts leading space instead of 0
		"%l": "_3",
		"%L": "999", // milliseconds
		"%m": "01",
		"%M": "04",
		"%n": "\n",
		"%O": "", // modifiers not supported
		"%p": "PM",
		"%P": "pm",
		"%r": "03:04:05 PM",
		"%R": "15:04",
		"%S": "05",
		"%t": "\t",
		"%T": "15:04:05",
		"%u": "", // day of week not supported
		"%U": "", // week number of the current year not supported
		"%V": "", // ISO 8601 week number not supported
		"%w": "", // day of week not supported
		"%W": "", // day of week not supported
		"%x": "", // date-only not supported
		"%X": "", // date-only not supported
		"%y": "06",
		"%Y": "2006",
		"%z": "-0700",
		"%Z": "MST",
		"%+": "Mon Jan _2 15:04:05 MST 2006",
	}
)

type Nower interface {
	Now() time.Time
}

type RealNower struct{}

func (r *RealNower) Now() time.Time {
	return time.Now().UTC()
}

func Now() time.Time {
	return DefaultNower.Now()
}

// Parse wraps time.ParseInLocation to use timefmt's Location
func Parse(format, timespec string) (time.Time, error) {
	return time.ParseInLocation(format, timespec, Location)
}

// ToGoLayout rewrites C-style strftime directives into Go's reference
// layout. Directives Go cannot express are stripped.
func ToGoLayout(layout string) string {
	for format, conv := range convertMapping {
		layout = strings.Replace(layout, format, conv, -1)
	}
	return layout
}
