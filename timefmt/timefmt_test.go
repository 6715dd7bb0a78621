package timefmt

import (
	"testing"
	"time"

	"github.com/3for/redeye/timefmt/timefmttest"
)

func init() {
	DefaultNower = &timefmttest.FakeNower{}
}

func TestToGoLayout(t *testing.T) {
	tsts := []struct {
		strftime string
		expected string
	}{
		{"%d/%b/%Y:%T %z", "02/Jan/2006:15:04:05 -0700"},
		{"%Y-%m-%d %H:%M:%S", "2006-01-02 15:04:05"},
		{"%Y-%m-%d %H:%M", "2006-01-02 15:04"},
		{"%Y-%m-%d %k:%M", "2006-01-02 15:04"},
		{"%m/%d/%y %I:%M %p", "01/02/06 03:04 PM"},
		{"%m/%d/%y %I:%M %P%t%z", "01/02/06 03:04 pm\t-0700"},
		{"%a %B %d %C %r", "Mon January 02 06 03:04:05 PM"},
		{"%c %G %g %O %u %V %w %X", "       "},
		{"%H:%M:%S.%f", "15:04:05.999"},
	}

	for _, tt := range tsts {
		gotime := ToGoLayout(tt.strftime)
		if gotime != tt.expected {
			t.Errorf("strftime format '%s' was converted to go layout '%s', expected '%s'",
				tt.strftime, gotime, tt.expected)
		}
	}
}

func TestParse(t *testing.T) {
	tsts := []struct {
		layout   string
		timespec string
		expected time.Time
	}{
		{
			layout:   "02/Jan/2006:15:04:05 -0700",
			timespec: "10/Oct/1999:21:15:05 +0500",
			expected: time.Date(1999, time.October, 10, 21, 15, 5, 0, time.FixedZone("", 5*60*60)),
		},
		{
			layout:   "02/Jan/2006:15:04:05 -0700",
			timespec: "08/Oct/2015:00:26:26 -0000",
			expected: time.Date(2015, time.October, 8, 0, 26, 26, 0, time.UTC),
		},
		{
			// layouts without a zone directive fall back to Location (UTC)
			layout:   "2006-01-02 15:04:05",
			timespec: "2014-07-30 07:02:15",
			expected: time.Date(2014, time.July, 30, 7, 2, 15, 0, time.UTC),
		},
	}

	for i, tt := range tsts {
		got, err := Parse(tt.layout, tt.timespec)
		if err != nil {
			t.Errorf("time %d: unexpected parse error: %v", i, err)
			continue
		}
		if !got.Equal(tt.expected) {
			t.Errorf("time %d: parsed time %s didn't match expected time %s", i, got, tt.expected)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse("02/Jan/2006:15:04:05 -0700", "10/Oct/1999 21:15:05"); err == nil {
		t.Error("expected parse error for timespec that doesn't match the layout")
	}
}

func TestNow(t *testing.T) {
	fakeNow, _ := time.Parse(time.RFC3339, "2010-06-21T15:04:05Z")
	if !Now().Equal(fakeNow) {
		t.Errorf("fake now %s didn't match expected %s", Now(), fakeNow)
	}
}
