package main

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/3for/redeye/event"
	"github.com/3for/redeye/timefmt"
)

// skip reasons tallied by runStats
const (
	skipParseError     = "parse_error"
	skipTimestampError = "timestamp_error"
	skipSerializeError = "serialize_error"
)

// runStats is a container for collecting statistics about the lines the
// pipeline has handled. It counts interesting aspects of the stream and
// presents them for printing whenever it's called.
//
// the intent is to periodically print and flush the counters, eg once/minute
type runStats struct {
	lock *sync.Mutex

	read     int
	emitted  int
	filtered int
	skipped  map[string]int
	event    *event.Event

	start         time.Time
	totalRead     int
	totalEmitted  int
	totalFiltered int
	totalSkipped  map[string]int
}

// newRunStats initializes the struct's complex data types
func newRunStats() *runStats {
	r := &runStats{}
	r.totalSkipped = make(map[string]int)
	r.lock = &sync.Mutex{}
	r.start = timefmt.Now()
	r.reset()
	return r
}

// incRead counts one line taken off the input stream
func (r *runStats) incRead() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.read += 1
}

// incFiltered counts one line dropped by the filter regex
func (r *runStats) incFiltered() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.filtered += 1
}

// incSkipped counts one line dropped for the given reason
func (r *runStats) incSkipped(reason string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.skipped[reason] += 1
}

// incEmitted counts one event successfully written to the output
func (r *runStats) incEmitted(ev event.Event) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.emitted += 1
	r.event = &ev
}

// log the current stats and reset them all to zero.
// thread safe.
func (r *runStats) logAndReset() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.log()
	r.reset()
}

// log the current statistics to logrus.
// NOT thread safe.
func (r *runStats) log() {
	logrus.WithFields(logrus.Fields{
		"read":          r.read,
		"emitted":       r.emitted,
		"filtered":      r.filtered,
		"skipped":       r.skipped,
		"lifetime_read": r.totalRead + r.read,
	}).Info("Summary of processed lines")
	if r.event != nil {
		logrus.WithFields(logrus.Fields{
			"event": r.event.Data,
		}).Info("Last parsed event")
	}
}

// log the totals on their own
func (r *runStats) logFinal() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.totalRead += r.read
	r.totalEmitted += r.emitted
	r.totalFiltered += r.filtered
	for reason, count := range r.skipped {
		r.totalSkipped[reason] += count
	}
	elapsed := timefmt.Now().Sub(r.start)
	var perSec float64
	if elapsed > 0 {
		perSec = float64(r.totalRead) / elapsed.Seconds()
	}
	logrus.WithFields(logrus.Fields{
		"total lines read":     r.totalRead,
		"total events emitted": r.totalEmitted,
		"total lines filtered": r.totalFiltered,
		"total skipped":        r.totalSkipped,
		"elapsed":              elapsed,
		"lines per second":     perSec,
	}).Info("Total lines processed")
}

// reset the counters to zero.
// NOT thread safe
func (r *runStats) reset() {
	r.totalRead += r.read
	r.totalEmitted += r.emitted
	r.totalFiltered += r.filtered
	for reason, count := range r.skipped {
		r.totalSkipped[reason] += count
	}
	r.read = 0
	r.emitted = 0
	r.filtered = 0
	r.skipped = make(map[string]int)
}
