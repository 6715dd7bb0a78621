package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/honeycombio/urlshaper"
	"github.com/sirupsen/logrus"

	"github.com/3for/redeye/event"
	"github.com/3for/redeye/parsers"
	"github.com/3for/redeye/parsers/accesslog"
	"github.com/3for/redeye/tail"
)

// run reads the log stream to its end, converting each line to a JSON
// event on stdout
func run(options GlobalOptions) {
	logrus.Info("Starting redeye")

	sigs := make(chan os.Signal, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	p, err := newPipeline(options, os.Stdout)
	if err != nil {
		logrus.WithFields(logrus.Fields{"err": err}).Fatal(
			"err initializing parser module")
	}

	// get our lines channel from which to read log lines
	lines, err := tail.GetEntries(ctx, tail.Config{
		Path:    options.LogFile,
		Options: options.Tail,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"err": err}).Fatal(
			"Error occurred while trying to tail logfile")
	}

	// set up our signal handler and support canceling
	go func() {
		sig := <-sigs
		fmt.Fprintf(os.Stderr, "Aborting! Caught signal \"%s\"\n", sig)
		fmt.Fprintf(os.Stderr, "Cleaning up...\n")
		cancel()
		// and if they insist, catch a second CTRL-C or timeout on 10sec
		select {
		case <-sigs:
			fmt.Fprintf(os.Stderr, "Caught second signal... Aborting.\n")
			os.Exit(1)
		case <-time.After(10 * time.Second):
			fmt.Fprintf(os.Stderr, "Taking too long... Aborting.\n")
			os.Exit(1)
		}
	}()

	go logStats(p.stats, options.StatusInterval)

	if err := p.processLines(lines); err != nil {
		logrus.WithFields(logrus.Fields{"err": err}).Fatal(
			"Error occurred while reading or writing events")
	}

	// print out what we've done one last time
	p.stats.log()
	p.stats.logFinal()

	// Nothing bad happened, yay
	logrus.Info("Redeye is all done, goodbye!")
}

// getParser returns the line parser for the selected log format
func getParser(options GlobalOptions) (parsers.LineParser, error) {
	switch {
	case options.CommonFormat:
		return accesslog.NewCommonParser(&options.AccessLog)
	case options.CombinedFormat:
		return accesslog.NewCombinedParser(&options.AccessLog)
	}
	return nil, errors.New("no log input format selected")
}

// newPipeline wires up the processing loop for the given options.
// Serialized events land on out, one per line.
func newPipeline(options GlobalOptions, out io.Writer) (*pipeline, error) {
	parser, err := getParser(options)
	if err != nil {
		return nil, err
	}

	// compile the prefix regex once for use on every line
	var prefixRegex *parsers.ExtRegexp
	if options.PrefixRegex != "" {
		prefixRegex = &parsers.ExtRegexp{Regexp: regexp.MustCompile(options.PrefixRegex)}
	}

	var filterRegex *regexp.Regexp
	if options.FilterRegex != "" {
		filterRegex = regexp.MustCompile(options.FilterRegex)
	}

	return &pipeline{
		parser:  parser,
		options: options,
		prefix:  prefixRegex,
		filter:  filterRegex,
		shaper:  newRequestShaper(options),
		out:     bufio.NewWriter(out),
		stats:   newRunStats(),
	}, nil
}

// pipeline carries the pieces of the processing loop that are fixed for
// the whole run.
type pipeline struct {
	parser  parsers.LineParser
	options GlobalOptions
	prefix  *parsers.ExtRegexp
	filter  *regexp.Regexp
	shaper  *requestShaper
	out     *bufio.Writer
	stats   *runStats
}

// processLines consumes the lines channel in order: parse, enrich,
// serialize, write. A line that fails to parse or serialize is logged
// and skipped; the lines around it are unaffected. A failed read or
// write ends the run, and the error is returned.
func (p *pipeline) processLines(lines <-chan tail.Line) error {
	for line := range lines {
		if line.Err != nil {
			return fmt.Errorf("reading input: %w", line.Err)
		}
		p.stats.incRead()

		text := line.Text
		if p.filter != nil && p.filter.MatchString(text) == p.options.InvertFilter {
			logrus.WithFields(logrus.Fields{
				"line": text,
			}).Debug("skipping line due to filter")
			p.stats.incFiltered()
			continue
		}

		// take care of any headers on the line
		var prefixFields map[string]string
		if p.prefix != nil {
			var prefix string
			prefix, prefixFields = p.prefix.FindStringSubmatchMap(text)
			text = strings.TrimPrefix(text, prefix)
		}

		ev, err := p.parser.ParseLine(text)
		if err != nil {
			p.logSkipped(line.Text, err)
			continue
		}
		// merge the prefix fields into the parsed event
		for k, v := range prefixFields {
			ev.Data[k] = event.Text(v)
		}
		// do request shaping
		for _, field := range p.options.RequestShape {
			p.shaper.requestShape(field, ev, p.options)
		}

		out, err := json.Marshal(ev)
		if err != nil {
			p.stats.incSkipped(skipSerializeError)
			logrus.WithFields(logrus.Fields{
				"error": err,
			}).Warn("Unable to serialize event; skipping")
			continue
		}
		out = append(out, '\n')
		if _, err := p.out.Write(out); err != nil {
			return fmt.Errorf("writing event: %w", err)
		}
		if err := p.out.Flush(); err != nil {
			return fmt.Errorf("writing event: %w", err)
		}
		p.stats.incEmitted(ev)
	}
	return nil
}

// logSkipped reports one unusable line on stderr, classified so a
// mistuned timestamp layout reads differently from garbage input.
func (p *pipeline) logSkipped(line string, err error) {
	var tserr *parsers.TimestampError
	if errors.As(err, &tserr) {
		p.stats.incSkipped(skipTimestampError)
		logrus.WithFields(logrus.Fields{
			"line":      line,
			"timestamp": tserr.Value,
			"error":     tserr.Err,
		}).Warn("Invalid timestamp in log line; skipping")
		return
	}
	p.stats.incSkipped(skipParseError)
	logrus.WithFields(logrus.Fields{
		"line": line,
	}).Warn("Invalid log line; skipping")
}

// requestShaper holds the bits about request shaping that want to be
// precompiled instead of compute on every event
type requestShaper struct {
	prefix string
	pr     *urlshaper.Parser
}

// newRequestShaper does the advance work for request shaping
func newRequestShaper(options GlobalOptions) *requestShaper {
	shaper := &requestShaper{}
	if len(options.RequestShape) != 0 {
		shaper.pr = &urlshaper.Parser{}
		if options.ShapePrefix != "" {
			shaper.prefix = options.ShapePrefix + "_"
		}
		for _, rpat := range options.RequestPattern {
			pat := urlshaper.Pattern{Pat: rpat}
			if err := pat.Compile(); err != nil {
				logrus.WithField("request_pattern", rpat).WithError(err).Fatal(
					"Failed to compile provided pattern.")
			}
			shaper.pr.Patterns = append(shaper.pr.Patterns, &pat)
		}
	}
	return shaper
}

// requestShape expects the field passed in to have the form
// VERB /path/of/request HTTP/1.x
// If it does, it will break it apart into components, normalize the URL,
// and add a handful of additional fields based on what it finds.
func (r *requestShaper) requestShape(field string, ev event.Event, options GlobalOptions) {
	val, ok := ev.Data[field]
	if !ok || val.Kind() != event.KindText {
		return
	}
	// start by splitting out method, uri, and version
	parts := strings.Split(val.String(), " ")
	var path string
	if len(parts) == 3 {
		// treat it as METHOD /path HTTP/1.X
		ev.Data[r.prefix+field+"_method"] = event.Text(parts[0])
		ev.Data[r.prefix+field+"_protocol_version"] = event.Text(parts[2])
		path = parts[1]
	} else {
		// treat it as just the /path
		path = parts[0]
	}
	// next up, get all the goodies out of the path
	res, err := r.pr.Parse(path)
	if err != nil {
		// couldn't parse it, just pass along the event
		return
	}
	ev.Data[r.prefix+field+"_uri"] = event.Text(res.URI)
	ev.Data[r.prefix+field+"_path"] = event.Text(res.Path)
	if res.Query != "" {
		ev.Data[r.prefix+field+"_query"] = event.Text(res.Query)
	}
	for k, v := range res.QueryFields {
		// only include the keys we want
		if options.RequestParseQuery == "all" ||
			whitelistKey(options.RequestQueryKeys, k) {
			if len(v) > 1 {
				sort.Strings(v)
			}
			ev.Data[r.prefix+field+"_query_"+k] = event.Text(strings.Join(v, ", "))
		}
	}
	for k, v := range res.PathFields {
		ev.Data[r.prefix+field+"_path_"+k] = event.Text(v[0])
	}
	ev.Data[r.prefix+field+"_shape"] = event.Text(res.Shape)
	ev.Data[r.prefix+field+"_pathshape"] = event.Text(res.PathShape)
	if res.QueryShape != "" {
		ev.Data[r.prefix+field+"_queryshape"] = event.Text(res.QueryShape)
	}
}

// return true if the key is in the whitelist
func whitelistKey(whiteKeys []string, key string) bool {
	for _, whiteKey := range whiteKeys {
		if key == whiteKey {
			return true
		}
	}
	return false
}

// logStats dumps and resets the stats on the given interval
func logStats(stats *runStats, interval uint) {
	logrus.Debugf("Initializing stats reporting. Will print stats once/%d seconds", interval)
	if interval == 0 {
		// interval of 0 means don't print summary status
		return
	}
	ticker := time.NewTicker(time.Second * time.Duration(interval))
	for range ticker.C {
		stats.logAndReset()
	}
}
