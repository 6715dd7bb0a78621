// Package tail streams raw log lines from a log file or standard input.
//
// tail provides a channel on which log lines will be sent as messages.
// one line of input is one message on the channel. A failed read is
// delivered on the same channel, in stream order, and ends the stream.
package tail

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hpcloud/tail"
	"github.com/sirupsen/logrus"
)

type Options struct {
	ReadFrom string `long:"read_from" description:"Location in the file from which to start reading. Values: beginning, end" default:"beginning"`
	Stop     bool   `long:"stop" description:"Stop reading the file after reaching the end rather than continuing to tail"`
	Poll     bool   `long:"poll" description:"use poll instead of inotify to tail files"`
}

type Config struct {
	// Path to the log file to read, or "-" for standard input
	Path string
	// Tail specific options
	Options Options
}

// Line is one message from the input stream: a raw log line, or the
// read error that ended the stream.
type Line struct {
	Text string
	Err  error
}

// GetEntries returns a channel that gets one line of input at a time.
// The channel closes when the input is exhausted, the read fails, or
// ctx is canceled.
func GetEntries(ctx context.Context, conf Config) (<-chan Line, error) {
	if conf.Path == "" || conf.Path == "-" {
		return tailStdIn(ctx, os.Stdin), nil
	}
	tailer, err := getTailer(conf)
	if err != nil {
		return nil, err
	}
	return tailSingleFile(ctx, tailer), nil
}

func tailSingleFile(ctx context.Context, tailer *tail.Tail) <-chan Line {
	lines := make(chan Line)
	go func() {
		defer close(lines)
		for {
			select {
			case line, ok := <-tailer.Lines:
				if !ok {
					logrus.Debug("tail channel is closed, ending file reader")
					return
				}
				if line.Err != nil {
					send(ctx, lines, Line{Err: line.Err})
					return
				}
				if !send(ctx, lines, Line{Text: line.Text}) {
					tailer.Stop()
					return
				}
			case <-ctx.Done():
				tailer.Stop()
				return
			}
		}
	}()
	return lines
}

// tailStdIn is a special case to read STDIN without any of the
// fancy stuff that the tail module provides
func tailStdIn(ctx context.Context, r io.Reader) <-chan Line {
	lines := make(chan Line)
	input := bufio.NewReader(r)
	go func() {
		defer close(lines)
		for {
			line, partialLine, err := input.ReadLine()
			if err != nil {
				if err != io.EOF {
					send(ctx, lines, Line{Err: err})
					return
				}
				logrus.Debug("stdin is closed")
				// bail when STDIN closes
				return
			}
			var parts []string
			parts = append(parts, string(line))
			for partialLine {
				line, partialLine, _ = input.ReadLine()
				parts = append(parts, string(line))
			}
			if !send(ctx, lines, Line{Text: strings.Join(parts, "")}) {
				return
			}
		}
	}()
	return lines
}

func send(ctx context.Context, lines chan<- Line, line Line) bool {
	select {
	case lines <- line:
		return true
	case <-ctx.Done():
		return false
	}
}

// getTailer configures the *tail.Tail correctly to begin actually tailing the
// specified file.
func getTailer(conf Config) (*tail.Tail, error) {
	// tail a real file
	var loc *tail.SeekInfo // 0 value means start at beginning
	var reOpen, follow bool = true, true
	switch conf.Options.ReadFrom {
	case "", "start", "beginning":
		// 0 value for tail.SeekInfo means start at beginning
	case "end":
		loc = &tail.SeekInfo{
			Offset: 0,
			Whence: io.SeekEnd,
		}
	default:
		return nil, fmt.Errorf("unknown option to --tail.read_from: %s", conf.Options.ReadFrom)
	}
	if conf.Options.Stop {
		reOpen = false
		follow = false
	}
	tailConf := tail.Config{
		Location:  loc,
		ReOpen:    reOpen, // keep reading on rotation, aka tail -F
		MustExist: true,   // fail if log file doesn't exist
		Follow:    follow, // don't stop at EOF, aka tail -f
		Logger:    tail.DiscardingLogger,
		Poll:      conf.Options.Poll, // use poll instead of inotify
	}
	logrus.WithFields(logrus.Fields{
		"tailConf": tailConf,
		"conf":     conf,
		"location": loc,
	}).Debug("about to call tail.TailFile")
	return tail.TailFile(conf.Path, tailConf)
}
