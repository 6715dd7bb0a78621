package tail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/sirupsen/logrus"
)

var tailOpts = Options{
	ReadFrom: "start",
	Stop:     true,
}

func TestTailSingleFile(t *testing.T) {
	ts := &testSetup{}
	ts.start(t)
	defer ts.stop()

	filename := ts.tmpdir + "/first.log"
	logLines := []string{
		`10.0.0.1 - - [10/Oct/1999:21:15:05 +0500] "GET /a HTTP/1.0" 200 1`,
		`10.0.0.2 - - [10/Oct/1999:21:15:06 +0500] "GET /b HTTP/1.0" 200 2`,
		`10.0.0.3 - - [10/Oct/1999:21:15:07 +0500] "GET /c HTTP/1.0" 200 3`,
	}
	ts.writeFile(t, filename, strings.Join(logLines, "\n"))

	tailer, err := getTailer(Config{Path: filename, Options: tailOpts})
	if err != nil {
		t.Fatal(err)
	}
	lines := tailSingleFile(ts.ctx, tailer)
	checkLinesChan(t, lines, logLines)
}

func TestTailStdIn(t *testing.T) {
	ts := &testSetup{}
	ts.start(t)
	defer ts.stop()

	input := "first line\nsecond line\nlast line without newline"
	lines := tailStdIn(ts.ctx, strings.NewReader(input))
	checkLinesChan(t, lines, []string{"first line", "second line", "last line without newline"})
}

func TestTailStdInEmpty(t *testing.T) {
	ts := &testSetup{}
	ts.start(t)
	defer ts.stop()

	lines := tailStdIn(ts.ctx, strings.NewReader(""))
	checkLinesChan(t, lines, nil)
}

func TestTailStdInLongLine(t *testing.T) {
	ts := &testSetup{}
	ts.start(t)
	defer ts.stop()

	// well past bufio's default buffer, so ReadLine returns it in parts
	long := strings.Repeat("x", 10000)
	lines := tailStdIn(ts.ctx, strings.NewReader(long+"\nshort"))
	checkLinesChan(t, lines, []string{long, "short"})
}

func TestTailStdInReadError(t *testing.T) {
	ts := &testSetup{}
	ts.start(t)
	defer ts.stop()

	boom := errors.New("read failure")
	r := io.MultiReader(strings.NewReader("ok\n"), iotest.ErrReader(boom))
	lines := tailStdIn(ts.ctx, r)

	line, ok := <-lines
	if !ok || line.Err != nil || line.Text != "ok" {
		t.Fatalf("expected first line 'ok', got %+v (open=%v)", line, ok)
	}
	line, ok = <-lines
	if !ok {
		t.Fatal("expected an error message before the channel closed")
	}
	if !errors.Is(line.Err, boom) {
		t.Errorf("expected the read error to be delivered, got %v", line.Err)
	}
	checkLinesChanClosed(t, lines)
}

func TestGetEntriesStdin(t *testing.T) {
	ts := &testSetup{}
	ts.start(t)
	defer ts.stop()

	lines, err := GetEntries(ts.ctx, Config{Path: "-", Options: tailOpts})
	if err != nil {
		t.Fatal(err)
	}
	if lines == nil {
		t.Error("expected a lines channel for stdin")
	}
}

func TestGetEntriesMissingFile(t *testing.T) {
	ts := &testSetup{}
	ts.start(t)
	defer ts.stop()

	lines, err := GetEntries(ts.ctx, Config{Path: ts.tmpdir + "/does-not-exist.log", Options: tailOpts})
	if lines != nil {
		t.Error("errored GetEntries was supposed to respond with a nil channel")
	}
	if err == nil {
		t.Error("expected error from GetEntries; got nil instead.")
	}
}

func TestGetEntriesBadReadFrom(t *testing.T) {
	ts := &testSetup{}
	ts.start(t)
	defer ts.stop()

	filename := ts.tmpdir + "/first.log"
	ts.writeFile(t, filename, "a line")

	_, err := GetEntries(ts.ctx, Config{Path: filename, Options: Options{ReadFrom: "middle"}})
	if err == nil {
		t.Error("expected error for unknown read_from; got nil instead.")
	}
}

func TestAbortChannel(t *testing.T) {
	ts := &testSetup{}
	ts.start(t)
	defer ts.stop()

	filename := ts.tmpdir + "/follow.log"
	ts.writeFile(t, filename, "one\ntwo\nthree")

	// follow mode: without cancellation this would tail forever
	lines, err := GetEntries(ts.ctx, Config{Path: filename, Options: Options{ReadFrom: "start"}})
	if err != nil {
		t.Fatal(err)
	}

	// ok, let's see what happens when we want to quit
	ts.cancel()
	checkLinesChanClosed(t, lines)
}

// boilerplate to create a tmpdir, a cancelable context, etc. to create
// an environment in which to run these tests
type testSetup struct {
	tmpdir string
	ctx    context.Context
	cancel context.CancelFunc
}

func (ts *testSetup) start(t *testing.T) {
	logrus.SetOutput(io.Discard)
	tmpdir, err := os.MkdirTemp(os.TempDir(), "test")
	if err != nil {
		t.Fatal(err)
	}
	ts.tmpdir = tmpdir
	ts.ctx, ts.cancel = context.WithCancel(context.Background())
}

func (ts *testSetup) writeFile(t *testing.T, path string, body string) {
	fh, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	fmt.Fprint(fh, body)
}

func (ts *testSetup) stop() {
	ts.cancel()
	os.RemoveAll(ts.tmpdir)
}

func checkLinesChan(t *testing.T, actual <-chan Line, expected []string) {
	idx := 0
	for line := range actual {
		if line.Err != nil {
			t.Errorf("got unexpected read error: %v", line.Err)
			continue
		}
		if idx < len(expected) && expected[idx] != line.Text {
			t.Errorf("got line '%s', expected line '%s'", line.Text, expected[idx])
		}
		idx++
	}
	if idx != len(expected) {
		t.Errorf("read %d lines from lines channel; expected %d", idx, len(expected))
	}
}

func checkLinesChanClosed(t *testing.T, actual <-chan Line) {
	// this will block if actual never gets closed
	for {
		select {
		case _, ok := <-actual:
			if !ok {
				return
			}
		case <-time.After(1 * time.Second):
			t.Error("channel read timed out; channel not closed")
			return
		}
	}
}
