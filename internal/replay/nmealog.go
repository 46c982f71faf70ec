// Package replay records NMEA sentences with arrival times and plays them
// back with the same pacing.
//
// A capture is plain text, one record per line:
//
//	START
//	0,$GPGGA,...
//	1000000000,$GPRMC,...
//
// The number is nanoseconds since the preceding START. Blank lines and lines
// starting with '#' are ignored. Everything after the first comma is the
// sentence without its line terminator.
package replay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Record struct {
	At       time.Duration
	Sentence string // empty for START markers
}

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadAll parses the whole log. Errors name the offending line number.
func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 4096), 64*1024)

	var recs []Record
	for n := 1; s.Scan(); n++ {
		rec, ok, err := parseRecord(s.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		if ok {
			recs = append(recs, rec)
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// parseRecord reports ok=false for blank and comment lines.
func parseRecord(line string) (Record, bool, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "" || line[0] == '#':
		return Record{}, false, nil
	case line == "START":
		return Record{}, true, nil
	}

	ts, sentence, found := strings.Cut(line, ",")
	if !found {
		return Record{}, false, fmt.Errorf("missing comma in %q", line)
	}
	ts, sentence = strings.TrimSpace(ts), strings.TrimSpace(sentence)
	if !strings.HasPrefix(sentence, "$") {
		return Record{}, false, fmt.Errorf("sentence must start with '$': %q", line)
	}
	ns, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Record{}, false, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	if ns < 0 {
		return Record{}, false, fmt.Errorf("negative timestamp %d", ns)
	}
	return Record{At: time.Duration(ns), Sentence: sentence}, true, nil
}

// ReadFile loads a whole capture log.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}

// Writer captures sentences with their arrival time relative to the
// START marker it writes on creation. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	origin time.Time
	line   []byte
	closed bool
}

func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := &Writer{f: f, w: bufio.NewWriterSize(f, 64*1024), origin: time.Now()}
	if _, err := w.w.WriteString("START\n"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

// WriteSentence appends one record. The sentence must be a single line.
func (w *Writer) WriteSentence(now time.Time, sentence string) error {
	if !strings.HasPrefix(sentence, "$") || strings.ContainsAny(sentence, "\r\n") {
		return fmt.Errorf("invalid sentence %q", sentence)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("replay writer is closed")
	}

	at := now.Sub(w.origin)
	if at < 0 {
		at = 0
	}
	w.line = strconv.AppendInt(w.line[:0], at.Nanoseconds(), 10)
	w.line = append(w.line, ',')
	w.line = append(w.line, sentence...)
	w.line = append(w.line, '\n')
	_, err := w.w.Write(w.line)
	return err
}

func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.w.Flush()
}

// Close flushes and closes the file. Further writes fail.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	ferr := w.w.Flush()
	cerr := w.f.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}

type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// ContextSleeper sleeps like time.Sleep but wakes early once ctx is done.
type ContextSleeper struct {
	Ctx context.Context
}

func (cs ContextSleeper) Sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-cs.Ctx.Done():
	case <-t.C:
	}
}

// Play replays records with their relative timing, calling cb for each
// sentence. START markers reset the clock. speed scales waits: 2 plays twice
// as fast, 0.5 at half speed. With loop set it repeats until cb fails.
func Play(records []Record, speed float64, loop bool, sleeper Sleeper, cb func(sentence string) error) error {
	if !(speed > 0) || math.IsInf(speed, 0) {
		return fmt.Errorf("replay speed must be > 0, got %v", speed)
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	if len(records) == 0 {
		return errors.New("no records")
	}
	if sleeper == nil {
		sleeper = realSleeper{}
	}

	for {
		if err := playOnce(records, speed, sleeper, cb); err != nil {
			return err
		}
		if !loop {
			return nil
		}
	}
}

func playOnce(records []Record, speed float64, sleeper Sleeper, cb func(string) error) error {
	var origin, prev time.Duration
	first := true
	for _, r := range records {
		if r.Sentence == "" {
			origin, first = r.At, true
			continue
		}

		at := max(r.At-origin, 0)
		if !first {
			if wait := time.Duration(float64(max(at-prev, 0)) / speed); wait > 0 {
				sleeper.Sleep(wait)
			}
		}
		if err := cb(r.Sentence); err != nil {
			return err
		}
		prev, first = at, false
	}
	return nil
}
