package logship

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type received struct {
	path        string
	contentType string
	body        string
}

type collector struct {
	mu   sync.Mutex
	got  []received
	code int
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.got = append(c.got, received{path: r.URL.Path, contentType: r.Header.Get("Content-Type"), body: string(b)})
	code := c.code
	c.mu.Unlock()
	if code == 0 {
		code = http.StatusOK
	}
	w.WriteHeader(code)
}

func (c *collector) snapshot() []received {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]received(nil), c.got...)
}

func startShipper(t *testing.T, c *collector, queue int) (*Shipper, func()) {
	t.Helper()
	ts := httptest.NewServer(c)
	s, err := New(Config{Server: ts.URL, Port: 1, Device: "GPS-ESP32", Queue: queue})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	return s, func() {
		cancel()
		<-done
		ts.Close()
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestShipper_PostsJSONLogs(t *testing.T) {
	c := &collector{}
	s, stop := startShipper(t, c, 16)
	defer stop()

	if !s.Warning("hdop high") {
		t.Fatalf("expected message queued")
	}
	waitFor(t, "log delivery", func() bool { return s.Stats().Sent == 1 })

	got := c.snapshot()
	if len(got) != 1 || got[0].path != LogPath || got[0].contentType != "application/json" {
		t.Fatalf("got=%+v", got)
	}
	var e Entry
	if err := json.Unmarshal([]byte(got[0].body), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Device != "GPS-ESP32" || e.Level != LevelWarning || e.Message != "hdop high" {
		t.Fatalf("entry=%+v", e)
	}
	if e.Timestamp < 0 {
		t.Fatalf("timestamp=%d", e.Timestamp)
	}
}

func TestShipper_PostsRawNMEA(t *testing.T) {
	c := &collector{}
	s, stop := startShipper(t, c, 16)
	defer stop()

	const line = "$GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1*39"
	s.SendRawNMEA(line)
	waitFor(t, "nmea delivery", func() bool { return s.Stats().Sent == 1 })

	got := c.snapshot()
	if len(got) != 1 || got[0].path != NMEAPath || got[0].contentType != "text/plain" || got[0].body != line {
		t.Fatalf("got=%+v", got)
	}
}

func TestShipper_RecordsFailuresWithoutLogging(t *testing.T) {
	c := &collector{code: http.StatusInternalServerError}
	s, stop := startShipper(t, c, 16)
	defer stop()

	var logged strings.Builder
	prev := log.Writer()
	log.SetOutput(&logged)
	defer log.SetOutput(prev)

	s.Log(LevelError, "boom")
	waitFor(t, "failure", func() bool { return s.Stats().Failed == 1 })
	if st := s.Stats(); !strings.Contains(st.LastError, "status 500") {
		t.Fatalf("last error=%q", st.LastError)
	}
	if logged.Len() != 0 {
		t.Fatalf("shipper wrote to the standard logger: %q", logged.String())
	}
}

func TestShipper_DropsWhenQueueFull(t *testing.T) {
	s, err := New(Config{Server: "127.0.0.1", Port: 9, Queue: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// No Run: nothing drains the queue.
	s.Info("a")
	s.Info("b")
	if s.Info("c") {
		t.Fatalf("expected third message dropped")
	}
	if got := s.Stats().Dropped; got != 1 {
		t.Fatalf("dropped=%d want 1", got)
	}
}

func TestShipper_WriterSplitsLines(t *testing.T) {
	c := &collector{}
	s, stop := startShipper(t, c, 16)
	defer stop()

	w := s.Writer(LevelInfo)
	_, _ = io.WriteString(w, "2026/10/15 12:00:00 gps enabled ")
	_, _ = io.WriteString(w, "source=serial\n\n2026/10/15 12:00:01 second\n")
	waitFor(t, "writer delivery", func() bool { return s.Stats().Sent == 2 })

	var msgs []string
	for _, r := range c.snapshot() {
		var e Entry
		if err := json.Unmarshal([]byte(r.body), &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		msgs = append(msgs, e.Message)
	}
	if len(msgs) != 2 || msgs[0] != "2026/10/15 12:00:00 gps enabled source=serial" {
		t.Fatalf("msgs=%q", msgs)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Port: 8080}); err == nil {
		t.Fatalf("expected error for missing server")
	}
	if _, err := New(Config{Server: "h", Port: 0}); err == nil {
		t.Fatalf("expected error for missing port")
	}
	s, err := New(Config{Server: "192.168.2.7", Port: 5000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.baseURL != "http://192.168.2.7:5000" {
		t.Fatalf("baseURL=%q", s.baseURL)
	}
}
