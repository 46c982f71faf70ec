// Package logship forwards log lines and raw NMEA sentences to an HTTP
// collector on the LAN.
//
// Delivery is best effort. Messages go through a bounded queue drained by a
// single worker; when the collector is slow or down, new messages are
// dropped and counted instead of blocking the caller. The shipper never
// writes to the standard logger itself, since that logger may be teed into
// the shipper.
package logship

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	LogPath  = "/api/log"
	NMEAPath = "/api/nmea"
)

const (
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
	LevelDebug   = "DEBUG"
)

type Config struct {
	Server string
	Port   int
	Device string

	// Queue bounds the number of undelivered messages.
	Queue   int
	Timeout time.Duration

	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// Entry is the JSON body posted to LogPath. Timestamp is milliseconds since
// the shipper was created.
type Entry struct {
	Device    string `json:"device"`
	Timestamp int64  `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

type Stats struct {
	Sent      uint64 `json:"sent"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
	LastError string `json:"last_error,omitempty"`
}

type item struct {
	path        string
	contentType string
	body        []byte
}

type Shipper struct {
	device  string
	baseURL string
	client  *http.Client
	start   time.Time
	queue   chan item

	sent    atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64

	mu      sync.Mutex
	lastErr string
}

func New(cfg Config) (*Shipper, error) {
	server := strings.TrimSpace(cfg.Server)
	if server == "" {
		return nil, fmt.Errorf("logship: server is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("logship: invalid port %d", cfg.Port)
	}
	if cfg.Queue <= 0 {
		cfg.Queue = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	base := server
	if !strings.Contains(base, "://") {
		base = "http://" + net.JoinHostPort(server, strconv.Itoa(cfg.Port))
	}
	return &Shipper{
		device:  cfg.Device,
		baseURL: strings.TrimRight(base, "/"),
		client:  client,
		start:   time.Now(),
		queue:   make(chan item, cfg.Queue),
	}, nil
}

// Log queues one log message. It reports false when the queue is full and
// the message was dropped.
func (s *Shipper) Log(level, message string) bool {
	b, err := json.Marshal(Entry{
		Device:    s.device,
		Timestamp: time.Since(s.start).Milliseconds(),
		Level:     level,
		Message:   message,
	})
	if err != nil {
		s.setError(fmt.Errorf("logship: marshal: %w", err))
		return false
	}
	return s.enqueue(item{path: LogPath, contentType: "application/json", body: b})
}

func (s *Shipper) Info(msg string) bool    { return s.Log(LevelInfo, msg) }
func (s *Shipper) Warning(msg string) bool { return s.Log(LevelWarning, msg) }

// SendRawNMEA queues one sentence, sent as text/plain without terminator.
func (s *Shipper) SendRawNMEA(sentence string) bool {
	return s.enqueue(item{path: NMEAPath, contentType: "text/plain", body: []byte(sentence)})
}

func (s *Shipper) enqueue(it item) bool {
	select {
	case s.queue <- it:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Run delivers queued messages until ctx is done.
func (s *Shipper) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case it := <-s.queue:
			if err := s.post(ctx, it); err != nil {
				s.setError(err)
				s.failed.Add(1)
				continue
			}
			s.sent.Add(1)
		}
	}
}

func (s *Shipper) post(ctx context.Context, it item) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+it.path, bytes.NewReader(it.body))
	if err != nil {
		return fmt.Errorf("logship: build request: %w", err)
	}
	req.Header.Set("Content-Type", it.contentType)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("logship: post %s: %w", it.path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("logship: post %s: status %d", it.path, resp.StatusCode)
	}
	return nil
}

func (s *Shipper) setError(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
}

func (s *Shipper) Stats() Stats {
	s.mu.Lock()
	lastErr := s.lastErr
	s.mu.Unlock()
	return Stats{
		Sent:      s.sent.Load(),
		Dropped:   s.dropped.Load(),
		Failed:    s.failed.Load(),
		LastError: lastErr,
	}
}

// Writer returns an io.Writer that ships every complete line written to it
// at level. It is meant for log.SetOutput through an io.MultiWriter.
func (s *Shipper) Writer(level string) io.Writer {
	return &lineWriter{s: s, level: level}
}

type lineWriter struct {
	s     *Shipper
	level string

	mu      sync.Mutex
	partial []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(w.partial[:i]), "\r")
		w.partial = w.partial[i+1:]
		if line != "" {
			w.s.Log(w.level, line)
		}
	}
	if len(w.partial) == 0 {
		w.partial = nil
	}
	return len(p), nil
}
