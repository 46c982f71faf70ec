package gps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"marin-gps/internal/replay"
	"marin-gps/internal/sim"
)

const (
	SourceSerial = "serial"
	SourceGPSD   = "gpsd"
	SourceReplay = "replay"
	SourceSim    = "sim"
)

// Config controls where the Service reads NMEA bytes from.
//
// Device may be empty to auto-detect a USB or UART receiver.
// All fields are optional unless noted.
type Config struct {
	Enable bool

	// Source is "serial" (default), "gpsd", "replay" or "sim".
	Source string

	Device string
	Baud   int

	// GPSDAddr is host:port for gpsd when Source=="gpsd".
	GPSDAddr string

	// ReplayPath is a capture log (see package replay) when Source=="replay".
	ReplayPath  string
	ReplaySpeed float64
	ReplayLoop  bool

	// Sim generates epochs every SimInterval (default 1s) when Source=="sim".
	Sim         sim.Receiver
	SimInterval time.Duration

	VerifyChecksum   bool
	MaxSentenceBytes int
}

// ServiceSnapshot describes the ingestion side: what is being read and how
// the parser has fared. The fix itself is read through State().
type ServiceSnapshot struct {
	Enabled bool `json:"enabled"`
	Running bool `json:"running"`

	Source   string `json:"source"`
	Device   string `json:"device,omitempty"`
	Baud     int    `json:"baud,omitempty"`
	GPSDAddr string `json:"gpsd_addr,omitempty"`

	VerifyChecksum bool  `json:"verify_checksum"`
	Stats          Stats `json:"stats"`

	LastSentenceUTC string `json:"last_sentence_utc,omitempty"`
	LastError       string `json:"last_error,omitempty"`
}

// Service owns the single goroutine that feeds a Parser. Everything else
// reads the parser's FixState.
type Service struct {
	cfg    Config
	parser *Parser

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool

	lastSentence atomic.Int64 // unix nanos

	mu      sync.Mutex
	closer  io.Closer
	device  string
	lastErr string
}

// New builds a Service. opts carries the observer and sentence hook;
// checksum and buffer size come from cfg.
func New(cfg Config, opts Options) *Service {
	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))
	if cfg.Source == "" {
		cfg.Source = SourceSerial
	}
	if cfg.Baud == 0 {
		cfg.Baud = 9600
	}
	if strings.TrimSpace(cfg.GPSDAddr) == "" {
		cfg.GPSDAddr = gpsdDefaultAddr
	}
	if cfg.ReplaySpeed <= 0 {
		cfg.ReplaySpeed = 1
	}
	if cfg.SimInterval <= 0 {
		cfg.SimInterval = time.Second
	}

	s := &Service{cfg: cfg, device: strings.TrimSpace(cfg.Device)}
	opts.VerifyChecksum = cfg.VerifyChecksum
	opts.MaxSentenceBytes = cfg.MaxSentenceBytes
	hook := opts.OnSentence
	opts.OnSentence = func(sentence string, kind Kind, out Outcome) {
		s.lastSentence.Store(time.Now().UnixNano())
		if hook != nil {
			hook(sentence, kind, out)
		}
	}
	s.parser = NewParser(opts)
	return s
}

// State is the fix maintained by this service.
func (s *Service) State() *FixState {
	return s.parser.State()
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gps service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	var run func(ctx context.Context)
	switch s.cfg.Source {
	case SourceSerial:
		if s.device == "" {
			s.device = autoDetectDevice()
			if s.device == "" {
				s.lastErr = "gps auto-detect failed: no /dev/ttyACM*, /dev/ttyUSB* or /dev/serial0 found"
				return fmt.Errorf("gps auto-detect failed")
			}
		}
		device, baud := s.device, s.cfg.Baud
		log.Printf("gps enabled source=serial device=%s baud=%d", device, baud)
		run = func(ctx context.Context) {
			s.reconnectLoop(ctx, func(ctx context.Context) (io.ReadWriteCloser, error) {
				rc, err := openSerial(device, baud)
				if err != nil {
					return nil, fmt.Errorf("gps open failed device=%s baud=%d: %w", device, baud, err)
				}
				return rc, nil
			}, func(ctx context.Context, rc io.ReadWriteCloser) error {
				_, err := io.Copy(s.parser, rc)
				if err == nil {
					err = io.EOF
				}
				return fmt.Errorf("gps read stopped: %w", err)
			})
		}
	case SourceGPSD:
		addr := s.cfg.GPSDAddr
		s.device = "gpsd"
		log.Printf("gps enabled source=gpsd addr=%s", addr)
		run = func(ctx context.Context) {
			s.reconnectLoop(ctx, func(ctx context.Context) (io.ReadWriteCloser, error) {
				conn, err := dialGPSD(ctx, addr)
				if err != nil {
					return nil, fmt.Errorf("gpsd dial failed addr=%s: %w", addr, err)
				}
				return conn, nil
			}, func(ctx context.Context, rc io.ReadWriteCloser) error {
				return pumpGPSD(ctx, rc, s.parser)
			})
		}
	case SourceReplay:
		recs, err := replay.ReadFile(s.cfg.ReplayPath)
		if err != nil {
			s.lastErr = fmt.Sprintf("gps replay load failed path=%s: %v", s.cfg.ReplayPath, err)
			return fmt.Errorf("gps replay load failed: %w", err)
		}
		s.device = s.cfg.ReplayPath
		log.Printf("gps enabled source=replay path=%s records=%d speed=%g loop=%t", s.cfg.ReplayPath, len(recs), s.cfg.ReplaySpeed, s.cfg.ReplayLoop)
		run = func(ctx context.Context) {
			err := replay.Play(recs, s.cfg.ReplaySpeed, s.cfg.ReplayLoop, replay.ContextSleeper{Ctx: ctx}, func(sentence string) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				_, _ = io.WriteString(s.parser, sentence)
				s.parser.Feed('\r')
				s.parser.Feed('\n')
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				s.setError(fmt.Sprintf("gps replay stopped: %v", err))
			}
		}
	case SourceSim:
		rx, every := s.cfg.Sim, s.cfg.SimInterval
		s.device = "sim"
		log.Printf("gps enabled source=sim center=%.5f,%.5f sats=%d interval=%s", rx.Track.CenterLatDeg, rx.Track.CenterLonDeg, rx.Satellites, every)
		run = func(ctx context.Context) {
			t := time.NewTicker(every)
			defer t.Stop()
			now := time.Now()
			for {
				for _, line := range rx.Sentences(now) {
					_, _ = io.WriteString(s.parser, line+"\r\n")
				}
				select {
				case <-ctx.Done():
					return
				case now = <-t.C:
				}
			}
		}
	default:
		return fmt.Errorf("unknown gps source %q", s.cfg.Source)
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running.Store(true)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		run(childCtx)
	}()
	return nil
}

// reconnectLoop opens the source, pumps it until it fails, and reopens
// with exponential backoff until ctx is done.
func (s *Service) reconnectLoop(ctx context.Context, open func(context.Context) (io.ReadWriteCloser, error), pump func(context.Context, io.ReadWriteCloser) error) {
	const minBackoff = 250 * time.Millisecond
	const maxBackoff = 10 * time.Second
	backoff := minBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		rc, err := open(ctx)
		if err != nil {
			s.setError(err.Error())
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = minBackoff

		s.mu.Lock()
		if ctx.Err() != nil {
			s.mu.Unlock()
			_ = rc.Close()
			return
		}
		// Swap the closer so Close() can interrupt a blocked read.
		s.closer = rc
		s.mu.Unlock()

		err = pump(ctx, rc)
		_ = rc.Close()
		if ctx.Err() != nil {
			return
		}
		s.setError(err.Error())
	}
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	// Cancel before taking the closer: a source opened concurrently either
	// lands here or sees the cancelled context and closes itself.
	s.mu.Lock()
	closer := s.closer
	s.closer = nil
	s.mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
	s.wg.Wait()
}

func (s *Service) Snapshot() ServiceSnapshot {
	if s == nil {
		return ServiceSnapshot{}
	}
	s.mu.Lock()
	device := s.device
	lastErr := s.lastErr
	s.mu.Unlock()

	out := ServiceSnapshot{
		Enabled:        s.cfg.Enable,
		Running:        s.running.Load(),
		Source:         s.cfg.Source,
		Device:         device,
		VerifyChecksum: s.cfg.VerifyChecksum,
		Stats:          s.parser.Stats(),
		LastError:      lastErr,
	}
	switch s.cfg.Source {
	case SourceSerial:
		out.Baud = s.cfg.Baud
	case SourceGPSD:
		out.GPSDAddr = s.cfg.GPSDAddr
	}
	if ns := s.lastSentence.Load(); ns != 0 {
		out.LastSentenceUTC = time.Unix(0, ns).UTC().Format(time.RFC3339Nano)
	}
	return out
}

func (s *Service) setError(msg string) {
	s.mu.Lock()
	changed := s.lastErr != msg
	s.lastErr = msg
	s.mu.Unlock()
	// Avoid spamming the log while a device stays unplugged.
	if changed {
		log.Printf("%s", msg)
	}
}

func autoDetectDevice() string {
	candidates := []string{}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyACM%d", i))
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyUSB%d", i))
	}
	// Raspberry Pi primary UART, where HAT receivers sit.
	candidates = append(candidates, "/dev/serial0")
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
