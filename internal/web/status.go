package web

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"marin-gps/internal/gps"
	"marin-gps/internal/logship"
	"marin-gps/internal/telemetry"
)

// Status is the process-level view behind /api/status. It is written by the
// refresh loop and read by HTTP handlers.
type Status struct {
	startUnixNano   int64
	lastPublishNano atomic.Int64
	gps             atomic.Value // gps.ServiceSnapshot
	sinks           atomic.Value // SinkStats

	mu        sync.Mutex
	publishes map[string]uint64
}

func NewStatus() *Status {
	s := &Status{
		startUnixNano: time.Now().UTC().UnixNano(),
		publishes:     map[string]uint64{},
	}
	s.gps.Store(gps.ServiceSnapshot{})
	s.sinks.Store(SinkStats{})
	return s
}

func (s *Status) SetGPS(snap gps.ServiceSnapshot) {
	s.gps.Store(snap)
}

// UDPStats reports the NMEA forwarder.
type UDPStats struct {
	Dest   string `json:"dest"`
	Sent   uint64 `json:"sent"`
	Failed uint64 `json:"failed"`
}

// SinkStats carries delivery counters of the outputs that can fail quietly.
// A nil entry means that output is disabled.
type SinkStats struct {
	Logger *logship.Stats   `json:"logger,omitempty"`
	MQTT   *telemetry.Stats `json:"mqtt,omitempty"`
	UDP    *UDPStats        `json:"udp,omitempty"`
}

func (s *Status) SetSinks(st SinkStats) {
	s.sinks.Store(st)
}

// MarkPublish records that a fix snapshot was handed to sink.
func (s *Status) MarkPublish(nowUTC time.Time, sink string) {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	s.lastPublishNano.Store(nowUTC.UnixNano())
	s.mu.Lock()
	s.publishes[sink]++
	s.mu.Unlock()
}

type StatusSnapshot struct {
	Service        string              `json:"service"`
	NowUTC         string              `json:"now_utc"`
	UptimeSec      int64               `json:"uptime_sec"`
	GPS            gps.ServiceSnapshot `json:"gps"`
	Publishes      map[string]uint64   `json:"publishes"`
	Sinks          []string            `json:"sinks"`
	Delivery       SinkStats           `json:"delivery"`
	LastPublishUTC string              `json:"last_publish_utc,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, s.startUnixNano).UTC()

	s.mu.Lock()
	pubs := make(map[string]uint64, len(s.publishes))
	sinks := make([]string, 0, len(s.publishes))
	for k, v := range s.publishes {
		pubs[k] = v
		sinks = append(sinks, k)
	}
	s.mu.Unlock()
	sort.Strings(sinks)

	snap := StatusSnapshot{
		Service:   serviceName,
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),
		GPS:       s.gps.Load().(gps.ServiceSnapshot),
		Publishes: pubs,
		Sinks:     sinks,
		Delivery:  s.sinks.Load().(SinkStats),
	}
	if last := s.lastPublishNano.Load(); last != 0 {
		snap.LastPublishUTC = time.Unix(0, last).UTC().Format(time.RFC3339Nano)
	}
	return snap
}
