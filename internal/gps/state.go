package gps

import "sync"

// hdopUnset is reported by HDOP until a receiver sends a value.
const hdopUnset = 99.99

// fixRecord is the mutable part of FixState. Handlers only ever see it
// while FixState holds the write lock.
type fixRecord struct {
	lat    Value[float64]
	lon    Value[float64]
	alt    Value[float64] // meters
	speed  Value[float64] // knots
	course Value[float64] // degrees, [0,360)

	timeRaw Value[string] // HHMMSS.sss
	dateRaw Value[string] // DDMMYY

	satellites Value[int]
	hdop       Value[float64]

	hasFix  bool
	newData bool
}

// FixState is the running fix. It is written by the sentence handlers of a
// single Parser and may be read from any goroutine.
//
// The newData flag is edge-triggered: a handler that sees a non-empty time
// field sets it, reads never clear it, and only ClearNewData or TakeNewData reset it.
type FixState struct {
	mu  sync.RWMutex
	rec fixRecord
}

func NewFixState() *FixState {
	return &FixState{}
}

// update applies fn under the write lock so a sentence is observed either
// not at all or fully applied.
func (s *FixState) update(fn func(r *fixRecord) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.rec)
}

func (s *FixState) read() fixRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec
}

func (s *FixState) HasNewData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.newData
}

func (s *FixState) ClearNewData() {
	s.mu.Lock()
	s.rec.newData = false
	s.mu.Unlock()
}

// TakeNewData snapshots the fix and clears newData under one lock, so a
// sentence cannot slip between the read and the acknowledgement. ok is
// false, and the snapshot empty, when there was nothing new.
func (s *FixState) TakeNewData() (snap Snapshot, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.rec.newData {
		return Snapshot{}, false
	}
	snap = s.rec.snapshot()
	s.rec.newData = false
	return snap, true
}
