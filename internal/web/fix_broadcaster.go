package web

import (
	"sync"

	"marin-gps/internal/gps"
)

// FixBroadcaster fans fix snapshots out to websocket listeners. It keeps the
// most recent value so new subscribers get an immediate sample. Slow
// subscribers miss samples rather than blocking Publish.
type FixBroadcaster struct {
	mu       sync.RWMutex
	subs     map[int]chan gps.Snapshot
	nextID   int
	last     gps.Snapshot
	haveLast bool
}

func NewFixBroadcaster() *FixBroadcaster {
	return &FixBroadcaster{
		subs: make(map[int]chan gps.Snapshot),
	}
}

func (b *FixBroadcaster) Subscribe(buffer int) (int, <-chan gps.Snapshot) {
	if b == nil {
		return 0, nil
	}
	if buffer <= 0 {
		buffer = 2
	}
	ch := make(chan gps.Snapshot, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	if b.haveLast {
		ch <- b.last
	}
	b.mu.Unlock()
	return id, ch
}

func (b *FixBroadcaster) Unsubscribe(id int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	ch, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish returns the number of subscribers that accepted the snapshot.
func (b *FixBroadcaster) Publish(s gps.Snapshot) int {
	if b == nil {
		return 0
	}
	// Held for the whole fan-out so Unsubscribe cannot close a channel mid-send.
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = s
	b.haveLast = true
	sent := 0
	for _, ch := range b.subs {
		select {
		case ch <- s:
			sent++
		default:
		}
	}
	return sent
}

func (b *FixBroadcaster) Subscribers() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
