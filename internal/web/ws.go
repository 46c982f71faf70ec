package web

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The UI is served from the same device; chart plotters on the LAN
	// connect from their own origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// FixStreamHandler upgrades to a websocket and writes one JSON snapshot per
// new-data edge until the client goes away.
func FixStreamHandler(b *FixBroadcaster) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b == nil {
			http.Error(w, "fix stream unavailable", http.StatusNotFound)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			return
		}
		defer conn.Close()

		id, ch := b.Subscribe(4)
		defer b.Unsubscribe(id)

		// Drain client frames so close and ping control frames are handled.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-gone:
				return
			case <-r.Context().Done():
				return
			case snap, ok := <-ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(snap); err != nil {
					log.Printf("ws write failed remote=%s: %v", r.RemoteAddr, err)
					return
				}
			}
		}
	})
}
