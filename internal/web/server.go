package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"path"
	"time"

	"marin-gps/internal/gps"
)

// FixSource is the read side of the running fix. *gps.FixState satisfies it.
type FixSource interface {
	Snapshot() gps.Snapshot
}

// Deps are the collaborators behind the HTTP surface. Nil members disable
// their endpoints.
type Deps struct {
	Status  *Status
	Fix     FixSource
	Logs    *LogBuffer
	Stream  *FixBroadcaster
	Metrics http.Handler
}

func Handler(d Deps) http.Handler {
	if d.Status == nil {
		d.Status = NewStatus()
	}
	mux := http.NewServeMux()

	mux.Handle("/api/status", getOnly(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.Status.Snapshot(time.Now().UTC()))
	}))

	mux.Handle("/api/fix", getOnly(func(w http.ResponseWriter, r *http.Request) {
		if d.Fix == nil {
			http.Error(w, "gps unavailable", http.StatusNotFound)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, d.Fix.Snapshot())
	}))

	if d.Logs != nil {
		mux.Handle("/api/logs", d.Logs.Handler())
	}
	mux.Handle("/api/about", AboutHandler())
	if d.Stream != nil {
		mux.Handle("/api/ws", FixStreamHandler(d.Stream))
	}
	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics)
	}

	mux.Handle("/", getOnly(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			if path.Dir(r.URL.Path) == "/api" {
				http.NotFound(w, r)
				return
			}
		}
		writeIndex(w, d)
	}))

	return mux
}

// writeIndex renders a minimal page; the JSON endpoints are the real UI.
func writeIndex(w http.ResponseWriter, d Deps) {
	snap := d.Status.Snapshot(time.Now().UTC())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>marin-gps</title></head><body>")
	_, _ = fmt.Fprintf(w, "<h1>marin-gps</h1>")
	if d.Fix != nil {
		fix := d.Fix.Snapshot()
		sats := 0
		if fix.Satellites != nil {
			sats = *fix.Satellites
		}
		_, _ = fmt.Fprintf(w, "<pre>%s\n%s %s UTC\n%s sats=%d</pre>",
			html.EscapeString(fix.Position), fix.Date, fix.Time, html.EscapeString(fix.FixType), sats)
	}
	_, _ = fmt.Fprintf(w, "<pre>source=%s device=%s running=%t\nuptime_sec=%d</pre>",
		html.EscapeString(snap.GPS.Source), html.EscapeString(snap.GPS.Device), snap.GPS.Running, snap.UptimeSec)
	_, _ = fmt.Fprintf(w, "<p><a href=\"/api/status\">status</a> <a href=\"/api/fix\">fix</a> <a href=\"/api/logs?format=text\">logs</a></p>")
	_, _ = fmt.Fprintf(w, "</body></html>")
}

func getOnly(fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

// Serve runs the HTTP server until ctx is done. Websocket connections are
// long-lived, so there is no write timeout.
func Serve(ctx context.Context, listenAddr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
