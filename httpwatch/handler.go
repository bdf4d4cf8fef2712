// Package httpwatch exposes the latest Watcher tick and a Prometheus
// /metrics endpoint over HTTP. Adapted from the teacher's
// engine/adapters/telemetryhttp handlers: an atomic-held latest snapshot
// served as JSON, and a metrics handler delegated to whatever provider
// is wired in.
package httpwatch

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"telemetron/internal/eventbus"
	"telemetron/sysstatus/promreport"
	"telemetron/watcher"
)

type tickSnapshot struct {
	Category string    `json:"category"`
	Position int64     `json:"position"`
	Time     time.Time `json:"time"`
}

// LatestTickHandler serves the most recent Watcher tick as JSON. Feed it
// from a watcher.Scheduler's bus via Pump, or call Observe directly.
type LatestTickHandler struct {
	latest atomic.Pointer[watcher.Data]
}

// NewLatestTickHandler returns an empty handler; call Observe from a
// Watcher's OnTick hook to keep it current.
func NewLatestTickHandler() *LatestTickHandler {
	return &LatestTickHandler{}
}

// Observe records d as the latest tick. Safe to call concurrently with
// ServeHTTP.
func (h *LatestTickHandler) Observe(d watcher.Data) {
	cp := d
	h.latest.Store(&cp)
}

// Pump drains sub, calling Observe for every tick received, until ctx is
// done or sub's channel is closed. Run it in its own goroutine, typically
// fed by watcher.Scheduler.Bus().Subscribe.
func (h *LatestTickHandler) Pump(ctx context.Context, sub eventbus.Subscription[watcher.Data]) {
	for {
		select {
		case d, ok := <-sub.C():
			if !ok {
				return
			}
			h.Observe(d)
		case <-ctx.Done():
			return
		}
	}
}

func (h *LatestTickHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d := h.latest.Load()
	w.Header().Set("Content-Type", "application/json")
	if d == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no tick observed yet"})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(tickSnapshot{
		Category: d.Category,
		Position: d.Position,
		Time:     time.Unix(0, d.TimeNanos),
	})
}

// NewMetricsHandler delegates to reporter's own /metrics handler, or 501s if
// reporter is nil.
func NewMetricsHandler(reporter *promreport.Reporter) http.Handler {
	if reporter == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics handler unavailable", http.StatusNotImplemented)
		})
	}
	return reporter.Handler()
}
