package httpwatch

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetron/event"
	"telemetron/internal/eventbus"
	"telemetron/sysstatus"
	"telemetron/watcher"
)

func TestLatestTickHandlerBeforeAnyTick(t *testing.T) {
	h := NewLatestTickHandler()
	req := httptest.NewRequest("GET", "/watch", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, 503, rec.Code)
}

func TestLatestTickHandlerAfterObserve(t *testing.T) {
	h := NewLatestTickHandler()
	h.Observe(watcher.Data{
		Base: event.NewBase(nil, "watcher", 3, 123, sysstatus.Status{}),
		Name: "watcher",
	})

	req := httptest.NewRequest("GET", "/watch", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "watcher", body["category"])
	assert.Equal(t, float64(3), body["position"])
}

func TestLatestTickHandlerPumpDrainsSubscription(t *testing.T) {
	bus := eventbus.New[watcher.Data]()
	sub := bus.Subscribe(4)
	defer sub.Close()

	h := NewLatestTickHandler()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Pump(ctx, sub)

	bus.Publish(watcher.Data{
		Base: event.NewBase(nil, "watcher", 7, 456, sysstatus.Status{}),
		Name: "watcher",
	})

	require.Eventually(t, func() bool {
		req := httptest.NewRequest("GET", "/watch", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code == 200
	}, time.Second, time.Millisecond, "Pump never delivered the published tick to Observe")
}

func TestMetricsHandlerNilReporter(t *testing.T) {
	h := NewMetricsHandler(nil)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, 501, rec.Code)
}
