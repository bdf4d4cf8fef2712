package watcher

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetron/config"
	"telemetron/event"
	"telemetron/logsink"
	"telemetron/session"
	"telemetron/wireformat"
)

type recordSink struct {
	mu    sync.Mutex
	lines []struct {
		category string
		marker   logsink.Marker
		message  string
	}
}

func (s *recordSink) IsEnabled(category string, level logsink.Level) bool { return true }

func (s *recordSink) Emit(ctx context.Context, category string, level logsink.Level, marker logsink.Marker, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, struct {
		category string
		marker   logsink.Marker
		message  string
	}{category, marker, message})
}

func TestTickEmitsMsgAndDataOnce(t *testing.T) {
	event.ResetPositionsForTest()
	sink := &recordSink{}
	cfg := config.Defaults()
	cfg.System.UseMemoryBean = true
	w := New(session.New(), sink, cfg, "watcher")

	w.Tick(context.Background())

	require.Len(t, sink.lines, 2)
	assert.Equal(t, logsink.MarkerMsgWatcher, sink.lines[0].marker)
	assert.Equal(t, logsink.MarkerDataWatcher, sink.lines[1].marker)
}

func TestTickDataRoundTrips(t *testing.T) {
	event.ResetPositionsForTest()
	sink := &recordSink{}
	cfg := config.Defaults()
	w := New(session.New(), sink, cfg, "watcher")
	w.Tick(context.Background())

	var dataLine string
	for _, l := range sink.lines {
		if l.marker == logsink.MarkerDataWatcher {
			dataLine = l.message
		}
	}
	require.NotEmpty(t, dataLine)

	payload, ok := wireformat.Locate(dataLine, 'W')
	require.True(t, ok)
	parsed, err := wireformat.Parse('W', payload)
	require.NoError(t, err)
	got := Decode(parsed)
	assert.Equal(t, "watcher", got.Name)
	assert.Equal(t, int64(1), got.Position)
}

func TestTickPositionsIncreasePerTick(t *testing.T) {
	event.ResetPositionsForTest()
	sink := &recordSink{}
	cfg := config.Defaults()
	w := New(session.New(), sink, cfg, "watcher")
	w.Tick(context.Background())
	w.Tick(context.Background())

	var positions []int64
	for _, l := range sink.lines {
		if l.marker != logsink.MarkerDataWatcher {
			continue
		}
		payload, ok := wireformat.Locate(l.message, 'W')
		require.True(t, ok)
		parsed, err := wireformat.Parse('W', payload)
		require.NoError(t, err)
		positions = append(positions, parsed.Position)
	}
	require.Len(t, positions, 2)
	assert.Greater(t, positions[1], positions[0])
}

func TestMessageAndDataStreamsRouteThroughDistinctCategories(t *testing.T) {
	event.ResetPositionsForTest()
	sink := &recordSink{}
	cfg := config.Defaults()
	cfg.Watcher.DataPrefix = "data."
	cfg.Watcher.MessagePrefix = "readable."
	w := New(session.New(), sink, cfg, "watcher")
	w.Tick(context.Background())

	require.Len(t, sink.lines, 2)
	var msgCategory, dataCategory string
	for _, l := range sink.lines {
		switch l.marker {
		case logsink.MarkerMsgWatcher:
			msgCategory = l.category
		case logsink.MarkerDataWatcher:
			dataCategory = l.category
		}
	}
	assert.Equal(t, "readable.watcher", msgCategory)
	assert.Equal(t, "data.watcher", dataCategory)
	assert.NotEqual(t, msgCategory, dataCategory, "the readable and encoded streams must be routable independently")
}

func TestEncodedEventStillCarriesTheUntransformedCategory(t *testing.T) {
	event.ResetPositionsForTest()
	sink := &recordSink{}
	cfg := config.Defaults()
	cfg.Watcher.DataPrefix = "data."
	w := New(session.New(), sink, cfg, "watcher")
	w.Tick(context.Background())

	var dataLine string
	for _, l := range sink.lines {
		if l.marker == logsink.MarkerDataWatcher {
			dataLine = l.message
		}
	}
	require.NotEmpty(t, dataLine)
	payload, ok := wireformat.Locate(dataLine, 'W')
	require.True(t, ok)
	parsed, err := wireformat.Parse('W', payload)
	require.NoError(t, err)
	assert.Equal(t, "watcher", parsed.Category, "the category transform routes the sink call, it does not rename the event's own identity")
}
