package meter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetron/config"
	"telemetron/event"
	"telemetron/logsink"
	"telemetron/session"
	"telemetron/wireformat"
)

// recordSink is an in-memory logsink.Sink for tests: it records every
// emission and lets every level through.
type recordSink struct {
	mu    sync.Mutex
	lines []recorded
}

type recorded struct {
	category string
	level    logsink.Level
	marker   logsink.Marker
	message  string
}

func (s *recordSink) IsEnabled(category string, level logsink.Level) bool { return true }

func (s *recordSink) Emit(ctx context.Context, category string, level logsink.Level, marker logsink.Marker, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, recorded{category, level, marker, message})
}

func (s *recordSink) markers() []logsink.Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]logsink.Marker, len(s.lines))
	for i, l := range s.lines {
		out[i] = l.marker
	}
	return out
}

func (s *recordSink) last() recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines[len(s.lines)-1]
}

func newTestMeter(sink *recordSink, cfg *config.Config, category string) *Meter {
	if cfg == nil {
		cfg = config.Defaults()
	}
	event.ResetPositionsForTest()
	return New(session.New(), sink, cfg, category)
}

func TestStartOkEncodeDecodeRoundTrip(t *testing.T) {
	sink := &recordSink{}
	m := newTestMeter(sink, nil, "app.save")
	m.Iterations(10).M("saving widgets")
	m.Start(context.Background())
	m.IncBy(5)
	m.Ok(context.Background(), "fast-path")

	markers := sink.markers()
	require.Contains(t, markers, logsink.MarkerMsgStart)
	require.Contains(t, markers, logsink.MarkerDataStart)
	require.Contains(t, markers, logsink.MarkerMsgOK)
	require.Contains(t, markers, logsink.MarkerDataOK)

	last := sink.last()
	require.Equal(t, logsink.MarkerDataOK, last.marker)

	payload, ok := wireformat.Locate(last.message, 'M')
	require.True(t, ok)
	parsed, err := wireformat.Parse('M', payload)
	require.NoError(t, err)
	got := Decode(parsed)
	assert.Equal(t, "saving widgets", got.Description)
	assert.Equal(t, int64(10), got.ExpectedIterations)
	assert.Equal(t, int64(5), got.CurrentIteration)
	assert.Equal(t, "fast-path", got.OkPath)
	assert.Equal(t, ResultOK, got.Result)
}

func TestPositionMonotonicPerCategory(t *testing.T) {
	sink := &recordSink{}
	event.ResetPositionsForTest()
	cfg := config.Defaults()
	sess := session.New()

	m1 := New(sess, sink, cfg, "app.save")
	m1.Start(context.Background())
	m1.Ok(context.Background(), "")

	m2 := New(sess, sink, cfg, "app.save")
	m2.Start(context.Background())
	m2.Ok(context.Background(), "")

	require.GreaterOrEqual(t, len(sink.lines), 2)
	var positions []int64
	for _, l := range sink.lines {
		if l.marker != logsink.MarkerDataStart && l.marker != logsink.MarkerDataOK {
			continue
		}
		payload, ok := wireformat.Locate(l.message, 'M')
		require.True(t, ok)
		parsed, err := wireformat.Parse('M', payload)
		require.NoError(t, err)
		positions = append(positions, parsed.Position)
	}
	for i := 1; i < len(positions); i++ {
		assert.Greater(t, positions[i], positions[i-1], "positions must strictly increase within a category")
	}
}

func TestAtMostOneTerminalTransition(t *testing.T) {
	sink := &recordSink{}
	m := newTestMeter(sink, nil, "app.save")
	m.Start(context.Background())
	m.Ok(context.Background(), "")
	m.Ok(context.Background(), "") // second terminal call: misuse, absorbed

	markers := sink.markers()
	okCount := 0
	for _, mk := range markers {
		if mk == logsink.MarkerMsgOK {
			okCount++
		}
	}
	assert.Equal(t, 1, okCount, "a second terminal call must not emit a second OK")
	assert.Contains(t, markers, logsink.MarkerInconsistentOK)
}

func TestSlowOkClassification(t *testing.T) {
	sink := &recordSink{}
	m := newTestMeter(sink, nil, "app.save")
	m.Start(context.Background())
	m.data.StartTime -= int64(time.Second) // backdate so elapsed comfortably exceeds the limit
	m.LimitMilliseconds(1)
	m.Ok(context.Background(), "")

	assert.Equal(t, ResultSlowOK, m.data.Result)
	assert.Contains(t, sink.markers(), logsink.MarkerMsgSlowOK)
}

func TestOkWithinLimitStaysOK(t *testing.T) {
	sink := &recordSink{}
	m := newTestMeter(sink, nil, "app.save")
	m.LimitMilliseconds(60_000)
	m.Start(context.Background())
	m.Ok(context.Background(), "")

	assert.Equal(t, ResultOK, m.data.Result)
	assert.Contains(t, sink.markers(), logsink.MarkerMsgOK)
}

func TestProgressThrottling(t *testing.T) {
	sink := &recordSink{}
	cfg := config.Defaults()
	cfg.Meter.ProgressPeriodMilliseconds = 1_000_000 // effectively never elapses in test time
	m := newTestMeter(sink, cfg, "app.save")
	m.Start(context.Background())
	m.IncBy(1)
	m.Progress(context.Background())
	m.IncBy(1)
	m.Progress(context.Background())

	count := 0
	for _, mk := range sink.markers() {
		if mk == logsink.MarkerMsgProgress {
			count++
		}
	}
	assert.Equal(t, 0, count, "progress period not yet elapsed: no progress event should fire")
}

func TestProgressFiresWhenPeriodElapsed(t *testing.T) {
	sink := &recordSink{}
	cfg := config.Defaults()
	cfg.Meter.ProgressPeriodMilliseconds = 0 // no throttle: every call is eligible
	m := newTestMeter(sink, cfg, "app.save")
	m.Start(context.Background())
	m.Progress(context.Background())
	count := 0
	for _, mk := range sink.markers() {
		if mk == logsink.MarkerMsgProgress {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestProgressSkippedWhenIterationUnchangedEvenIfPeriodElapsed(t *testing.T) {
	sink := &recordSink{}
	cfg := config.Defaults()
	cfg.Meter.ProgressPeriodMilliseconds = 0 // no time-based throttle: isolate the iteration check
	m := newTestMeter(sink, cfg, "app.save")
	m.Start(context.Background())
	m.IncBy(1)
	m.Progress(context.Background())
	m.Progress(context.Background()) // no IncBy between calls: must be skipped

	count := 0
	for _, mk := range sink.markers() {
		if mk == logsink.MarkerMsgProgress {
			count++
		}
	}
	assert.Equal(t, 1, count, "currentIteration did not strictly increase between calls, so only the first progress should fire")
}

func TestProgressFiresAgainOnceIterationAdvances(t *testing.T) {
	sink := &recordSink{}
	cfg := config.Defaults()
	cfg.Meter.ProgressPeriodMilliseconds = 0
	m := newTestMeter(sink, cfg, "app.save")
	m.Start(context.Background())
	m.IncBy(1)
	m.Progress(context.Background())
	m.IncBy(1)
	m.Progress(context.Background())

	count := 0
	for _, mk := range sink.markers() {
		if mk == logsink.MarkerMsgProgress {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestOnTerminalFiresOnOkWithFinalData(t *testing.T) {
	sink := &recordSink{}
	m := newTestMeter(sink, nil, "app.save")

	var gotCategory string
	var gotData Data
	calls := 0
	m.OnTerminal(func(category string, d Data) {
		calls++
		gotCategory = category
		gotData = d
	})

	m.Start(context.Background())
	m.Ok(context.Background(), "fast-path")

	assert.Equal(t, 1, calls)
	assert.Equal(t, "app.save", gotCategory)
	assert.Equal(t, ResultOK, gotData.Result)
}

func TestOnTerminalFiresExactlyOnceAcrossFailRejectRetries(t *testing.T) {
	sink := &recordSink{}
	m := newTestMeter(sink, nil, "app.save")
	calls := 0
	m.OnTerminal(func(category string, d Data) { calls++ })

	m.Start(context.Background())
	m.Fail(context.Background(), errors.New("boom"))
	m.Reject(context.Background(), "ignored") // already terminal: absorbed, no second hook call

	assert.Equal(t, 1, calls)
}

func TestOnTerminalFiresFromCloseSyntheticFail(t *testing.T) {
	sink := &recordSink{}
	m := newTestMeter(sink, nil, "app.save")
	calls := 0
	m.OnTerminal(func(category string, d Data) { calls++ })

	m.Start(context.Background())
	require.NoError(t, m.Close())

	assert.Equal(t, 1, calls)
}

func TestSubMeterDepth(t *testing.T) {
	sink := &recordSink{}
	parent := newTestMeter(sink, nil, "app.save")
	child := parent.Sub("validate")
	grandchild := child.Sub("checkField")

	assert.Equal(t, 1, child.data.DepthContext)
	assert.Equal(t, 2, grandchild.data.DepthContext)
	assert.Equal(t, int64(1), child.data.DepthCount)
	assert.Equal(t, "app.save.validate", child.category)
	assert.Equal(t, "app.save.validate.checkField", grandchild.category)
}

func TestOutOfOrderMisuseAbsorbed(t *testing.T) {
	sink := &recordSink{}
	m := newTestMeter(sink, nil, "app.save")

	// inc/progress/reject before start: all absorbed, never panics.
	assert.NotPanics(t, func() {
		m.Inc()
		m.Progress(context.Background())
		m.Reject(context.Background(), "r1")
	})

	markers := sink.markers()
	assert.Contains(t, markers, logsink.MarkerInconsistentIncrement)
	assert.Contains(t, markers, logsink.MarkerInconsistentProgress)
	assert.Contains(t, markers, logsink.MarkerInconsistentReject)
	assert.Equal(t, stateUnborn, m.state)
}

func TestFailWithNilError(t *testing.T) {
	sink := &recordSink{}
	m := newTestMeter(sink, nil, "app.save")
	m.Start(context.Background())
	m.Fail(context.Background(), nil)

	assert.Equal(t, ResultFail, m.data.Result)
	assert.Equal(t, "unknown", m.data.ExceptionClass)
	assert.Contains(t, sink.markers(), logsink.MarkerInconsistentException)
	assert.Contains(t, sink.markers(), logsink.MarkerMsgFail)
}

func TestCloseWithoutTerminalEmitsSyntheticFail(t *testing.T) {
	sink := &recordSink{}
	m := newTestMeter(sink, nil, "app.save")
	m.Start(context.Background())
	err := m.Close()
	require.NoError(t, err)

	assert.Equal(t, ResultFail, m.data.Result)
	markers := sink.markers()
	assert.Contains(t, markers, logsink.MarkerMsgFail)
	assert.Contains(t, markers, logsink.MarkerInconsistentFinalized)
}

func TestCloseAfterTerminalIsNoop(t *testing.T) {
	sink := &recordSink{}
	m := newTestMeter(sink, nil, "app.save")
	m.Start(context.Background())
	m.Ok(context.Background(), "")
	before := len(sink.markers())
	require.NoError(t, m.Close())
	assert.Equal(t, before, len(sink.markers()), "closing an already-terminal meter must not emit anything")
}

func TestFailRecordsRealErrorClassAndMessage(t *testing.T) {
	sink := &recordSink{}
	m := newTestMeter(sink, nil, "app.save")
	m.Start(context.Background())
	m.Fail(context.Background(), errors.New("disk full"))

	assert.Equal(t, "disk full", m.data.ExceptionMessage)
	assert.NotEqual(t, "unknown", m.data.ExceptionClass)
}
