package watcher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetron/config"
	"telemetron/event"
	"telemetron/schedule"
	"telemetron/session"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Cleanup(ResetForTest)
	ResetForTest()
	event.ResetPositionsForTest()
	cfg := config.Defaults()
	return Current(session.New(), &recordSink{}, cfg)
}

func TestCurrentReturnsSameInstanceRegardlessOfArgs(t *testing.T) {
	s1 := newTestScheduler(t)
	s2 := Current(session.New(), &recordSink{}, config.Defaults())
	assert.Same(t, s1, s2)
}

func TestCurrentBindsDefaultWatcherToConfiguredName(t *testing.T) {
	s := newTestScheduler(t)
	assert.Equal(t, "watcher", s.Watcher().category)
}

func TestStartTwiceWithoutStopKeepsOnlyOneDriver(t *testing.T) {
	s := newTestScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ticks atomic.Int64
	fake := &countingDriver{onStart: func() { ticks.Add(1) }}
	s.Start(ctx, fake)
	s.Start(ctx, fake) // second Start before Stop: must be ignored

	assert.Equal(t, int64(1), ticks.Load(), "only the first Start should take effect")
	s.Stop()
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	s := newTestScheduler(t)
	assert.NotPanics(t, func() { s.Stop() })
}

func TestStartStopStartRecreatesDriver(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	var starts atomic.Int64
	s.Start(ctx, &countingDriver{onStart: func() { starts.Add(1) }})
	s.Stop()
	s.Start(ctx, &countingDriver{onStart: func() { starts.Add(1) }})
	s.Stop()

	assert.Equal(t, int64(2), starts.Load())
}

func TestSchedulerBusReceivesTicksFromDefaultWatcher(t *testing.T) {
	s := newTestScheduler(t)
	sub := s.Bus().Subscribe(1)
	defer sub.Close()

	s.Watcher().Tick(context.Background())

	select {
	case d := <-sub.C():
		assert.Equal(t, "watcher", d.Name)
	case <-time.After(time.Second):
		t.Fatal("scheduler bus never received the tick")
	}
}

func TestStartDefaultDrivesWatcherOnConfiguredPeriod(t *testing.T) {
	s := newTestScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Defaults()
	cfg.Watcher.DelayMilliseconds = 1
	cfg.Watcher.PeriodMilliseconds = 0 // fire once, don't repeat

	sub := s.Bus().Subscribe(1)
	defer sub.Close()

	s.StartDefault(ctx, cfg)
	defer s.Stop()

	select {
	case <-sub.C():
	case <-time.After(time.Second):
		t.Fatal("StartDefault never produced a tick")
	}
}

// countingDriver is a minimal schedule.Driver stub: it invokes onStart
// synchronously from Start and ignores task entirely. Used to observe how
// many times Scheduler.Start actually wires a driver in.
type countingDriver struct {
	onStart func()
}

func (d *countingDriver) Start(ctx context.Context, task schedule.Task) {
	if d.onStart != nil {
		d.onStart()
	}
}

func (d *countingDriver) Stop() {}

var _ schedule.Driver = (*countingDriver)(nil)

func TestCountingDriverImplementsDriverInterfaceContract(t *testing.T) {
	require.Implements(t, (*schedule.Driver)(nil), &countingDriver{})
}
