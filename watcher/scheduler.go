package watcher

import (
	"context"
	"sync"

	"telemetron/config"
	"telemetron/internal/eventbus"
	"telemetron/logsink"
	"telemetron/schedule"
	"telemetron/session"
)

// Scheduler is the "Schedulers" singleton spec.md names: it owns the
// process default Watcher and the schedule.Driver that ticks it, and fans
// every tick through an eventbus.Bus[Data] so downstream consumers
// (httpwatch, a future OTel mirror, ...) can subscribe without Watcher or
// this package knowing who they are. Grounded on the teacher's
// AdaptiveRateLimiter-style singleton accessor, extended with the bus
// fanout the teacher's own event bus provides.
type Scheduler struct {
	mu      sync.Mutex
	watcher *Watcher
	driver  schedule.Driver
	bus     *eventbus.Bus[Data]
}

var (
	defaultSchedOnce sync.Once
	defaultSched     *Scheduler
)

// Current returns the process-wide Scheduler, constructing it lazily on
// first call and binding its Watcher to cfg.Watcher.Name. Subsequent calls
// return the same instance regardless of the arguments passed; only the
// first caller's sess/sink/cfg take effect, matching config.Default()'s
// lazy-singleton shape.
func Current(sess *session.Session, sink logsink.Sink, cfg *config.Config) *Scheduler {
	defaultSchedOnce.Do(func() {
		defaultSched = newScheduler(sess, sink, cfg)
	})
	return defaultSched
}

func newScheduler(sess *session.Session, sink logsink.Sink, cfg *config.Config) *Scheduler {
	if cfg == nil {
		cfg = config.Defaults()
	}
	bus := eventbus.New[Data]()
	w := New(sess, sink, cfg, cfg.Watcher.Name)
	w.OnTick(bus.Publish)
	s := &Scheduler{watcher: w, bus: bus}
	sess.OnStop(s.Stop)
	return s
}

// ResetForTest discards the process-wide Scheduler so the next Current call
// constructs a fresh one. Tests only.
func ResetForTest() {
	defaultSchedOnce = sync.Once{}
	defaultSched = nil
}

// Watcher returns the default Watcher this Scheduler drives.
func (s *Scheduler) Watcher() *Watcher {
	return s.watcher
}

// Bus returns the eventbus every tick of the default Watcher is published
// to, regardless of whether a Driver is currently running.
func (s *Scheduler) Bus() *eventbus.Bus[Data] {
	return s.bus
}

// Start begins driving the default Watcher with driver. Calling Start again
// while a driver is already running is a no-op: only one driver runs at a
// time (spec.md testable property 8). Stop, then Start again, to replace
// the driver.
func (s *Scheduler) Start(ctx context.Context, driver schedule.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.driver != nil {
		return
	}
	s.driver = driver
	s.driver.Start(ctx, s.watcher.Tick)
}

// StartDefault starts the default Watcher on a schedule.TimerDriver built
// from cfg's configured delay/period; a nil cfg uses the Config this
// Scheduler was constructed with. Equivalent to building the TimerDriver
// and calling Start directly; provided since that's the common case.
func (s *Scheduler) StartDefault(ctx context.Context, cfg *config.Config) {
	if cfg == nil {
		cfg = s.watcher.cfg
	}
	s.Start(ctx, schedule.NewTimerDriver(cfg.WatcherDelay(), cfg.WatcherPeriod()))
}

// Stop halts the running driver, if any. Safe to call without a prior
// Start, and safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	d := s.driver
	s.driver = nil
	s.mu.Unlock()
	if d != nil {
		d.Stop()
	}
}
