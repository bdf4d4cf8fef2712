// Package app is the composition root a host process uses to wire every
// telemetron component together: the default Factory, the watcher.Scheduler
// and its bus, the HTTP surface httpwatch exposes, and the optional OTel/
// Prometheus mirrors, all bound to one config.Config and logsink.Sink.
// Nothing in the rest of this module imports app; it exists purely to give
// application code (and this repo's own cmd/telemetrond) one place to get a
// fully wired instance from instead of repeating the wiring by hand.
package app

import (
	"context"
	"net/http"

	"telemetron/config"
	"telemetron/factory"
	"telemetron/httpwatch"
	"telemetron/logsink"
	"telemetron/meter"
	"telemetron/meter/otelbridge"
	"telemetron/session"
	"telemetron/sysstatus/promreport"
	"telemetron/watcher"
)

// App bundles the wired components a host process drives directly: the
// Factory operations use to create Meters/Watchers, the Scheduler driving
// the default Watcher, and the HTTP handlers mirroring both onto a mux.
type App struct {
	Session   *session.Session
	Factory   *factory.Factory
	Scheduler *watcher.Scheduler

	tickHandler *httpwatch.LatestTickHandler
	reporter    *promreport.Reporter
	bridge      *otelbridge.Bridge
}

// Options configures New. A zero Options is valid: it yields a slog-backed
// Sink and config.Default(), with both Prometheus and OTel mirrors off.
type Options struct {
	Sink             logsink.Sink
	Config           *config.Config
	Logger           string
	EnablePrometheus bool
	EnableOTel       bool
}

// New wires one App: a Factory scoped to opts.Logger, the process Scheduler
// bound to opts.Config, the OTel bridge attached as the Factory's meter
// terminal hook (so Bridge.Observe runs for real on every Ok/Reject/Fail),
// and an HTTP tick handler subscribed to the Scheduler's bus via Pump.
// Call Start to begin the default Watcher's periodic driver and the bus
// pump goroutine; canceling the ctx passed to Start tears both down, while
// Stop halts only the driver (and the OTel bridge).
func New(opts Options) *App {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	sink := opts.Sink
	if sink == nil {
		sink = logsink.NewSlog(nil)
	}
	logger := opts.Logger
	if logger == "" {
		logger = "app"
	}

	sess := session.Current()
	f := factory.New(sess, sink, cfg, logger)

	var bridge *otelbridge.Bridge
	if opts.EnableOTel {
		bridge = otelbridge.New()
		f = f.WithMeterTerminalHook(func(category string, d meter.Data) {
			bridge.Observe(context.Background(), category, d)
		})
	}

	sched := watcher.Current(sess, sink, cfg)

	a := &App{
		Session:     sess,
		Factory:     f,
		Scheduler:   sched,
		tickHandler: httpwatch.NewLatestTickHandler(),
		bridge:      bridge,
	}
	if opts.EnablePrometheus {
		a.reporter = promreport.New()
	}
	return a
}

// Start starts the default Watcher's periodic driver (on the Config the
// Scheduler was built with), a goroutine pumping the Scheduler's bus into
// the HTTP tick handler and, when Prometheus is enabled, a goroutine feeding
// each tick's SystemStatus to the reporter. The driver stops when ctx is
// canceled or Stop is called; the bus goroutines exit when ctx is canceled.
func (a *App) Start(ctx context.Context) {
	a.Scheduler.StartDefault(ctx, nil)
	sub := a.Scheduler.Bus().Subscribe(64)
	go a.tickHandler.Pump(ctx, sub)
	if a.reporter != nil {
		rsub := a.Scheduler.Bus().Subscribe(64)
		go func() {
			for {
				select {
				case d, ok := <-rsub.C():
					if !ok {
						return
					}
					a.reporter.Observe(d.SystemStatus)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

// Stop halts the default Watcher's driver and, if OTel is enabled, flushes
// and shuts down the bridge's MeterProvider. The bus goroutines started by
// Start keep running until the ctx passed to Start is canceled.
func (a *App) Stop() {
	a.Scheduler.Stop()
	if a.bridge != nil {
		_ = a.bridge.Shutdown(context.Background())
	}
}

// Mux returns an http.ServeMux exposing /watch (the latest Watcher tick as
// JSON) and /metrics (the Prometheus mirror, 501 if EnablePrometheus was
// false).
func (a *App) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/watch", a.tickHandler)
	mux.Handle("/metrics", httpwatch.NewMetricsHandler(a.reporter))
	return mux
}
