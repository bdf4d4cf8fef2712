// Package factory is the top-level entry point applications use: it binds
// a logsink.Sink, config.Config, and session.Session together once, and
// hands out Meters and Watchers scoped to a logger name without every call
// site having to thread those three dependencies through by hand.
package factory

import (
	"telemetron/config"
	"telemetron/logsink"
	"telemetron/meter"
	"telemetron/session"
	"telemetron/watcher"
)

// Factory creates Meters and Watchers under a fixed logger name, composing
// each operation name into "logger.operation" per spec.md §4.1.
type Factory struct {
	sess   *session.Session
	sink   logsink.Sink
	cfg    *config.Config
	logger string

	onMeterTerminal func(category string, d meter.Data)
}

// New returns a Factory scoped to logger, using sess/sink/cfg. cfg may be
// nil, in which case config.Default() is consulted at each Meter/Watcher
// creation (so a later config.SetDefault takes effect for new operations).
func New(sess *session.Session, sink logsink.Sink, cfg *config.Config, logger string) *Factory {
	return &Factory{sess: sess, sink: sink, cfg: cfg, logger: logger}
}

// WithMeterTerminalHook attaches fn to every Meter this Factory creates
// from here on (via Meter.OnTerminal), so a downstream mirror such as
// meter/otelbridge.Bridge.Observe has a real, non-test call path instead of
// requiring application code to invoke it by hand after every Ok/Reject/
// Fail. Pass nil to stop attaching a hook to newly-created Meters; Meters
// already handed out are unaffected either way.
func (f *Factory) WithMeterTerminalHook(fn func(category string, d meter.Data)) *Factory {
	f.onMeterTerminal = fn
	return f
}

func (f *Factory) resolveConfig() *config.Config {
	if f.cfg != nil {
		return f.cfg
	}
	return config.Default()
}

func (f *Factory) category(operation string) string {
	if operation == "" {
		return f.logger
	}
	return f.logger + "." + operation
}

// Meter allocates a new Meter for operation (create(), per spec.md §4.3 —
// no emission happens until Start).
func (f *Factory) Meter(operation string) *meter.Meter {
	m := meter.New(f.sess, f.sink, f.resolveConfig(), f.category(operation))
	if f.onMeterTerminal != nil {
		m.OnTerminal(f.onMeterTerminal)
	}
	return m
}

// Watcher allocates a new Watcher for name (typically the configured
// watcher.name when name is "").
func (f *Factory) Watcher(name string) *watcher.Watcher {
	cfg := f.resolveConfig()
	if name == "" {
		name = cfg.Watcher.Name
	}
	return watcher.New(f.sess, f.sink, cfg, f.category(name))
}
