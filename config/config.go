// Package config holds the process-wide configuration consumed by every
// Meter, Watcher, and SystemStatus collector. It is populated from the
// environment at startup (Load), optionally overlaid from a YAML file
// (LoadYAML / WatchFile), and mutable at runtime — but a value change only
// takes effect for the next Meter/Watcher lifecycle, never for an event
// already in flight, since callers hold an immutable snapshot pointer
// (*Config) rather than re-reading process-wide state on every field
// access.
package config

import (
	"os"
	"strconv"
	"sync/atomic"
	"time"
)

// Session holds session-identity related knobs.
type Session struct {
	UUIDSize int    // session.uuid.size
	Charset  string // session.charset
}

// System gates which SystemStatus groups are collected.
type System struct {
	UseClassLoadingBean bool // system.useClassLoadingManagedBean
	UseCompilationBean  bool // system.useCompilationManagedBean
	UseGarbageCollBean  bool // system.useGarbageCollectionManagedBean
	UseMemoryBean       bool // system.useMemoryManagedBean
	UsePlatformBean     bool // system.usePlatformManagedBean
}

// Meter holds knobs affecting Meter emission.
type Meter struct {
	ProgressPeriodMilliseconds int64 // meter.progress.period
	PrintCategory              bool  // meter.print.category
	PrintStatus                bool  // meter.print.status
	PrintPosition               bool // meter.print.position
	PrintMemory                 bool // meter.print.memory
	PrintLoad                   bool // meter.print.load
}

// Watcher holds knobs affecting the default Watcher and its scheduler.
type Watcher struct {
	Name                  string // watcher.name
	DelayMilliseconds     int64  // watcher.delay
	PeriodMilliseconds    int64  // watcher.period
	DataPrefix, DataSuffix       string // watcher.data.prefix/suffix
	MessagePrefix, MessageSuffix string // watcher.message.prefix/suffix
}

// Reporter holds the reporter.* flags for the report sections (the
// Prometheus SystemStatus mirror, the OTel bridge, ...). spec.md reserves
// the "reporter.*" namespace for these; this module defines one member per
// wired reporter rather than a free-form map, since each corresponds to a
// concrete component. Load and ApplyYAML fill them in; app.New does not read
// them and enables those mirrors from its Options instead.
type Reporter struct {
	PrometheusEnabled bool // reporter.prometheus
	OTelEnabled       bool // reporter.otel
}

// Config is the full process-wide configuration aggregate.
type Config struct {
	Session  Session
	System   System
	Meter    Meter
	Watcher  Watcher
	Reporter Reporter
}

// Defaults returns a Config populated with the documented defaults.
func Defaults() *Config {
	return &Config{
		Session: Session{UUIDSize: 10, Charset: "UTF-8"},
		System:  System{},
		Meter: Meter{
			ProgressPeriodMilliseconds: 2000,
			PrintCategory:              false,
			PrintStatus:                true,
			PrintPosition:              true,
			PrintMemory:                true,
			PrintLoad:                  true,
		},
		Watcher: Watcher{
			Name:               "watcher",
			DelayMilliseconds:  60000,
			PeriodMilliseconds: 600000,
		},
		Reporter: Reporter{},
	}
}

var current atomic.Pointer[Config]

// Default returns the process-wide Config singleton, loading it from the
// environment on first access.
func Default() *Config {
	if c := current.Load(); c != nil {
		return c
	}
	c := Load()
	current.CompareAndSwap(nil, c)
	return current.Load()
}

// SetDefault replaces the process-wide Config singleton. Future Meter/
// Watcher constructions observe the new value; operations already started
// keep the snapshot they were given.
func SetDefault(c *Config) {
	if c == nil {
		return
	}
	current.Store(c)
}

// Load builds a Config from environment variables, falling back to
// Defaults() for anything unset or unparseable.
func Load() *Config {
	c := Defaults()

	if v, ok := lookupEnv("SESSION_UUID_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Session.UUIDSize = n
		}
	}
	if v, ok := lookupEnv("SESSION_CHARSET"); ok && v != "" {
		c.Session.Charset = v
	}

	c.System.UseClassLoadingBean = envBool("SYSTEM_USE_CLASS_LOADING_MANAGED_BEAN", c.System.UseClassLoadingBean)
	c.System.UseCompilationBean = envBool("SYSTEM_USE_COMPILATION_MANAGED_BEAN", c.System.UseCompilationBean)
	c.System.UseGarbageCollBean = envBool("SYSTEM_USE_GARBAGE_COLLECTION_MANAGED_BEAN", c.System.UseGarbageCollBean)
	c.System.UseMemoryBean = envBool("SYSTEM_USE_MEMORY_MANAGED_BEAN", c.System.UseMemoryBean)
	c.System.UsePlatformBean = envBool("SYSTEM_USE_PLATFORM_MANAGED_BEAN", c.System.UsePlatformBean)

	if v, ok := lookupEnv("METER_PROGRESS_PERIOD"); ok {
		c.Meter.ProgressPeriodMilliseconds = ParseDuration(v, c.Meter.ProgressPeriodMilliseconds)
	}
	c.Meter.PrintCategory = envBool("METER_PRINT_CATEGORY", c.Meter.PrintCategory)
	c.Meter.PrintStatus = envBool("METER_PRINT_STATUS", c.Meter.PrintStatus)
	c.Meter.PrintPosition = envBool("METER_PRINT_POSITION", c.Meter.PrintPosition)
	c.Meter.PrintMemory = envBool("METER_PRINT_MEMORY", c.Meter.PrintMemory)
	c.Meter.PrintLoad = envBool("METER_PRINT_LOAD", c.Meter.PrintLoad)

	if v, ok := lookupEnv("WATCHER_NAME"); ok && v != "" {
		c.Watcher.Name = v
	}
	if v, ok := lookupEnv("WATCHER_DELAY"); ok {
		c.Watcher.DelayMilliseconds = ParseDuration(v, c.Watcher.DelayMilliseconds)
	}
	if v, ok := lookupEnv("WATCHER_PERIOD"); ok {
		c.Watcher.PeriodMilliseconds = ParseDuration(v, c.Watcher.PeriodMilliseconds)
	}
	if v, ok := lookupEnv("WATCHER_DATA_PREFIX"); ok {
		c.Watcher.DataPrefix = v
	}
	if v, ok := lookupEnv("WATCHER_DATA_SUFFIX"); ok {
		c.Watcher.DataSuffix = v
	}
	if v, ok := lookupEnv("WATCHER_MESSAGE_PREFIX"); ok {
		c.Watcher.MessagePrefix = v
	}
	if v, ok := lookupEnv("WATCHER_MESSAGE_SUFFIX"); ok {
		c.Watcher.MessageSuffix = v
	}

	c.Reporter.PrometheusEnabled = envBool("REPORTER_PROMETHEUS", c.Reporter.PrometheusEnabled)
	c.Reporter.OTelEnabled = envBool("REPORTER_OTEL", c.Reporter.OTelEnabled)

	return c
}

func lookupEnv(key string) (string, bool) {
	return os.LookupEnv("TELEMETRON_" + key)
}

func envBool(key string, def bool) bool {
	v, ok := lookupEnv(key)
	if !ok {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True":
		return true
	case "0", "false", "FALSE", "False":
		return false
	default:
		return def
	}
}

// Clone returns a deep-enough copy safe to mutate independently of c (no
// pointer or slice fields exist below the top level today, so a value copy
// suffices).
func (c *Config) Clone() *Config {
	if c == nil {
		return Defaults()
	}
	cp := *c
	return &cp
}

// ProgressPeriod returns the configured progress period as a time.Duration.
func (c *Config) ProgressPeriod() time.Duration {
	return time.Duration(c.Meter.ProgressPeriodMilliseconds) * time.Millisecond
}

// WatcherDelay returns the configured initial watcher delay.
func (c *Config) WatcherDelay() time.Duration {
	return time.Duration(c.Watcher.DelayMilliseconds) * time.Millisecond
}

// WatcherPeriod returns the configured watcher tick period.
func (c *Config) WatcherPeriod() time.Duration {
	return time.Duration(c.Watcher.PeriodMilliseconds) * time.Millisecond
}
