// Package promreport mirrors SystemStatus snapshots onto Prometheus gauges.
// Adapted from the teacher's PrometheusProvider (engine/telemetry/metrics):
// same registry-per-instance, but with the handler built once in New and
// plain Gauge.Set updates, scoped down to the fixed set of gauges a Status
// needs instead of a general-purpose metrics.Provider.
package promreport

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"telemetron/sysstatus"
)

// Reporter mirrors the fields of a sysstatus.Status onto a dedicated
// Prometheus registry.
type Reporter struct {
	reg     *prom.Registry
	handler http.Handler

	heapUsed, heapCommitted, heapMax             prom.Gauge
	nonHeapUsed, nonHeapCommitted, nonHeapMax     prom.Gauge
	classLoaded, classTotal, classUnloaded       prom.Gauge
	gcCount, gcTime                               prom.Gauge
	compileTime                                   prom.Gauge
	runtimeUsed, runtimeMax, runtimeTotal         prom.Gauge
	systemLoad                                    prom.Gauge
}

// New creates a Reporter backed by its own registry (so it never collides
// with an application's default registry), registering every gauge.
func New() *Reporter {
	reg := prom.NewRegistry()
	r := &Reporter{
		reg:              reg,
		heapUsed:         prom.NewGauge(prom.GaugeOpts{Namespace: "telemetron", Subsystem: "heap", Name: "used_bytes", Help: "Heap bytes in use."}),
		heapCommitted:    prom.NewGauge(prom.GaugeOpts{Namespace: "telemetron", Subsystem: "heap", Name: "committed_bytes", Help: "Heap bytes committed from the OS."}),
		heapMax:          prom.NewGauge(prom.GaugeOpts{Namespace: "telemetron", Subsystem: "heap", Name: "max_bytes", Help: "Heap bytes available without further OS allocation."}),
		nonHeapUsed:      prom.NewGauge(prom.GaugeOpts{Namespace: "telemetron", Subsystem: "nonheap", Name: "used_bytes", Help: "Non-heap bytes in use (stacks, spans, caches)."}),
		nonHeapCommitted: prom.NewGauge(prom.GaugeOpts{Namespace: "telemetron", Subsystem: "nonheap", Name: "committed_bytes", Help: "Non-heap bytes committed from the OS."}),
		nonHeapMax:       prom.NewGauge(prom.GaugeOpts{Namespace: "telemetron", Subsystem: "nonheap", Name: "max_bytes", Help: "Non-heap bytes available without further OS allocation."}),
		classLoaded:      prom.NewGauge(prom.GaugeOpts{Namespace: "telemetron", Subsystem: "classloading", Name: "loaded", Help: "Live goroutine count, standing in for loaded classes."}),
		classTotal:       prom.NewGauge(prom.GaugeOpts{Namespace: "telemetron", Subsystem: "classloading", Name: "total", Help: "Historical peak goroutine count."}),
		classUnloaded:    prom.NewGauge(prom.GaugeOpts{Namespace: "telemetron", Subsystem: "classloading", Name: "unloaded", Help: "Difference between the peak and the current goroutine count."}),
		gcCount:          prom.NewGauge(prom.GaugeOpts{Namespace: "telemetron", Subsystem: "gc", Name: "count", Help: "Number of completed garbage collections."}),
		gcTime:           prom.NewGauge(prom.GaugeOpts{Namespace: "telemetron", Subsystem: "gc", Name: "pause_nanoseconds_total", Help: "Cumulative GC pause time."}),
		compileTime:      prom.NewGauge(prom.GaugeOpts{Namespace: "telemetron", Subsystem: "compilation", Name: "proxy_total", Help: "Cgo call count, used as a best-effort compilation-adjacent-activity proxy."}),
		runtimeUsed:      prom.NewGauge(prom.GaugeOpts{Namespace: "telemetron", Subsystem: "runtime", Name: "used_bytes", Help: "Heap bytes in use, runtime-group view."}),
		runtimeMax:       prom.NewGauge(prom.GaugeOpts{Namespace: "telemetron", Subsystem: "runtime", Name: "max_bytes", Help: "Heap bytes available, runtime-group view."}),
		runtimeTotal:     prom.NewGauge(prom.GaugeOpts{Namespace: "telemetron", Subsystem: "runtime", Name: "total_bytes", Help: "Heap bytes committed, runtime-group view."}),
		systemLoad:       prom.NewGauge(prom.GaugeOpts{Namespace: "telemetron", Subsystem: "system", Name: "load", Help: "1-minute system load average."}),
	}
	for _, g := range r.collectors() {
		reg.MustRegister(g)
	}
	r.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return r
}

func (r *Reporter) collectors() []prom.Collector {
	return []prom.Collector{
		r.heapUsed, r.heapCommitted, r.heapMax,
		r.nonHeapUsed, r.nonHeapCommitted, r.nonHeapMax,
		r.classLoaded, r.classTotal, r.classUnloaded,
		r.gcCount, r.gcTime,
		r.compileTime,
		r.runtimeUsed, r.runtimeMax, r.runtimeTotal,
		r.systemLoad,
	}
}

// Observe updates every gauge from a fresh Status snapshot.
func (r *Reporter) Observe(s sysstatus.Status) {
	r.heapUsed.Set(float64(s.HeapUsed))
	r.heapCommitted.Set(float64(s.HeapCommitted))
	r.heapMax.Set(float64(s.HeapMax))
	r.nonHeapUsed.Set(float64(s.NonHeapUsed))
	r.nonHeapCommitted.Set(float64(s.NonHeapCommitted))
	r.nonHeapMax.Set(float64(s.NonHeapMax))
	r.classLoaded.Set(float64(s.ClassLoadingLoaded))
	r.classTotal.Set(float64(s.ClassLoadingTotal))
	r.classUnloaded.Set(float64(s.ClassLoadingUnloaded))
	r.gcCount.Set(float64(s.GarbageCollectorCount))
	r.gcTime.Set(float64(s.GarbageCollectorTime))
	r.compileTime.Set(float64(s.CompilationTime))
	r.runtimeUsed.Set(float64(s.RuntimeUsedMemory))
	r.runtimeMax.Set(float64(s.RuntimeMaxMemory))
	r.runtimeTotal.Set(float64(s.RuntimeTotalMemory))
	r.systemLoad.Set(s.SystemLoad)
}

// Handler returns the /metrics HTTP handler for this Reporter's registry.
func (r *Reporter) Handler() http.Handler { return r.handler }
