// Package tracecorrelate supplies the identifiers Meter/Watcher events use
// to record "which execution context called start()/stop()" and to
// correlate readable log lines with an active trace span. It is adapted
// from the teacher's internal lightweight tracer (random hex span/trace
// ids, context-carried span) generalized to also bridge a real
// go.opentelemetry.io/otel/trace span when one is active.
package tracecorrelate

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"runtime"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// GoroutineID extracts the current goroutine's numeric id from its stack
// trace header ("goroutine 123 [running]:"). Go has no public API for this;
// it is the closest analogue of a JVM thread id, used only for the
// Meter's diagnostic goroutineStart*/goroutineStop* fields — never for
// scheduling or synchronization decisions.
func GoroutineID() string {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return ""
	}
	buf = buf[len(prefix):]
	if i := bytes.IndexByte(buf, ' '); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}

// GoroutineName returns a human-readable label for the calling goroutine:
// the name attached to ctx by WithGoroutineName if there is one, else
// "goroutine-" plus GoroutineID, since Go goroutines are unnamed. It fills
// the encoded wire format's dedicated "name" slot, matching spec.md's
// threadStartName/threadStopName fields.
func GoroutineName(ctx context.Context) string {
	if name, ok := ctx.Value(nameKey{}).(string); ok && name != "" {
		return name
	}
	return "goroutine-" + GoroutineID()
}

type nameKey struct{}

// WithGoroutineName attaches a human label to ctx for GoroutineName to pick
// up later.
func WithGoroutineName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, nameKey{}, name)
}

// ExtractIDs returns the trace/span id correlated with ctx, preferring a
// valid OpenTelemetry span context if ctx carries one, and falling back to this
// package's lightweight Span otherwise. Mirrors the teacher's
// internaltracing.ExtractIDs used by the correlated logger.
func ExtractIDs(ctx context.Context) (traceID, spanID string) {
	if sc := oteltrace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String(), sc.SpanID().String()
	}
	sp := spanFromContext(ctx)
	return sp.ctx.TraceID, sp.ctx.SpanID
}

// --- lightweight tracer, used when no OTel SDK is wired in -----------------

// Span is a minimal in-process span, used only to thread trace/span ids
// through a context.Context without requiring an OTel SDK dependency in the
// hot path.
type Span struct {
	ctx spanContext
}

type spanContext struct {
	TraceID, SpanID, ParentSpanID string
}

type spanKey struct{}

// StartSpan creates a child span under ctx's existing span (if any) and
// returns the derived context plus the new Span. Call span's ID fields are
// immutable after creation; there is no End() since this package never
// measures duration, only propagates identity.
func StartSpan(ctx context.Context) (context.Context, *Span) {
	parent := spanFromContext(ctx)
	traceID := parent.ctx.TraceID
	if traceID == "" {
		traceID = newID(16)
	}
	sp := &Span{ctx: spanContext{TraceID: traceID, SpanID: newID(8), ParentSpanID: parent.ctx.SpanID}}
	return context.WithValue(ctx, spanKey{}, sp), sp
}

func spanFromContext(ctx context.Context) *Span {
	if ctx == nil {
		return &Span{}
	}
	if sp, ok := ctx.Value(spanKey{}).(*Span); ok {
		return sp
	}
	return &Span{}
}

func newID(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand read failure is effectively impossible on supported
		// platforms; fall back to a fixed-width zero id rather than panic.
		return hex.EncodeToString(make([]byte, n))
	}
	return hex.EncodeToString(b)
}
