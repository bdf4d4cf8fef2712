package meter

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"time"

	"telemetron/config"
	"telemetron/event"
	"telemetron/logsink"
	"telemetron/session"
	"telemetron/sysstatus"
	"telemetron/tracecorrelate"
	"telemetron/wireformat"
)

type mstate int32

const (
	stateUnborn mstate = iota
	stateStarted
	stateTerminal
)

// Meter tracks one logical operation from creation through a single
// terminal outcome (OK, SLOW_OK, REJECT, or FAIL), emitting a readable and
// an encoded line at each of START, throttled PROGRESS, and the terminal
// transition. A Meter is meant to be used by a single goroutine at a time;
// it is not internally synchronized beyond what's needed to survive the
// specific cross-goroutine start/stop pattern spec'd for goroutine id
// capture.
type Meter struct {
	sess     *session.Session
	sink     logsink.Sink
	cfg      *config.Config
	category string

	state mstate
	data  Data

	lastProgressTimeNanos     int64
	lastProgressIteration     int64
	lastProgressIterationSeen bool

	nextChildOrdinal atomic.Int64

	pendingErr error
	onTerminal func(category string, d Data)
}

// New creates an unborn Meter bound to category (already composed by the
// caller, typically "logger.operation"). It performs no emission: create()
// is a pure allocation per spec.md §4.3.
func New(sess *session.Session, sink logsink.Sink, cfg *config.Config, category string) *Meter {
	if cfg == nil {
		cfg = config.Defaults()
	}
	return &Meter{
		sess:     sess,
		sink:     sink,
		cfg:      cfg,
		category: category,
		data:     Data{CreateTime: time.Now().UnixNano()},
	}
}

// M appends msg to the Meter's accumulating description. A no-op once the
// Meter has reached a terminal state.
func (m *Meter) M(msg string) *Meter {
	if m.state == stateTerminal || msg == "" {
		return m
	}
	if m.data.Description == "" {
		m.data.Description = msg
	} else {
		m.data.Description += " " + msg
	}
	return m
}

// Ctx attaches a context entry. A nil value round-trips as a bare key
// (spec.md §4.7, testable property 8).
func (m *Meter) Ctx(key string, value *string) *Meter {
	if m.state == stateTerminal || key == "" {
		return m
	}
	if m.data.Context == nil {
		m.data.Context = make(map[string]*string)
	}
	m.data.Context[key] = value
	return m
}

// CtxString is Ctx for the common case of a non-nil string value.
func (m *Meter) CtxString(key, value string) *Meter {
	return m.Ctx(key, &value)
}

// Iterations sets the expected iteration count used to compute a progress
// percentage.
func (m *Meter) Iterations(n int64) *Meter {
	if m.state == stateTerminal {
		return m
	}
	m.data.ExpectedIterations = n
	return m
}

// LimitMilliseconds sets the elapsed-time threshold above which an
// otherwise-OK terminal transition is reclassified SLOW_OK.
func (m *Meter) LimitMilliseconds(ms int64) *Meter {
	if m.state == stateTerminal {
		return m
	}
	m.data.TimeLimitNanoseconds = ms * int64(time.Millisecond)
	return m
}

// Path appends an execution-path label. Call any number of times before the
// terminal transition; the accumulated list rides along on every emission
// from then on.
func (m *Meter) Path(label string) *Meter {
	if m.state == stateTerminal || label == "" {
		return m
	}
	m.data.PathList = append(m.data.PathList, label)
	return m
}

// OnTerminal registers fn to be called with this Meter's category and final
// Data once it reaches OK, SLOW_OK, REJECT, or FAIL (including the
// synthetic FAIL a bare Close produces), independent of whether the sink
// has either level enabled. Mirrors Watcher.OnTick: it's how a downstream
// mirror (e.g. an OTel bridge) observes terminal events without this
// package depending on it. Only one hook is kept; call with nil to clear
// it. Must be set before the terminal transition to take effect.
func (m *Meter) OnTerminal(fn func(category string, d Data)) *Meter {
	m.onTerminal = fn
	return m
}

// Start transitions UNBORN -> STARTED, recording the start time and calling
// goroutine's id/name, and emits START. Calling Start twice is caller
// misuse: it is absorbed and logged as INCONSISTENT_START rather than
// panicking.
func (m *Meter) Start(ctx context.Context) *Meter {
	if m.state != stateUnborn {
		m.emitInconsistent(ctx, logsink.MarkerInconsistentStart, "start called more than once")
		return m
	}
	now := time.Now().UnixNano()
	m.data.StartTime = now
	m.data.GoroutineStartID = tracecorrelate.GoroutineID()
	m.data.GoroutineStartName = tracecorrelate.GoroutineName(ctx)
	m.lastProgressTimeNanos = now
	m.state = stateStarted
	m.emit(ctx, logsink.LevelInfo, logsink.MarkerMsgStart, logsink.MarkerDataStart, m.readableStart)
	return m
}

// Inc increments the current iteration count by one.
func (m *Meter) Inc() *Meter { return m.IncBy(1) }

// IncBy increments the current iteration count by n. n<=0 is silently
// ignored. Calling before Start or after the terminal transition is caller
// misuse, logged as INCONSISTENT_INCREMENT.
func (m *Meter) IncBy(n int64) *Meter {
	if n <= 0 {
		return m
	}
	if m.state != stateStarted {
		m.emitInconsistent(context.Background(), logsink.MarkerInconsistentIncrement, "inc called before start or after terminal")
		return m
	}
	m.data.CurrentIteration += n
	return m
}

// Progress emits a throttled progress event: at most one per
// meter.progress.period, and only if the current iteration count has
// strictly increased since the last progress emission (spec.md testable
// property 5). The first Progress call after Start has no prior emission to
// compare against, so only the period check applies to it. Calling before
// Start or after the terminal transition is caller misuse, logged as
// INCONSISTENT_PROGRESS.
func (m *Meter) Progress(ctx context.Context) *Meter {
	if m.state != stateStarted {
		m.emitInconsistent(ctx, logsink.MarkerInconsistentProgress, "progress called before start or after terminal")
		return m
	}
	now := time.Now().UnixNano()
	period := m.cfg.ProgressPeriod().Nanoseconds()
	if period > 0 && now-m.lastProgressTimeNanos < period {
		return m
	}
	if m.lastProgressIterationSeen && m.data.CurrentIteration <= m.lastProgressIteration {
		return m
	}
	m.lastProgressTimeNanos = now
	m.lastProgressIteration = m.data.CurrentIteration
	m.lastProgressIterationSeen = true
	m.emit(ctx, logsink.LevelInfo, logsink.MarkerMsgProgress, logsink.MarkerDataProgress, m.readableProgress)
	return m
}

// Ok transitions STARTED -> terminal with result OK, or SLOW_OK if a
// configured time limit was exceeded. path is optional execution-path
// label recorded as OkPath (pass "" for none). Calling before Start or
// after a prior terminal transition is caller misuse, logged as
// INCONSISTENT_OK.
func (m *Meter) Ok(ctx context.Context, path string) *Meter {
	if m.state != stateStarted {
		m.emitInconsistent(ctx, logsink.MarkerInconsistentOK, "ok called before start or after terminal")
		return m
	}
	m.stopCommon(ctx)
	m.data.OkPath = path
	marker, dataMarker, level := logsink.MarkerMsgOK, logsink.MarkerDataOK, logsink.LevelInfo
	if m.data.TimeLimitNanoseconds > 0 && (m.data.StopTime-m.data.StartTime) > m.data.TimeLimitNanoseconds {
		m.data.Result = ResultSlowOK
		marker, dataMarker = logsink.MarkerMsgSlowOK, logsink.MarkerDataSlowOK
	} else {
		m.data.Result = ResultOK
	}
	m.state = stateTerminal
	m.emit(ctx, level, marker, dataMarker, m.readableTerminal)
	m.fireTerminal()
	return m
}

// Reject transitions STARTED -> terminal with result REJECT, recording id
// (e.g. a rate-limit or circuit-breaker cause). Calling before Start or
// after a prior terminal transition is caller misuse, logged as
// INCONSISTENT_REJECT.
func (m *Meter) Reject(ctx context.Context, id string) *Meter {
	if m.state != stateStarted {
		m.emitInconsistent(ctx, logsink.MarkerInconsistentReject, "reject called before start or after terminal")
		return m
	}
	m.stopCommon(ctx)
	m.data.RejectID = id
	m.data.Result = ResultReject
	m.state = stateTerminal
	m.emit(ctx, logsink.LevelWarn, logsink.MarkerMsgReject, logsink.MarkerDataReject, m.readableTerminal)
	m.fireTerminal()
	return m
}

// Fail transitions STARTED -> terminal with result FAIL. A nil err is
// itself caller misuse (logged as INCONSISTENT_EXCEPTION) but is still
// processed as a fail with class "unknown", per spec.md §4.3. Calling
// before Start or after a prior terminal transition instead logs
// INCONSISTENT_FAIL and performs no transition.
func (m *Meter) Fail(ctx context.Context, err error) *Meter {
	if m.state != stateStarted {
		m.emitInconsistent(ctx, logsink.MarkerInconsistentFail, "fail called before start or after terminal")
		return m
	}
	class, msg := "unknown", ""
	if err == nil {
		m.emitInconsistent(ctx, logsink.MarkerInconsistentException, "fail called with a nil error")
	} else {
		class = reflect.TypeOf(err).String()
		msg = err.Error()
	}
	m.stopCommon(ctx)
	m.data.ExceptionClass = class
	m.data.ExceptionMessage = msg
	m.data.Result = ResultFail
	m.pendingErr = err
	m.state = stateTerminal
	m.emit(ctx, logsink.LevelWarn, logsink.MarkerMsgFail, logsink.MarkerDataFail, m.readableTerminal)
	m.fireTerminal()
	return m
}

// Sub creates a child Meter under the same session/sink/cfg whose category
// is this Meter's category plus ".subOp", with depth recorded at creation
// time from this Meter's own depth rather than via a thread-local stack
// (see DESIGN.md's Resolved Open Questions): this lets a sub-meter be
// handed off to another goroutine (e.g. as work submitted to a pool)
// without losing its place in the parent's nesting.
func (m *Meter) Sub(subOp string) *Meter {
	child := New(m.sess, m.sink, m.cfg, m.category+"."+subOp)
	child.data.DepthContext = m.data.DepthContext + 1
	child.data.DepthCount = m.nextChildOrdinal.Add(1)
	return child
}

// Close finalizes a started Meter that never reached a terminal state: a
// synthetic FAIL is emitted with a generic "closed without reaching a
// terminal state" error, plus a dedicated INCONSISTENT_FINALIZED marker,
// per spec.md §4.3's close() row. Closing an already-terminal or
// never-started Meter is a no-op. Always returns nil.
func (m *Meter) Close() error {
	if m.state != stateStarted {
		return nil
	}
	cause := m.pendingErr
	if cause == nil {
		cause = errors.New("meter closed without reaching a terminal state")
	}
	m.stopCommon(context.Background())
	m.data.ExceptionClass = reflect.TypeOf(cause).String()
	m.data.ExceptionMessage = cause.Error()
	m.data.Result = ResultFail
	m.state = stateTerminal
	m.emit(context.Background(), logsink.LevelWarn, logsink.MarkerMsgFail, logsink.MarkerDataFail, m.readableTerminal)
	m.emitInconsistent(context.Background(), logsink.MarkerInconsistentFinalized, "meter closed without a terminal call: "+cause.Error())
	m.fireTerminal()
	return nil
}

// fireTerminal invokes the OnTerminal hook, if any, with a snapshot of this
// Meter's final Data. Recovers from a panicking hook the same way
// emitInconsistent recovers from a panicking sink: caller-supplied code
// must not be able to crash the Meter's owner.
func (m *Meter) fireTerminal() {
	if m.onTerminal == nil {
		return
	}
	defer func() { _ = recover() }()
	m.onTerminal(m.category, m.data)
}

func (m *Meter) stopCommon(ctx context.Context) {
	m.data.StopTime = time.Now().UnixNano()
	m.data.GoroutineStopID = tracecorrelate.GoroutineID()
	m.data.GoroutineStopName = tracecorrelate.GoroutineName(ctx)
}

// emit assigns the next position for this Meter's category and writes the
// readable and/or encoded line, each gated independently by the sink's
// isEnabled check so an expensive sysstatus.Collect is skipped entirely
// when neither form is wanted.
func (m *Meter) emit(ctx context.Context, level logsink.Level, msgMarker, dataMarker logsink.Marker, readable func() string) {
	infoEnabled := m.sink.IsEnabled(m.category, level)
	traceEnabled := m.sink.IsEnabled(m.category, logsink.LevelTrace)
	if !infoEnabled && !traceEnabled {
		return
	}
	position := event.NextPosition(m.category)
	var status sysstatus.Status
	if m.cfg.Meter.PrintMemory || m.cfg.Meter.PrintLoad || traceEnabled {
		status = sysstatus.Collect(m.cfg)
	}
	m.data.Base = event.NewBase(m.sess, m.category, position, time.Now().UnixNano(), status)
	if infoEnabled {
		m.sink.Emit(ctx, m.category, level, msgMarker, readable())
	}
	if traceEnabled {
		w := wireformat.NewWriter('M', m.data.Base.Header())
		m.data.Encode(w)
		m.sink.Emit(ctx, m.category, logsink.LevelTrace, dataMarker, w.String())
	}
}

// emitInconsistent logs a caller-misuse marker at ERROR. It never panics or
// propagates a sink failure: a broken sink must not turn absorbed caller
// misuse into a crash (spec.md §7).
func (m *Meter) emitInconsistent(ctx context.Context, marker logsink.Marker, msg string) {
	defer func() { _ = recover() }()
	if !m.sink.IsEnabled(m.category, logsink.LevelError) {
		return
	}
	m.sink.Emit(ctx, m.category, logsink.LevelError, marker, msg)
}
