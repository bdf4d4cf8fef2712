package watcher

import (
	"context"
	"fmt"
	"time"

	"telemetron/config"
	"telemetron/event"
	"telemetron/logsink"
	"telemetron/session"
	"telemetron/sysstatus"
	"telemetron/units"
	"telemetron/wireformat"
)

// Watcher is a process-wide periodic runtime sampler. It has no state
// machine: each Tick call is independent and simply emits one readable +
// one encoded event carrying a fresh sysstatus.Status snapshot.
type Watcher struct {
	sess     *session.Session
	sink     logsink.Sink
	cfg      *config.Config
	category string

	onTick func(Data)
}

// New creates a Watcher bound to category (typically the configured
// watcher.name, e.g. "watcher").
func New(sess *session.Session, sink logsink.Sink, cfg *config.Config, category string) *Watcher {
	if cfg == nil {
		cfg = config.Defaults()
	}
	return &Watcher{sess: sess, sink: sink, cfg: cfg, category: category}
}

// OnTick registers fn to be called with every sampled Data, independent of
// whether the sink has either level enabled. Used to fan ticks out to
// downstream mirrors (Prometheus, OTel) without this package depending on
// them. Only one hook is kept; call with nil to clear it.
func (w *Watcher) OnTick(fn func(Data)) {
	w.onTick = fn
}

// Tick samples SystemStatus once and, depending on what's gated in, emits a
// readable line, an encoded line, and/or invokes the OnTick hook. It is the
// Task a Scheduler's Driver invokes on every period; it never blocks beyond
// whatever the sink (or the hook) itself does.
//
// The readable and encoded streams are routed through distinct categories
// (watcher.message.prefix/suffix and watcher.data.prefix/suffix respectively,
// wrapping w.category), so a sink can gate or direct them independently —
// e.g. sending DATA_WATCHER lines to a different log category/appender than
// MSG_WATCHER lines — per spec.md §6's "category transform" wording. The
// event's own embedded category (and its position sequence) always stays
// w.category, since the transform is a routing concern, not an identity one.
func (w *Watcher) Tick(ctx context.Context) {
	msgCategory := w.messageCategory()
	dataCategory := w.dataCategory()
	infoEnabled := w.sink.IsEnabled(msgCategory, logsink.LevelInfo)
	traceEnabled := w.sink.IsEnabled(dataCategory, logsink.LevelTrace)
	if !infoEnabled && !traceEnabled && w.onTick == nil {
		return
	}
	position := event.NextPosition(w.category)
	status := sysstatus.Collect(w.cfg)
	data := Data{
		Base: event.NewBase(w.sess, w.category, position, time.Now().UnixNano(), status),
		Name: w.category,
	}

	if infoEnabled {
		w.sink.Emit(ctx, msgCategory, logsink.LevelInfo, logsink.MarkerMsgWatcher, w.readable(data))
	}
	if traceEnabled {
		wr := wireformat.NewWriter('W', data.Base.Header())
		data.Encode(wr)
		w.sink.Emit(ctx, dataCategory, logsink.LevelTrace, logsink.MarkerDataWatcher, wr.String())
	}
	if w.onTick != nil {
		w.onTick(data)
	}
}

func (w *Watcher) messageCategory() string {
	return w.cfg.Watcher.MessagePrefix + w.category + w.cfg.Watcher.MessageSuffix
}

func (w *Watcher) dataCategory() string {
	return w.cfg.Watcher.DataPrefix + w.category + w.cfg.Watcher.DataSuffix
}

func (w *Watcher) readable(d Data) string {
	status := d.SystemStatus
	return fmt.Sprintf("watcher %s heap=%s nonheap=%s load=%.2f goroutines=%d",
		d.Name,
		units.Bytes(int64(status.HeapUsed)),
		units.Bytes(int64(status.NonHeapUsed)),
		status.SystemLoad,
		status.ClassLoadingLoaded,
	)
}
