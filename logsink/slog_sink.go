package logsink

import (
	"context"
	"log/slog"

	"telemetron/tracecorrelate"
)

// slogSink adapts a *slog.Logger into Sink, exactly as the teacher's
// correlatedLogger wraps slog: every emission, if a trace/span is active on
// ctx, gets trace_id/span_id attributes appended.
type slogSink struct {
	base *slog.Logger
}

// NewSlog returns a Sink backed by base (slog.Default() if nil).
func NewSlog(base *slog.Logger) Sink {
	if base == nil {
		base = slog.Default()
	}
	return &slogSink{base: base}
}

func (s *slogSink) IsEnabled(category string, level Level) bool {
	return s.base.Enabled(context.Background(), toSlogLevel(level))
}

func (s *slogSink) Emit(ctx context.Context, category string, level Level, marker Marker, message string) {
	attrs := []any{slog.String("category", category), slog.String("marker", string(marker))}
	if traceID, spanID := tracecorrelate.ExtractIDs(ctx); traceID != "" || spanID != "" {
		attrs = append(attrs, slog.String("trace_id", traceID), slog.String("span_id", spanID))
	}
	s.base.Log(ctx, toSlogLevel(level), message, attrs...)
}

func toSlogLevel(l Level) slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelWarn:
		return slog.LevelWarn
	case LevelInfo:
		return slog.LevelInfo
	case LevelDebug:
		return slog.LevelDebug
	case LevelTrace:
		// slog has no TRACE level; one tick below Debug keeps it ordered
		// lowest without colliding with LevelDebug's numeric value.
		return slog.LevelDebug - 4
	default:
		return slog.LevelInfo
	}
}
