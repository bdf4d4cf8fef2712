// Package logsink defines the abstract log facade this module emits onto.
// The core never buffers events and never assumes the sink's blocking
// behavior (spec.md §5): Emit is called synchronously on the driving
// goroutine and whatever it does — block, enqueue, drop — is the sink's
// contract, not the core's.
package logsink

import "context"

// Level mirrors the small set of severities spec.md's markers are issued
// at.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// Marker is an opaque label attached to every emission; spec.md §6 fixes
// the exact set that must be issued.
type Marker string

const (
	MarkerMsgStart    Marker = "MSG_START"
	MarkerMsgProgress Marker = "MSG_PROGRESS"
	MarkerMsgOK       Marker = "MSG_OK"
	MarkerMsgSlowOK   Marker = "MSG_SLOW_OK"
	MarkerMsgReject   Marker = "MSG_REJECT"
	MarkerMsgFail     Marker = "MSG_FAIL"

	MarkerDataStart    Marker = "DATA_START"
	MarkerDataProgress Marker = "DATA_PROGRESS"
	MarkerDataOK       Marker = "DATA_OK"
	MarkerDataSlowOK   Marker = "DATA_SLOW_OK"
	MarkerDataReject   Marker = "DATA_REJECT"
	MarkerDataFail     Marker = "DATA_FAIL"

	MarkerMsgWatcher  Marker = "MSG_WATCHER"
	MarkerDataWatcher Marker = "DATA_WATCHER"

	MarkerBug     Marker = "BUG"
	MarkerIllegal Marker = "ILLEGAL"

	MarkerInconsistentStart     Marker = "INCONSISTENT_START"
	MarkerInconsistentIncrement Marker = "INCONSISTENT_INCREMENT"
	MarkerInconsistentProgress  Marker = "INCONSISTENT_PROGRESS"
	MarkerInconsistentException Marker = "INCONSISTENT_EXCEPTION"
	MarkerInconsistentReject    Marker = "INCONSISTENT_REJECT"
	MarkerInconsistentOK        Marker = "INCONSISTENT_OK"
	MarkerInconsistentFail      Marker = "INCONSISTENT_FAIL"
	MarkerInconsistentFinalized Marker = "INCONSISTENT_FINALIZED"
)

// Sink is the abstract structured-logging facade the core consumes.
// Implementations must be safe to call from any goroutine; whether Emit
// blocks is the implementation's choice.
type Sink interface {
	IsEnabled(category string, level Level) bool
	Emit(ctx context.Context, category string, level Level, marker Marker, message string)
}
