// Package event implements EventBase, the composition shared by every
// Meter and Watcher event: session identity, category, per-category
// position, timestamp, and a SystemStatus snapshot, plus the glue needed to
// encode/decode that common prefix onto a wireformat.Writer/Parsed.
package event

import (
	"strconv"

	"telemetron/session"
	"telemetron/sysstatus"
	"telemetron/wireformat"
)

// Base is embedded by meter.Data and watcher.Data. (sessionUuid,
// eventCategory, eventPosition) is a primary key; Time is non-decreasing
// within a single category for a given emitter.
type Base struct {
	SessionUUID  string
	Category     string
	Position     int64
	TimeNanos    int64
	SystemStatus sysstatus.Status
}

// NewBase stamps a Base with the process session's UUID (rendered per the
// configured uuidSize is a readable-message concern, not this struct's —
// the encoded form always carries the full UUID).
func NewBase(sess *session.Session, category string, position int64, timeNanos int64, status sysstatus.Status) Base {
	return Base{
		SessionUUID:  sess.UUID(),
		Category:     category,
		Position:     position,
		TimeNanos:    timeNanos,
		SystemStatus: status,
	}
}

// Header renders the "category#position" token that opens the encoded
// line.
func (b Base) Header() string {
	return b.Category + "#" + strconv.FormatInt(b.Position, 10)
}

// EncodeCommon writes the session uuid, time, and system status shared by
// every event kind onto w. Event-kind-specific fields are written by the
// caller afterward so they can interleave with the common ones in whatever
// order is most natural to read.
func (b Base) EncodeCommon(w *wireformat.Writer) {
	w.Scalar("u", b.SessionUUID)
	w.Scalar("ts", strconv.FormatInt(b.TimeNanos, 10))
	b.SystemStatus.Encode(w)
}

// DecodeCommon reads the fields EncodeCommon wrote, plus the header, from a
// Parsed payload.
func DecodeCommon(p *wireformat.Parsed) Base {
	return Base{
		SessionUUID:  p.GetScalar("u"),
		Category:     p.Category,
		Position:     p.Position,
		TimeNanos:    atoi(p.GetScalar("ts")),
		SystemStatus: sysstatus.Decode(p),
	}
}

func atoi(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
