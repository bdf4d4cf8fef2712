// Package watcher implements Watcher, a process-wide periodic sampler:
// unlike Meter, it has no caller-driven lifecycle, just a single tick
// operation invoked by a Scheduler that snapshots SystemStatus and emits one
// dual-form event.
package watcher

import (
	"telemetron/event"
	"telemetron/wireformat"
)

// Data is a WatcherEvent's payload: EventBase plus the fields spec.md §3
// assigns to WatcherData.
type Data struct {
	event.Base

	Name string
}

// Encode writes Data onto w.
func (d Data) Encode(w *wireformat.Writer) {
	d.Base.EncodeCommon(w)
	w.Scalar("n", d.Name)
}

// Decode reconstructs a Data from a parsed payload.
func Decode(p *wireformat.Parsed) Data {
	return Data{
		Base: event.DecodeCommon(p),
		Name: p.GetScalar("n"),
	}
}
