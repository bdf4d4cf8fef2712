// Package meter implements the Meter state machine: a scoped per-operation
// tracker producing START/PROGRESS/terminal events with timing, iteration
// counts, execution-path labels, a context map, and outcome classification.
package meter

import (
	"telemetron/event"
	"telemetron/wireformat"
)

// Result is the tagged outcome enum set exactly once, at a Meter's terminal
// transition.
type Result int

const (
	ResultUndefined Result = iota
	ResultOK
	ResultSlowOK
	ResultReject
	ResultFail
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultSlowOK:
		return "SLOW_OK"
	case ResultReject:
		return "REJECT"
	case ResultFail:
		return "FAIL"
	default:
		return "UNDEFINED"
	}
}

func parseResult(s string) Result {
	switch s {
	case "OK":
		return ResultOK
	case "SLOW_OK":
		return ResultSlowOK
	case "REJECT":
		return ResultReject
	case "FAIL":
		return ResultFail
	default:
		return ResultUndefined
	}
}

// Data is the full event payload of a Meter: EventBase plus every field
// spec.md §3 assigns to MeterData.
type Data struct {
	event.Base

	Description string

	ExpectedIterations int64
	CurrentIteration   int64

	TimeLimitNanoseconds int64

	CreateTime int64
	StartTime  int64
	StopTime   int64

	Context  map[string]*string
	PathList []string

	Result  Result
	OkPath  string
	RejectID string

	ExceptionClass   string
	ExceptionMessage string

	GoroutineStartID, GoroutineStartName string
	GoroutineStopID, GoroutineStopName   string

	DepthContext int
	DepthCount   int64
}

// Encode writes every populated MeterData field (beyond EventBase's common
// ones) onto w, skipping anything at its zero value per spec.md §4.1's
// writer contract.
func (d Data) Encode(w *wireformat.Writer) {
	d.Base.EncodeCommon(w)
	w.Scalar("m", d.Description)

	if d.ExpectedIterations != 0 || d.CurrentIteration != 0 {
		w.Tuple("i", i64s(d.ExpectedIterations), i64s(d.CurrentIteration))
	}
	if d.TimeLimitNanoseconds != 0 {
		w.Scalar("l", i64s(d.TimeLimitNanoseconds))
	}
	if d.CreateTime != 0 || d.StartTime != 0 || d.StopTime != 0 {
		w.Tuple("t", i64s(d.CreateTime), i64s(d.StartTime), i64s(d.StopTime))
	}
	if len(d.Context) > 0 {
		entries := make([]wireformat.MapEntry, 0, len(d.Context))
		for k, v := range d.Context {
			entries = append(entries, wireformat.MapEntry{Key: k, Value: v})
		}
		w.Map("ctx", entries)
	}
	if len(d.PathList) > 0 {
		w.Tuple("path", d.PathList...)
	}
	if d.Result != ResultUndefined {
		w.Scalar("r", d.Result.String())
	}
	w.Scalar("ok", d.OkPath)
	w.Scalar("rej", d.RejectID)
	if d.ExceptionClass != "" || d.ExceptionMessage != "" {
		w.Tuple("tr", d.ExceptionClass, d.ExceptionMessage)
	}
	if d.GoroutineStartID != "" || d.GoroutineStartName != "" || d.GoroutineStopID != "" || d.GoroutineStopName != "" {
		w.Tuple("th", d.GoroutineStartID, d.GoroutineStartName, d.GoroutineStopID, d.GoroutineStopName)
	}
	if d.DepthContext != 0 || d.DepthCount != 0 {
		w.Tuple("d", i64s(int64(d.DepthContext)), i64s(d.DepthCount))
	}
}

// Decode reconstructs a Data from a parsed payload. Unknown properties are
// silently ignored by construction (GetScalar/GetTuple/GetMap return zero
// values for keys Decode never asks about).
func Decode(p *wireformat.Parsed) Data {
	d := Data{Base: event.DecodeCommon(p)}
	d.Description = p.GetScalar("m")

	if it := p.GetTuple("i"); it != nil {
		d.ExpectedIterations = parseI64(wireformat.TuplePart(it, 0))
		d.CurrentIteration = parseI64(wireformat.TuplePart(it, 1))
	}
	d.TimeLimitNanoseconds = parseI64(p.GetScalar("l"))
	if t := p.GetTuple("t"); t != nil {
		d.CreateTime = parseI64(wireformat.TuplePart(t, 0))
		d.StartTime = parseI64(wireformat.TuplePart(t, 1))
		d.StopTime = parseI64(wireformat.TuplePart(t, 2))
	}
	if entries := p.GetMap("ctx"); entries != nil {
		d.Context = make(map[string]*string, len(entries))
		for _, e := range entries {
			v := e.Value
			d.Context[e.Key] = v
		}
	}
	if path := p.GetTuple("path"); path != nil {
		d.PathList = path
	}
	d.Result = parseResult(p.GetScalar("r"))
	d.OkPath = p.GetScalar("ok")
	d.RejectID = p.GetScalar("rej")
	if tr := p.GetTuple("tr"); tr != nil {
		d.ExceptionClass = wireformat.TuplePart(tr, 0)
		d.ExceptionMessage = wireformat.TuplePart(tr, 1)
	}
	if th := p.GetTuple("th"); th != nil {
		d.GoroutineStartID = wireformat.TuplePart(th, 0)
		d.GoroutineStartName = wireformat.TuplePart(th, 1)
		d.GoroutineStopID = wireformat.TuplePart(th, 2)
		d.GoroutineStopName = wireformat.TuplePart(th, 3)
	}
	if dd := p.GetTuple("d"); dd != nil {
		d.DepthContext = int(parseI64(wireformat.TuplePart(dd, 0)))
		d.DepthCount = parseI64(wireformat.TuplePart(dd, 1))
	}
	return d
}

func i64s(v int64) string {
	return itoa(v)
}

func parseI64(s string) int64 {
	if s == "" {
		return 0
	}
	return atoi(s)
}
