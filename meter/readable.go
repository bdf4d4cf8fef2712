package meter

import (
	"fmt"
	"strings"
	"time"

	"telemetron/units"
)

func (m *Meter) readableStart() string {
	var b strings.Builder
	b.WriteString("start")
	if m.cfg.Meter.PrintCategory {
		b.WriteByte(' ')
		b.WriteString(m.category)
	}
	if m.data.Description != "" {
		fmt.Fprintf(&b, " %q", m.data.Description)
	}
	if m.cfg.Meter.PrintPosition {
		fmt.Fprintf(&b, " #%d", m.data.Position)
	}
	if disp := m.sess.Display(m.cfg.Session.UUIDSize); disp != "" {
		fmt.Fprintf(&b, " session=%s", disp)
	}
	return b.String()
}

func (m *Meter) readableProgress() string {
	var b strings.Builder
	b.WriteString("progress")
	if m.cfg.Meter.PrintCategory {
		b.WriteByte(' ')
		b.WriteString(m.category)
	}
	fmt.Fprintf(&b, " %s", units.Iterations(m.data.CurrentIteration))
	if m.data.ExpectedIterations > 0 {
		pct := float64(m.data.CurrentIteration) / float64(m.data.ExpectedIterations) * 100
		fmt.Fprintf(&b, "/%s (%.1f%%)", units.Iterations(m.data.ExpectedIterations), pct)
	}
	if elapsed := time.Duration(time.Now().UnixNano() - m.data.StartTime); elapsed > 0 {
		rate := float64(m.data.CurrentIteration) / elapsed.Seconds()
		fmt.Fprintf(&b, " rate=%s", units.IterationsPerSecond(rate))
	}
	m.appendStatus(&b)
	return b.String()
}

func (m *Meter) readableTerminal() string {
	var b strings.Builder
	if m.cfg.Meter.PrintStatus {
		b.WriteString(m.data.Result.String())
	} else {
		b.WriteString("done")
	}
	if m.cfg.Meter.PrintCategory {
		b.WriteByte(' ')
		b.WriteString(m.category)
	}
	fmt.Fprintf(&b, " elapsed=%s", units.Nanoseconds(m.data.StopTime-m.data.StartTime))
	switch m.data.Result {
	case ResultReject:
		fmt.Fprintf(&b, " reject=%s", m.data.RejectID)
	case ResultFail:
		fmt.Fprintf(&b, " exception=%s: %s", m.data.ExceptionClass, m.data.ExceptionMessage)
	case ResultOK, ResultSlowOK:
		if m.data.OkPath != "" {
			fmt.Fprintf(&b, " path=%s", m.data.OkPath)
		}
	}
	if m.cfg.Meter.PrintPosition {
		fmt.Fprintf(&b, " #%d", m.data.Position)
	}
	m.appendStatus(&b)
	return b.String()
}

func (m *Meter) appendStatus(b *strings.Builder) {
	if m.cfg.Meter.PrintMemory && m.data.SystemStatus.HeapUsed > 0 {
		fmt.Fprintf(b, " heap=%s", units.Bytes(int64(m.data.SystemStatus.HeapUsed)))
	}
	if m.cfg.Meter.PrintLoad && m.data.SystemStatus.SystemLoad > 0 {
		fmt.Fprintf(b, " load=%.2f", m.data.SystemStatus.SystemLoad)
	}
}
