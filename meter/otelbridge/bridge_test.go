package otelbridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"telemetron/meter"
)

func TestObserveDoesNotPanicOnTerminalData(t *testing.T) {
	b := New()
	defer b.Shutdown(context.Background())

	d := meter.Data{}
	d.Result = meter.ResultOK
	d.StartTime = 0
	d.StopTime = 1_000_000

	assert.NotPanics(t, func() { b.Observe(context.Background(), "app.save", d) })
}
