package sysstatus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetron/config"
	"telemetron/wireformat"
)

func TestCollectGatedByConfig(t *testing.T) {
	cfg := config.Defaults()
	s := Collect(cfg)
	assert.Zero(t, s.HeapUsed, "memory group disabled by default")

	cfg.System.UseMemoryBean = true
	s = Collect(cfg)
	assert.NotZero(t, s.HeapUsed)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cfg := config.Defaults()
	cfg.System.UseMemoryBean = true
	cfg.System.UseGarbageCollBean = true
	s := Collect(cfg)
	require.NotZero(t, s.HeapUsed)

	w := wireformat.NewWriter('W', "x#1")
	s.Encode(w)
	line := w.String()
	payload, ok := wireformat.Locate(line, 'W')
	require.True(t, ok)
	parsed, err := wireformat.Parse('W', payload)
	require.NoError(t, err)

	got := Decode(parsed)
	assert.Equal(t, s.HeapUsed, got.HeapUsed)
	assert.Equal(t, s.HeapCommitted, got.HeapCommitted)
	assert.Equal(t, s.GarbageCollectorCount, got.GarbageCollectorCount)
}
