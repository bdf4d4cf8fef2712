package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeneratesFixedLengthHexUUID(t *testing.T) {
	s := New()
	assert.Len(t, s.UUID(), UUIDLength)
	assert.NotContains(t, s.UUID(), "-")
}

func TestNewProducesDistinctSessions(t *testing.T) {
	a := New()
	b := New()
	assert.NotEqual(t, a.UUID(), b.UUID())
}

func TestCurrentIsLazyAndStable(t *testing.T) {
	ResetForTest(nil)
	a := Current()
	b := Current()
	require.NotNil(t, a)
	assert.Equal(t, a.UUID(), b.UUID())
}

func TestDisplayTruncatesToTrailingCharacters(t *testing.T) {
	s := New()
	full := s.UUID()
	assert.Equal(t, full[len(full)-4:], s.Display(4))
	assert.Equal(t, "", s.Display(0))
	assert.Equal(t, full, s.Display(UUIDLength*2), "n larger than the UUID clamps to the full string")
}

func TestDisplayOnNilSessionIsEmpty(t *testing.T) {
	var s *Session
	assert.Equal(t, "", s.Display(4))
	assert.Equal(t, "", s.UUID())
}

func TestStopRunsHooksOnceInRegistrationOrder(t *testing.T) {
	s := New()
	var order []int
	s.OnStop(func() { order = append(order, 1) })
	s.OnStop(func() { order = append(order, 2) })

	s.Stop()
	assert.Equal(t, []int{1, 2}, order)

	s.Stop()
	assert.Equal(t, []int{1, 2}, order, "a second Stop must not re-run already-fired hooks")
}

func TestOnStopAndStopAreNilSafe(t *testing.T) {
	var s *Session
	assert.NotPanics(t, func() {
		s.OnStop(func() {})
		s.Stop()
	})
}
