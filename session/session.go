// Package session holds the process-wide identity shared by every Meter and
// Watcher event emitted by this process.
package session

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// UUIDLength is the fixed length of the full session identifier.
const UUIDLength = 32

// Session is a process-wide immutable identity plus a lifecycle hook used to
// stop any background work (currently only the default Watcher driver)
// bound to it.
type Session struct {
	uuid string

	mu       sync.Mutex
	stoppers []func()
}

var (
	current   *Session
	currentMu sync.Mutex
)

// New generates a fresh session identity. Most callers should use Current,
// which lazily creates and reuses one per process.
func New() *Session {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	if len(raw) > UUIDLength {
		raw = raw[:UUIDLength]
	}
	return &Session{uuid: raw}
}

// Current returns the process-wide Session, creating it on first access.
func Current() *Session {
	currentMu.Lock()
	defer currentMu.Unlock()
	if current == nil {
		current = New()
	}
	return current
}

// ResetForTest replaces the process-wide session. Intended for tests that
// need a deterministic or isolated session identity.
func ResetForTest(s *Session) {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = s
}

// UUID returns the full session identifier.
func (s *Session) UUID() string {
	if s == nil {
		return ""
	}
	return s.uuid
}

// Display renders the trailing n characters of the session UUID for use in
// human-readable messages. n=0 means omit entirely (returns "").
func (s *Session) Display(n int) string {
	if s == nil || n <= 0 {
		return ""
	}
	if n > len(s.uuid) {
		n = len(s.uuid)
	}
	return s.uuid[len(s.uuid)-n:]
}

// OnStop registers a function to run when Stop is called. Used by the
// default Watcher scheduler to tear down its driver when the session ends.
func (s *Session) OnStop(fn func()) {
	if s == nil || fn == nil {
		return
	}
	s.mu.Lock()
	s.stoppers = append(s.stoppers, fn)
	s.mu.Unlock()
}

// Stop runs every registered stop hook, in registration order. Safe to call
// more than once; later calls are no-ops for hooks already run.
func (s *Session) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	stoppers := s.stoppers
	s.stoppers = nil
	s.mu.Unlock()
	for _, fn := range stoppers {
		fn()
	}
}
