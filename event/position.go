package event

import "sync"

// positions tracks the next position to hand out per category. (session,
// category, position) is a primary key (spec.md §3); since a process has a
// single Session, positions only need to be keyed by category here.
var (
	positionsMu sync.Mutex
	positions   = make(map[string]int64)
)

// NextPosition returns the next strictly increasing position for category,
// starting at 1. Safe for concurrent use across every Meter/Watcher sharing
// the category.
func NextPosition(category string) int64 {
	positionsMu.Lock()
	defer positionsMu.Unlock()
	positions[category]++
	return positions[category]
}

// ResetPositionsForTest clears all tracked positions. Intended for tests
// that need deterministic position numbering.
func ResetPositionsForTest() {
	positionsMu.Lock()
	defer positionsMu.Unlock()
	positions = make(map[string]int64)
}
