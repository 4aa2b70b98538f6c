package orchestrator

import (
	"sync"

	"github.com/temirov/fileprompt/internal/types"
)

// History is a bounded ring buffer of successful jobs; the oldest entry is
// evicted first once capacity is reached.
type History struct {
	mutex    sync.Mutex
	entries  []types.HistoryEntry
	next     int
	filled   bool
	capacity int
}

// NewHistory returns an empty history holding at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{entries: make([]types.HistoryEntry, capacity), capacity: capacity}
}

// Append records entry, evicting the oldest entry when full.
func (history *History) Append(entry types.HistoryEntry) {
	history.mutex.Lock()
	defer history.mutex.Unlock()
	entry.Paths = append([]string{}, entry.Paths...)
	history.entries[history.next] = entry
	history.next = (history.next + 1) % history.capacity
	if history.next == 0 {
		history.filled = true
	}
}

// Entries returns a copy of the stored entries, oldest first.
func (history *History) Entries() []types.HistoryEntry {
	history.mutex.Lock()
	defer history.mutex.Unlock()
	if !history.filled {
		return append([]types.HistoryEntry{}, history.entries[:history.next]...)
	}
	ordered := make([]types.HistoryEntry, 0, history.capacity)
	ordered = append(ordered, history.entries[history.next:]...)
	return append(ordered, history.entries[:history.next]...)
}

// Len reports the number of stored entries.
func (history *History) Len() int {
	history.mutex.Lock()
	defer history.mutex.Unlock()
	if history.filled {
		return history.capacity
	}
	return history.next
}
