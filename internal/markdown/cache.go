package markdown

import (
	"sync"
	"time"
)

type cacheEntry struct {
	size         int64
	lastModified time.Time
	block        string
	tokens       int
}

// Cache keeps rendered code blocks keyed by absolute path. An entry is only
// reused while the file's size and modification time are unchanged.
type Cache struct {
	mutex   sync.Mutex
	entries map[string]cacheEntry
}

// NewCache returns an empty content cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

func (cache *Cache) lookup(absolutePath string, size int64, lastModified time.Time) (cacheEntry, bool) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	entry, found := cache.entries[absolutePath]
	if !found || entry.size != size || !entry.lastModified.Equal(lastModified) {
		return cacheEntry{}, false
	}
	return entry, true
}

func (cache *Cache) store(absolutePath string, entry cacheEntry) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	cache.entries[absolutePath] = entry
}

// Clear drops every entry.
func (cache *Cache) Clear() {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	cache.entries = make(map[string]cacheEntry)
}

// Len reports the number of cached entries.
func (cache *Cache) Len() int {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	return len(cache.entries)
}
