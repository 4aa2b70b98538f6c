package ignore

import (
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// Cache holds one compiled Filter per workspace root until it is invalidated.
type Cache struct {
	mutex      sync.Mutex
	fileSystem afero.Fs
	settings   Settings
	filters    map[string]*Filter
	builds     int
}

// NewCache returns an empty cache that compiles filters with settings.
func NewCache(fileSystem afero.Fs, settings Settings) *Cache {
	return &Cache{
		fileSystem: fileSystem,
		settings:   settings,
		filters:    make(map[string]*Filter),
	}
}

// Filter returns the cached filter for root, compiling it on first use.
func (cache *Cache) Filter(root string) (*Filter, error) {
	cleanRoot := filepath.Clean(root)

	cache.mutex.Lock()
	defer cache.mutex.Unlock()

	if filter, found := cache.filters[cleanRoot]; found {
		return filter, nil
	}
	filter, buildError := NewFilter(cache.fileSystem, cleanRoot, cache.settings)
	if buildError != nil {
		return nil, buildError
	}
	cache.builds++
	cache.filters[cleanRoot] = filter
	return filter, nil
}

// Invalidate drops the filter cached for root.
func (cache *Cache) Invalidate(root string) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	delete(cache.filters, filepath.Clean(root))
}

// InvalidateAll drops every cached filter.
func (cache *Cache) InvalidateAll() {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	cache.filters = make(map[string]*Filter)
}

// UpdateSettings replaces the compile settings and drops every cached filter.
func (cache *Cache) UpdateSettings(settings Settings) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	cache.settings = settings
	cache.filters = make(map[string]*Filter)
}

// Builds reports how many filters have been compiled so far.
func (cache *Cache) Builds() int {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	return cache.builds
}
