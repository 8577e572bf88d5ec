// Package cache provides in-memory caches for dashboard snapshots.
package cache

import (
	"sync"
	"time"

	applog "granabox/internal/log"
)

// Cache is a keyed cache of T values.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Clear()
	Size() int
}

// Stats counts lookups since the cache was created.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

// Cleaner is a cache that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans registered caches.
type Manager struct {
	mu       sync.Mutex
	caches   []Cleaner
	logger   *applog.Logger
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewManager(logger *applog.Logger) *Manager {
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentCache)
	}
	return &Manager{
		logger: logger.WithComponent(applog.ComponentCache),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Register adds a cache to the cleanup cycle.
func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	m.caches = append(m.caches, c)
	m.mu.Unlock()
}

// StartCleanup cleans every interval until Stop is called.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

// CleanNow cleans every registered cache once and returns the removed count.
func (m *Manager) CleanNow() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	removed := 0
	for _, c := range caches {
		removed += c.CleanExpired()
	}
	return removed
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := m.CleanNow(); removed > 0 {
				m.logger.Debug("Expired cache entries removed", "count", removed)
			}
		case <-m.stop:
			return
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once, and
// before StartCleanup.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}
