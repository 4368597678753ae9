package stockcache

import (
	"context"
	"sync"
	"time"

	"stocklens/pkg/provider"
)

type entry struct {
	record    provider.StockRecord
	fetchedAt time.Time
	expiresAt time.Time
}

// Memory is an in-process Store used by tests and DSN-less deployments.
type Memory struct {
	ttl   time.Duration
	nowFn func() time.Time

	mu    sync.RWMutex
	items map[string]entry
}

// MemoryOption customises a Memory store.
type MemoryOption func(*Memory)

// WithClock injects a clock for deterministic expiry tests.
func WithClock(nowFn func() time.Time) MemoryOption {
	return func(m *Memory) {
		if nowFn != nil {
			m.nowFn = nowFn
		}
	}
}

// WithTTL overrides the rolling freshness window.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// NewMemory constructs an empty in-memory cache with the default 7-day TTL.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		ttl:   DefaultTTL,
		nowFn: time.Now,
		items: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get implements Store. Expired entries are evicted and reported as misses.
func (m *Memory) Get(_ context.Context, ticker string) (*provider.StockRecord, bool, error) {
	key := provider.NormalizeTicker(ticker)

	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !m.nowFn().Before(e.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have refreshed it.
		if cur, still := m.items[key]; still && !m.nowFn().Before(cur.expiresAt) {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	copied := e.record
	return &copied, true, nil
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, rec *provider.StockRecord) error {
	now := m.nowFn()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[provider.NormalizeTicker(rec.Ticker)] = entry{
		record:    *rec,
		fetchedAt: now,
		expiresAt: now.Add(m.ttl),
	}
	return nil
}
