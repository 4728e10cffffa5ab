package idemcache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	ts      time.Time
	payload []byte
}

// Memory is the in-process Cache: TTL 120s, capped at 10000 entries with
// oldest-first eviction once a sweep of expired entries is not enough.
// Lost on restart; best-effort by design.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// NewMemory creates the in-process cache. Zero arguments fall back to
// the defaults (120s, 10000 entries).
func NewMemory(ttl time.Duration, maxSize int) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL * time.Second
	}
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.now().Sub(e.ts) > m.ttl {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.payload, true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{ts: m.now(), payload: payload}
	if len(m.entries) > m.maxSize {
		m.sweepLocked()
	}
	return nil
}

// DropPrefix implements Cache.
func (m *Memory) DropPrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

// sweepLocked drops expired entries, then the oldest remaining ones until
// the cache is back under capacity.
func (m *Memory) sweepLocked() {
	now := m.now()
	for k, e := range m.entries {
		if now.Sub(e.ts) > m.ttl {
			delete(m.entries, k)
		}
	}
	if len(m.entries) <= m.maxSize {
		return
	}

	type aged struct {
		key string
		ts  time.Time
	}
	all := make([]aged, 0, len(m.entries))
	for k, e := range m.entries {
		all = append(all, aged{key: k, ts: e.ts})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ts.Before(all[j].ts) })

	over := len(m.entries) - m.maxSize
	for i := 0; i < over; i++ {
		delete(m.entries, all[i].key)
	}
}
