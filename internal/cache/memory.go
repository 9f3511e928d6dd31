package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mediagrab/mediagrab/internal/clock"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// Memory is a bounded in-process cache guarded by a single lock. There is no
// background sweep: expired entries are dropped lazily on Get, and capacity
// is bounded by evicting the 10% of entries with the nearest expiry before
// an insert that would overflow.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	max     int
	clock   clock.Clock
}

// NewMemory constructs a Memory cache holding at most max entries.
func NewMemory(max int, clk clock.Clock) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		max:     max,
		clock:   clk,
	}
}

// Get returns the value for key, treating an expired entry as absent and
// removing it.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !m.clock.Now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl, evicting soonest-to-expire entries
// first when at capacity.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.max {
		m.evictLocked()
	}
	m.entries[key] = memoryEntry{value: value, expires: m.clock.Now().Add(ttl)}
}

// evictLocked removes the 10% of entries with the nearest expiry, at least
// one.
func (m *Memory) evictLocked() {
	n := m.max / 10
	if n < 1 {
		n = 1
	}
	type keyed struct {
		key     string
		expires time.Time
	}
	all := make([]keyed, 0, len(m.entries))
	for k, e := range m.entries {
		all = append(all, keyed{k, e.expires})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].expires.Before(all[j].expires) })
	if n > len(all) {
		n = len(all)
	}
	for _, victim := range all[:n] {
		delete(m.entries, victim.key)
	}
}

// Delete removes key if present.
func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Clear drops every entry.
func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
}

// Stats reports occupancy.
func (m *Memory) Stats(_ context.Context) Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	valid := 0
	for _, e := range m.entries {
		if now.Before(e.expires) {
			valid++
		}
	}
	return Stats{
		Backend:     "memory",
		TotalKeys:   len(m.entries),
		ValidKeys:   valid,
		ExpiredKeys: len(m.entries) - valid,
		MaxEntries:  m.max,
	}
}
