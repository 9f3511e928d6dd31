package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestMemoryRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory(10, newFakeClock())

	if _, ok := m.Get(ctx, "missing"); ok {
		t.Fatal("expected miss on empty cache")
	}
	m.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := m.Get(ctx, "k")
	if !ok || string(got) != "v" {
		t.Fatalf("Get() = %q, %v; want v, true", got, ok)
	}
	m.Delete(ctx, "k")
	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestMemoryExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := newFakeClock()
	m := NewMemory(10, clk)

	m.Set(ctx, "k", []byte("v"), time.Minute)
	clk.Advance(59 * time.Second)
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}
	clk.Advance(2 * time.Second)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatal("expected miss after expiry")
	}
	// Lazy expiry removed the entry.
	if st := m.Stats(ctx); st.TotalKeys != 0 {
		t.Fatalf("expected 0 keys after lazy removal, got %d", st.TotalKeys)
	}
}

func TestMemoryEvictsNearestExpiryFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := newFakeClock()
	m := NewMemory(20, clk)

	for i := 0; i < 20; i++ {
		// Ascending TTLs so key-0 and key-1 expire soonest.
		m.Set(ctx, fmt.Sprintf("key-%d", i), []byte("v"), time.Duration(i+1)*time.Minute)
	}
	m.Set(ctx, "overflow", []byte("v"), time.Hour)

	if st := m.Stats(ctx); st.TotalKeys > 20 {
		t.Fatalf("capacity exceeded: %d keys", st.TotalKeys)
	}
	for _, victim := range []string{"key-0", "key-1"} {
		if _, ok := m.Get(ctx, victim); ok {
			t.Fatalf("expected %s to be evicted", victim)
		}
	}
	if _, ok := m.Get(ctx, "overflow"); !ok {
		t.Fatal("expected the new entry to be stored")
	}
	if _, ok := m.Get(ctx, "key-19"); !ok {
		t.Fatal("expected the farthest-expiry entry to survive")
	}
}

func TestMemoryUpdateDoesNotEvict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory(2, newFakeClock())
	m.Set(ctx, "a", []byte("1"), time.Minute)
	m.Set(ctx, "b", []byte("2"), time.Hour)
	m.Set(ctx, "a", []byte("3"), time.Hour)

	if got, ok := m.Get(ctx, "a"); !ok || string(got) != "3" {
		t.Fatalf("expected updated value, got %q ok=%v", got, ok)
	}
	if _, ok := m.Get(ctx, "b"); !ok {
		t.Fatal("expected b to survive an in-place update of a")
	}
}

func TestMemoryStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := newFakeClock()
	m := NewMemory(10, clk)
	m.Set(ctx, "fresh", []byte("v"), time.Hour)
	m.Set(ctx, "stale", []byte("v"), time.Second)
	clk.Advance(time.Minute)

	st := m.Stats(ctx)
	if st.Backend != "memory" || st.TotalKeys != 2 || st.ValidKeys != 1 || st.ExpiredKeys != 1 || st.MaxEntries != 10 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	m.Clear(ctx)
	if st := m.Stats(ctx); st.TotalKeys != 0 {
		t.Fatalf("expected empty cache after clear, got %+v", st)
	}
}
