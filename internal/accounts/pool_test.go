package accounts

import (
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

func testPool(t *testing.T, usernames ...string) (*Pool, *fakeClock) {
	t.Helper()
	clk := newFakeClock()
	p := NewPool(clk, nil)
	accs := make([]Account, 0, len(usernames))
	for _, u := range usernames {
		accs = append(accs, Account{Username: u, Password: "pw", Enabled: true})
	}
	p.Load(accs)
	return p, clk
}

func TestNextAvailableRoundRobin(t *testing.T) {
	t.Parallel()

	p, _ := testPool(t, "a", "b", "c")
	want := []string{"a", "b", "c", "a", "b", "c"}
	for i, w := range want {
		a, ok := p.NextAvailable()
		if !ok {
			t.Fatalf("rotation %d: no account available", i)
		}
		if a.Username != w {
			t.Fatalf("rotation %d: got %q, want %q", i, a.Username, w)
		}
	}
}

func TestNextAvailableSkipsUnavailable(t *testing.T) {
	t.Parallel()

	p, _ := testPool(t, "a", "b", "c")
	p.SetEnabled("a", false)
	p.MarkRateLimited("c", time.Hour)

	for i := 0; i < 5; i++ {
		a, ok := p.NextAvailable()
		if !ok {
			t.Fatalf("rotation %d: no account available", i)
		}
		if a.Username != "b" {
			t.Fatalf("rotation %d: got %q, want b", i, a.Username)
		}
	}
}

func TestNextAvailableAllUnavailable(t *testing.T) {
	t.Parallel()

	p, _ := testPool(t, "a", "b")
	p.SetEnabled("a", false)
	p.SetEnabled("b", false)
	if _, ok := p.NextAvailable(); ok {
		t.Fatal("expected no account from a fully disabled pool")
	}

	empty := NewPool(newFakeClock(), nil)
	if _, ok := empty.NextAvailable(); ok {
		t.Fatal("expected no account from an empty pool")
	}
}

func TestCooldownExpiryRestoresAccount(t *testing.T) {
	t.Parallel()

	p, clk := testPool(t, "a")
	p.RecordRequest("a")
	p.RecordRequest("a")
	p.MarkRateLimited("a", DefaultCooldown)

	if _, ok := p.NextAvailable(); ok {
		t.Fatal("expected account to be cooling down")
	}

	clk.Advance(61 * time.Minute)
	a, ok := p.NextAvailable()
	if !ok {
		t.Fatal("expected account back after cooldown")
	}
	if a.RequestsThisHour != 0 {
		t.Fatalf("expected hourly counter reset on cooldown expiry, got %d", a.RequestsThisHour)
	}
	if !a.RateLimitedUntil.IsZero() {
		t.Fatalf("expected cooldown deadline cleared, got %v", a.RateLimitedUntil)
	}
}

func TestHourlyCeilingBlocksAccount(t *testing.T) {
	t.Parallel()

	p, _ := testPool(t, "a")
	for i := 0; i < HourlyCeiling; i++ {
		p.RecordRequest("a")
	}
	if _, ok := p.NextAvailable(); ok {
		t.Fatal("expected account over quota to be unavailable")
	}

	p.ResetHourlyCounters()
	if _, ok := p.NextAvailable(); !ok {
		t.Fatal("expected account back after hourly reset")
	}
}

func TestPeekNextDoesNotConsume(t *testing.T) {
	t.Parallel()

	p, _ := testPool(t, "a", "b")
	peek, ok := p.PeekNext()
	if !ok {
		t.Fatal("expected a peeked account")
	}
	next, ok := p.NextAvailable()
	if !ok {
		t.Fatal("expected a rotated account")
	}
	if peek.Username != next.Username {
		t.Fatalf("peek returned %q but rotation yielded %q", peek.Username, next.Username)
	}
}

func TestAddRemove(t *testing.T) {
	t.Parallel()

	p, _ := testPool(t, "a")
	if !p.Add("b", "pw", "backup") {
		t.Fatal("expected add to succeed")
	}
	if p.Add("b", "pw2", "") {
		t.Fatal("expected duplicate add to fail")
	}
	if p.Len() != 2 {
		t.Fatalf("expected 2 accounts, got %d", p.Len())
	}
	if !p.Remove("a") {
		t.Fatal("expected remove to succeed")
	}
	if p.Remove("a") {
		t.Fatal("expected second remove to fail")
	}

	// Rotation still works with the cursor clamped after removal.
	a, ok := p.NextAvailable()
	if !ok || a.Username != "b" {
		t.Fatalf("expected b after removal, got %q ok=%v", a.Username, ok)
	}
}

func TestRandomAvailable(t *testing.T) {
	t.Parallel()

	p, _ := testPool(t, "a", "b")
	p.SetEnabled("b", false)
	for i := 0; i < 10; i++ {
		a, ok := p.RandomAvailable()
		if !ok || a.Username != "a" {
			t.Fatalf("expected only a to be eligible, got %q ok=%v", a.Username, ok)
		}
	}
	p.SetEnabled("a", false)
	if _, ok := p.RandomAvailable(); ok {
		t.Fatal("expected no random pick from an unavailable pool")
	}
}

func TestSnapshotOmitsPasswordsAndCounts(t *testing.T) {
	t.Parallel()

	p, _ := testPool(t, "a", "b", "c")
	p.SetEnabled("c", false)
	p.MarkRateLimited("b", time.Hour)
	p.RecordRequest("a")

	st := p.Snapshot()
	if st.Total != 3 || st.Enabled != 2 || st.Available != 1 || st.RateLimited != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	for _, acc := range st.Accounts {
		if acc.Username == "a" && acc.RequestsThisHour != 1 {
			t.Fatalf("expected 1 recorded request on a, got %d", acc.RequestsThisHour)
		}
		if acc.Username == "b" && acc.RateLimitedUntil == "" {
			t.Fatal("expected rate_limited_until to be set for b")
		}
	}
}

func TestLoadResetsHealth(t *testing.T) {
	t.Parallel()

	p, _ := testPool(t, "a")
	p.RecordRequest("a")
	p.MarkRateLimited("a", time.Hour)

	p.Load([]Account{{Username: "a", Password: "pw", Enabled: true,
		RequestsThisHour: 99, RateLimitedUntil: time.Now().Add(time.Hour)}})

	a, ok := p.Get("a")
	if !ok {
		t.Fatal("expected account after load")
	}
	if a.RequestsThisHour != 0 || !a.RateLimitedUntil.IsZero() {
		t.Fatalf("expected clean health after load, got %+v", a)
	}
}
