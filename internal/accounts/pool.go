package accounts

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mediagrab/mediagrab/internal/clock"
)

// Pool is a thread-safe, ordered set of accounts with a rotation cursor.
// Insertion order is significant: round-robin walks it.
type Pool struct {
	mu       sync.Mutex
	accounts []*Account
	cursor   int
	clock    clock.Clock
	logger   *zap.Logger
}

// NewPool constructs an empty Pool.
func NewPool(clk clock.Clock, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{clock: clk, logger: logger}
}

// Load replaces the whole set with fresh health state and resets the cursor.
func (p *Pool) Load(accs []Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = p.accounts[:0]
	p.cursor = 0
	for _, a := range accs {
		p.accounts = append(p.accounts, cleanAccount(a))
	}
	p.logger.Info("accounts loaded",
		zap.Int("total", len(p.accounts)),
		zap.Int("enabled", p.enabledLocked()),
	)
}

// Append adds accounts to the end of the pool, keeping existing health
// state, and returns how many were added.
func (p *Pool) Append(accs []Account) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range accs {
		p.accounts = append(p.accounts, cleanAccount(a))
	}
	return len(accs)
}

// Add inserts a single account. It returns false if the username already
// exists in the pool.
func (p *Pool) Add(username, password, notes string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.findLocked(username) != nil {
		p.logger.Warn("account already exists", zap.String("username", username))
		return false
	}
	p.accounts = append(p.accounts, &Account{
		Username: username,
		Password: password,
		Enabled:  true,
		Notes:    notes,
	})
	p.logger.Info("account added", zap.String("username", username))
	return true
}

// Remove deletes an account by username. Returns false if not found.
func (p *Pool) Remove(username string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, a := range p.accounts {
		if a.Username == username {
			p.accounts = append(p.accounts[:i], p.accounts[i+1:]...)
			if len(p.accounts) == 0 {
				p.cursor = 0
			} else {
				p.cursor %= len(p.accounts)
			}
			p.logger.Info("account removed", zap.String("username", username))
			return true
		}
	}
	return false
}

// SetEnabled flips the enabled flag. Returns false if not found.
func (p *Pool) SetEnabled(username string, enabled bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	a := p.findLocked(username)
	if a == nil {
		return false
	}
	a.Enabled = enabled
	return true
}

// Get returns a copy of the named account.
func (p *Pool) Get(username string) (Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a := p.findLocked(username); a != nil {
		return *a, true
	}
	return Account{}, false
}

// NextAvailable hands out the next usable account via round robin with
// skip-on-unavailable. The cursor advances exactly once per attempt, whether
// or not the candidate was usable. Returns false when the pool is empty or
// every account is disabled, cooling down, or over quota.
func (p *Pool) NextAvailable() (Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextLocked()
}

func (p *Pool) nextLocked() (Account, bool) {
	if len(p.accounts) == 0 {
		return Account{}, false
	}
	now := p.clock.Now()
	for attempts := 0; attempts < len(p.accounts); attempts++ {
		a := p.accounts[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.accounts)
		if available(a, now) {
			return *a, true
		}
	}
	p.logger.Warn("all accounts are rate limited or disabled")
	return Account{}, false
}

// PeekNext previews the account the next rotation would yield without
// consuming it: the cursor is rewound after the selection.
func (p *Pool) PeekNext() (Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.nextLocked()
	if ok {
		p.cursor = (p.cursor - 1 + len(p.accounts)) % len(p.accounts)
	}
	return a, ok
}

// RandomAvailable picks uniformly among the currently available accounts.
func (p *Pool) RandomAvailable() (Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.clock.Now()
	var avail []*Account
	for _, a := range p.accounts {
		if available(a, now) {
			avail = append(avail, a)
		}
	}
	if len(avail) == 0 {
		return Account{}, false
	}
	return *avail[rand.Intn(len(avail))], true
}

// RecordRequest bumps the hourly counter and stamps the last-request time.
// Call exactly once per successful upstream invocation.
func (p *Pool) RecordRequest(username string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a := p.findLocked(username); a != nil {
		a.RequestsThisHour++
		a.LastRequest = p.clock.Now()
	}
}

// MarkRateLimited puts the account into cooldown for the given duration.
func (p *Pool) MarkRateLimited(username string, cooldown time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a := p.findLocked(username)
	if a == nil {
		return
	}
	a.RateLimitedUntil = p.clock.Now().Add(cooldown)
	p.logger.Warn("account rate limited",
		zap.String("username", username),
		zap.Time("until", a.RateLimitedUntil),
	)
}

// RecordError notes the last failure on the account.
func (p *Pool) RecordError(username, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a := p.findLocked(username); a != nil {
		a.LastError = msg
	}
}

// Len returns the number of accounts in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.accounts)
}

// AvailableCount returns how many accounts are usable right now.
func (p *Pool) AvailableCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.clock.Now()
	n := 0
	for _, a := range p.accounts {
		if available(a, now) {
			n++
		}
	}
	return n
}

// ResetHourlyCounters zeroes every account's hourly counter.
func (p *Pool) ResetHourlyCounters() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range p.accounts {
		a.RequestsThisHour = 0
	}
	p.logger.Debug("hourly request counters reset")
}

// StartHourlyReset launches the background counter reset, independent of the
// lazy reset in the availability check, until ctx is done. The duplication
// is deliberate: a read-triggered reset alone never fires for accounts that
// stay under quota.
func (p *Pool) StartHourlyReset(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.ResetHourlyCounters()
			}
		}
	}()
}

// Stats summarizes the pool for the admin surface. Passwords are omitted.
type Stats struct {
	Total       int             `json:"total_accounts"`
	Enabled     int             `json:"enabled"`
	Available   int             `json:"available_now"`
	RateLimited int             `json:"rate_limited"`
	Accounts    []AccountStatus `json:"accounts"`
}

// AccountStatus is the per-account slice of Stats.
type AccountStatus struct {
	Username         string `json:"username"`
	Enabled          bool   `json:"enabled"`
	Available        bool   `json:"available"`
	RequestsThisHour int    `json:"requests_this_hour"`
	RateLimitedUntil string `json:"rate_limited_until,omitempty"`
	LastError        string `json:"last_error,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

// Snapshot returns current pool statistics.
func (p *Pool) Snapshot() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.clock.Now()
	st := Stats{Total: len(p.accounts), Accounts: make([]AccountStatus, 0, len(p.accounts))}
	for _, a := range p.accounts {
		if a.Enabled {
			st.Enabled++
		}
		limited := !a.RateLimitedUntil.IsZero() && now.Before(a.RateLimitedUntil)
		if limited {
			st.RateLimited++
		}
		ok := available(a, now)
		if ok {
			st.Available++
		}
		status := AccountStatus{
			Username:         a.Username,
			Enabled:          a.Enabled,
			Available:        ok,
			RequestsThisHour: a.RequestsThisHour,
			LastError:        a.LastError,
			Notes:            a.Notes,
		}
		if limited {
			status.RateLimitedUntil = a.RateLimitedUntil.Format(time.RFC3339)
		}
		st.Accounts = append(st.Accounts, status)
	}
	return st
}

func (p *Pool) findLocked(username string) *Account {
	for _, a := range p.accounts {
		if a.Username == username {
			return a
		}
	}
	return nil
}

func (p *Pool) enabledLocked() int {
	n := 0
	for _, a := range p.accounts {
		if a.Enabled {
			n++
		}
	}
	return n
}

// cleanAccount copies an account with health fields zeroed.
func cleanAccount(a Account) *Account {
	return &Account{
		Username: a.Username,
		Password: a.Password,
		Enabled:  a.Enabled,
		Notes:    a.Notes,
	}
}
