// Package ratelimit throttles clients of the API itself with a sliding
// window per client key. It is independent of the upstream account pool.
package ratelimit

import (
	"sync"
	"time"

	"github.com/mediagrab/mediagrab/internal/clock"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// clientWindow holds the recent request timestamps for one client key.
// Each key carries its own lock so unrelated clients never serialize.
type clientWindow struct {
	mu     sync.Mutex
	stamps []time.Time
}

// Limiter admits at most limit requests per client key within a trailing
// window. Timestamps older than the window are pruned before every
// decision.
type Limiter struct {
	limit  int
	window time.Duration
	clock  clock.Clock

	mu      sync.Mutex
	clients map[string]*clientWindow
}

// New constructs a Limiter.
func New(limit int, window time.Duration, clk clock.Clock) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		clock:   clk,
		clients: make(map[string]*clientWindow),
	}
}

// Limit returns the configured per-window request ceiling.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the configured trailing window.
func (l *Limiter) Window() time.Duration { return l.window }

// Allow decides whether the client identified by key may proceed now. On
// rejection, RetryAfter is the time until the oldest counted request leaves
// the window, floored at one second.
func (l *Limiter) Allow(key string) Decision {
	cw := l.windowFor(key)
	now := l.clock.Now()

	cw.mu.Lock()
	defer cw.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := cw.stamps[:0]
	for _, ts := range cw.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	cw.stamps = kept

	if len(cw.stamps) >= l.limit {
		oldest := cw.stamps[0]
		retry := oldest.Add(l.window).Sub(now)
		if retry < time.Second {
			retry = time.Second
		}
		return Decision{Allowed: false, RetryAfter: retry}
	}

	cw.stamps = append(cw.stamps, now)
	return Decision{Allowed: true, Remaining: l.limit - len(cw.stamps)}
}

func (l *Limiter) windowFor(key string) *clientWindow {
	l.mu.Lock()
	defer l.mu.Unlock()
	cw, ok := l.clients[key]
	if !ok {
		cw = &clientWindow{}
		l.clients[key] = cw
	}
	return cw
}
