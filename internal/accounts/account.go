// Package accounts manages the pool of upstream credentials: health
// tracking, availability policy, and round-robin rotation.
package accounts

import "time"

// HourlyCeiling caps requests per account per hour. Conservative so no
// single account draws upstream attention.
const HourlyCeiling = 150

// DefaultCooldown is how long a rate-limited account sits out.
const DefaultCooldown = 60 * time.Minute

// Account is a credentialed upstream identity. The health fields are
// runtime-only and never serialized back to durable storage.
type Account struct {
	Username string
	Password string
	Enabled  bool
	Notes    string

	// Runtime health, reset on load and on cooldown expiry.
	RequestsThisHour int
	LastRequest      time.Time
	RateLimitedUntil time.Time
	LastError        string
}

// available decides whether the account may be used right now. When the
// cooldown deadline has just passed it clears the deadline and the hourly
// counter before continuing (lazy reset). Callers must hold the pool lock.
func available(a *Account, now time.Time) bool {
	if !a.Enabled {
		return false
	}
	if !a.RateLimitedUntil.IsZero() {
		if now.Before(a.RateLimitedUntil) {
			return false
		}
		a.RateLimitedUntil = time.Time{}
		a.RequestsThisHour = 0
	}
	return a.RequestsThisHour < HourlyCeiling
}
