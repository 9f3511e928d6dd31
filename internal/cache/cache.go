// Package cache provides the response cache that suppresses redundant
// upstream calls. Two backends share one contract: a bounded in-process map
// and a shared Redis store. Backend failures never propagate into the
// request path; a broken backend just looks empty.
package cache

import (
	"context"
	"time"
)

// Cache is the backend contract. Implementations log their own failures and
// degrade: Get answers "absent" and Set/Delete become no-ops when the
// backend is unreachable.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
	Stats(ctx context.Context) Stats
}

// Stats describes backend occupancy for the admin surface.
type Stats struct {
	Backend     string `json:"backend"`
	TotalKeys   int    `json:"total_keys"`
	ValidKeys   int    `json:"valid_keys"`
	ExpiredKeys int    `json:"expired_keys"`
	MaxEntries  int    `json:"max_entries,omitempty"`
}
