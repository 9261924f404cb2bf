// Package common provides shared utilities for Argus
package common

import "time"

// Freshness TTLs for cached risk components
const (
	FreshnessQuant     = 24 * time.Hour // quantitative metrics track daily bars
	FreshnessSentiment = 6 * time.Hour  // news sentiment moves intraday
	FreshnessShallow   = 24 * time.Hour // fundamentals-only fast path
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
