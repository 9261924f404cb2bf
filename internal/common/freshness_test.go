package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsFresh(t *testing.T) {
	tests := []struct {
		name     string
		updated  time.Time
		ttl      time.Duration
		expected bool
	}{
		{name: "zero time is never fresh", updated: time.Time{}, ttl: 24 * time.Hour, expected: false},
		{name: "just updated", updated: time.Now(), ttl: 24 * time.Hour, expected: true},
		{name: "inside window", updated: time.Now().Add(-23 * time.Hour), ttl: 24 * time.Hour, expected: true},
		{name: "outside window", updated: time.Now().Add(-25 * time.Hour), ttl: 24 * time.Hour, expected: false},
		{name: "sentiment window is tighter", updated: time.Now().Add(-7 * time.Hour), ttl: FreshnessSentiment, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFresh(tt.updated, tt.ttl))
		})
	}
}
