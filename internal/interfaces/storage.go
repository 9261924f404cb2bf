// Package interfaces defines service contracts for Argus
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/argus/internal/models"
)

// StorageManager coordinates the storage backends
type StorageManager interface {
	AssetStore() AssetStore
	ComponentCacheStore() ComponentCacheStore
	Close() error
}

// AssetStore manages tracked assets and their risk fields
type AssetStore interface {
	Get(ctx context.Context, assetID string) (*models.Asset, error)
	GetByTicker(ctx context.Context, ticker string) (*models.Asset, error)
	Upsert(ctx context.Context, asset *models.Asset) error
	List(ctx context.Context) ([]*models.Asset, error)

	// UpdateRisk writes the overall risk score and timestamp back onto the asset
	UpdateRisk(ctx context.Context, assetID string, score float64, at time.Time) error

	// UpdateShallowRisk writes the fast-path score, level and timestamp
	UpdateShallowRisk(ctx context.Context, assetID string, score float64, level string, at time.Time) error
}

// ComponentCacheStore persists per-(asset, component) computed payloads.
// Writes are last-write-wins; a lost update only costs one extra recomputation.
type ComponentCacheStore interface {
	Get(ctx context.Context, assetID, component string) (*models.ComponentCacheEntry, error)
	Put(ctx context.Context, entry *models.ComponentCacheEntry) error
}
