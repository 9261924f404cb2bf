package badger

import (
	"context"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/models"
	"github.com/bobmcallan/argus/internal/storage"
)

type cacheStorage struct {
	store  *Store
	logger *common.Logger
}

// NewCacheStorage creates a new ComponentCacheStore backed by BadgerHold.
func NewCacheStorage(store *Store, logger *common.Logger) *cacheStorage {
	return &cacheStorage{store: store, logger: logger}
}

func (s *cacheStorage) Get(_ context.Context, assetID, component string) (*models.ComponentCacheEntry, error) {
	var entry models.ComponentCacheEntry
	err := s.store.db.Get(models.CacheKey(assetID, component), &entry)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, storage.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache entry %s/%s: %w", assetID, component, err)
	}
	return &entry, nil
}

func (s *cacheStorage) Put(_ context.Context, entry *models.ComponentCacheEntry) error {
	entry.Key = models.CacheKey(entry.AssetID, entry.Component)
	if err := s.store.db.Upsert(entry.Key, entry); err != nil {
		return fmt.Errorf("failed to save cache entry %s: %w", entry.Key, err)
	}
	s.logger.Debug().Str("key", entry.Key).Msg("Component cache entry saved")
	return nil
}
