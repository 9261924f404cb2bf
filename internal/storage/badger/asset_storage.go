package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/models"
	"github.com/bobmcallan/argus/internal/storage"
)

type assetStorage struct {
	store  *Store
	logger *common.Logger
}

// NewAssetStorage creates a new AssetStore backed by BadgerHold.
func NewAssetStorage(store *Store, logger *common.Logger) *assetStorage {
	return &assetStorage{store: store, logger: logger}
}

func (s *assetStorage) Get(_ context.Context, assetID string) (*models.Asset, error) {
	var asset models.Asset
	err := s.store.db.Get(assetID, &asset)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, storage.ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get asset '%s': %w", assetID, err)
	}
	return &asset, nil
}

func (s *assetStorage) GetByTicker(_ context.Context, ticker string) (*models.Asset, error) {
	var assets []models.Asset
	if err := s.store.db.Find(&assets, badgerhold.Where("Ticker").Eq(ticker)); err != nil {
		return nil, fmt.Errorf("failed to query asset by ticker '%s': %w", ticker, err)
	}
	if len(assets) == 0 {
		return nil, storage.ErrAssetNotFound
	}
	return &assets[0], nil
}

func (s *assetStorage) Upsert(_ context.Context, asset *models.Asset) error {
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now()
	}
	if err := s.store.db.Upsert(asset.ID, asset); err != nil {
		return fmt.Errorf("failed to save asset '%s': %w", asset.Ticker, err)
	}
	s.logger.Debug().Str("ticker", asset.Ticker).Msg("Asset saved")
	return nil
}

func (s *assetStorage) List(_ context.Context) ([]*models.Asset, error) {
	var assets []models.Asset
	if err := s.store.db.Find(&assets, nil); err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Ticker < assets[j].Ticker })
	result := make([]*models.Asset, len(assets))
	for i := range assets {
		result[i] = &assets[i]
	}
	return result, nil
}

func (s *assetStorage) UpdateRisk(ctx context.Context, assetID string, score float64, at time.Time) error {
	asset, err := s.Get(ctx, assetID)
	if err != nil {
		return err
	}
	asset.RiskScore = score
	asset.RiskUpdatedAt = at
	if err := s.store.db.Upsert(asset.ID, asset); err != nil {
		return fmt.Errorf("failed to update risk for '%s': %w", asset.Ticker, err)
	}
	return nil
}

func (s *assetStorage) UpdateShallowRisk(ctx context.Context, assetID string, score float64, level string, at time.Time) error {
	asset, err := s.Get(ctx, assetID)
	if err != nil {
		return err
	}
	asset.ShallowScore = score
	asset.ShallowLevel = level
	asset.ShallowUpdatedAt = at
	if err := s.store.db.Upsert(asset.ID, asset); err != nil {
		return fmt.Errorf("failed to update shallow risk for '%s': %w", asset.Ticker, err)
	}
	return nil
}
