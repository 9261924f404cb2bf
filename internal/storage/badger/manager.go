package badger

import (
	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
)

// Manager implements interfaces.StorageManager over a single BadgerHold store.
type Manager struct {
	store  *Store
	assets interfaces.AssetStore
	cache  interfaces.ComponentCacheStore
}

// NewManager opens the store and wires the typed storage accessors.
func NewManager(logger *common.Logger, path string) (*Manager, error) {
	store, err := NewStore(logger, path)
	if err != nil {
		return nil, err
	}

	return &Manager{
		store:  store,
		assets: NewAssetStorage(store, logger),
		cache:  NewCacheStorage(store, logger),
	}, nil
}

func (m *Manager) AssetStore() interfaces.AssetStore { return m.assets }

func (m *Manager) ComponentCacheStore() interfaces.ComponentCacheStore { return m.cache }

func (m *Manager) Close() error { return m.store.Close() }

// Ensure Manager implements StorageManager
var _ interfaces.StorageManager = (*Manager)(nil)
