package risk

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/models"
	"github.com/bobmcallan/argus/internal/storage"
)

// --- Mock market data client ---

type mockMarketClient struct {
	mu sync.Mutex

	eod      map[string][]models.EODBar // keyed by ticker
	eodErr   error
	eodCalls int

	fundamentals *models.Fundamentals
	fundErr      error
	fundCalls    int

	esg    *models.ESGScores
	esgErr error

	news      []*models.NewsItem
	newsErr   error
	newsCalls int
}

func (m *mockMarketClient) GetEOD(_ context.Context, ticker string, _ ...interfaces.EODOption) ([]models.EODBar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eodCalls++
	if m.eodErr != nil {
		return nil, m.eodErr
	}
	return m.eod[ticker], nil
}

func (m *mockMarketClient) GetFundamentals(_ context.Context, _ string) (*models.Fundamentals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fundCalls++
	return m.fundamentals, m.fundErr
}

func (m *mockMarketClient) GetESG(_ context.Context, _ string) (*models.ESGScores, error) {
	return m.esg, m.esgErr
}

func (m *mockMarketClient) GetNews(_ context.Context, _ string, _ int) ([]*models.NewsItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newsCalls++
	return m.news, m.newsErr
}

// --- Mock oracle ---

type mockOracle struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	prompts  []string
}

func (m *mockOracle) GenerateContent(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	return m.response, m.err
}

// --- Mock component cache ---

type mockCacheStore struct {
	mu      sync.Mutex
	entries map[string]*models.ComponentCacheEntry
	putErr  error
}

func newMockCacheStore() *mockCacheStore {
	return &mockCacheStore{entries: make(map[string]*models.ComponentCacheEntry)}
}

func (m *mockCacheStore) Get(_ context.Context, assetID, component string) (*models.ComponentCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[models.CacheKey(assetID, component)]
	if !ok {
		return nil, storage.ErrCacheMiss
	}
	return entry, nil
}

func (m *mockCacheStore) Put(_ context.Context, entry *models.ComponentCacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	entry.Key = models.CacheKey(entry.AssetID, entry.Component)
	m.entries[entry.Key] = entry
	return nil
}

// --- Mock asset store ---

type mockAssetStore struct {
	mu     sync.Mutex
	assets map[string]*models.Asset // keyed by ID

	updateRiskErr    error
	shallowUpdateErr error
}

func newMockAssetStore(assets ...*models.Asset) *mockAssetStore {
	s := &mockAssetStore{assets: make(map[string]*models.Asset)}
	for _, a := range assets {
		s.assets[a.ID] = a
	}
	return s
}

func (m *mockAssetStore) Get(_ context.Context, assetID string) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[assetID]
	if !ok {
		return nil, storage.ErrAssetNotFound
	}
	return a, nil
}

func (m *mockAssetStore) GetByTicker(_ context.Context, ticker string) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assets {
		if a.Ticker == ticker {
			return a, nil
		}
	}
	return nil, storage.ErrAssetNotFound
}

func (m *mockAssetStore) Upsert(_ context.Context, asset *models.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[asset.ID] = asset
	return nil
}

func (m *mockAssetStore) List(_ context.Context) ([]*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Asset
	for _, a := range m.assets {
		out = append(out, a)
	}
	return out, nil
}

func (m *mockAssetStore) UpdateRisk(_ context.Context, assetID string, score float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateRiskErr != nil {
		return m.updateRiskErr
	}
	a, ok := m.assets[assetID]
	if !ok {
		return storage.ErrAssetNotFound
	}
	a.RiskScore = score
	a.RiskUpdatedAt = at
	return nil
}

func (m *mockAssetStore) UpdateShallowRisk(_ context.Context, assetID string, score float64, level string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shallowUpdateErr != nil {
		return m.shallowUpdateErr
	}
	a, ok := m.assets[assetID]
	if !ok {
		return storage.ErrAssetNotFound
	}
	a.ShallowScore = score
	a.ShallowLevel = level
	a.ShallowUpdatedAt = at
	return nil
}

// --- Mock storage manager ---

type mockStorageManager struct {
	assets *mockAssetStore
	cache  *mockCacheStore
}

func newMockStorageManager(assets ...*models.Asset) *mockStorageManager {
	return &mockStorageManager{
		assets: newMockAssetStore(assets...),
		cache:  newMockCacheStore(),
	}
}

func (m *mockStorageManager) AssetStore() interfaces.AssetStore { return m.assets }
func (m *mockStorageManager) ComponentCacheStore() interfaces.ComponentCacheStore {
	return m.cache
}
func (m *mockStorageManager) Close() error { return nil }

// --- Mock batch notifier ---

type mockNotifier struct {
	mu     sync.Mutex
	events []models.BatchEvent
}

func (m *mockNotifier) Publish(event models.BatchEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockNotifier) Events() []models.BatchEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.BatchEvent, len(m.events))
	copy(out, m.events)
	return out
}

var errUpstream = errors.New("upstream unavailable")

// generateBars builds a chronological daily series from closing prices,
// starting at a fixed date. Volume defaults to 1,000,000.
func generateBars(closes []float64) []models.EODBar {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.EODBar, len(closes))
	for i, c := range closes {
		bars[i] = models.EODBar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return bars
}

func fptr(v float64) *float64 { return &v }
