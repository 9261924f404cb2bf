package risk

import (
	"context"
	"math"
	"time"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/models"
)

const (
	maxBucketPoints   = 3.0 // highest points any single metric can contribute
	minShallowMetrics = 2   // below this, the level is forced conservative
)

// ShallowScorer is the fundamentals-only fast path for bulk listings and
// assets without enough history for the full pipeline. Results are cached on
// the asset with a 24-hour staleness window.
type ShallowScorer struct {
	market interfaces.MarketDataClient
	assets interfaces.AssetStore
	logger *common.Logger
}

// NewShallowScorer creates a new shallow scorer
func NewShallowScorer(market interfaces.MarketDataClient, assets interfaces.AssetStore, logger *common.Logger) *ShallowScorer {
	return &ShallowScorer{market: market, assets: assets, logger: logger}
}

// Score returns the shallow risk, serving the asset-cached value when fresh.
// WasUpdated distinguishes a fresh computation from a cache hit.
func (s *ShallowScorer) Score(ctx context.Context, asset *models.Asset) (*models.ShallowRisk, error) {
	if common.IsFresh(asset.ShallowUpdatedAt, common.FreshnessShallow) {
		return &models.ShallowRisk{
			Score:      asset.ShallowScore,
			Level:      asset.ShallowLevel,
			WasUpdated: false,
			UpdatedAt:  asset.ShallowUpdatedAt,
		}, nil
	}

	fundamentals, err := s.market.GetFundamentals(ctx, asset.Ticker)
	if err != nil {
		s.logger.Warn().Str("ticker", asset.Ticker).Err(err).Msg("Failed to fetch fundamentals for shallow risk")
		fundamentals = nil
	}

	result := shallowFromFundamentals(fundamentals)
	result.WasUpdated = true
	result.UpdatedAt = time.Now()

	if err := s.assets.UpdateShallowRisk(ctx, asset.ID, result.Score, result.Level, result.UpdatedAt); err != nil {
		// best-effort cache; the score still goes back to the caller
		s.logger.Warn().Str("ticker", asset.Ticker).Err(err).Msg("Failed to persist shallow risk")
	}

	return result, nil
}

// shallowFromFundamentals applies the discrete bucket table. The score is the
// average points over the metrics that were actually available, rescaled to
// 0-10; unavailable metrics are skipped, not defaulted.
func shallowFromFundamentals(f *models.Fundamentals) *models.ShallowRisk {
	var points float64
	var available int

	add := func(present bool, p float64) {
		if !present {
			return
		}
		points += p
		available++
	}

	if f != nil {
		add(f.MarketCap != nil, marketCapPoints(deref(f.MarketCap)))
		add(f.PE != nil, pePoints(deref(f.PE)))
		add(f.EPS != nil, epsPoints(deref(f.EPS)))
		add(f.DebtToEquity != nil, debtPoints(deref(f.DebtToEquity)))
		add(f.Beta != nil, betaPoints(deref(f.Beta)))
		add(f.High52Week != nil && f.Low52Week != nil, rangePoints(deref(f.High52Week), deref(f.Low52Week)))
	}

	result := &models.ShallowRisk{AvailableMetrics: available}

	if available == 0 {
		result.Score = neutralScore
		result.Level = models.RiskLevelMedium
		return result
	}

	avg := points / float64(available)
	result.Score = round2(clamp(avg/maxBucketPoints*10, 0, 10))
	result.Level = RiskLevel(result.Score)

	// Too little evidence to call an asset low-risk
	if available < minShallowMetrics && result.Level == models.RiskLevelLow {
		result.Level = models.RiskLevelMedium
	}

	return result
}

func marketCapPoints(cap float64) float64 {
	switch {
	case cap < 1e9:
		return 3
	case cap < 10e9:
		return 2
	case cap < 100e9:
		return 1
	default:
		return 0
	}
}

func pePoints(pe float64) float64 {
	switch {
	case pe < 0:
		return 3
	case pe > 50:
		return 2
	case pe > 25:
		return 1
	default:
		return 0
	}
}

func epsPoints(eps float64) float64 {
	switch {
	case eps < 0:
		return 3
	case eps < 1:
		return 1
	default:
		return 0
	}
}

func debtPoints(dte float64) float64 {
	switch {
	case dte > 200:
		return 3
	case dte > 100:
		return 2
	case dte > 50:
		return 1
	default:
		return 0
	}
}

func betaPoints(beta float64) float64 {
	switch {
	case math.Abs(beta) > 2:
		return 2
	case math.Abs(beta) > 1.5:
		return 1
	default:
		return 0
	}
}

// rangePoints scores 52-week range width relative to its midpoint.
func rangePoints(high, low float64) float64 {
	mid := (high + low) / 2
	if mid <= 0 || high <= low {
		return 0
	}
	ratio := (high - low) / mid
	switch {
	case ratio > 0.8:
		return 2
	case ratio > 0.4:
		return 1
	default:
		return 0
	}
}
