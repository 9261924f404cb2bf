package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/models"
)

const (
	neutralScore  = 5.0
	rsiPeriod     = 14
	tradingDays   = 252
	lookbackExtra = 30 // history buffer beyond the requested lookback
)

// QuantScorer computes technical and fundamental risk sub-scores. Computed
// metrics are cached for 24 hours; the label and explanation are recomputed
// from cached numbers on every call.
type QuantScorer struct {
	market          interfaces.MarketDataClient
	cache           interfaces.ComponentCacheStore
	oracle          interfaces.OracleClient // optional, for narrative explanations
	benchmarkTicker string
	logger          *common.Logger
}

// NewQuantScorer creates a new quantitative scorer. The oracle may be nil;
// explanations then come from the deterministic bucket table.
func NewQuantScorer(market interfaces.MarketDataClient, cache interfaces.ComponentCacheStore, oracle interfaces.OracleClient, benchmarkTicker string, logger *common.Logger) *QuantScorer {
	return &QuantScorer{
		market:          market,
		cache:           cache,
		oracle:          oracle,
		benchmarkTicker: benchmarkTicker,
		logger:          logger,
	}
}

// Score returns QuantMetrics for the asset, serving from cache when the last
// computation is younger than 24 hours (unless preferNewest).
func (q *QuantScorer) Score(ctx context.Context, asset *models.Asset, lookbackDays int, preferNewest bool) *models.QuantMetrics {
	if !preferNewest && q.cache != nil {
		if entry, err := q.cache.Get(ctx, asset.ID, models.ComponentQuant); err == nil {
			if common.IsFresh(entry.UpdatedAt, common.FreshnessQuant) {
				var cached models.QuantMetrics
				if err := json.Unmarshal(entry.Payload, &cached); err == nil {
					q.explain(ctx, asset.Ticker, &cached)
					return &cached
				}
			}
		}
	}

	metrics := q.compute(ctx, asset.Ticker, lookbackDays)
	q.explain(ctx, asset.Ticker, metrics)

	if q.cache != nil {
		payload, err := json.Marshal(metrics)
		if err == nil {
			err = q.cache.Put(ctx, &models.ComponentCacheEntry{
				AssetID:   asset.ID,
				Component: models.ComponentQuant,
				Payload:   payload,
				UpdatedAt: metrics.UpdatedAt,
			})
		}
		if err != nil {
			// cache is best-effort; the computed result still goes back to the caller
			q.logger.Warn().Str("ticker", asset.Ticker).Err(err).Msg("Failed to cache quant metrics")
		}
	}

	return metrics
}

// compute derives raw metrics and sub-scores from fresh provider data.
// Upstream failures degrade individual metrics to missing, never abort.
func (q *QuantScorer) compute(ctx context.Context, ticker string, lookbackDays int) *models.QuantMetrics {
	metrics := &models.QuantMetrics{UpdatedAt: time.Now()}

	now := time.Now()
	from := now.AddDate(0, 0, -(lookbackDays + lookbackExtra))

	bars, err := q.market.GetEOD(ctx, ticker, interfaces.WithDateRange(from, now))
	if err != nil {
		q.logger.Warn().Str("ticker", ticker).Err(err).Msg("Failed to fetch price history for quant scoring")
	}

	fundamentals, err := q.market.GetFundamentals(ctx, ticker)
	if err != nil {
		q.logger.Warn().Str("ticker", ticker).Err(err).Msg("Failed to fetch fundamentals for quant scoring")
	}

	series := make([]models.EODBar, len(bars))
	copy(series, bars)
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	if len(series) >= 2 {
		returns := dailyReturns(series)

		vol := stat.StdDev(returns, nil) * math.Sqrt(tradingDays) * 100
		metrics.Volatility = &vol

		if rsi, ok := wilderRSI(series, rsiPeriod); ok {
			metrics.RSI = &rsi
		}

		if vcp, ok := volumeChangePercent(series); ok {
			metrics.VolumeChangePct = &vcp
		}
	}

	// Beta: supplied fundamental beta wins; otherwise regress against the benchmark
	if fundamentals != nil && fundamentals.Beta != nil {
		metrics.Beta = fundamentals.Beta
	} else if len(series) >= 2 {
		if beta, ok := q.benchmarkBeta(ctx, series, from, now); ok {
			metrics.Beta = &beta
		}
	}

	if fundamentals != nil {
		metrics.DebtToEquity = fundamentals.DebtToEquity
		metrics.EPS = fundamentals.EPS
	}

	scoreMetrics(metrics)
	return metrics
}

// benchmarkBeta computes beta as cov(asset, benchmark)/var(benchmark) over
// the date-intersection of the two return series.
func (q *QuantScorer) benchmarkBeta(ctx context.Context, series []models.EODBar, from, to time.Time) (float64, bool) {
	benchBars, err := q.market.GetEOD(ctx, q.benchmarkTicker, interfaces.WithDateRange(from, to))
	if err != nil {
		q.logger.Debug().Str("benchmark", q.benchmarkTicker).Err(err).Msg("Failed to fetch benchmark history")
		return 0, false
	}

	bench := make([]models.EODBar, len(benchBars))
	copy(bench, benchBars)
	sort.Slice(bench, func(i, j int) bool { return bench[i].Date.Before(bench[j].Date) })
	if len(bench) < 2 {
		return 0, false
	}

	assetByDate := returnsByDate(series)
	benchByDate := returnsByDate(bench)

	var assetReturns, benchReturns []float64
	for date, ar := range assetByDate {
		if br, ok := benchByDate[date]; ok {
			assetReturns = append(assetReturns, ar)
			benchReturns = append(benchReturns, br)
		}
	}
	if len(assetReturns) < 2 {
		return 0, false
	}

	variance := stat.Variance(benchReturns, nil)
	if variance == 0 {
		return 0, false
	}

	return stat.Covariance(assetReturns, benchReturns, nil) / variance, true
}

// returnsByDate maps bar date (day precision) to that day's return.
func returnsByDate(series []models.EODBar) map[string]float64 {
	out := make(map[string]float64, len(series))
	for i := 1; i < len(series); i++ {
		prev := series[i-1].Close
		if prev == 0 {
			continue
		}
		out[series[i].Date.Format("2006-01-02")] = (series[i].Close - prev) / prev
	}
	return out
}

// wilderRSI computes the most recent 14-period RSI value.
func wilderRSI(series []models.EODBar, period int) (float64, bool) {
	if len(series) < period+1 {
		return 0, false
	}

	var gains, losses float64
	for i := len(series) - period; i < len(series); i++ {
		change := series[i].Close - series[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100, true
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// volumeChangePercent compares the last 5 days' mean volume to the full period.
func volumeChangePercent(series []models.EODBar) (float64, bool) {
	if len(series) < 5 {
		return 0, false
	}

	var full, recent float64
	for i, bar := range series {
		full += float64(bar.Volume)
		if i >= len(series)-5 {
			recent += float64(bar.Volume)
		}
	}
	full /= float64(len(series))
	recent /= 5

	if full == 0 {
		return 0, false
	}
	return (recent/full - 1) * 100, true
}

// scoreMetrics fills the sub-scores and the averaged quant risk score.
// Sub-scores whose underlying input is missing carry the neutral default but
// are excluded from the mean.
func scoreMetrics(m *models.QuantMetrics) {
	var sum float64
	var n int

	score := func(present bool, value float64) float64 {
		if !present {
			return neutralScore
		}
		sum += value
		n++
		return value
	}

	m.VolatilityScore = score(m.Volatility != nil, volatilityScore(deref(m.Volatility)))
	m.BetaScore = score(m.Beta != nil, betaScore(deref(m.Beta)))
	m.RSIRisk = score(m.RSI != nil, rsiRisk(deref(m.RSI)))
	m.VolumeRisk = score(m.VolumeChangePct != nil, volumeRisk(deref(m.VolumeChangePct)))
	m.DebtRisk = score(m.DebtToEquity != nil, debtRisk(deref(m.DebtToEquity)))
	m.EPSRisk = score(m.EPS != nil, epsRisk(deref(m.EPS)))

	if n == 0 {
		m.QuantRiskScore = neutralScore
		return
	}
	m.QuantRiskScore = clamp(sum/float64(n), 0, 10)
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func volatilityScore(v float64) float64 { return clamp(v/5, 0, 10) }

func betaScore(b float64) float64 { return clamp(math.Abs(b)*3, 0, 10) }

func rsiRisk(rsi float64) float64 { return clamp(math.Abs(rsi-50)/5, 0, 10) }

func volumeRisk(vcp float64) float64 { return clamp(math.Abs(vcp)/10, 0, 10) }

func debtRisk(dte float64) float64 { return clamp(dte/100, 0, 10) }

// epsRisk maps earnings per share non-linearly: losses score high risk fast,
// strong positive earnings decay toward low risk on a square-root curve.
func epsRisk(eps float64) float64 {
	if eps < 0 {
		return clamp(7+math.Min(3, math.Abs(eps)/2), 0, 10)
	}
	return clamp(5-math.Min(5, math.Sqrt(eps)), 0, 10)
}

// riskLabel buckets a 0-10 score into the stability vocabulary.
func riskLabel(score float64) string {
	switch {
	case score >= 8:
		return models.StabilityHighRisk
	case score >= 6:
		return models.StabilityModerateRisk
	case score >= 4:
		return models.StabilitySlightRisk
	case score >= 2:
		return models.StabilityStable
	default:
		return models.StabilityVeryStable
	}
}

// explain attaches the label and a narrative explanation. The oracle path is
// optional and falls back to the deterministic table on any failure.
func (q *QuantScorer) explain(ctx context.Context, ticker string, m *models.QuantMetrics) {
	m.Label = riskLabel(m.QuantRiskScore)
	m.Explanation = deterministicExplanation(m)

	if q.oracle == nil {
		return
	}

	prompt := buildQuantExplanationPrompt(ticker, m)
	response, err := q.oracle.GenerateContent(ctx, prompt)
	if err != nil || strings.TrimSpace(response) == "" {
		q.logger.Debug().Str("ticker", ticker).Err(err).Msg("Oracle explanation failed, using bucket table")
		return
	}
	m.Explanation = strings.TrimSpace(response)
}

func deterministicExplanation(m *models.QuantMetrics) string {
	return fmt.Sprintf("Quantitative risk %.1f/10 (%s) across %s", m.QuantRiskScore, m.Label, describeInputs(m))
}

func describeInputs(m *models.QuantMetrics) string {
	var parts []string
	if m.Volatility != nil {
		parts = append(parts, fmt.Sprintf("volatility %.1f%%", *m.Volatility))
	}
	if m.Beta != nil {
		parts = append(parts, fmt.Sprintf("beta %.2f", *m.Beta))
	}
	if m.RSI != nil {
		parts = append(parts, fmt.Sprintf("RSI %.0f", *m.RSI))
	}
	if m.DebtToEquity != nil {
		parts = append(parts, fmt.Sprintf("D/E %.0f", *m.DebtToEquity))
	}
	if m.EPS != nil {
		parts = append(parts, fmt.Sprintf("EPS %.2f", *m.EPS))
	}
	if len(parts) == 0 {
		return "no available inputs (neutral default)"
	}
	return strings.Join(parts, ", ")
}

func buildQuantExplanationPrompt(ticker string, m *models.QuantMetrics) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are a risk analyst. Explain in 2-3 sentences, for %s, a quantitative risk score of %.1f/10 given: %s.\n", ticker, m.QuantRiskScore, describeInputs(m)))
	sb.WriteString("Plain text only, no markdown, no preamble.")
	return sb.String()
}
