package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/models"
)

// BatchNotifier receives progress events during a batch re-score. The
// websocket hub implements it; tests use a recording stub.
type BatchNotifier interface {
	Publish(event models.BatchEvent)
}

// Service implements interfaces.RiskService by wiring the four component
// scorers over shared storage and market data clients.
type Service struct {
	storage   interfaces.StorageManager
	market    interfaces.MarketDataClient
	anomaly   *AnomalyDetector
	quant     *QuantScorer
	esg       *EsgScorer
	sentiment *SentimentScorer
	shallow   *ShallowScorer

	notifier     BatchNotifier
	streamDelay  time.Duration
	lookbackDays int
	logger       *common.Logger
}

// ServiceOption configures the service
type ServiceOption func(*Service)

// WithBatchNotifier sets the batch progress notifier
func WithBatchNotifier(n BatchNotifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithStreamDelay sets the inter-frame delay on the streaming path
func WithStreamDelay(d time.Duration) ServiceOption {
	return func(s *Service) { s.streamDelay = d }
}

// WithDefaultLookback sets the default history window in days
func WithDefaultLookback(days int) ServiceOption {
	return func(s *Service) {
		if days > 0 {
			s.lookbackDays = days
		}
	}
}

// NewService creates a new risk service. The oracle may be nil, which
// disables sentiment generation (cached reports are still served) and
// narrative quant explanations.
func NewService(
	storage interfaces.StorageManager,
	market interfaces.MarketDataClient,
	oracle interfaces.OracleClient,
	benchmarkTicker string,
	logger *common.Logger,
	opts ...ServiceOption,
) *Service {
	cache := storage.ComponentCacheStore()

	s := &Service{
		storage:      storage,
		market:       market,
		anomaly:      NewAnomalyDetector(),
		quant:        NewQuantScorer(market, cache, oracle, benchmarkTicker, logger),
		esg:          NewEsgScorer(market, logger),
		sentiment:    NewSentimentScorer(market, oracle, cache, logger),
		shallow:      NewShallowScorer(market, storage.AssetStore(), logger),
		streamDelay:  100 * time.Millisecond,
		lookbackDays: 90,
		logger:       logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// resolveAsset is the single hard-failure gate: an unknown ticker aborts
// before any component runs.
func (s *Service) resolveAsset(ctx context.Context, ticker string) (*models.Asset, error) {
	asset, err := s.storage.AssetStore().GetByTicker(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("resolve asset '%s': %w", ticker, err)
	}
	return asset, nil
}

func (s *Service) lookback(opts interfaces.ReportOptions) int {
	if opts.LookbackDays > 0 {
		return opts.LookbackDays
	}
	return s.lookbackDays
}

// GenerateRiskReport runs the full four-component pipeline. The components
// are independent and run concurrently; each degrades to its neutral default
// on failure, so a report is always produced for a known asset.
func (s *Service) GenerateRiskReport(ctx context.Context, ticker string, opts interfaces.ReportOptions) (*models.OverallRiskReport, error) {
	asset, err := s.resolveAsset(ctx, ticker)
	if err != nil {
		return nil, err
	}

	lookback := s.lookback(opts)
	s.logger.Info().Str("ticker", ticker).Int("lookback_days", lookback).Msg("Generating risk report")

	var (
		wg              sync.WaitGroup
		sentimentReport *models.SentimentReport
		quantMetrics    *models.QuantMetrics
		anomalyReport   *models.AnomalyReport
		esgReport       *models.EsgReport
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		report, err := s.sentiment.Score(ctx, asset, opts.PreferNewest)
		if err != nil {
			s.logger.Warn().Str("ticker", ticker).Err(err).Msg("Sentiment unavailable, aggregating without it")
			return
		}
		sentimentReport = report
	}()
	go func() {
		defer wg.Done()
		quantMetrics = s.quant.Score(ctx, asset, lookback, opts.PreferNewest)
	}()
	go func() {
		defer wg.Done()
		anomalyReport = s.detectAnomalies(ctx, ticker, lookback)
	}()
	go func() {
		defer wg.Done()
		esgReport = s.esg.Score(ctx, ticker)
	}()
	wg.Wait()

	report := Aggregate(ticker, sentimentReport, quantMetrics, anomalyReport, esgReport)

	if err := s.storage.AssetStore().UpdateRisk(ctx, asset.ID, report.OverallRiskScore, report.GeneratedAt); err != nil {
		// cache write is best-effort; the report still goes back to the caller
		s.logger.Warn().Str("ticker", ticker).Err(err).Msg("Failed to persist overall risk score")
	}

	s.logger.Info().
		Str("ticker", ticker).
		Float64("score", report.OverallRiskScore).
		Str("level", report.RiskLevel).
		Msg("Risk report generated")

	return report, nil
}

// detectAnomalies fetches history and runs the detector. Any fetch failure
// yields the empty report.
func (s *Service) detectAnomalies(ctx context.Context, ticker string, lookbackDays int) *models.AnomalyReport {
	now := time.Now()
	from := now.AddDate(0, 0, -lookbackDays)

	bars, err := s.market.GetEOD(ctx, ticker, interfaces.WithDateRange(from, now))
	if err != nil {
		s.logger.Warn().Str("ticker", ticker).Err(err).Msg("Failed to fetch history for anomaly detection")
		return s.anomaly.Detect(nil)
	}
	return s.anomaly.Detect(bars)
}

// ShallowRisk computes the fundamentals-only fast-path score
func (s *Service) ShallowRisk(ctx context.Context, ticker string) (*models.ShallowRisk, error) {
	asset, err := s.resolveAsset(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return s.shallow.Score(ctx, asset)
}

// UpdateAllRiskScores re-runs the full pipeline for every tracked asset.
// Each asset is isolated: a failure is recorded and the batch continues.
func (s *Service) UpdateAllRiskScores(ctx context.Context) (*models.BatchResult, error) {
	assets, err := s.storage.AssetStore().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}

	result := &models.BatchResult{
		RunID:     uuid.NewString(),
		Total:     len(assets),
		StartedAt: time.Now(),
	}

	s.publish(models.BatchEvent{RunID: result.RunID, Status: models.BatchEventStarted, Timestamp: time.Now()})
	s.logger.Info().Str("run_id", result.RunID).Int("assets", len(assets)).Msg("Batch risk update started")

	for _, asset := range assets {
		report, err := s.updateOne(ctx, asset.Ticker)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, models.BatchFailure{Ticker: asset.Ticker, Error: err.Error()})
			s.publish(models.BatchEvent{RunID: result.RunID, Status: models.BatchEventFailed, Ticker: asset.Ticker, Error: err.Error(), Timestamp: time.Now()})
			s.logger.Warn().Str("ticker", asset.Ticker).Err(err).Msg("Batch risk update failed for asset (continuing)")
			continue
		}
		result.Succeeded++
		s.publish(models.BatchEvent{RunID: result.RunID, Status: models.BatchEventCompleted, Ticker: asset.Ticker, Score: report.OverallRiskScore, Timestamp: time.Now()})
	}

	result.Duration = time.Since(result.StartedAt)
	s.publish(models.BatchEvent{RunID: result.RunID, Status: models.BatchEventDone, Timestamp: time.Now()})

	s.logger.Info().
		Str("run_id", result.RunID).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Batch risk update finished")

	return result, nil
}

// updateOne wraps a single batch iteration so a panicking component cannot
// halt the batch.
func (s *Service) updateOne(ctx context.Context, ticker string) (report *models.OverallRiskReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during risk update: %v", r)
		}
	}()
	return s.GenerateRiskReport(ctx, ticker, interfaces.ReportOptions{})
}

func (s *Service) publish(event models.BatchEvent) {
	if s.notifier != nil {
		s.notifier.Publish(event)
	}
}

// Ensure Service implements RiskService
var _ interfaces.RiskService = (*Service)(nil)
