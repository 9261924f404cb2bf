package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/models"
)

// StreamRiskReport emits the report as an ordered frame sequence:
// news_articles, news_sentiment, quantitative_risk, esg_risk, anomaly_risk,
// overall_risk, complete. Each section is computed independently; a failing
// section becomes a section_error frame and the stream continues. The
// terminal complete frame is always emitted.
func (s *Service) StreamRiskReport(ctx context.Context, ticker string, opts interfaces.ReportOptions) (<-chan models.StreamFrame, error) {
	asset, err := s.resolveAsset(ctx, ticker)
	if err != nil {
		return nil, err
	}

	frames := make(chan models.StreamFrame, 16)
	go s.runStream(ctx, asset, opts, frames)
	return frames, nil
}

func (s *Service) runStream(ctx context.Context, asset *models.Asset, opts interfaces.ReportOptions, frames chan<- models.StreamFrame) {
	defer close(frames)

	lookback := s.lookback(opts)

	emit := func(frame models.StreamFrame) {
		frames <- frame
		// presentation pacing so a consumer can render incrementally
		if s.streamDelay > 0 && frame.Type != models.FrameComplete {
			time.Sleep(s.streamDelay)
		}
	}

	var (
		sentimentReport *models.SentimentReport
		quantMetrics    *models.QuantMetrics
		anomalyReport   *models.AnomalyReport
		esgReport       *models.EsgReport
	)

	// news_articles
	news, err := s.market.GetNews(ctx, asset.Ticker, defaultMaxArticles)
	if err != nil {
		s.logger.Warn().Str("ticker", asset.Ticker).Err(err).Msg("Stream: news fetch failed")
		emit(sectionError(models.FrameNewsArticles, err))
	} else {
		emit(models.StreamFrame{Type: models.FrameNewsArticles, Data: news})
	}

	// news_sentiment
	if report, err := s.sentiment.Score(ctx, asset, opts.PreferNewest); err != nil {
		s.logger.Warn().Str("ticker", asset.Ticker).Err(err).Msg("Stream: sentiment failed")
		emit(sectionError(models.FrameSentiment, err))
	} else {
		sentimentReport = report
		emit(models.StreamFrame{Type: models.FrameSentiment, Data: report})
	}

	// quantitative_risk
	if metrics := s.streamQuant(ctx, asset, lookback, opts.PreferNewest); metrics != nil {
		quantMetrics = metrics
		emit(models.StreamFrame{Type: models.FrameQuant, Data: metrics})
	} else {
		emit(sectionError(models.FrameQuant, fmt.Errorf("quantitative scoring failed")))
	}

	// esg_risk
	esgReport = s.esg.Score(ctx, asset.Ticker)
	emit(models.StreamFrame{Type: models.FrameESG, Data: esgReport})

	// anomaly_risk
	anomalyReport = s.detectAnomalies(ctx, asset.Ticker, lookback)
	emit(models.StreamFrame{Type: models.FrameAnomaly, Data: anomalyReport})

	// Aggregation works over whatever sections succeeded.
	report := Aggregate(asset.Ticker, sentimentReport, quantMetrics, anomalyReport, esgReport)
	if err := s.storage.AssetStore().UpdateRisk(ctx, asset.ID, report.OverallRiskScore, report.GeneratedAt); err != nil {
		s.logger.Warn().Str("ticker", asset.Ticker).Err(err).Msg("Stream: failed to persist overall risk score")
	}
	emit(models.StreamFrame{Type: models.FrameOverall, Data: report})

	emit(models.StreamFrame{Type: models.FrameComplete})
}

// streamQuant isolates the quant section; a panic inside scoring becomes a
// section error instead of killing the stream goroutine.
func (s *Service) streamQuant(ctx context.Context, asset *models.Asset, lookback int, preferNewest bool) (metrics *models.QuantMetrics) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("ticker", asset.Ticker).Interface("panic", r).Msg("Stream: quant scoring panicked")
			metrics = nil
		}
	}()
	return s.quant.Score(ctx, asset, lookback, preferNewest)
}

func sectionError(section string, err error) models.StreamFrame {
	return models.StreamFrame{
		Type:    models.FrameSectionError,
		Section: section,
		Message: err.Error(),
	}
}
