package app

import (
	"context"
	"time"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
)

// startRiskScheduler re-scores every tracked asset on a fixed interval so
// cached component scores stay inside their freshness windows.
func startRiskScheduler(ctx context.Context, riskService interfaces.RiskService, logger *common.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Risk scheduler: stopped")
			return
		case <-ticker.C:
			refreshRiskScores(ctx, riskService, logger)
		}
	}
}

func refreshRiskScores(ctx context.Context, riskService interfaces.RiskService, logger *common.Logger) {
	start := time.Now()

	result, err := riskService.UpdateAllRiskScores(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Risk refresh: batch update failed")
		return
	}

	logger.Info().
		Str("run_id", result.RunID).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("Risk refresh: complete")
}
