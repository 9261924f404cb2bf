package risk

import (
	"context"
	"time"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/models"
)

// EsgScorer maps provider ESG scores onto the 0-10 risk scale. Freshness is
// the upstream provider's concern; there is no extra caching here.
type EsgScorer struct {
	market interfaces.MarketDataClient
	logger *common.Logger
}

// NewEsgScorer creates a new ESG scorer
func NewEsgScorer(market interfaces.MarketDataClient, logger *common.Logger) *EsgScorer {
	return &EsgScorer{market: market, logger: logger}
}

// Score fetches ESG data and maps it to a risk score. A missing total or any
// provider failure yields the neutral 5.0.
func (e *EsgScorer) Score(ctx context.Context, ticker string) *models.EsgReport {
	report := &models.EsgReport{
		EsgRiskScore: neutralScore,
		UpdatedAt:    time.Now(),
	}

	scores, err := e.market.GetESG(ctx, ticker)
	if err != nil {
		e.logger.Warn().Str("ticker", ticker).Err(err).Msg("Failed to fetch ESG scores, using neutral default")
		return report
	}
	if scores == nil || scores.TotalESG == nil {
		return report
	}

	report.TotalESG = scores.TotalESG
	report.Environmental = scores.Environmental
	report.Social = scores.Social
	report.Governance = scores.Governance

	// Higher ESG quality means lower risk
	report.EsgRiskScore = clamp(10-*scores.TotalESG/10, 0, 10)

	return report
}
