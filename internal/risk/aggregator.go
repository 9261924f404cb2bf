package risk

import (
	"math"
	"time"

	"github.com/bobmcallan/argus/internal/models"
)

// Aggregation weights. These are fixed by design and sum to 1.0.
const (
	WeightSentiment = 0.30
	WeightQuant     = 0.35
	WeightAnomaly   = 0.20
	WeightESG       = 0.15
)

// Risk level boundaries: >=7 High, [4,7) Medium, <4 Low.
const (
	highRiskThreshold   = 7.0
	mediumRiskThreshold = 4.0
)

// Aggregate combines the four component scores into an overall report. The
// anomaly component contributes its raw score, not a derived sub-score.
func Aggregate(ticker string, sentiment *models.SentimentReport, quant *models.QuantMetrics, anomaly *models.AnomalyReport, esg *models.EsgReport) *models.OverallRiskReport {
	sentimentScore := neutralScore
	if sentiment != nil {
		sentimentScore = sentiment.RiskScore
	}
	quantScore := neutralScore
	if quant != nil {
		quantScore = quant.QuantRiskScore
	}
	anomalyScore := 0.0
	if anomaly != nil {
		anomalyScore = anomaly.AnomalyScore
	}
	esgScore := neutralScore
	if esg != nil {
		esgScore = esg.EsgRiskScore
	}

	overall := WeightSentiment*sentimentScore +
		WeightQuant*quantScore +
		WeightAnomaly*anomalyScore +
		WeightESG*esgScore
	overall = round2(clamp(overall, 0, 10))

	return &models.OverallRiskReport{
		Ticker:           ticker,
		OverallRiskScore: overall,
		RiskLevel:        RiskLevel(overall),
		Components: map[string]models.ComponentScore{
			models.ComponentSentiment: {Weight: WeightSentiment, Score: sentimentScore},
			models.ComponentQuant:     {Weight: WeightQuant, Score: quantScore},
			models.ComponentAnomaly:   {Weight: WeightAnomaly, Score: anomalyScore},
			models.ComponentESG:       {Weight: WeightESG, Score: esgScore},
		},
		Sentiment:   sentiment,
		Quant:       quant,
		Anomaly:     anomaly,
		ESG:         esg,
		GeneratedAt: time.Now(),
	}
}

// RiskLevel buckets an overall score into Low/Medium/High.
func RiskLevel(score float64) string {
	switch {
	case score >= highRiskThreshold:
		return models.RiskLevelHigh
	case score >= mediumRiskThreshold:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
