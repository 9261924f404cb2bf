package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/argus/internal/models"
)

func TestAggregateWeightedFormula(t *testing.T) {
	report := Aggregate("AAPL.US",
		&models.SentimentReport{RiskScore: 4},
		&models.QuantMetrics{QuantRiskScore: 6},
		&models.AnomalyReport{AnomalyScore: 2},
		&models.EsgReport{EsgRiskScore: 8},
	)

	// 0.30*4 + 0.35*6 + 0.20*2 + 0.15*8 = 4.9
	assert.InDelta(t, 4.9, report.OverallRiskScore, 0.001)
	assert.Equal(t, models.RiskLevelMedium, report.RiskLevel)

	assert.InDelta(t, 0.30, report.Components[models.ComponentSentiment].Weight, 0.001)
	assert.InDelta(t, 6.0, report.Components[models.ComponentQuant].Score, 0.001)
}

func TestAggregateMissingComponents(t *testing.T) {
	t.Run("nil sentiment defaults to neutral", func(t *testing.T) {
		report := Aggregate("X", nil,
			&models.QuantMetrics{QuantRiskScore: 5},
			&models.AnomalyReport{AnomalyScore: 0},
			&models.EsgReport{EsgRiskScore: 5},
		)
		assert.InDelta(t, 5.0, report.Components[models.ComponentSentiment].Score, 0.001)
	})

	t.Run("nil anomaly defaults to zero, not neutral", func(t *testing.T) {
		report := Aggregate("X", nil, nil, nil, nil)
		assert.InDelta(t, 0.0, report.Components[models.ComponentAnomaly].Score, 0.001)
		// 0.30*5 + 0.35*5 + 0.20*0 + 0.15*5 = 4.0
		assert.InDelta(t, 4.0, report.OverallRiskScore, 0.001)
		assert.Equal(t, models.RiskLevelMedium, report.RiskLevel)
	})
}

func TestAggregateWeightsSumToOne(t *testing.T) {
	assert.InDelta(t, 1.0, WeightSentiment+WeightQuant+WeightAnomaly+WeightESG, 1e-9)
}

func TestAggregateBoundsProperty(t *testing.T) {
	// With every component at its extreme, the overall score stays in [0, 10].
	low := Aggregate("X",
		&models.SentimentReport{RiskScore: 0},
		&models.QuantMetrics{QuantRiskScore: 0},
		&models.AnomalyReport{AnomalyScore: 0},
		&models.EsgReport{EsgRiskScore: 0},
	)
	assert.InDelta(t, 0.0, low.OverallRiskScore, 0.001)
	assert.Equal(t, models.RiskLevelLow, low.RiskLevel)

	high := Aggregate("X",
		&models.SentimentReport{RiskScore: 10},
		&models.QuantMetrics{QuantRiskScore: 10},
		&models.AnomalyReport{AnomalyScore: 10},
		&models.EsgReport{EsgRiskScore: 10},
	)
	assert.InDelta(t, 10.0, high.OverallRiskScore, 0.001)
	assert.Equal(t, models.RiskLevelHigh, high.RiskLevel)
}

func TestRiskLevelBoundaries(t *testing.T) {
	tests := []struct {
		score    float64
		expected string
	}{
		{0, models.RiskLevelLow},
		{3.99, models.RiskLevelLow},
		{4.00, models.RiskLevelMedium},
		{6.99, models.RiskLevelMedium},
		{7.00, models.RiskLevelHigh},
		{10, models.RiskLevelHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, RiskLevel(tt.score), "score %.2f", tt.score)
	}
}

func TestAggregateEmbedsComponentReports(t *testing.T) {
	sentiment := &models.SentimentReport{RiskScore: 3}
	anomaly := &models.AnomalyReport{AnomalyScore: 1}

	report := Aggregate("AAPL.US", sentiment, nil, anomaly, nil)

	assert.Same(t, sentiment, report.Sentiment)
	assert.Same(t, anomaly, report.Anomaly)
	assert.Nil(t, report.Quant)
	assert.Equal(t, "AAPL.US", report.Ticker)
	assert.False(t, report.GeneratedAt.IsZero())
}
