// Package interfaces defines service contracts for Argus
package interfaces

import (
	"context"

	"github.com/bobmcallan/argus/internal/models"
)

// ReportOptions configures a risk report run
type ReportOptions struct {
	LookbackDays int
	PreferNewest bool // bypass component caches and regenerate
}

// RiskService generates multi-factor risk reports
type RiskService interface {
	// GenerateRiskReport runs the full four-component pipeline and persists
	// the overall score onto the asset.
	GenerateRiskReport(ctx context.Context, ticker string, opts ReportOptions) (*models.OverallRiskReport, error)

	// StreamRiskReport emits the report as an ordered frame sequence. The
	// returned channel is closed after the terminal "complete" frame.
	StreamRiskReport(ctx context.Context, ticker string, opts ReportOptions) (<-chan models.StreamFrame, error)

	// ShallowRisk computes the fundamentals-only fast-path score
	ShallowRisk(ctx context.Context, ticker string) (*models.ShallowRisk, error)

	// UpdateAllRiskScores re-runs the full pipeline for every tracked asset,
	// isolating per-asset failures.
	UpdateAllRiskScores(ctx context.Context) (*models.BatchResult, error)

	// RenderAnomalyChart renders the anomaly-annotated close series as a PNG
	RenderAnomalyChart(ctx context.Context, ticker string, lookbackDays int) ([]byte, error)
}
