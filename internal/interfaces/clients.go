// Package interfaces defines service contracts for Argus
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/argus/internal/models"
)

// MarketDataClient provides access to the upstream market data API
type MarketDataClient interface {
	// GetEOD retrieves end-of-day price data, most recent bar first
	GetEOD(ctx context.Context, ticker string, opts ...EODOption) ([]models.EODBar, error)

	// GetFundamentals retrieves fundamental data
	GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error)

	// GetESG retrieves ESG scores
	GetESG(ctx context.Context, ticker string) (*models.ESGScores, error)

	// GetNews retrieves recent news for a ticker
	GetNews(ctx context.Context, ticker string, limit int) ([]*models.NewsItem, error)
}

// EODOption configures EOD data requests
type EODOption func(*EODParams)

// EODParams holds EOD query parameters
type EODParams struct {
	From time.Time
	To   time.Time
}

// WithDateRange sets the date range for EOD query
func WithDateRange(from, to time.Time) EODOption {
	return func(p *EODParams) {
		p.From = from
		p.To = to
	}
}

// OracleClient turns a text prompt into a raw text judgment. The transport is
// schema-free; callers validate the response shape.
type OracleClient interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}
