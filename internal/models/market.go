// Package models defines data structures for Argus
package models

import (
	"time"
)

// EODBar represents a single day's price data
type EODBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjusted_close"`
	Volume   int64     `json:"volume"`
}

// Fundamentals contains fundamental data for an instrument. Fields the
// provider could not supply are nil, never zero; scorers treat missing and
// zero differently.
type Fundamentals struct {
	Ticker       string    `json:"ticker"`
	Name         string    `json:"name,omitempty"`
	Sector       string    `json:"sector,omitempty"`
	Industry     string    `json:"industry,omitempty"`
	MarketCap    *float64  `json:"market_cap,omitempty"`
	PE           *float64  `json:"pe_ratio,omitempty"`
	EPS          *float64  `json:"eps,omitempty"`
	Beta         *float64  `json:"beta,omitempty"`
	DebtToEquity *float64  `json:"debt_to_equity,omitempty"`
	High52Week   *float64  `json:"high_52_week,omitempty"`
	Low52Week    *float64  `json:"low_52_week,omitempty"`
	LastUpdated  time.Time `json:"last_updated"`
}

// ESGScores contains the raw ESG table from the provider
type ESGScores struct {
	Ticker          string   `json:"ticker"`
	TotalESG        *float64 `json:"total_esg,omitempty"`
	Environmental   *float64 `json:"environmental_score,omitempty"`
	Social          *float64 `json:"social_score,omitempty"`
	Governance      *float64 `json:"governance_score,omitempty"`
	RatingYear      int      `json:"rating_year,omitempty"`
	ControversyFlag bool     `json:"controversy_flag,omitempty"`
}

// NewsItem represents a news article
type NewsItem struct {
	Title           string    `json:"title"`
	Summary         string    `json:"summary,omitempty"`
	URL             string    `json:"url,omitempty"`
	Source          string    `json:"source"`
	PublishedAt     time.Time `json:"published_at"`
	RelatedArticles []string  `json:"related_articles,omitempty"`
}
