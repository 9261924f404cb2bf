package models

import (
	"encoding/json"
	"time"
)

// Asset is a tracked financial instrument. Lifecycle is owned elsewhere;
// Argus only reads it and writes the risk fields back.
type Asset struct {
	ID               string    `json:"id" badgerhold:"key"`
	Ticker           string    `json:"ticker" badgerhold:"unique"`
	Name             string    `json:"name,omitempty"`
	Exchange         string    `json:"exchange,omitempty"`
	RiskScore        float64   `json:"risk_score"`
	RiskUpdatedAt    time.Time `json:"risk_updated_at"`
	ShallowScore     float64   `json:"shallow_score"`
	ShallowLevel     string    `json:"shallow_level,omitempty"`
	ShallowUpdatedAt time.Time `json:"shallow_updated_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// Component kinds for the per-(asset, component) cache.
const (
	ComponentQuant     = "quantitative"
	ComponentSentiment = "sentiment"
	ComponentAnomaly   = "anomaly"
	ComponentESG       = "esg"
)

// ComponentCacheEntry holds a component's last computed payload.
// Last-write-wins per key; recomputation is idempotent so no locking is needed.
type ComponentCacheEntry struct {
	Key       string          `json:"key" badgerhold:"key"` // asset_id + "/" + component
	AssetID   string          `json:"asset_id"`
	Component string          `json:"component"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CacheKey builds the storage key for a (asset, component) pair.
func CacheKey(assetID, component string) string {
	return assetID + "/" + component
}

// QuantMetrics holds derived quantitative metrics and their risk sub-scores.
// Raw metrics are nil when the underlying input was unavailable; the matching
// sub-score then carries the neutral default and is excluded from the mean.
type QuantMetrics struct {
	Volatility      *float64 `json:"volatility,omitempty"`
	Beta            *float64 `json:"beta,omitempty"`
	RSI             *float64 `json:"rsi,omitempty"`
	VolumeChangePct *float64 `json:"volume_change_percent,omitempty"`
	DebtToEquity    *float64 `json:"debt_to_equity,omitempty"`
	EPS             *float64 `json:"eps,omitempty"`

	VolatilityScore float64 `json:"volatility_score"`
	BetaScore       float64 `json:"beta_score"`
	RSIRisk         float64 `json:"rsi_risk"`
	VolumeRisk      float64 `json:"volume_risk"`
	DebtRisk        float64 `json:"debt_risk"`
	EPSRisk         float64 `json:"eps_risk"`

	QuantRiskScore float64   `json:"quant_risk_score"`
	Label          string    `json:"label,omitempty"`
	Explanation    string    `json:"explanation,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Anomaly flag types
const (
	AnomalyPriceGap       = "Price Gap"
	AnomalyVolumeSpike    = "Volume Spike"
	AnomalyBearishPattern = "Bearish Pattern"
)

// AnomalyFlag marks one detected outlier or pattern
type AnomalyFlag struct {
	Type        string    `json:"type"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Severity    float64   `json:"severity"` // 0-10
}

// PricePoint is a chart-friendly slice of an EOD bar
type PricePoint struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// AnomalyReport holds statistical outlier detection results
type AnomalyReport struct {
	Flags        []AnomalyFlag `json:"flags"`
	AnomalyScore float64       `json:"anomaly_score"` // 0-10
	Series       []PricePoint  `json:"series,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// EsgReport maps ESG provider scores to a risk score
type EsgReport struct {
	TotalESG      *float64  `json:"total_esg,omitempty"`
	Environmental *float64  `json:"environmental_score,omitempty"`
	Social        *float64  `json:"social_score,omitempty"`
	Governance    *float64  `json:"governance_score,omitempty"`
	EsgRiskScore  float64   `json:"esg_risk_score"` // 0-10
	UpdatedAt     time.Time `json:"updated_at"`
}

// Stability labels, ordered from worst to best
const (
	StabilityHighRisk     = "High Risk"
	StabilityModerateRisk = "Moderate Risk"
	StabilitySlightRisk   = "Slight Risk"
	StabilityStable       = "Stable"
	StabilityVeryStable   = "Very Stable"
)

// Customer suitability categories
const (
	SuitabilityUnsuitable        = "Unsuitable"
	SuitabilityCautiousInclusion = "Cautious Inclusion"
	SuitabilitySuitable          = "Suitable"
)

// Suggested action categories
const (
	ActionMonitor        = "Monitor"
	ActionFlagForReview  = "Flag for Review"
	ActionReview         = "Review"
	ActionFlagForRemoval = "Flag for Removal"
	ActionImmediate      = "Immediate Action Required"
)

// KeyRisks categorizes qualitative risks extracted from news
type KeyRisks struct {
	Legal        []string `json:"legal_risks"`
	Financial    []string `json:"financial_risks"`
	Operational  []string `json:"operational_risks"`
	Regulatory   []string `json:"regulatory_risks"`
	Market       []string `json:"market_risks"`
	Reputational []string `json:"reputational_risks"`
}

// SentimentReport holds the oracle's qualitative judgment of recent news.
// A fallback-degraded report still satisfies this shape so downstream code
// never special-cases oracle failures.
type SentimentReport struct {
	StabilityScore      float64   `json:"stability_score"` // 0-10
	StabilityLabel      string    `json:"stability_label"`
	KeyRisks            KeyRisks  `json:"key_risks"`
	SecurityAssessment  string    `json:"security_assessment"`
	CustomerSuitability string    `json:"customer_suitability"`
	SuggestedAction     string    `json:"suggested_action"`
	RiskRationale       []string  `json:"risk_rationale"`
	NewsHighlights      []string  `json:"news_highlights,omitempty"`
	RiskScore           float64   `json:"risk_score"` // 0-10
	ErrorDetails        string    `json:"error_details,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Risk levels for the overall report
const (
	RiskLevelLow    = "Low"
	RiskLevelMedium = "Medium"
	RiskLevelHigh   = "High"
)

// ComponentScore is one weighted contribution to the overall score
type ComponentScore struct {
	Weight float64 `json:"weight"`
	Score  float64 `json:"score"`
}

// OverallRiskReport combines the four component scores
type OverallRiskReport struct {
	Ticker           string                    `json:"ticker"`
	OverallRiskScore float64                   `json:"overall_risk_score"` // 0-10, 2dp
	RiskLevel        string                    `json:"risk_level"`
	Components       map[string]ComponentScore `json:"components"`
	Sentiment        *SentimentReport          `json:"sentiment,omitempty"`
	Quant            *QuantMetrics             `json:"quantitative,omitempty"`
	Anomaly          *AnomalyReport            `json:"anomaly,omitempty"`
	ESG              *EsgReport                `json:"esg,omitempty"`
	GeneratedAt      time.Time                 `json:"generated_at"`
}

// ShallowRisk is the fundamentals-only fast-path result
type ShallowRisk struct {
	Score            float64   `json:"risk_score"` // 0-10
	Level            string    `json:"level"`
	AvailableMetrics int       `json:"available_metrics"`
	WasUpdated       bool      `json:"was_updated"` // false on cache hit
	UpdatedAt        time.Time `json:"updated_at"`
}

// Stream frame types, emitted in this order on the streaming path
const (
	FrameNewsArticles = "news_articles"
	FrameSentiment    = "news_sentiment"
	FrameQuant        = "quantitative_risk"
	FrameESG          = "esg_risk"
	FrameAnomaly      = "anomaly_risk"
	FrameOverall      = "overall_risk"
	FrameSectionError = "section_error"
	FrameComplete     = "complete"
)

// StreamFrame is one tagged frame of an incremental risk report
type StreamFrame struct {
	Type    string `json:"type"`
	Section string `json:"section,omitempty"` // set on section_error frames
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// BatchFailure records one asset that failed during a batch re-score
type BatchFailure struct {
	Ticker string `json:"ticker"`
	Error  string `json:"error"`
}

// BatchResult summarises an update-all-risk-scores run
type BatchResult struct {
	RunID     string         `json:"run_id"`
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Failures  []BatchFailure `json:"failures,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
}

// Batch event statuses
const (
	BatchEventStarted   = "started"
	BatchEventCompleted = "completed"
	BatchEventFailed    = "failed"
	BatchEventDone      = "done"
)

// BatchEvent is broadcast over the websocket hub as a batch run progresses
type BatchEvent struct {
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	Ticker    string    `json:"ticker,omitempty"`
	Score     float64   `json:"score,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
