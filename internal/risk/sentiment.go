package risk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/models"
)

// ErrSentimentUnavailable means the oracle is disabled and no cached report
// exists. Distinct from the no-articles neutral default.
var ErrSentimentUnavailable = errors.New("sentiment unavailable: oracle disabled and no cached report")

const defaultMaxArticles = 10

var validStabilityLabels = map[string]bool{
	models.StabilityHighRisk:     true,
	models.StabilityModerateRisk: true,
	models.StabilitySlightRisk:   true,
	models.StabilityStable:       true,
	models.StabilityVeryStable:   true,
}

var validSuitabilities = map[string]bool{
	models.SuitabilityUnsuitable:        true,
	models.SuitabilityCautiousInclusion: true,
	models.SuitabilitySuitable:          true,
}

var validActions = map[string]bool{
	models.ActionMonitor:        true,
	models.ActionFlagForReview:  true,
	models.ActionReview:         true,
	models.ActionFlagForRemoval: true,
	models.ActionImmediate:      true,
}

// SentimentScorer formats recent news for the oracle, validates the oracle's
// structured judgment, and degrades to a schema-valid fallback on any oracle
// or parse failure. Valid and fallback reports are both cached for 6 hours.
type SentimentScorer struct {
	market      interfaces.MarketDataClient
	oracle      interfaces.OracleClient // nil means the oracle is disabled
	cache       interfaces.ComponentCacheStore
	maxArticles int
	logger      *common.Logger
}

// NewSentimentScorer creates a new sentiment scorer
func NewSentimentScorer(market interfaces.MarketDataClient, oracle interfaces.OracleClient, cache interfaces.ComponentCacheStore, logger *common.Logger) *SentimentScorer {
	return &SentimentScorer{
		market:      market,
		oracle:      oracle,
		cache:       cache,
		maxArticles: defaultMaxArticles,
		logger:      logger,
	}
}

// Score returns the sentiment report for the asset. A cached report younger
// than 6 hours is reused unless preferNewest forces regeneration.
func (s *SentimentScorer) Score(ctx context.Context, asset *models.Asset, preferNewest bool) (*models.SentimentReport, error) {
	cached := s.cachedReport(ctx, asset.ID)

	if s.oracle == nil {
		// Disabled oracle: a cached report of any age is the only answer.
		if cached != nil {
			return cached, nil
		}
		return nil, ErrSentimentUnavailable
	}

	if !preferNewest && cached != nil && common.IsFresh(cached.UpdatedAt, common.FreshnessSentiment) {
		return cached, nil
	}

	report := s.generate(ctx, asset.Ticker)
	s.saveCache(ctx, asset.ID, report)
	return report, nil
}

func (s *SentimentScorer) cachedReport(ctx context.Context, assetID string) *models.SentimentReport {
	if s.cache == nil {
		return nil
	}
	entry, err := s.cache.Get(ctx, assetID, models.ComponentSentiment)
	if err != nil {
		return nil
	}
	var report models.SentimentReport
	if err := json.Unmarshal(entry.Payload, &report); err != nil {
		return nil
	}
	return &report
}

func (s *SentimentScorer) saveCache(ctx context.Context, assetID string, report *models.SentimentReport) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(report)
	if err == nil {
		err = s.cache.Put(ctx, &models.ComponentCacheEntry{
			AssetID:   assetID,
			Component: models.ComponentSentiment,
			Payload:   payload,
			UpdatedAt: report.UpdatedAt,
		})
	}
	if err != nil {
		s.logger.Warn().Str("asset", assetID).Err(err).Msg("Failed to cache sentiment report")
	}
}

// generate fetches news and consults the oracle. Every failure path returns
// a schema-valid report; nothing propagates.
func (s *SentimentScorer) generate(ctx context.Context, ticker string) *models.SentimentReport {
	news, err := s.market.GetNews(ctx, ticker, s.maxArticles)
	if err != nil {
		s.logger.Warn().Str("ticker", ticker).Err(err).Msg("Failed to fetch news, using neutral sentiment")
		return neutralSentimentReport()
	}
	if len(news) == 0 {
		return neutralSentimentReport()
	}

	prompt := buildSentimentPrompt(ticker, news)

	response, err := s.oracle.GenerateContent(ctx, prompt)
	if err != nil {
		s.logger.Warn().Str("ticker", ticker).Err(err).Msg("Oracle call failed, using fallback sentiment")
		return fallbackSentimentReport(fmt.Sprintf("oracle call failed: %v", err))
	}

	report, err := parseSentimentResponse(response)
	if err != nil {
		s.logger.Warn().Str("ticker", ticker).Err(err).Msg("Oracle response failed validation, using fallback sentiment")
		return fallbackSentimentReport(fmt.Sprintf("response validation failed: %v", err))
	}

	return report
}

// neutralSentimentReport is the documented no-articles default.
func neutralSentimentReport() *models.SentimentReport {
	return &models.SentimentReport{
		StabilityScore:      0,
		StabilityLabel:      models.StabilityStable,
		KeyRisks:            emptyKeyRisks(),
		SecurityAssessment:  "No recent news coverage; no qualitative signals to assess.",
		CustomerSuitability: models.SuitabilitySuitable,
		SuggestedAction:     models.ActionMonitor,
		RiskRationale:       []string{"No recent news articles were available for this instrument."},
		RiskScore:           0,
		UpdatedAt:           time.Now(),
	}
}

// fallbackSentimentReport is the schema-valid degraded report substituted when
// the oracle misbehaves. Downstream code never special-cases it.
func fallbackSentimentReport(details string) *models.SentimentReport {
	return &models.SentimentReport{
		StabilityScore:      neutralScore,
		StabilityLabel:      models.StabilityModerateRisk,
		KeyRisks:            emptyKeyRisks(),
		SecurityAssessment:  "Automated sentiment analysis failed; manual review recommended.",
		CustomerSuitability: models.SuitabilityCautiousInclusion,
		SuggestedAction:     models.ActionFlagForReview,
		RiskRationale: []string{
			"The automated news analysis could not be completed.",
			"Risk posture defaults to moderate pending manual review.",
		},
		RiskScore:    neutralScore,
		ErrorDetails: details,
		UpdatedAt:    time.Now(),
	}
}

func emptyKeyRisks() models.KeyRisks {
	return models.KeyRisks{
		Legal:        []string{},
		Financial:    []string{},
		Operational:  []string{},
		Regulatory:   []string{},
		Market:       []string{},
		Reputational: []string{},
	}
}

// buildSentimentPrompt formats the articles into a single block with the
// fixed response schema.
func buildSentimentPrompt(ticker string, news []*models.NewsItem) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are a financial risk analyst. Assess the stability of %s based on recent news.\n\nRecent articles:\n", ticker))

	for i, n := range news {
		date := n.PublishedAt.Format("2006-01-02")
		sb.WriteString(fmt.Sprintf("%d. \"%s\" - %s (%s)\n", i+1, n.Title, n.Source, date))
		if n.Summary != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", n.Summary))
		}
		if len(n.RelatedArticles) > 0 {
			sb.WriteString(fmt.Sprintf("   Related: %s\n", strings.Join(n.RelatedArticles, ", ")))
		}
	}

	sb.WriteString(`
Return ONLY valid JSON:
{
  "stability_score": <0-10, higher is more stable>,
  "stability_label": "High Risk|Moderate Risk|Slight Risk|Stable|Very Stable",
  "key_risks": {
    "legal_risks": ["..."],
    "financial_risks": ["..."],
    "operational_risks": ["..."],
    "regulatory_risks": ["..."],
    "market_risks": ["..."],
    "reputational_risks": ["..."]
  },
  "security_assessment": "free text, at most 150 words",
  "customer_suitability": "Unsuitable|Cautious Inclusion|Suitable",
  "suggested_action": "Monitor|Flag for Review|Review|Flag for Removal|Immediate Action Required",
  "risk_rationale": ["2-3 short bullets"],
  "news_highlights": ["optional notable headlines"],
  "risk_score": <0-10, higher is riskier, optional>
}

Rules:
- Every key_risks category must be present, empty array when nothing applies
- Base the assessment only on the articles above
- Return ONLY the JSON object, no markdown code fences, no explanation`)

	return sb.String()
}

// sentimentResponse is the expected JSON shape from the oracle.
type sentimentResponse struct {
	StabilityScore      *float64        `json:"stability_score"`
	StabilityLabel      string          `json:"stability_label"`
	KeyRisks            models.KeyRisks `json:"key_risks"`
	SecurityAssessment  string          `json:"security_assessment"`
	CustomerSuitability string          `json:"customer_suitability"`
	SuggestedAction     string          `json:"suggested_action"`
	RiskRationale       []string        `json:"risk_rationale"`
	NewsHighlights      []string        `json:"news_highlights"`
	RiskScore           *float64        `json:"risk_score"`
}

// parseSentimentResponse parses and validates the oracle's raw text.
func parseSentimentResponse(response string) (*models.SentimentReport, error) {
	// Strip markdown code fences if present
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var data sentimentResponse
	if err := json.Unmarshal([]byte(response), &data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if data.StabilityScore == nil {
		return nil, errors.New("missing stability_score")
	}
	if !validStabilityLabels[data.StabilityLabel] {
		return nil, fmt.Errorf("invalid stability_label %q", data.StabilityLabel)
	}
	if !validSuitabilities[data.CustomerSuitability] {
		return nil, fmt.Errorf("invalid customer_suitability %q", data.CustomerSuitability)
	}
	if !validActions[data.SuggestedAction] {
		return nil, fmt.Errorf("invalid suggested_action %q", data.SuggestedAction)
	}
	if len(data.RiskRationale) == 0 {
		return nil, errors.New("missing risk_rationale")
	}

	stability := clamp(*data.StabilityScore, 0, 10)

	riskScore := clamp(10-stability, 0, 10)
	if data.RiskScore != nil {
		riskScore = clamp(*data.RiskScore, 0, 10)
	}

	return &models.SentimentReport{
		StabilityScore:      stability,
		StabilityLabel:      data.StabilityLabel,
		KeyRisks:            data.KeyRisks,
		SecurityAssessment:  truncateWords(data.SecurityAssessment, 150),
		CustomerSuitability: data.CustomerSuitability,
		SuggestedAction:     data.SuggestedAction,
		RiskRationale:       data.RiskRationale,
		NewsHighlights:      data.NewsHighlights,
		RiskScore:           riskScore,
		UpdatedAt:           time.Now(),
	}, nil
}

// truncateWords caps free text at a word budget rather than rejecting it.
func truncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ")
}
