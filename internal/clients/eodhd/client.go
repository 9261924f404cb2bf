// Package eodhd provides a client for the EODHD API
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// ptr converts an optional flexFloat64 to *float64
func (f *flexFloat64) ptr() *float64 {
	if f == nil {
		return nil
	}
	v := float64(*f)
	return &v
}

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// eodBarResponse represents the API response for EOD data
type eodBarResponse struct {
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	AdjustedClose float64 `json:"adjusted_close"`
	Volume        int64   `json:"volume"`
}

// GetEOD retrieves end-of-day price data, most recent bar first
func (c *Client) GetEOD(ctx context.Context, ticker string, opts ...interfaces.EODOption) ([]models.EODBar, error) {
	params := &interfaces.EODParams{}
	for _, opt := range opts {
		opt(params)
	}

	urlParams := url.Values{}
	urlParams.Set("period", "d")
	urlParams.Set("order", "d") // descending (most recent first)

	if !params.From.IsZero() {
		urlParams.Set("from", params.From.Format("2006-01-02"))
	}
	if !params.To.IsZero() {
		urlParams.Set("to", params.To.Format("2006-01-02"))
	}

	path := fmt.Sprintf("/eod/%s", ticker)

	var bars []eodBarResponse
	if err := c.get(ctx, path, urlParams, &bars); err != nil {
		return nil, err
	}

	result := make([]models.EODBar, len(bars))
	for i, bar := range bars {
		date, _ := time.Parse("2006-01-02", bar.Date)
		result[i] = models.EODBar{
			Date:     date,
			Open:     bar.Open,
			High:     bar.High,
			Low:      bar.Low,
			Close:    bar.Close,
			AdjClose: bar.AdjustedClose,
			Volume:   bar.Volume,
		}
	}

	return result, nil
}

// fundamentalsResponse mirrors the subset of the EODHD fundamentals payload
// that the risk pipeline consumes. Optional numerics stay nil when absent.
type fundamentalsResponse struct {
	General struct {
		Name     string `json:"Name"`
		Sector   string `json:"Sector"`
		Industry string `json:"Industry"`
	} `json:"General"`
	Highlights struct {
		MarketCapitalization *flexFloat64 `json:"MarketCapitalization"`
		PERatio              *flexFloat64 `json:"PERatio"`
		EarningsShare        *flexFloat64 `json:"EarningsShare"`
	} `json:"Highlights"`
	Technicals struct {
		Beta       *flexFloat64 `json:"Beta"`
		High52Week *flexFloat64 `json:"52WeekHigh"`
		Low52Week  *flexFloat64 `json:"52WeekLow"`
	} `json:"Technicals"`
	Financials struct {
		DebtToEquity *flexFloat64 `json:"DebtToEquity"`
	} `json:"Financials"`
	ESGScores *struct {
		TotalEsg         *flexFloat64 `json:"TotalEsg"`
		EnvironmentScore *flexFloat64 `json:"EnvironmentScore"`
		SocialScore      *flexFloat64 `json:"SocialScore"`
		GovernanceScore  *flexFloat64 `json:"GovernanceScore"`
		RatingYear       int          `json:"RatingYear"`
	} `json:"ESGScores"`
}

// GetFundamentals retrieves fundamental data
func (c *Client) GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	path := fmt.Sprintf("/fundamentals/%s", ticker)

	var resp fundamentalsResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	return &models.Fundamentals{
		Ticker:       ticker,
		Name:         resp.General.Name,
		Sector:       resp.General.Sector,
		Industry:     resp.General.Industry,
		MarketCap:    resp.Highlights.MarketCapitalization.ptr(),
		PE:           resp.Highlights.PERatio.ptr(),
		EPS:          resp.Highlights.EarningsShare.ptr(),
		Beta:         resp.Technicals.Beta.ptr(),
		DebtToEquity: resp.Financials.DebtToEquity.ptr(),
		High52Week:   resp.Technicals.High52Week.ptr(),
		Low52Week:    resp.Technicals.Low52Week.ptr(),
		LastUpdated:  time.Now(),
	}, nil
}

// GetESG retrieves ESG scores. ESG rides on the fundamentals payload; a
// ticker without ESG coverage returns a table of nil scores, not an error.
func (c *Client) GetESG(ctx context.Context, ticker string) (*models.ESGScores, error) {
	path := fmt.Sprintf("/fundamentals/%s", ticker)

	params := url.Values{}
	params.Set("filter", "ESGScores")

	var resp struct {
		TotalEsg         *flexFloat64 `json:"TotalEsg"`
		EnvironmentScore *flexFloat64 `json:"EnvironmentScore"`
		SocialScore      *flexFloat64 `json:"SocialScore"`
		GovernanceScore  *flexFloat64 `json:"GovernanceScore"`
		RatingYear       int          `json:"RatingYear"`
	}
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	return &models.ESGScores{
		Ticker:        ticker,
		TotalESG:      resp.TotalEsg.ptr(),
		Environmental: resp.EnvironmentScore.ptr(),
		Social:        resp.SocialScore.ptr(),
		Governance:    resp.GovernanceScore.ptr(),
		RatingYear:    resp.RatingYear,
	}, nil
}

type newsResponse struct {
	Date           string   `json:"date"`
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	Link           string   `json:"link"`
	Source         string   `json:"source"`
	RelatedTickers []string `json:"symbols"`
}

// GetNews retrieves recent news for a ticker
func (c *Client) GetNews(ctx context.Context, ticker string, limit int) ([]*models.NewsItem, error) {
	path := "/news"

	params := url.Values{}
	params.Set("s", ticker)
	params.Set("limit", strconv.Itoa(limit))

	var newsResp []newsResponse
	if err := c.get(ctx, path, params, &newsResp); err != nil {
		return nil, err
	}

	news := make([]*models.NewsItem, len(newsResp))
	for i, item := range newsResp {
		publishedAt, _ := time.Parse("2006-01-02T15:04:05+00:00", item.Date)
		news[i] = &models.NewsItem{
			Title:           item.Title,
			Summary:         item.Content,
			URL:             item.Link,
			Source:          item.Source,
			PublishedAt:     publishedAt,
			RelatedArticles: item.RelatedTickers,
		}
	}

	return news, nil
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
