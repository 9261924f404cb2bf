package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/argus/internal/app"
	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/models"
	"github.com/bobmcallan/argus/internal/risk"
	"github.com/bobmcallan/argus/internal/storage/badger"
)

// stubMarket is a minimal market data client; every call fails so the risk
// pipeline exercises its degraded paths end to end.
type stubMarket struct{}

func (stubMarket) GetEOD(context.Context, string, ...interfaces.EODOption) ([]models.EODBar, error) {
	return nil, errors.New("offline")
}
func (stubMarket) GetFundamentals(context.Context, string) (*models.Fundamentals, error) {
	return nil, errors.New("offline")
}
func (stubMarket) GetESG(context.Context, string) (*models.ESGScores, error) {
	return nil, errors.New("offline")
}
func (stubMarket) GetNews(context.Context, string, int) ([]*models.NewsItem, error) {
	return nil, errors.New("offline")
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := common.NewSilentLogger()
	store, err := badger.NewManager(logger, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	hub := risk.NewBatchWSHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)

	svc := risk.NewService(store, stubMarket{}, nil, "GSPC.INDX", logger,
		risk.WithStreamDelay(0),
		risk.WithBatchNotifier(hub),
	)

	a := &app.App{
		Config:      common.DefaultConfig(),
		Logger:      logger,
		Storage:     store,
		Market:      stubMarket{},
		RiskService: svc,
		BatchHub:    hub,
	}

	return NewServer(a)
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndVersion(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/api/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var version map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &version))
	assert.Contains(t, version, "version")

	rec = doJSON(t, h, http.MethodPost, "/api/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAssetLifecycle(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	// Create
	rec := doJSON(t, h, http.MethodPost, "/api/assets", `{"ticker":"aapl.us","name":"Apple Inc"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "AAPL.US", created.Ticker, "tickers normalize to upper case")
	assert.NotEmpty(t, created.ID)

	// Re-posting the same ticker updates, not duplicates
	rec = doJSON(t, h, http.MethodPost, "/api/assets", `{"ticker":"AAPL.US","exchange":"NASDAQ"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// List
	rec = doJSON(t, h, http.MethodGet, "/api/assets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Assets []models.Asset `json:"assets"`
		Count  int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "NASDAQ", list.Assets[0].Exchange)
	assert.Equal(t, "Apple Inc", list.Assets[0].Name, "existing fields survive partial updates")

	// Get by ticker
	rec = doJSON(t, h, http.MethodGet, "/api/assets/AAPL.US", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/assets/NOPE.US", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssetCreateValidation(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/assets", `{"name":"No Ticker"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/assets", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRiskReportEndpoint(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/risk/NOPE.US", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	doJSON(t, h, http.MethodPost, "/api/assets", `{"ticker":"AAPL.US"}`)

	rec = doJSON(t, h, http.MethodGet, "/api/risk/AAPL.US", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report models.OverallRiskReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "AAPL.US", report.Ticker)
	assert.Len(t, report.Components, 4)
	// All providers offline: 0.30*5 + 0.35*5 + 0.20*0 + 0.15*5
	assert.InDelta(t, 4.0, report.OverallRiskScore, 0.001)
	assert.Equal(t, models.RiskLevelMedium, report.RiskLevel)
}

func TestShallowRiskEndpoint(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	doJSON(t, h, http.MethodPost, "/api/assets", `{"ticker":"AAPL.US"}`)

	rec := doJSON(t, h, http.MethodGet, "/api/risk/AAPL.US/shallow", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var shallow models.ShallowRisk
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shallow))
	assert.True(t, shallow.WasUpdated)
	assert.InDelta(t, 5.0, shallow.Score, 0.001)
	assert.Equal(t, models.RiskLevelMedium, shallow.Level)
}

func TestStreamEndpoint(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	doJSON(t, h, http.MethodPost, "/api/assets", `{"ticker":"AAPL.US"}`)

	rec := doJSON(t, h, http.MethodGet, "/api/risk/AAPL.US/stream", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	// Failed sections surface as section_error events, and the stream still
	// runs to completion.
	assert.Contains(t, body, "event: section_error")
	assert.Contains(t, body, "event: overall_risk")
	assert.Contains(t, body, "event: complete")

	// Frames arrive in pipeline order
	overallIdx := strings.Index(body, "event: overall_risk")
	completeIdx := strings.Index(body, "event: complete")
	assert.Less(t, overallIdx, completeIdx)
}

func TestStreamEndpointUnknownTicker(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/risk/NOPE.US/stream", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAllEndpoint(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	doJSON(t, h, http.MethodPost, "/api/assets", `{"ticker":"AAPL.US"}`)
	doJSON(t, h, http.MethodPost, "/api/assets", `{"ticker":"MSFT.US"}`)

	rec := doJSON(t, h, http.MethodPost, "/api/risk/update-all", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.NotEmpty(t, result.RunID)

	rec = doJSON(t, h, http.MethodGet, "/api/risk/update-all", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestChartEndpointUnknownTicker(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/risk/NOPE.US/chart", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBatchWebsocketEndpoint(t *testing.T) {
	logger := common.NewSilentLogger()
	store, err := badger.NewManager(logger, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	hub := risk.NewBatchWSHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)

	svc := risk.NewService(store, stubMarket{}, nil, "GSPC.INDX", logger,
		risk.WithStreamDelay(0),
		risk.WithBatchNotifier(hub),
	)
	a := &app.App{
		Config:      common.DefaultConfig(),
		Logger:      logger,
		Storage:     store,
		Market:      stubMarket{},
		RiskService: svc,
		BatchHub:    hub,
	}

	ts := httptest.NewServer(NewServer(a).Handler())
	defer ts.Close()

	// Dial through the full middleware chain, not the hub directly
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/batch"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "upgrade must succeed behind the logging middleware")
	defer conn.Close()
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, hub.ClientCount())

	hub.Publish(models.BatchEvent{
		RunID:     "run-ws",
		Status:    models.BatchEventStarted,
		Timestamp: time.Now(),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got models.BatchEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-ws", got.RunID)
	assert.Equal(t, models.BatchEventStarted, got.Status)
}

func TestUnknownRiskAction(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/risk/AAPL.US/bogus", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
