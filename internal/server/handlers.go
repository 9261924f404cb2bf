package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/models"
	"github.com/bobmcallan/argus/internal/storage"
)

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.Version,
		"build_time": common.BuildTime,
	})
}

// --- Asset handlers ---

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleAssetList(w, r)
	case http.MethodPost:
		s.handleAssetCreate(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleAssetList(w http.ResponseWriter, r *http.Request) {
	assets, err := s.app.Storage.AssetStore().List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing assets: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"assets": assets,
		"count":  len(assets),
	})
}

func (s *Server) handleAssetCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker   string `json:"ticker"`
		Name     string `json:"name"`
		Exchange string `json:"exchange"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if req.Ticker == "" {
		WriteError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	store := s.app.Storage.AssetStore()

	asset, err := store.GetByTicker(r.Context(), req.Ticker)
	if err != nil && !errors.Is(err, storage.ErrAssetNotFound) {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error looking up asset: %v", err))
		return
	}

	created := false
	if asset == nil {
		asset = &models.Asset{
			ID:     uuid.NewString(),
			Ticker: req.Ticker,
		}
		created = true
	}
	if req.Name != "" {
		asset.Name = req.Name
	}
	if req.Exchange != "" {
		asset.Exchange = req.Exchange
	}

	if err := store.Upsert(r.Context(), asset); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error saving asset: %v", err))
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	WriteJSON(w, status, asset)
}

func (s *Server) handleAssetGet(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	asset, err := s.app.Storage.AssetStore().GetByTicker(r.Context(), strings.ToUpper(ticker))
	if err != nil {
		if errors.Is(err, storage.ErrAssetNotFound) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Asset not found: %s", ticker))
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error fetching asset: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, asset)
}

// --- Risk handlers ---

// reportOptions reads shared query parameters for the report endpoints.
// refresh=true bypasses fresh caches; lookback_days overrides the default
// history window.
func reportOptions(r *http.Request) interfaces.ReportOptions {
	opts := interfaces.ReportOptions{}
	if v := r.URL.Query().Get("lookback_days"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			opts.LookbackDays = days
		}
	}
	if v := r.URL.Query().Get("refresh"); v == "true" || v == "1" {
		opts.PreferNewest = true
	}
	return opts
}

func (s *Server) handleRiskReport(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	report, err := s.app.RiskService.GenerateRiskReport(r.Context(), strings.ToUpper(ticker), reportOptions(r))
	if err != nil {
		if errors.Is(err, storage.ErrAssetNotFound) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Asset not found: %s", ticker))
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error generating risk report: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// handleRiskStream serves the report as Server-Sent Events, one frame per
// event, in pipeline order. Section failures arrive as section_error events
// and the stream always finishes with a complete event.
func (s *Server) handleRiskStream(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	frames, err := s.app.RiskService.StreamRiskReport(r.Context(), strings.ToUpper(ticker), reportOptions(r))
	if err != nil {
		if errors.Is(err, storage.ErrAssetNotFound) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Asset not found: %s", ticker))
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error starting stream: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for frame := range frames {
		data, err := json.Marshal(frame)
		if err != nil {
			s.logger.Warn().Err(err).Str("frame", frame.Type).Msg("Failed to marshal stream frame")
			continue
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", frame.Type, data)
		flusher.Flush()

		if r.Context().Err() != nil {
			// Client went away; drain so the producer goroutine can exit.
			for range frames {
			}
			return
		}
	}
}

func (s *Server) handleShallowRisk(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	shallow, err := s.app.RiskService.ShallowRisk(r.Context(), strings.ToUpper(ticker))
	if err != nil {
		if errors.Is(err, storage.ErrAssetNotFound) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Asset not found: %s", ticker))
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error computing shallow risk: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, shallow)
}

func (s *Server) handleRiskChart(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	lookback := 0
	if v := r.URL.Query().Get("lookback_days"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			lookback = days
		}
	}

	png, err := s.app.RiskService.RenderAnomalyChart(r.Context(), strings.ToUpper(ticker), lookback)
	if err != nil {
		if errors.Is(err, storage.ErrAssetNotFound) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Asset not found: %s", ticker))
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error rendering chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (s *Server) handleUpdateAll(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	start := time.Now()
	result, err := s.app.RiskService.UpdateAllRiskScores(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Batch update failed: %v", err))
		return
	}

	s.logger.Info().
		Str("run_id", result.RunID).
		Dur("elapsed", time.Since(start)).
		Msg("Batch risk update served")

	WriteJSON(w, http.StatusOK, result)
}
