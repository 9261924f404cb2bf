package server

import (
	"net/http"
	"strings"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Assets
	mux.HandleFunc("/api/assets/", s.routeAssets)
	mux.HandleFunc("/api/assets", s.handleAssets)

	// Risk
	mux.HandleFunc("/api/risk/update-all", s.handleUpdateAll)
	mux.HandleFunc("/api/risk/", s.routeRisk)

	// Batch progress WebSocket
	mux.HandleFunc("/ws/batch", s.handleBatchWS)
}

// routeAssets dispatches /api/assets/{ticker} to the asset handler.
func (s *Server) routeAssets(w http.ResponseWriter, r *http.Request) {
	ticker := PathParam(r, "/api/assets/", "")
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "ticker is required in path")
		return
	}
	s.handleAssetGet(w, r, ticker)
}

// routeRisk dispatches /api/risk/{ticker}[/stream|/shallow|/chart].
func (s *Server) routeRisk(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/risk/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "ticker is required in path")
		return
	}

	ticker := path
	action := ""
	if idx := strings.Index(path, "/"); idx >= 0 {
		ticker = path[:idx]
		action = path[idx+1:]
	}
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "ticker is required in path")
		return
	}

	switch action {
	case "":
		s.handleRiskReport(w, r, ticker)
	case "stream":
		s.handleRiskStream(w, r, ticker)
	case "shallow":
		s.handleShallowRisk(w, r, ticker)
	case "chart":
		s.handleRiskChart(w, r, ticker)
	default:
		WriteError(w, http.StatusNotFound, "Unknown risk endpoint: "+action)
	}
}

func (s *Server) handleBatchWS(w http.ResponseWriter, r *http.Request) {
	s.app.BatchHub.ServeWS(w, r)
}
