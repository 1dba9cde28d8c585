package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"investpro/services/analysis"
	"investpro/services/market"
)

// AssetsResponse is the body of GET /api/assets
type AssetsResponse struct {
	Filter    analysis.Predicate `json:"filter"`
	Seq       uint64             `json:"seq"`
	UpdatedAt time.Time          `json:"updated_at"`
	Assets    []market.Asset     `json:"assets"`
}

// SearchResponse is the body of GET /api/search
type SearchResponse struct {
	Query  string         `json:"query"`
	Assets []market.Asset `json:"assets"`
}

// RefreshResponse is the body of POST /api/refresh
type RefreshResponse struct {
	Seq       uint64    `json:"seq"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	SnapshotSeq uint64 `json:"snapshot_seq"`
	Refreshing  bool   `json:"refreshing"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		Database:    "disabled",
		SnapshotSeq: s.session.Snapshot().Seq,
		Refreshing:  s.session.Refreshing(),
	}
	code := http.StatusOK

	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			log.Warn().Err(err).Msg("Archive health check failed")
			resp.Status, resp.Database = "degraded", "down"
			code = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}

	writeJSON(w, code, resp)
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	p, err := analysis.ParsePredicate(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap := s.session.Snapshot()
	writeJSON(w, http.StatusOK, AssetsResponse{
		Filter:    p,
		Seq:       snap.Seq,
		UpdatedAt: snap.UpdatedAt,
		Assets:    nonNil(analysis.Filter(snap.Assets, p)),
	})
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])

	asset, ok := s.session.Snapshot().Lookup(ticker)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown ticker "+ticker)
		return
	}

	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])

	asset, ok := s.session.Snapshot().Lookup(ticker)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown ticker "+ticker)
		return
	}

	start := time.Now()
	res := s.insights.RequestInsight(r.Context(), asset)
	s.metrics.InsightDuration.Observe(time.Since(start).Seconds())
	s.metrics.Insights.WithLabelValues(string(res.Kind)).Inc()

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, SearchResponse{
		Query:  q,
		Assets: nonNil(s.session.Search(q)),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	applied, err := s.session.Refresh(r.Context())
	switch {
	case err != nil:
		log.Error().Err(err).Msg("Manual refresh failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	case !applied:
		writeError(w, http.StatusConflict, "refresh already in progress")
	default:
		snap := s.session.Snapshot()
		writeJSON(w, http.StatusOK, RefreshResponse{Seq: snap.Seq, UpdatedAt: snap.UpdatedAt})
	}
}

func refreshOutcome(applied bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case !applied:
		return "skipped"
	default:
		return "applied"
	}
}

func nonNil(assets []market.Asset) []market.Asset {
	if assets == nil {
		return []market.Asset{}
	}
	return assets
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
