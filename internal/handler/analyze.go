// Package handler contains HTTP handlers for the MoodGate service.
//
// This file implements the mood analysis endpoints. Rate limiting and
// daily quota checks run inside the service layer; a denial surfaces
// here as a structured 402 or 429 response with a Retry-After header.
//
// Routes handled:
//   - POST /api/ai/analyze         -> Analyze
//   - GET  /api/ai/recommendations -> Recommendations
package handler

import (
	"log/slog"
	"net/http"

	"github.com/moodmate/moodgate/internal/auth"
	"github.com/moodmate/moodgate/internal/recommend"
	"github.com/moodmate/moodgate/internal/service"
)

// AnalyzeHandler handles mood analysis HTTP requests.
type AnalyzeHandler struct {
	analysis service.AnalysisService
	logger   *slog.Logger
}

// NewAnalyzeHandler creates a new AnalyzeHandler.
func NewAnalyzeHandler(analysis service.AnalysisService, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		analysis: analysis,
		logger:   logger,
	}
}

// RegisterRoutes registers analysis routes on the provided mux.
func (h *AnalyzeHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/ai/analyze", requireUser(http.HandlerFunc(h.Analyze)))
	mux.Handle("GET /api/ai/recommendations", requireUser(http.HandlerFunc(h.Recommendations)))
}

// analyzeRequest is the body of POST /api/ai/analyze.
type analyzeRequest struct {
	Text    string `json:"text"`
	Persist bool   `json:"persist"`
}

// analyzeResponse is the wire form of a completed analysis.
type analyzeResponse struct {
	Label     string   `json:"label"`
	Score     float64  `json:"score"`
	Intensity int      `json:"intensity"`
	Advice    string   `json:"advice"`
	MusicKeys []string `json:"music_keys"`
	Remaining int      `json:"remaining"`
	Persisted bool     `json:"persisted"`
	// PersistWarning is set when persistence was requested but failed.
	// The analysis itself succeeded and the quota unit stays spent.
	PersistWarning string `json:"persist_warning,omitempty"`
}

// Analyze runs one quota-gated mood analysis for the caller.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromRequest(r)
	if userID == "" {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.analysis.Analyze(r.Context(), userID, req.Text, req.Persist)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, analyzeResponse{
		Label:          result.Label,
		Score:          result.Score,
		Intensity:      result.Intensity,
		Advice:         result.Advice,
		MusicKeys:      result.MusicKeys,
		Remaining:      result.Remaining,
		Persisted:      result.Persisted,
		PersistWarning: result.PersistWarning,
	})
}

// recommendationsResponse is the body of GET /api/ai/recommendations.
type recommendationsResponse struct {
	Mood      string               `json:"mood"`
	Playlists []recommend.Playlist `json:"playlists"`
}

// Recommendations resolves a mood name to its playlists. Unknown or
// missing moods fall back to the neutral set rather than erroring, so
// this endpoint never consumes quota and never denies.
func (h *AnalyzeHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	mood := r.URL.Query().Get("mood")

	resolved, playlists := h.analysis.Recommendations(mood)

	respondJSON(w, http.StatusOK, recommendationsResponse{
		Mood:      resolved,
		Playlists: playlists,
	})
}
