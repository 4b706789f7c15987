// Package handler contains HTTP handlers for the MoodGate service.
//
// This file implements the mood history endpoint.
//
// Route handled:
//   - GET /api/moods/recent -> Recent
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/moodmate/moodgate/internal/auth"
	"github.com/moodmate/moodgate/internal/domain"
	"github.com/moodmate/moodgate/internal/moodlog"
)

// maxRecentMoods caps how much history one request can pull.
const maxRecentMoods = 100

// MoodHandler serves a user's recorded mood history.
type MoodHandler struct {
	moods  moodlog.Recorder
	logger *slog.Logger
}

// NewMoodHandler creates a new MoodHandler.
func NewMoodHandler(moods moodlog.Recorder, logger *slog.Logger) *MoodHandler {
	return &MoodHandler{
		moods:  moods,
		logger: logger,
	}
}

// RegisterRoutes registers mood history routes on the provided mux.
func (h *MoodHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/moods/recent", requireUser(http.HandlerFunc(h.Recent)))
}

// moodEntryResponse is the wire form of one mood history entry.
type moodEntryResponse struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Score     float64   `json:"score"`
	Intensity int       `json:"intensity"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// recentMoodsResponse is the body of GET /api/moods/recent.
type recentMoodsResponse struct {
	Moods []moodEntryResponse `json:"moods"`
}

// Recent returns the caller's newest mood entries, newest first.
// The optional limit parameter defaults to 20 and is capped at 100.
func (h *MoodHandler) Recent(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromRequest(r)
	if userID == "" {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINVALID, "", "limit must be a positive integer"))
			return
		}
		limit = n
	}
	if limit > maxRecentMoods {
		limit = maxRecentMoods
	}

	entries, err := h.moods.Recent(r.Context(), userID, limit)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	moods := make([]moodEntryResponse, 0, len(entries))
	for _, e := range entries {
		moods = append(moods, moodEntryResponse{
			ID:        e.ID.String(),
			Label:     e.Label,
			Score:     e.Score,
			Intensity: e.Intensity,
			Note:      e.Note,
			CreatedAt: e.CreatedAt,
		})
	}

	respondJSON(w, http.StatusOK, recentMoodsResponse{Moods: moods})
}
