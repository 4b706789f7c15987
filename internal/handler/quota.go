// Package handler contains HTTP handlers for the MoodGate service.
//
// This file implements the quota status endpoint. Reading quota status
// never consumes a unit; it reports the same numbers admission would
// see at this instant.
//
// Route handled:
//   - GET /api/me/quota -> Show
package handler

import (
	"log/slog"
	"net/http"

	"github.com/moodmate/moodgate/internal/auth"
	"github.com/moodmate/moodgate/internal/service"
)

// QuotaHandler reports the caller's plan and daily usage.
type QuotaHandler struct {
	entitlements service.EntitlementService
	quota        service.QuotaLedger
	logger       *slog.Logger
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(entitlements service.EntitlementService, quota service.QuotaLedger, logger *slog.Logger) *QuotaHandler {
	return &QuotaHandler{
		entitlements: entitlements,
		quota:        quota,
		logger:       logger,
	}
}

// RegisterRoutes registers the quota route on the provided mux.
func (h *QuotaHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/me/quota", requireUser(http.HandlerFunc(h.Show)))
}

// quotaResponse is the body of GET /api/me/quota.
type quotaResponse struct {
	Plan            string `json:"plan"`
	PlanName        string `json:"plan_name"`
	Day             string `json:"day"`
	Consumed        int    `json:"consumed"`
	Limit           int    `json:"limit"`
	Remaining       int    `json:"remaining"`
	PerMinuteLimit  int    `json:"per_minute_limit"`
	ResetsInSeconds int    `json:"resets_in_seconds"`
}

// Show returns the caller's current plan ceilings and quota consumption.
// Resolving entitlements here also downgrades a lapsed subscription, so
// the reported plan is never stale.
func (h *QuotaHandler) Show(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromRequest(r)
	if userID == "" {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	ent, err := h.entitlements.Resolve(r.Context(), userID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	usage, err := h.quota.Peek(r.Context(), userID, ent.DailyLimit)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, quotaResponse{
		Plan:            string(ent.Plan),
		PlanName:        ent.Plan.DisplayName(),
		Day:             usage.DayKey,
		Consumed:        usage.Consumed,
		Limit:           usage.Ceiling,
		Remaining:       usage.Remaining(),
		PerMinuteLimit:  ent.PerMinuteLimit,
		ResetsInSeconds: int(usage.ResetsIn.Seconds()),
	})
}
