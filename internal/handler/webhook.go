// Package handler contains HTTP handlers for the MoodGate service.
//
// This file implements the payment webhook handler.
//
// Route:
//   - POST /webhooks/payments -> HandlePaymentWebhook
//
// This route is PUBLIC (no auth middleware) because the payment provider
// calls it directly. Authentication is via the webhook signature header.
package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/moodmate/moodgate/internal/domain"
	"github.com/moodmate/moodgate/internal/service"
)

// WebhookHandler handles incoming webhook events from the payment provider.
type WebhookHandler struct {
	webhooks service.WebhookService
	logger   *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhooks service.WebhookService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhooks: webhooks,
		logger:   logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
// These routes are PUBLIC, no auth middleware.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/payments", h.HandlePaymentWebhook)
}

// webhookResponse is the acknowledgement body for a processed event.
type webhookResponse struct {
	Outcome string `json:"outcome"`
	EventID string `json:"event_id"`
}

// HandlePaymentWebhook verifies and applies one payment provider event.
// Replays of an already-applied event are acknowledged with a duplicate
// outcome so the provider stops retrying.
func (h *WebhookHandler) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	// Read body (limit to 64KB)
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINVALID, "", "Could not read request body"))
		return
	}

	signature := r.Header.Get("X-Payment-Signature")

	receipt, err := h.webhooks.Handle(r.Context(), body, signature)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("payment webhook processed",
		"outcome", receipt.Outcome,
		"event_id", receipt.EventID,
		"state", receipt.State,
	)

	respondJSON(w, http.StatusOK, webhookResponse{
		Outcome: string(receipt.Outcome),
		EventID: receipt.EventID,
	})
}
