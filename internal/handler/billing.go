// Package handler contains HTTP handlers for the MoodGate service.
//
// This file implements the billing endpoints: the plan catalog and
// premium checkout initiation. Payment confirmation arrives separately
// through the payment webhook.
//
// Routes handled:
//   - GET  /api/billing/plans    -> ListPlans
//   - POST /api/billing/checkout -> CreateCheckout
package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/moodmate/moodgate/internal/auth"
	"github.com/moodmate/moodgate/internal/domain"
	"github.com/moodmate/moodgate/internal/service"
)

// BillingHandler handles plan listing and checkout HTTP requests.
type BillingHandler struct {
	subscriptions service.SubscriptionService
	logger        *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(subscriptions service.SubscriptionService, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// RegisterRoutes registers billing routes on the provided mux.
// The plan catalog is public; checkout requires an authenticated caller.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/billing/plans", h.ListPlans)
	mux.Handle("POST /api/billing/checkout", requireUser(http.HandlerFunc(h.CreateCheckout)))
}

// planResponse is the wire form of one purchasable plan.
type planResponse struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	PriceKES       int    `json:"price_kes"`
	DurationDays   int    `json:"duration_days"`
	DailyLimit     int    `json:"daily_limit"`
	PerMinuteLimit int    `json:"per_minute_limit"`
}

// plansResponse is the body of GET /api/billing/plans.
type plansResponse struct {
	Plans []planResponse `json:"plans"`
}

// ListPlans returns the purchasable plans, cheapest first.
func (h *BillingHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans := h.subscriptions.Plans()

	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, planResponse{
			Code:           string(p.Code),
			Name:           p.Name,
			PriceKES:       p.PriceKES,
			DurationDays:   p.DurationDays,
			DailyLimit:     p.DailyLimit,
			PerMinuteLimit: p.PerMinuteLimit,
		})
	}

	respondJSON(w, http.StatusOK, plansResponse{Plans: out})
}

// checkoutRequest is the body of POST /api/billing/checkout.
type checkoutRequest struct {
	PlanCode    string `json:"plan_code"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}

// checkoutResponse is the body returned after initiating a checkout.
type checkoutResponse struct {
	CheckoutID  string `json:"checkout_id"`
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url,omitempty"`
	Status      string `json:"status"`
	Plan        string `json:"plan"`
	AmountKES   int    `json:"amount_kes"`
}

// CreateCheckout starts a payment flow for a paid plan. Repeating the
// request while a checkout for the same plan is pending returns the
// outstanding checkout; switching plans supersedes it.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromRequest(r)
	if userID == "" {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	code := strings.ToUpper(strings.TrimSpace(req.PlanCode))
	if code == "" {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINVALID, "", "plan_code is required"))
		return
	}

	checkout, err := h.subscriptions.InitiateCheckout(r.Context(), userID, domain.PlanCode(code), req.PhoneNumber, req.Email)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("checkout initiated",
		"user_id", userID,
		"plan", checkout.Plan,
		"reference", checkout.Reference,
	)

	respondJSON(w, http.StatusOK, checkoutResponse{
		CheckoutID:  checkout.ID.String(),
		Reference:   checkout.Reference,
		CheckoutURL: checkout.CheckoutURL,
		Status:      string(checkout.Status),
		Plan:        string(checkout.Plan),
		AmountKES:   checkout.AmountKES,
	})
}
