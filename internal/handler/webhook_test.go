package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/moodmate/moodgate/internal/domain"
)

// =============================================================================
// Test Doubles
// =============================================================================

type mockWebhookService struct {
	receipt *domain.WebhookReceipt
	err     error

	gotBody      []byte
	gotSignature string
}

func (m *mockWebhookService) Handle(ctx context.Context, raw []byte, signature string) (*domain.WebhookReceipt, error) {
	m.gotBody = raw
	m.gotSignature = signature
	if m.err != nil {
		return nil, m.err
	}
	return m.receipt, nil
}

// =============================================================================
// Payment Webhook Tests
// =============================================================================

func TestPaymentWebhook_AppliedEvent(t *testing.T) {
	svc := &mockWebhookService{
		receipt: &domain.WebhookReceipt{
			Outcome: domain.WebhookOutcomeApplied,
			EventID: "evt-123",
			UserID:  "user-5",
			Plan:    domain.PlanPremium,
			State:   "COMPLETE",
		},
	}
	h := NewWebhookHandler(svc, newTestLogger())

	payload := `{"event_id":"evt-123","state":"COMPLETE","api_ref":"MG-20260314-ABCD1234"}`
	req := httptest.NewRequest("POST", "/webhooks/payments", strings.NewReader(payload))
	req.Header.Set("X-Payment-Signature", "valid-sig")
	rec := httptest.NewRecorder()

	h.HandlePaymentWebhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if string(svc.gotBody) != payload {
		t.Errorf("raw body not passed through: %q", svc.gotBody)
	}
	if svc.gotSignature != "valid-sig" {
		t.Errorf("expected signature from X-Payment-Signature, got %q", svc.gotSignature)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `"outcome":"applied"`) {
		t.Errorf("expected applied outcome, got: %s", body)
	}
	if !strings.Contains(body, `"event_id":"evt-123"`) {
		t.Errorf("expected event id echo, got: %s", body)
	}
}

func TestPaymentWebhook_DuplicateEventAcknowledged(t *testing.T) {
	svc := &mockWebhookService{
		receipt: &domain.WebhookReceipt{
			Outcome: domain.WebhookOutcomeDuplicate,
			EventID: "evt-123",
		},
	}
	h := NewWebhookHandler(svc, newTestLogger())

	req := httptest.NewRequest("POST", "/webhooks/payments", strings.NewReader(`{"event_id":"evt-123"}`))
	req.Header.Set("X-Payment-Signature", "valid-sig")
	rec := httptest.NewRecorder()

	h.HandlePaymentWebhook(rec, req)

	// Replays must be acknowledged so the provider stops retrying
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for duplicate, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"outcome":"duplicate"`) {
		t.Errorf("expected duplicate outcome, got: %s", rec.Body.String())
	}
}

func TestPaymentWebhook_BadSignature_Returns401(t *testing.T) {
	svc := &mockWebhookService{
		err: domain.Unauthorized("webhook.handle", "webhook signature mismatch"),
	}
	h := NewWebhookHandler(svc, newTestLogger())

	req := httptest.NewRequest("POST", "/webhooks/payments", strings.NewReader(`{}`))
	req.Header.Set("X-Payment-Signature", "forged")
	rec := httptest.NewRecorder()

	h.HandlePaymentWebhook(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestPaymentWebhook_MalformedPayload_Returns400(t *testing.T) {
	svc := &mockWebhookService{
		err: domain.Invalid("webhook.handle", "malformed webhook payload"),
	}
	h := NewWebhookHandler(svc, newTestLogger())

	req := httptest.NewRequest("POST", "/webhooks/payments", strings.NewReader(`not json`))
	req.Header.Set("X-Payment-Signature", "valid-sig")
	rec := httptest.NewRecorder()

	h.HandlePaymentWebhook(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestPaymentWebhook_RouteIsPublic(t *testing.T) {
	svc := &mockWebhookService{
		receipt: &domain.WebhookReceipt{Outcome: domain.WebhookOutcomeApplied, EventID: "evt-1"},
	}
	h := NewWebhookHandler(svc, newTestLogger())

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// No auth header, no user context
	req := httptest.NewRequest("POST", "/webhooks/payments", strings.NewReader(`{}`))
	req.Header.Set("X-Payment-Signature", "valid-sig")
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected webhook route reachable without auth, got status %d", rec.Code)
	}
}
