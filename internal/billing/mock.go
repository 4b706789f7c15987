package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MockService is an in-memory Service for development and tests.
// Checkouts succeed with a synthetic URL; signature verification uses
// the same HMAC scheme as the real provider.
type MockService struct {
	mu sync.Mutex

	// WebhookSecret feeds VerifySignature. Empty never verifies.
	WebhookSecret string

	// CheckoutErr, when set, is returned by CreateCheckout.
	CheckoutErr error

	// CheckoutCalls counts CreateCheckout invocations.
	CheckoutCalls int

	// LastRequest holds the most recent checkout request.
	LastRequest CheckoutRequest
}

// NewMock creates a MockService verifying against the given secret.
func NewMock(webhookSecret string) *MockService {
	return &MockService{WebhookSecret: webhookSecret}
}

func (m *MockService) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CheckoutCalls++
	m.LastRequest = req

	if m.CheckoutErr != nil {
		return nil, m.CheckoutErr
	}

	providerRef := "mock-" + req.Reference
	url := fmt.Sprintf("https://checkout.invalid/pay/%s", req.Reference)
	raw, _ := json.Marshal(map[string]string{"id": providerRef, "url": url})

	return &CheckoutSession{
		ProviderRef: providerRef,
		URL:         url,
		Raw:         raw,
	}, nil
}

func (m *MockService) VerifySignature(payload []byte, signature string) bool {
	return verifyHMAC(m.WebhookSecret, payload, signature)
}

// Reset clears recorded calls and injected behavior.
func (m *MockService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CheckoutErr = nil
	m.CheckoutCalls = 0
	m.LastRequest = CheckoutRequest{}
}
