// Package billing provides IntaSend payment integration for premium
// subscriptions: hosted checkout creation and webhook signature
// verification.
package billing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// API base URLs. Test mode uses the sandbox environment.
const (
	LiveBaseURL    = "https://payment.intasend.com"
	SandboxBaseURL = "https://sandbox.intasend.com"

	checkoutPath = "/api/v1/checkout/"

	defaultTimeout = 30 * time.Second
)

// Service defines the interface for payment operations.
type Service interface {
	// CreateCheckout opens a hosted checkout session and returns the
	// provider's reference and redirect URL. The request's Reference is
	// carried through to webhooks as api_ref.
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// VerifySignature reports whether signature is a valid hex-encoded
	// HMAC-SHA256 of payload under the shared webhook secret. The
	// comparison is constant-time.
	VerifySignature(payload []byte, signature string) bool
}

// CheckoutRequest describes one hosted checkout to create.
type CheckoutRequest struct {
	AmountKES   int
	Email       string
	PhoneNumber string
	Reference   string // api_ref echoed back in webhooks
	RedirectURL string
	Comment     string
}

// CheckoutSession is the provider's answer to a checkout request.
type CheckoutSession struct {
	ProviderRef string          // Provider-side checkout id
	URL         string          // Hosted checkout page
	Raw         json.RawMessage // Full provider response, kept for audit
}

// Config holds IntaSend credentials and mode.
type Config struct {
	APIToken       string
	PublishableKey string
	WebhookSecret  string
	TestMode       bool

	// BaseURL overrides the environment-derived URL. Used in tests.
	BaseURL string

	// Timeout for checkout requests. Defaults to 30s.
	Timeout time.Duration
}

type intasendService struct {
	config     Config
	baseURL    string
	httpClient *http.Client
}

// NewIntaSend creates a Service backed by the IntaSend collection API.
func NewIntaSend(config Config) Service {
	baseURL := config.BaseURL
	if baseURL == "" {
		if config.TestMode {
			baseURL = SandboxBaseURL
		} else {
			baseURL = LiveBaseURL
		}
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &intasendService{
		config:  config,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// checkoutRequest is the wire format for checkout creation.
type checkoutRequest struct {
	PublicKey   string `json:"public_key,omitempty"`
	Amount      int    `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	APIRef      string `json:"api_ref"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

// checkoutResponse is the subset of the provider response we use.
type checkoutResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (s *intasendService) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if s.config.APIToken == "" {
		return nil, fmt.Errorf("intasend: API token not configured")
	}
	if req.AmountKES <= 0 {
		return nil, fmt.Errorf("intasend: amount must be positive, got %d", req.AmountKES)
	}
	if req.Reference == "" {
		return nil, fmt.Errorf("intasend: checkout reference is required")
	}

	body, err := json.Marshal(checkoutRequest{
		PublicKey:   s.config.PublishableKey,
		Amount:      req.AmountKES,
		Currency:    "KES",
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		APIRef:      req.Reference,
		RedirectURL: req.RedirectURL,
		Comment:     req.Comment,
	})
	if err != nil {
		return nil, fmt.Errorf("intasend: marshal checkout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+checkoutPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("intasend: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.config.APIToken)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("intasend: checkout request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("intasend: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("intasend: checkout failed with status %d: %s", resp.StatusCode, truncateBody(raw))
	}

	var parsed checkoutResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("intasend: parse checkout response: %w", err)
	}
	if parsed.URL == "" {
		return nil, fmt.Errorf("intasend: checkout response missing url")
	}

	return &CheckoutSession{
		ProviderRef: parsed.ID,
		URL:         parsed.URL,
		Raw:         json.RawMessage(raw),
	}, nil
}

func (s *intasendService) VerifySignature(payload []byte, signature string) bool {
	return verifyHMAC(s.config.WebhookSecret, payload, signature)
}

// verifyHMAC checks a hex HMAC-SHA256 signature in constant time.
// An empty secret never verifies; webhook authentication cannot be
// accidentally disabled by missing configuration.
func verifyHMAC(secret string, payload []byte, signature string) bool {
	if secret == "" {
		return false
	}

	want, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(want) == 0 {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), want)
}

// SignPayload computes the hex HMAC-SHA256 signature for a payload.
// Exposed for tests and local webhook simulation.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func truncateBody(b []byte) string {
	const max = 256
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
