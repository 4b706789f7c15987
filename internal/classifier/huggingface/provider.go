// Package huggingface implements the classifier against the Hugging
// Face inference API.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/moodmate/moodgate/internal/classifier"
)

const (
	// APIBaseURL is the base URL for hosted inference endpoints
	APIBaseURL = "https://api-inference.huggingface.co/models/"

	// DefaultModel is the emotion model the product ships with
	DefaultModel = "j-hartmann/emotion-english-distilroberta-base"
)

// Config contains configuration for the Hugging Face provider.
type Config struct {
	APIToken       string
	Model          string
	BaseURL        string // Overridable for tests
	ProviderConfig classifier.ProviderConfig
}

// Provider implements classifier.Classifier using hosted inference.
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new Hugging Face provider.
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIToken == "" {
		return nil, fmt.Errorf("hugging face API token is required")
	}

	// Set defaults
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = APIBaseURL
	}
	if config.ProviderConfig.MaxRetries == 0 {
		config.ProviderConfig.MaxRetries = 2
	}
	if config.ProviderConfig.RetryBaseDelay == 0 {
		config.ProviderConfig.RetryBaseDelay = 500 * time.Millisecond
	}
	if config.ProviderConfig.RequestTimeout == 0 {
		config.ProviderConfig.RequestTimeout = 10 * time.Second
	}

	return &Provider{
		config: config,
		client: &http.Client{
			Timeout: config.ProviderConfig.RequestTimeout,
		},
		logger: logger,
	}, nil
}

// Classify sends text to the inference endpoint and returns the top
// scoring label.
func (p *Provider) Classify(ctx context.Context, text string) (*classifier.Classification, error) {
	if text == "" {
		return nil, classifier.WrapError("classify", classifier.EBadInput)
	}

	body, err := json.Marshal(inferenceRequest{Inputs: text})
	if err != nil {
		return nil, classifier.WrapError("marshal request", err)
	}

	result, err := p.executeWithRetry(ctx, body)
	if err != nil {
		return nil, classifier.WrapError("execute request", err)
	}

	return result, nil
}

// executeWithRetry executes the inference call with exponential backoff
// on transient errors. The request is rebuilt per attempt so the body
// is always fresh.
func (p *Provider) executeWithRetry(ctx context.Context, body []byte) (*classifier.Classification, error) {
	var lastErr error

	for attempt := 1; attempt <= p.config.ProviderConfig.MaxRetries; attempt++ {
		result, err := p.executeRequest(ctx, body)
		if err == nil {
			return result, nil
		}

		lastErr = err

		// Only retry on retryable errors
		if !classifier.IsRetryable(err) {
			return nil, err
		}

		// Don't retry if we've exhausted attempts
		if attempt >= p.config.ProviderConfig.MaxRetries {
			break
		}

		// Exponential backoff: base * 2^(attempt-1)
		delay := p.config.ProviderConfig.RetryBaseDelay * time.Duration(1<<(attempt-1))
		p.logger.Info("Retrying classifier request", "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
			// Continue to next attempt
		case <-ctx.Done():
			return nil, classifier.ETimeout
		}
	}

	return nil, lastErr
}

// executeRequest executes a single inference request.
func (p *Provider) executeRequest(ctx context.Context, body []byte) (*classifier.Classification, error) {
	url := p.config.BaseURL + p.config.Model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIToken)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, classifier.ETimeout
		}
		// Network errors are typically retryable
		return nil, classifier.EUnavailable
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.mapHTTPError(resp.StatusCode, bodyBytes)
	}

	return parseInferenceResponse(bodyBytes)
}

// mapHTTPError maps HTTP status codes to classifier errors.
func (p *Provider) mapHTTPError(statusCode int, body []byte) error {
	var errResp inferenceError
	_ = json.Unmarshal(body, &errResp)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return classifier.EUnauthorized
	case http.StatusTooManyRequests:
		return classifier.ERateLimit
	case http.StatusRequestTimeout:
		return classifier.ETimeout
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", classifier.EBadInput, errResp.Error)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		// 503 with an estimate means the model is cold-loading
		return classifier.EUnavailable
	default:
		return fmt.Errorf("inference error (status %d): %s", statusCode, errResp.Error)
	}
}

// parseInferenceResponse extracts the top label. The API returns either
// a flat list of label scores or a list nested one level per input.
func parseInferenceResponse(body []byte) (*classifier.Classification, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return topScore(nested[0]), nil
	}

	var flat []labelScore
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return topScore(flat), nil
	}

	return nil, fmt.Errorf("unexpected inference response: %s", truncate(body, 200))
}

func topScore(scores []labelScore) *classifier.Classification {
	top := scores[0]
	for _, s := range scores[1:] {
		if s.Score > top.Score {
			top = s
		}
	}
	return &classifier.Classification{Label: top.Label, Score: top.Score}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// API request/response types

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type inferenceError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}
