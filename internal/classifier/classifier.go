// Package classifier defines the emotion classification boundary.
//
// The classifier is a black box: text in, label out. Providers live in
// subpackages; the orchestrator depends only on this interface and
// treats every provider failure the same way (the request fails, the
// spent quota unit stays spent).
package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Classifier scores the dominant emotion of a piece of text.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Classification, error)
}

// Classification is the raw provider verdict before label normalization.
type Classification struct {
	Label string  // Provider label, any casing
	Score float64 // Confidence in [0, 1]
}

// ProviderConfig contains common configuration for classifier providers.
type ProviderConfig struct {
	MaxRetries     int           // Maximum retry attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// Error codes for classifier operations
var (
	// ERateLimit indicates the provider rate limit has been exceeded
	ERateLimit = errors.New("classifier rate limit exceeded")

	// ETimeout indicates the request timed out
	ETimeout = errors.New("classifier request timed out")

	// EUnavailable indicates the service is temporarily unavailable
	// (network failure, 5xx, or a model still loading)
	EUnavailable = errors.New("classifier temporarily unavailable")

	// EUnauthorized indicates invalid API credentials
	EUnauthorized = errors.New("classifier authentication failed")

	// EBadInput indicates the provider rejected the input
	EBadInput = errors.New("classifier rejected input")
)

// IsRetryable returns true if the error is transient and worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ERateLimit) ||
		errors.Is(err, ETimeout) ||
		errors.Is(err, EUnavailable)
}

// WrapError wraps an error with context about the classifier operation.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("classifier %s: %w", operation, err)
}
