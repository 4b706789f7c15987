package sweep

import (
	"fmt"
	"time"
)

// Config holds the configuration for the subscription expiry sweeper.
type Config struct {
	// Interval is how often a sweep pass runs.
	// Default: 1 hour
	Interval time.Duration

	// BatchLimit caps how many subscriptions one ExpireDue call may
	// transition. A full batch triggers an immediate follow-up call.
	// Default: 500
	BatchLimit int

	// ShutdownTimeout is how long Stop waits for an in-flight pass.
	// Default: 30 seconds
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Interval:        time.Hour,
		BatchLimit:      500,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks if the configuration is valid.
// Returns an error if any values are invalid.
func (c Config) Validate() error {
	if c.Interval < time.Minute {
		return fmt.Errorf("interval must be at least 1 minute, got %v", c.Interval)
	}
	if c.BatchLimit < 1 {
		return fmt.Errorf("batch limit must be at least 1, got %d", c.BatchLimit)
	}
	if c.BatchLimit > 10000 {
		return fmt.Errorf("batch limit too high (max 10000), got %d", c.BatchLimit)
	}
	if c.ShutdownTimeout < time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", c.ShutdownTimeout)
	}
	return nil
}
