package llm

import "time"

// RetryConfig holds the retry policy for generation requests.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget, first try included.
	MaxAttempts int

	// BackoffBase is the delay after the first failed attempt; it doubles
	// after each subsequent failure.
	BackoffBase time.Duration

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns the policy the upstream API is known to
// tolerate: three attempts total with 2s/4s backoff between them.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BackoffBase: 2 * time.Second,
		MaxBackoff:  30 * time.Second,
	}
}

// Backoff returns the delay to sleep after the given zero-based failed
// attempt: base * 2^attempt, capped at MaxBackoff.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	d := c.BackoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	if d > c.MaxBackoff {
		return c.MaxBackoff
	}
	return d
}
