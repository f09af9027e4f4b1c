package pipeline

import (
	"math"
	"time"
)

// BackoffPolicy bounds how long a rate-limited document waits before extraction is retried.
// MaxAttempts counts retries after the first rate-limited call; zero turns a rate limit
// into an ordinary failure.
type BackoffPolicy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
}

var DefaultBackoff = BackoffPolicy{
	MaxAttempts: 3,
	Initial:     2 * time.Second,
	Max:         30 * time.Second,
	Multiplier:  2,
}

// Delay returns the wait before retry number attempt (0-based).
func (b BackoffPolicy) Delay(attempt int) time.Duration {
	if b.Initial <= 0 {
		return 0
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(b.Initial) * math.Pow(mult, float64(attempt))
	if b.Max > 0 && d > float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}
