package conn

import (
	"math"
	"time"
)

// ReconnectPolicy defines the backoff schedule used after a transport-level
// loss while connected.
type ReconnectPolicy struct {
	// MaxRetries is the number of attempts before giving up. 0 disables
	// reconnection entirely.
	MaxRetries int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration
	// Multiplier is the factor by which the delay grows per attempt.
	Multiplier float64
}

// DefaultReconnectPolicy returns the default backoff schedule: five
// attempts at 1s, 2s, 4s, 8s, 16s.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		MaxRetries:   5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     16 * time.Second,
		Multiplier:   2.0,
	}
}

// NextDelay returns the delay before the retry with the given 0-indexed
// count.
func (p ReconnectPolicy) NextDelay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}

	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(retryCount))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

// Reconnector tracks retry attempts across a single reconnection episode.
type Reconnector struct {
	policy     ReconnectPolicy
	retryCount int
}

// NewReconnector creates a reconnector for the given policy.
func NewReconnector(policy ReconnectPolicy) *Reconnector {
	return &Reconnector{policy: policy}
}

// ShouldRetry reports whether another attempt is allowed.
func (r *Reconnector) ShouldRetry() bool {
	return r.retryCount < r.policy.MaxRetries
}

// NextDelay returns the delay before the next attempt and advances the
// retry count.
func (r *Reconnector) NextDelay() time.Duration {
	delay := r.policy.NextDelay(r.retryCount)
	r.retryCount++
	return delay
}

// RetryCount returns the number of attempts made in this episode.
func (r *Reconnector) RetryCount() int { return r.retryCount }

// Reset clears the episode after a successful reconnect.
func (r *Reconnector) Reset() { r.retryCount = 0 }
