package provision

import (
	"math"
	"math/rand"
	"time"
)

// RetryConfig bounds retries of installs that fail on package manager lock
// contention. Attempts counts the first try; values below 1 mean 1.
type RetryConfig struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:     5,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// ceilingBackoffDelay bounds every delay, including when MaxDelay is unset.
const ceilingBackoffDelay = time.Hour

// NextBackoffDelay returns the wait after failed attempt N (1-based).
func NextBackoffDelay(cfg RetryConfig, attempt int, rng *rand.Rand) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	limit := ceilingBackoffDelay
	if cfg.MaxDelay > 0 && cfg.MaxDelay < limit {
		limit = cfg.MaxDelay
	}
	delay := float64(cfg.InitialDelay)
	if attempt > 1 {
		delay *= math.Pow(cfg.Multiplier, float64(attempt-1))
	}
	if delay > float64(limit) {
		delay = float64(limit)
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay = delay * f
	}
	return time.Duration(delay)
}
