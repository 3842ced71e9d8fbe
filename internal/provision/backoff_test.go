package provision

import (
	"math/rand"
	"testing"
	"time"
)

func TestNextBackoffDelay(t *testing.T) {
	cfg := RetryConfig{InitialDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := NextBackoffDelay(cfg, i+1, nil); got != w {
			t.Fatalf("attempt %d: got %v want %v", i+1, got, w)
		}
	}
}

func TestNextBackoffDelayEdgeCases(t *testing.T) {
	if got := NextBackoffDelay(RetryConfig{}, 3, nil); got != 0 {
		t.Fatalf("expected zero delay without initial delay, got %v", got)
	}
	flat := RetryConfig{InitialDelay: time.Second, Multiplier: 0.5}
	if got := NextBackoffDelay(flat, 4, nil); got != time.Second {
		t.Fatalf("multiplier below 1 must not shrink delay, got %v", got)
	}

	jitter := RetryConfig{InitialDelay: time.Second, Multiplier: 2, Jitter: true}
	if got := NextBackoffDelay(jitter, 2, nil); got != time.Second {
		t.Fatalf("nil rng jitter should halve the delay, got %v", got)
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		got := NextBackoffDelay(jitter, 2, rng)
		if got < time.Second || got > 3*time.Second {
			t.Fatalf("jittered delay out of range: %v", got)
		}
	}
}

func TestNextBackoffDelayStaysBounded(t *testing.T) {
	uncapped := RetryConfig{InitialDelay: 2 * time.Second, Multiplier: 2}
	for _, attempt := range []int{10, 64, 100, 10000} {
		got := NextBackoffDelay(uncapped, attempt, nil)
		if got <= 0 || got > ceilingBackoffDelay {
			t.Fatalf("attempt %d: delay out of bounds: %v", attempt, got)
		}
	}
	if got := NextBackoffDelay(uncapped, 10000, nil); got != ceilingBackoffDelay {
		t.Fatalf("expected ceiling delay, got %v", got)
	}

	negative := RetryConfig{InitialDelay: -time.Second, MaxDelay: time.Second, Multiplier: 2}
	for _, attempt := range []int{1, 2, 5} {
		if got := NextBackoffDelay(negative, attempt, nil); got != 0 {
			t.Fatalf("attempt %d: expected zero delay for negative initial delay, got %v", attempt, got)
		}
	}
}
