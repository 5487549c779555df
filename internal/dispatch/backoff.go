package dispatch

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Backoff produces exponentially growing delays between delivery
// attempts, with jitter so retries from different messages spread out.
type Backoff struct {
	Initial    time.Duration // first delay
	Max        time.Duration // ceiling
	Multiplier float64       // growth per attempt
	Jitter     float64       // 0-1 fraction of the delay

	mu      sync.Mutex
	attempt int
}

// NewBackoff returns a backoff starting at 1s, doubling per attempt,
// capped at 30s with 10% jitter.
func NewBackoff() *Backoff {
	return &Backoff{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// Next returns the delay for the current attempt and advances the
// counter.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := math.Min(
		float64(b.Initial)*math.Pow(b.Multiplier, float64(b.attempt)),
		float64(b.Max),
	)
	if b.Jitter > 0 {
		delay += (rand.Float64()*2 - 1) * b.Jitter * delay
	}
	if delay < 0 {
		delay = float64(b.Initial)
	}

	b.attempt++
	return time.Duration(delay)
}

// Reset starts the sequence over after a successful delivery.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempt = 0
}
