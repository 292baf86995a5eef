package job

import (
	"math"
	"time"
)

// Backoff computes capped exponential delays without jitter.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// Delay returns the wait before attempt n+1, where n counts from 1.
func (b Backoff) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	if b.Initial <= 0 {
		return 0
	}
	multiplier := b.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := float64(b.Initial) * math.Pow(multiplier, float64(n-1))
	if b.Max > 0 && delay > float64(b.Max) {
		return b.Max
	}
	if delay > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}
