package poller

import (
	"math"
	"time"
)

// BackoffStrategy calculates the delay before the next polling attempt.
// Implementations must be safe for concurrent use.
type BackoffStrategy interface {
	// NextInterval returns the delay to wait after attempt number attempt
	// (starting at 1) before the next one.
	NextInterval(attempt int) time.Duration
}

// LinearBackoff waits attempt * Interval between polls. This is the intended
// policy for payment polling: the gateway settles most PIX payments within a
// few seconds, so early attempts stay close together while later ones spread
// out.
type LinearBackoff struct {
	Interval    time.Duration
	MaxInterval time.Duration
}

func (l LinearBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	interval := l.Interval
	if interval == 0 {
		interval = defaultInitialDelay
	}

	delay := interval * time.Duration(attempt)
	if l.MaxInterval > 0 && delay > l.MaxInterval {
		delay = l.MaxInterval
	}
	return delay
}

// FixedBackoff waits the same Interval between polls.
type FixedBackoff struct {
	Interval time.Duration
}

func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// ExponentialBackoff grows the delay by Multiplier each attempt, capped at
// MaxInterval. Useful for background resume flows where nobody is watching
// the screen.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = defaultInitialDelay
	}
	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}
	max := e.MaxInterval
	if max == 0 {
		max = 30 * time.Second
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if interval > float64(max) {
		interval = float64(max)
	}
	return time.Duration(interval)
}
