package timeutil

import (
	"math"
	"math/rand"
	"time"
)

// durationPtr is a helper function to create a pointer to a time.Duration
func DurationPtr(d time.Duration) *time.Duration {
	return &d
}

// MaxDuration returns the largest duration in durations, or zero if empty.
func MaxDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	max := durations[0]
	for _, d := range durations[1:] {
		if d > max {
			max = d
		}
	}
	return max
}

// ExponentialBackoffDelay computes the delay before the next attempt given
// the current attempt number (1-indexed), an optional jitter ceiling, a
// source of randomness, and the backoff parameters. The delay grows as
// initialDuration * multiplier^(attempt-1), capped at maxDuration, with a
// uniformly distributed jitter of [0, jitter) added on top.
func ExponentialBackoffDelay(attempt int, jitter time.Duration, rng rand.Rand, param BackoffParam) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	exponent := float64(attempt - 1)
	delay := float64(param.InitialDuration()) * math.Pow(param.Multiplier(), exponent)
	if max := float64(param.MaxDuration()); max > 0 && delay > max {
		delay = max
	}

	delay += float64(ComputeJitter(jitter, rng))

	return time.Duration(delay)
}

// ComputeJitter returns a pseudo-random duration in [0, max) drawn from rng,
// or zero when max is not strictly positive.
func ComputeJitter(max time.Duration, rng rand.Rand) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rng.Int63n(int64(max)))
}

// Sleeper abstracts time.Sleep so worker loops can be driven deterministically in tests.
type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// NewRealSleeper returns a Sleeper backed by the standard library's time.Sleep.
func NewRealSleeper() Sleeper {
	return realSleeper{}
}
