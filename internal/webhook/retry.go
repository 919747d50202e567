package webhook

import (
	"math/rand"
	"time"
)

// DefaultRetryDelays are the waits between attempts. Alert deliveries run
// in-process with a deadline, so the schedule is short.
var DefaultRetryDelays = []time.Duration{
	250 * time.Millisecond,
	1 * time.Second,
	3 * time.Second,
}

const (
	// JitterFactor is the ±percentage of jitter applied to delays.
	JitterFactor = 0.2 // ±20%
)

// NextRetryDelay returns the wait after the failed attempt attemptCount
// (0-indexed) with ±20% jitter. Attempts past the end of delays reuse the
// last entry. An empty schedule means no wait.
func NextRetryDelay(delays []time.Duration, attemptCount int) time.Duration {
	if len(delays) == 0 {
		return 0
	}
	if attemptCount < 0 {
		attemptCount = 0
	}
	if attemptCount >= len(delays) {
		attemptCount = len(delays) - 1
	}

	base := delays[attemptCount]

	jitterRange := float64(base) * JitterFactor
	jitter := (rand.Float64()*2 - 1) * jitterRange

	return time.Duration(float64(base) + jitter)
}

// IsExhausted returns true if max attempts have been reached.
func IsExhausted(attemptCount, maxAttempts int) bool {
	return attemptCount >= maxAttempts
}

// MaxDeliveryWindow returns the longest total wait for a schedule,
// including jitter.
func MaxDeliveryWindow(delays []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range delays {
		total += d
	}
	return time.Duration(float64(total) * (1 + JitterFactor))
}
