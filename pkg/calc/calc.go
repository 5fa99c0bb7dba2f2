// Package calc provides the small numeric formulas shared by progress
// reporting: percentage, instantaneous speed, and ETA.
package calc

import (
	"math"
	"time"
)

// Percentage returns 100*downloaded/total, or 0 when total is not
// positive. The result is not clamped to [0, 100]; callers that need the
// invariant enforced do so at the point they set status.
func Percentage(downloaded, total int64) float64 {
	if total <= 0 {
		return 0
	}

	return float64(downloaded) / float64(total) * 100
}

// Speed returns bytes/sec given a byte delta over an elapsed duration,
// clamped to a minimum of zero (a negative delta can occur if a stage
// finalizes bytes downward, which must never be reported as negative
// throughput).
func Speed(deltaBytes int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}

	speed := float64(deltaBytes) / elapsed.Seconds()
	if speed < 0 {
		return 0
	}

	return speed
}

// ETA returns the estimated seconds remaining given the bytes left to
// download and the current speed in bytes/sec. It returns 0 when speed is
// not positive.
func ETA(remainingBytes int64, speed float64) float64 {
	if speed <= 0 {
		return 0
	}

	return math.Max(float64(remainingBytes), 0) / speed
}
