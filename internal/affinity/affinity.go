// Package affinity implements the time-decayed popularity score attached to
// every graph entity. A playback event adds an exponentially growing weight
// keyed to the event timestamp; because every stored value lives on the same
// exponential curve, relative rank decays continuously as time passes without
// any background decay job.
package affinity

import (
	"math"
	"time"
)

// HalfLifeMS is the decay half-life: two weeks in milliseconds.
const HalfLifeMS = 14 * 24 * 60 * 60 * 1000

// biasMS centers the usable double-precision exponent range (about ±1022
// half-lives) on 2000-01-01T00:00:00Z, giving roughly 2000 years of
// representable half-lives in both directions.
const biasMS = 946684800000

// Weight converts an event timestamp (Unix milliseconds) into the additive
// affinity weight 2^((t - bias) / halfLife).
func Weight(timestampMS int64) float64 {
	return math.Exp2(float64(timestampMS-biasMS) / HalfLifeMS)
}

// ImpliedTimestamp recovers the event timestamp a stored affinity value
// implies: log2(v) * halfLife + bias. For a value accumulated over several
// events this is the decay-weighted "center of mass" of those events.
func ImpliedTimestamp(stored float64) int64 {
	if stored <= 0 {
		return biasMS
	}
	return int64(math.Log2(stored)*HalfLifeMS) + biasMS
}

// Adjust re-projects a stored affinity value onto elapsed time from now,
// yielding a score in (0, 1] that keeps the same rank ordering as the stored
// values while decaying between write events.
func Adjust(stored float64, now time.Time) float64 {
	if stored <= 0 {
		return 0
	}
	elapsed := float64(now.UnixMilli() - ImpliedTimestamp(stored))
	return math.Exp2(-elapsed / HalfLifeMS)
}
