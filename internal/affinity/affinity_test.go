package affinity

import (
	"math"
	"testing"
	"time"
)

func TestWeightDoublesPerHalfLife(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	w0 := Weight(base)
	w1 := Weight(base + HalfLifeMS)
	w4 := Weight(base + 4*HalfLifeMS)

	if ratio := w1 / w0; math.Abs(ratio-2) > 1e-9 {
		t.Errorf("one half-life ratio = %v, want 2", ratio)
	}
	if ratio := w4 / w0; math.Abs(ratio-16) > 1e-6 {
		t.Errorf("four half-life ratio = %v, want 16", ratio)
	}
}

func TestWeightAtBias(t *testing.T) {
	if w := Weight(biasMS); w != 1 {
		t.Errorf("Weight(bias) = %v, want 1", w)
	}
}

func TestNewerEventOutweighsAccumulatedOld(t *testing.T) {
	// One recent play beats many plays from long ago.
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	recent := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	accumulated := 0.0
	for i := 0; i < 1000; i++ {
		accumulated += Weight(old)
	}
	if Weight(recent) <= accumulated {
		t.Errorf("Weight(recent) = %v not greater than 1000 old plays = %v",
			Weight(recent), accumulated)
	}
}

func TestImpliedTimestampRoundTrip(t *testing.T) {
	stamps := []int64{
		biasMS,
		time.Date(2015, 3, 9, 12, 0, 0, 0, time.UTC).UnixMilli(),
		time.Date(2024, 11, 30, 23, 59, 59, 0, time.UTC).UnixMilli(),
	}
	for _, ts := range stamps {
		got := ImpliedTimestamp(Weight(ts))
		// Round-trips through a float exponent; allow a millisecond of slop.
		if diff := got - ts; diff < -1 || diff > 1 {
			t.Errorf("ImpliedTimestamp(Weight(%d)) = %d (off by %d)", ts, got, diff)
		}
	}
}

func TestImpliedTimestampNonPositive(t *testing.T) {
	if got := ImpliedTimestamp(0); got != biasMS {
		t.Errorf("ImpliedTimestamp(0) = %d, want bias", got)
	}
	if got := ImpliedTimestamp(-1); got != biasMS {
		t.Errorf("ImpliedTimestamp(-1) = %d, want bias", got)
	}
}

func TestAdjustDecay(t *testing.T) {
	event := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	stored := Weight(event.UnixMilli())

	// Reading at the event time yields 1.
	if got := Adjust(stored, event); math.Abs(got-1) > 1e-9 {
		t.Errorf("Adjust at event time = %v, want 1", got)
	}
	// One half-life later it has halved.
	later := event.Add(14 * 24 * time.Hour)
	if got := Adjust(stored, later); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Adjust one half-life later = %v, want 0.5", got)
	}
	if got := Adjust(0, later); got != 0 {
		t.Errorf("Adjust(0) = %v, want 0", got)
	}
}

func TestAdjustPreservesOrdering(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Weight(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
	b := a + Weight(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC).UnixMilli())

	if Adjust(a, now) >= Adjust(b, now) {
		t.Errorf("ordering not preserved: Adjust(%v) >= Adjust(%v)", a, b)
	}
}
