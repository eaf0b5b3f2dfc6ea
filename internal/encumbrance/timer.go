package encumbrance

import "math"

// heldTolerance absorbs float accumulation so a condition held for exactly
// the required duration flips on that tick, not the next one.
const heldTolerance = 1e-9

// StabilityTimer accumulates continuous active time, clamped to [0, Required].
type StabilityTimer struct {
	Required float64
	elapsed  float64
}

// NewStabilityTimer creates a timer that is held after required seconds.
func NewStabilityTimer(required float64) StabilityTimer {
	return StabilityTimer{Required: math.Max(required, 0)}
}

// Update grows the counter by dt while active and resets it otherwise.
// A non-positive dt leaves an active counter unchanged.
func (t *StabilityTimer) Update(active bool, dt float64) {
	if !active {
		t.elapsed = 0
		return
	}
	if dt > 0 {
		t.elapsed = math.Min(t.elapsed+dt, t.Required)
	}
	if t.Required-t.elapsed <= heldTolerance {
		t.elapsed = t.Required
	}
}

// Elapsed returns the current counter value.
func (t *StabilityTimer) Elapsed() float64 {
	return t.elapsed
}

// Held reports whether the counter has reached Required.
func (t *StabilityTimer) Held() bool {
	return t.elapsed >= t.Required
}

// Reset zeroes the counter.
func (t *StabilityTimer) Reset() {
	t.elapsed = 0
}
