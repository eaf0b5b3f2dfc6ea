package encumbrance

import (
	"math"

	"github.com/ayusman/gaitgrip/internal/pose"
)

// WristReading is the result of one wrist stability update.
type WristReading struct {
	// Rotation is the current orientation normalized into (-180, 180] per axis.
	Rotation pose.Euler
	// Delta is the signed deviation per axis from the comparison pose.
	Delta [3]float64
	// Stable reports that every axis stayed within its threshold this tick.
	Stable bool
	// Reanchored reports that the reference pose was replaced this tick.
	Reanchored bool
	StableTime float64
	Stationary bool
}

// WristTracker decides whether the wrist is being held still.
type WristTracker struct {
	policy     WristPolicy
	thresholds [3]float64
	timer      StabilityTimer

	// reference is the ReferencePose, or the previous sample under WristFrameToFrame.
	reference pose.Euler
	anchored  bool
}

// NewWristTracker creates a tracker for the given policy, per-axis thresholds
// in degrees and required stable duration in seconds.
func NewWristTracker(policy WristPolicy, thresholds [3]float64, required float64) *WristTracker {
	return &WristTracker{
		policy:     policy,
		thresholds: thresholds,
		timer:      NewStabilityTimer(required),
	}
}

// Reference returns the current comparison pose.
func (w *WristTracker) Reference() pose.Euler {
	return w.reference
}

// Update feeds the orientation for one tick of dt seconds.
func (w *WristTracker) Update(rotation pose.Euler, dt float64) WristReading {
	current := normalizeEuler(rotation)
	r := WristReading{Rotation: current}

	if !w.anchored {
		// The first sample becomes the reference and nothing has been
		// compared yet, so it is never stable.
		w.reference = current
		w.anchored = true
		w.timer.Reset()
		r.Reanchored = w.policy == WristReanchor
		return r
	}

	r.Delta = [3]float64{
		DeltaAngle(w.reference.X, current.X),
		DeltaAngle(w.reference.Y, current.Y),
		DeltaAngle(w.reference.Z, current.Z),
	}
	r.Stable = true
	for axis, d := range r.Delta {
		// Stable needs strictly less than the threshold.
		if math.Abs(d) >= w.thresholds[axis] {
			r.Stable = false
			break
		}
	}

	switch w.policy {
	case WristFrameToFrame:
		w.reference = current
		r.Stationary = r.Stable
	default:
		if !r.Stable {
			w.reference = current
			r.Reanchored = true
		}
		w.timer.Update(r.Stable, dt)
		r.StableTime = w.timer.Elapsed()
		r.Stationary = r.Stable && w.timer.Held()
	}
	return r
}

// Reset forgets the reference pose and the stability counter.
func (w *WristTracker) Reset() {
	w.reference = pose.Euler{}
	w.anchored = false
	w.timer.Reset()
}

func normalizeEuler(e pose.Euler) pose.Euler {
	return pose.Euler{X: NormalizeAngle(e.X), Y: NormalizeAngle(e.Y), Z: NormalizeAngle(e.Z)}
}
