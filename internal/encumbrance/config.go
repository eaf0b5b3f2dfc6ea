// Package encumbrance classifies whether a tracked hand is holding something
// from finger curl, pinch strength and wrist stillness.
package encumbrance

import (
	"errors"
	"fmt"

	"github.com/ayusman/gaitgrip/internal/pose"
)

var (
	// ErrInvalidConfig is returned when a Config cannot drive a classifier.
	ErrInvalidConfig = errors.New("invalid encumbrance config")
	// ErrMissingJoint is returned when a joint required by the topology is absent.
	ErrMissingJoint = errors.New("missing joint")
)

// WristPolicy selects how wrist stillness is measured.
type WristPolicy string

const (
	// WristReanchor compares against a reference pose that is re-anchored on
	// large deviations, and requires the wrist to stay near it for
	// WristRequiredStableDuration.
	WristReanchor WristPolicy = "reanchor"
	// WristFrameToFrame compares each sample with the previous one only.
	WristFrameToFrame WristPolicy = "frame_to_frame"
)

// Config holds the tunable parameters of the encumbrance classifier.
// Angles are in degrees, durations in seconds.
type Config struct {
	// CurlThreshold: a finger subset averaging below this curl is gripping.
	CurlThreshold float64 `json:"curl_threshold" yaml:"curl_threshold"`
	// PinchThreshold: a finger subset averaging above this strength is pinching.
	PinchThreshold float64 `json:"pinch_threshold" yaml:"pinch_threshold"`
	// WristThresholdsDeg is the allowed deviation per wrist axis (X, Y, Z).
	WristThresholdsDeg [3]float64 `json:"wrist_thresholds_deg" yaml:"wrist_thresholds_deg"`

	GripRequiredStableDuration  float64 `json:"grip_required_stable_duration" yaml:"grip_required_stable_duration"`
	WristRequiredStableDuration float64 `json:"wrist_required_stable_duration" yaml:"wrist_required_stable_duration"`

	// GripFingers are averaged into AvgGripCurl.
	GripFingers []pose.Finger `json:"grip_fingers" yaml:"grip_fingers"`
	// PinchFingers are averaged into AvgPinch.
	PinchFingers []pose.Finger `json:"pinch_fingers" yaml:"pinch_fingers"`
	// TrackedFingers must all report high confidence for a positive classification.
	TrackedFingers []pose.Finger `json:"tracked_fingers" yaml:"tracked_fingers"`

	WristPolicy WristPolicy `json:"wrist_policy" yaml:"wrist_policy"`

	// Topology maps fingers to their curl joints. Nil means pose.DefaultTopology.
	Topology pose.Topology `json:"-" yaml:"-"`
}

// DefaultConfig returns the thresholds used in the motion study.
func DefaultConfig() Config {
	return Config{
		CurlThreshold:               100,
		PinchThreshold:              0.5,
		WristThresholdsDeg:          [3]float64{32, 32, 32},
		GripRequiredStableDuration:  0.3,
		WristRequiredStableDuration: 1.0,
		GripFingers:                 []pose.Finger{pose.Middle, pose.Ring, pose.Pinky},
		PinchFingers:                []pose.Finger{pose.Index, pose.Middle, pose.Ring},
		TrackedFingers:              []pose.Finger{pose.Index, pose.Middle, pose.Ring, pose.Pinky},
		WristPolicy:                 WristReanchor,
	}
}

// topology returns the configured topology or the default one.
func (c Config) topology() pose.Topology {
	if c.Topology == nil {
		return pose.DefaultTopology()
	}
	return c.Topology
}

// Validate reports the first unusable field.
// A topology that lacks a finger the classifier reads wraps ErrMissingJoint.
func (c Config) Validate() error {
	switch {
	case c.CurlThreshold < 0 || c.CurlThreshold > 180:
		return fmt.Errorf("%w: curl_threshold must be in [0, 180]", ErrInvalidConfig)
	case c.PinchThreshold < 0 || c.PinchThreshold > 1:
		return fmt.Errorf("%w: pinch_threshold must be in [0, 1]", ErrInvalidConfig)
	case c.GripRequiredStableDuration < 0:
		return fmt.Errorf("%w: grip_required_stable_duration must not be negative", ErrInvalidConfig)
	case c.WristRequiredStableDuration < 0:
		return fmt.Errorf("%w: wrist_required_stable_duration must not be negative", ErrInvalidConfig)
	case len(c.GripFingers) == 0:
		return fmt.Errorf("%w: grip_fingers must not be empty", ErrInvalidConfig)
	case len(c.PinchFingers) == 0:
		return fmt.Errorf("%w: pinch_fingers must not be empty", ErrInvalidConfig)
	}

	for axis, th := range c.WristThresholdsDeg {
		if th < 0 || th > 180 {
			return fmt.Errorf("%w: wrist threshold for axis %c must be in [0, 180]", ErrInvalidConfig, "XYZ"[axis])
		}
	}

	switch c.WristPolicy {
	case WristReanchor, WristFrameToFrame:
	default:
		return fmt.Errorf("%w: unknown wrist_policy %q", ErrInvalidConfig, c.WristPolicy)
	}

	for _, set := range [][]pose.Finger{c.GripFingers, c.PinchFingers, c.TrackedFingers} {
		for _, f := range set {
			if f < 0 || f >= pose.NumFingers {
				return fmt.Errorf("%w: unknown finger %d", ErrInvalidConfig, int(f))
			}
		}
	}

	topo := c.topology()
	for f := pose.Thumb; f < pose.NumFingers; f++ {
		triple, ok := topo[f]
		if !ok {
			return fmt.Errorf("%w: no joints for %s", ErrMissingJoint, f)
		}
		for _, j := range triple {
			if j < 0 || j >= pose.NumJoints {
				return fmt.Errorf("%w: %s uses unknown joint %d", ErrMissingJoint, f, int(j))
			}
		}
	}
	return nil
}
