package encumbrance

import (
	"fmt"

	"github.com/ayusman/gaitgrip/internal/log"
	"github.com/ayusman/gaitgrip/internal/pose"
)

// State is the immutable output of one classifier step.
// Before the hand is first tracked every field is zero.
type State struct {
	Ready bool `json:"ready"`

	Curl        [pose.NumFingers]float64 `json:"curl"`
	AvgGripCurl float64                  `json:"avg_grip_curl"`
	Pinch       [pose.NumFingers]float64 `json:"pinch"`
	AvgPinch    float64                  `json:"avg_pinch"`
	FingersHigh bool                     `json:"fingers_high"`

	WristRotation   pose.Euler `json:"wrist_rotation"`
	DeltaX          float64    `json:"delta_x"`
	DeltaY          float64    `json:"delta_y"`
	DeltaZ          float64    `json:"delta_z"`
	WristStable     bool       `json:"wrist_stable"`
	WristStableTime float64    `json:"wrist_stable_time"`
	WristStationary bool       `json:"wrist_stationary"`

	GripHeld     bool `json:"grip_held"`
	PinchHeld    bool `json:"pinch_held"`
	IsEncumbered bool `json:"is_encumbered"`
}

// CurlIndex, CurlMiddle, CurlRing and CurlPinky return the per-finger curl
// angle in degrees.
func (s State) CurlIndex() float64  { return s.Curl[pose.Index] }
func (s State) CurlMiddle() float64 { return s.Curl[pose.Middle] }
func (s State) CurlRing() float64   { return s.Curl[pose.Ring] }
func (s State) CurlPinky() float64  { return s.Curl[pose.Pinky] }

// PinchIndex, PinchMiddle, PinchRing and PinchPinky return the per-finger
// pinch strength in [0, 1].
func (s State) PinchIndex() float64  { return s.Pinch[pose.Index] }
func (s State) PinchMiddle() float64 { return s.Pinch[pose.Middle] }
func (s State) PinchRing() float64   { return s.Pinch[pose.Ring] }
func (s State) PinchPinky() float64  { return s.Pinch[pose.Pinky] }

// Classifier fuses finger curl, pinch strength and wrist stillness into an
// encumbered decision. One goroutine owns it and calls Step once per tick,
// after the locomotion classifier has stepped.
type Classifier struct {
	cfg  Config
	topo pose.Topology

	ready  bool
	joints jointIndex

	wrist *WristTracker
	grip  StabilityTimer
	pinch StabilityTimer

	state State
}

// New creates a Classifier for cfg. It fails with ErrMissingJoint when the
// topology does not cover every finger.
func New(cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{
		cfg:   cfg,
		topo:  cfg.topology(),
		wrist: NewWristTracker(cfg.WristPolicy, cfg.WristThresholdsDeg, cfg.WristRequiredStableDuration),
		grip:  NewStabilityTimer(cfg.GripRequiredStableDuration),
		pinch: NewStabilityTimer(cfg.GripRequiredStableDuration),
	}, nil
}

// Config returns the configuration the classifier was built with.
func (c *Classifier) Config() Config {
	return c.cfg
}

// Ready reports whether valid hand data has been seen.
func (c *Classifier) Ready() bool {
	return c.ready
}

// State returns the output of the most recent step.
func (c *Classifier) State() State {
	return c.state
}

// Step consumes the hand sample for one tick of dt seconds. isWalking is the
// locomotion output of the same tick.
//
// Until the hand is first tracked Step returns the zero State. Once ready the
// classifier stays ready; a later sample with no joints repeats the previous
// state. A skeleton without a joint the topology needs fails with
// ErrMissingJoint and leaves the previous state in place.
func (c *Classifier) Step(dt float64, hand pose.Hand, isWalking bool) (State, error) {
	if !c.ready {
		if !hand.Valid || len(hand.Joints) == 0 {
			return c.state, nil
		}
		c.ready = true
		log.Debug("hand tracking ready", "joints", len(hand.Joints))
	}
	if len(hand.Joints) == 0 {
		// Tracking dropped out after the latch; hold the last output.
		return c.state, nil
	}

	c.joints.resolve(hand.Joints)
	var curl [pose.NumFingers]float64
	for f := pose.Thumb; f < pose.NumFingers; f++ {
		v, err := c.fingerCurl(f, hand.Joints)
		if err != nil {
			return c.state, err
		}
		curl[f] = v
	}

	var pinch [pose.NumFingers]float64
	for f := range pinch {
		pinch[f] = clamp01(hand.Pinch[f])
	}

	avgCurl := average(curl, c.cfg.GripFingers)
	avgPinch := average(pinch, c.cfg.PinchFingers)

	wrist := c.wrist.Update(hand.Wrist, dt)

	c.grip.Update(avgCurl < c.cfg.CurlThreshold, dt)
	c.pinch.Update(avgPinch > c.cfg.PinchThreshold, dt)

	// Arm swing while walking must not read as holding something.
	gripHeld := c.grip.Held() && !isWalking
	pinchHeld := c.pinch.Held()

	fingersHigh := true
	for _, f := range c.cfg.TrackedFingers {
		if hand.Confidence[f] < pose.ConfidenceHigh {
			fingersHigh = false
			break
		}
	}

	c.state = State{
		Ready:           true,
		Curl:            curl,
		AvgGripCurl:     avgCurl,
		Pinch:           pinch,
		AvgPinch:        avgPinch,
		FingersHigh:     fingersHigh,
		WristRotation:   wrist.Rotation,
		DeltaX:          wrist.Delta[0],
		DeltaY:          wrist.Delta[1],
		DeltaZ:          wrist.Delta[2],
		WristStable:     wrist.Stable,
		WristStableTime: wrist.StableTime,
		WristStationary: wrist.Stationary,
		GripHeld:        gripHeld,
		PinchHeld:       pinchHeld,
		IsEncumbered:    (wrist.Stationary || gripHeld) && fingersHigh,
	}
	return c.state, nil
}

func (c *Classifier) fingerCurl(f pose.Finger, joints []pose.Joint) (float64, error) {
	triple := c.topo[f]
	var p [3]pose.Vec3
	for i, id := range triple {
		idx := c.joints.lookup(id)
		if idx < 0 {
			return 0, fmt.Errorf("%w: %s (%s)", ErrMissingJoint, id, f)
		}
		p[i] = joints[idx].Position
	}
	return Curl(p[0], p[1], p[2]), nil
}

// Reset clears all timers, the wrist reference and the readiness latch.
func (c *Classifier) Reset() {
	c.ready = false
	c.joints = jointIndex{}
	c.wrist.Reset()
	c.grip.Reset()
	c.pinch.Reset()
	c.state = State{}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
