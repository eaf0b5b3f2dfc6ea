package encumbrance

import (
	"errors"
	"math"
	"testing"

	"github.com/ayusman/gaitgrip/internal/pose"
)

func newClassifier(t *testing.T, cfg Config) *Classifier {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func step(t *testing.T, c *Classifier, dt float64, hand pose.Hand, walking bool) State {
	t.Helper()
	s, err := c.Step(dt, hand, walking)
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	return s
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"curl above 180", func(c *Config) { c.CurlThreshold = 200 }, ErrInvalidConfig},
		{"pinch above 1", func(c *Config) { c.PinchThreshold = 1.5 }, ErrInvalidConfig},
		{"negative grip duration", func(c *Config) { c.GripRequiredStableDuration = -0.1 }, ErrInvalidConfig},
		{"empty grip fingers", func(c *Config) { c.GripFingers = nil }, ErrInvalidConfig},
		{"unknown finger", func(c *Config) { c.PinchFingers = []pose.Finger{9} }, ErrInvalidConfig},
		{"unknown wrist policy", func(c *Config) { c.WristPolicy = "gyro" }, ErrInvalidConfig},
		{"negative wrist threshold", func(c *Config) { c.WristThresholdsDeg[1] = -1 }, ErrInvalidConfig},
		{
			name: "topology without ring",
			mutate: func(c *Config) {
				topo := pose.DefaultTopology()
				delete(topo, pose.Ring)
				c.Topology = topo
			},
			want: ErrMissingJoint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg); !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClassifier_NotReadyUntilTracked(t *testing.T) {
	c := newClassifier(t, DefaultConfig())

	invalid := pose.GripHand()
	invalid.Valid = false
	for i := 0; i < 10; i++ {
		s := step(t, c, 0.1, invalid, false)
		if s != (State{}) {
			t.Fatalf("tick %d: state = %+v before tracking, want zero", i, s)
		}
	}
	if s := step(t, c, 0.1, pose.Hand{Valid: true}, false); s.Ready {
		t.Error("a valid flag without joints must not latch readiness")
	}

	s := step(t, c, 0.1, pose.GripHand(), false)
	if !s.Ready || !c.Ready() {
		t.Fatal("valid hand with joints should latch readiness")
	}

	// The latch never reverts.
	s = step(t, c, 0.1, invalid, false)
	if !s.Ready {
		t.Error("readiness reverted after an invalid sample")
	}
	held := s
	s = step(t, c, 0.1, pose.Hand{}, false)
	if s != held {
		t.Errorf("empty skeleton after latch changed the state: %+v", s)
	}
}

func TestClassifier_Curl(t *testing.T) {
	c := newClassifier(t, DefaultConfig())
	shape := pose.OpenHandShape()
	shape.Bend = [pose.NumFingers]float64{0, 20, 45, 90, 135}

	s := step(t, c, 0.1, pose.BuildHand(shape), false)
	want := [pose.NumFingers]float64{180, 160, 135, 90, 45}
	for f := range want {
		if math.Abs(s.Curl[f]-want[f]) > 1e-6 {
			t.Errorf("Curl[%s] = %v, want %v", pose.Finger(f), s.Curl[f], want[f])
		}
	}
	if math.Abs(s.CurlRing()-90) > 1e-6 || math.Abs(s.CurlPinky()-45) > 1e-6 {
		t.Errorf("accessors disagree with Curl: ring %v pinky %v", s.CurlRing(), s.CurlPinky())
	}
	// Middle, ring and pinky by default.
	if math.Abs(s.AvgGripCurl-90) > 1e-6 {
		t.Errorf("AvgGripCurl = %v, want 90", s.AvgGripCurl)
	}
}

func TestClassifier_FingerSubsets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GripFingers = []pose.Finger{pose.Index, pose.Middle, pose.Ring}
	cfg.PinchFingers = []pose.Finger{pose.Index, pose.Middle, pose.Ring, pose.Pinky}
	c := newClassifier(t, cfg)

	shape := pose.OpenHandShape()
	shape.Bend = [pose.NumFingers]float64{0, 30, 60, 90, 120}
	shape.Pinch = [pose.NumFingers]float64{1, 0.8, 0.6, 0.4, 0.2}

	s := step(t, c, 0.1, pose.BuildHand(shape), false)
	if math.Abs(s.AvgGripCurl-120) > 1e-6 {
		t.Errorf("AvgGripCurl = %v, want 120", s.AvgGripCurl)
	}
	if math.Abs(s.AvgPinch-0.5) > epsilon {
		t.Errorf("AvgPinch = %v, want 0.5", s.AvgPinch)
	}
	if s.PinchIndex() != 0.8 || s.PinchPinky() != 0.2 {
		t.Errorf("pinch accessors = %v, %v, want 0.8, 0.2", s.PinchIndex(), s.PinchPinky())
	}
}

// Holding a grip for exactly the required duration flips GripHeld on that
// tick and not one earlier.
func TestClassifier_GripHeldAtRequiredDuration(t *testing.T) {
	cfg := DefaultConfig()
	c := newClassifier(t, cfg)
	const dt = 0.1
	ticks := int(math.Round(cfg.GripRequiredStableDuration / dt))

	for i := 1; i <= ticks; i++ {
		s := step(t, c, dt, pose.GripHand(), false)
		if s.AvgGripCurl >= cfg.CurlThreshold {
			t.Fatalf("grip hand AvgGripCurl = %v, want below %v", s.AvgGripCurl, cfg.CurlThreshold)
		}
		if !s.FingersHigh {
			t.Fatal("grip hand should report high confidence")
		}
		if i < ticks && s.GripHeld {
			t.Fatalf("GripHeld at tick %d, want tick %d", i, ticks)
		}
		if i == ticks {
			if !s.GripHeld {
				t.Fatalf("GripHeld false at tick %d", i)
			}
			if !s.IsEncumbered {
				t.Error("held grip with high confidence should be encumbered")
			}
		}
	}
}

func TestClassifier_GripReleaseResets(t *testing.T) {
	c := newClassifier(t, DefaultConfig())
	for i := 0; i < 5; i++ {
		step(t, c, 0.1, pose.GripHand(), false)
	}
	s := step(t, c, 0.1, pose.OpenHand(), false)
	if s.GripHeld {
		t.Error("opening the hand should release the grip")
	}
	s = step(t, c, 0.1, pose.GripHand(), false)
	if s.GripHeld {
		t.Error("grip must be held again for the full duration")
	}
}

func TestClassifier_PinchHeld(t *testing.T) {
	c := newClassifier(t, DefaultConfig())

	var s State
	for i := 0; i < 3; i++ {
		s = step(t, c, 0.1, pose.PinchHand(), false)
	}
	if !s.PinchHeld {
		t.Errorf("PinchHeld false after 0.3 s of pinching (AvgPinch %v)", s.AvgPinch)
	}
	if s.GripHeld {
		t.Error("pinch pose should not read as a grip")
	}
}

func TestClassifier_GripNeverHeldWhileWalking(t *testing.T) {
	c := newClassifier(t, DefaultConfig())
	hands := []pose.Hand{pose.GripHand(), pose.OpenHand(), pose.PinchHand(), pose.GripHand()}

	for i := 0; i < 200; i++ {
		walking := (i/7)%2 == 0
		hand := hands[(i/11)%len(hands)]
		s := step(t, c, 0.05, hand, walking)
		if walking && s.GripHeld {
			t.Fatalf("tick %d: GripHeld while walking", i)
		}
	}
}

func TestClassifier_WalkingSuppressesGripEncumbrance(t *testing.T) {
	cfg := DefaultConfig()
	// Keep the wrist from ever settling so only the grip path can fire.
	cfg.WristRequiredStableDuration = 100
	c := newClassifier(t, cfg)

	for i := 0; i < 10; i++ {
		if s := step(t, c, 0.1, pose.GripHand(), true); s.IsEncumbered {
			t.Fatalf("tick %d: encumbered while walking", i)
		}
	}
	// The grip timer kept running, so stopping reports the hold at once.
	if s := step(t, c, 0.1, pose.GripHand(), false); !s.GripHeld || !s.IsEncumbered {
		t.Errorf("state after stopping = %+v, want held grip", s)
	}
}

func TestClassifier_ConfidenceGate(t *testing.T) {
	for f := pose.Index; f <= pose.Pinky; f++ {
		for _, conf := range []pose.Confidence{pose.ConfidenceLow, pose.ConfidenceMedium} {
			t.Run(f.String()+"/"+conf.String(), func(t *testing.T) {
				c := newClassifier(t, DefaultConfig())
				hand := pose.GripHand()
				hand.Confidence[f] = conf

				var s State
				for i := 0; i < 30; i++ {
					s = step(t, c, 0.1, hand, false)
					if s.IsEncumbered {
						t.Fatalf("tick %d: encumbered with %s confidence on %s", i, conf, f)
					}
				}
				if !s.GripHeld || !s.WristStationary {
					t.Errorf("expected grip and wrist to be held underneath the gate, got %+v", s)
				}
				if s.FingersHigh {
					t.Error("FingersHigh should be false")
				}
			})
		}
	}
}

func TestClassifier_UntrackedFingerConfidenceIgnored(t *testing.T) {
	c := newClassifier(t, DefaultConfig())
	hand := pose.GripHand()
	hand.Confidence[pose.Thumb] = pose.ConfidenceLow

	var s State
	for i := 0; i < 5; i++ {
		s = step(t, c, 0.1, hand, false)
	}
	if !s.FingersHigh || !s.IsEncumbered {
		t.Errorf("thumb is not tracked by default, state = %+v", s)
	}
}

func TestClassifier_StillOpenHandIsEncumberedByWrist(t *testing.T) {
	cfg := DefaultConfig()
	c := newClassifier(t, cfg)

	var s State
	for i := 0; i <= 10; i++ {
		s = step(t, c, 0.1, pose.OpenHand(), false)
		if i < 10 && s.IsEncumbered {
			t.Fatalf("tick %d: encumbered before the wrist settled", i)
		}
	}
	if !s.WristStationary || !s.IsEncumbered {
		t.Errorf("still wrist for 1 s should be encumbered, state = %+v", s)
	}

	hand := pose.OpenHand()
	hand.Wrist.Z = 45
	s = step(t, c, 0.1, hand, false)
	if s.WristStationary || s.IsEncumbered || s.WristStableTime != 0 {
		t.Errorf("wrist turn should re-anchor, state = %+v", s)
	}
	if math.Abs(s.DeltaZ-45) > epsilon {
		t.Errorf("DeltaZ = %v, want 45", s.DeltaZ)
	}
}

func TestClassifier_MissingJoint(t *testing.T) {
	c := newClassifier(t, DefaultConfig())
	good := step(t, c, 0.1, pose.OpenHand(), false)

	hand := pose.OpenHand()
	kept := hand.Joints[:0]
	for _, j := range hand.Joints {
		if j.ID != pose.Middle2 {
			kept = append(kept, j)
		}
	}
	hand.Joints = kept

	s, err := c.Step(0.1, hand, false)
	if !errors.Is(err, ErrMissingJoint) {
		t.Fatalf("Step() error = %v, want ErrMissingJoint", err)
	}
	if s != good {
		t.Error("a failed step should leave the previous state in place")
	}

	// A full skeleton with a different joint order resolves again.
	full := pose.OpenHand()
	for i, j := 0, len(full.Joints)-1; i < j; i, j = i+1, j-1 {
		full.Joints[i], full.Joints[j] = full.Joints[j], full.Joints[i]
	}
	s = step(t, c, 0.1, full, false)
	if math.Abs(s.CurlMiddle()-175) > 1e-6 {
		t.Errorf("CurlMiddle after reorder = %v, want 175", s.CurlMiddle())
	}
}

func TestClassifier_Reset(t *testing.T) {
	c := newClassifier(t, DefaultConfig())
	for i := 0; i < 5; i++ {
		step(t, c, 0.1, pose.GripHand(), false)
	}
	c.Reset()
	if c.Ready() || c.State() != (State{}) {
		t.Errorf("after Reset ready = %v state = %+v", c.Ready(), c.State())
	}
}
