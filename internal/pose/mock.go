package pose

import "math"

// Shape describes a synthetic hand: how far each finger bends, pinch strengths,
// wrist orientation and tracking confidence.
type Shape struct {
	// Bend is the angle in degrees between a finger's first and second bone.
	Bend       [NumFingers]float64
	Pinch      [NumFingers]float64
	Wrist      Euler
	Confidence Confidence
	// Origin is the wrist root position.
	Origin Vec3
}

// Segment length used for synthetic finger bones, in meters.
const boneLength = 0.03

// fingerBase is the knuckle offset of each finger from the wrist root.
var fingerBase = [NumFingers]Vec3{
	Thumb:  {X: 0.03, Y: 0.02, Z: 0.01},
	Index:  {X: 0.02, Y: 0.08, Z: 0},
	Middle: {X: 0, Y: 0.085, Z: 0},
	Ring:   {X: -0.02, Y: 0.08, Z: 0},
	Pinky:  {X: -0.04, Y: 0.07, Z: 0},
}

// BuildHand lays out a full, valid hand skeleton matching shape.
// Joints follow DefaultTopology so the bend of each finger maps to a curl of 180 - Bend.
func BuildHand(shape Shape) Hand {
	h := Hand{
		Valid: true,
		Wrist: shape.Wrist,
		Pinch: shape.Pinch,
	}
	for f := range h.Confidence {
		h.Confidence[f] = shape.Confidence
	}

	h.Joints = append(h.Joints, Joint{ID: WristRoot, Position: shape.Origin})

	topo := DefaultTopology()
	tips := [NumFingers]JointID{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}
	for f := Thumb; f < NumFingers; f++ {
		bend := shape.Bend[f] * math.Pi / 180
		p1 := shape.Origin.Add(fingerBase[f])
		// First bone points straight up the hand, the second folds toward the palm (-Z).
		p2 := p1.Add(Vec3{Y: boneLength})
		dir2 := Vec3{Y: math.Cos(bend), Z: -math.Sin(bend)}
		p3 := p2.Add(dir2.Scale(boneLength))
		tip := p3.Add(dir2.Scale(boneLength * 0.8))

		triple := topo[f]
		h.Joints = append(h.Joints,
			Joint{ID: triple[0], Position: p1},
			Joint{ID: triple[1], Position: p2},
			Joint{ID: triple[2], Position: p3},
		)
		switch f {
		case Thumb:
			h.Joints = append(h.Joints, Joint{ID: Thumb3, Position: tip})
		case Pinky:
			h.Joints = append(h.Joints, Joint{ID: Pinky3, Position: tip})
		}
		h.Joints = append(h.Joints, Joint{ID: tips[f], Position: tip})
	}

	return h
}

// OpenHandShape returns a relaxed open hand: nearly straight fingers, no pinch.
func OpenHandShape() Shape {
	return Shape{
		Bend:       [NumFingers]float64{10, 5, 5, 5, 5},
		Confidence: ConfidenceHigh,
		Origin:     Vec3{X: 0.2, Y: 1.1, Z: 0.3},
	}
}

// GripHandShape returns a hand wrapped around a handle: every finger folded well past 90 degrees.
func GripHandShape() Shape {
	return Shape{
		Bend:       [NumFingers]float64{60, 110, 115, 115, 120},
		Pinch:      [NumFingers]float64{0, 0.2, 0.1, 0.1, 0},
		Confidence: ConfidenceHigh,
		Origin:     Vec3{X: 0.2, Y: 1.0, Z: 0.3},
	}
}

// PinchHandShape returns a hand pinching a thin object between thumb and the first three fingers.
func PinchHandShape() Shape {
	return Shape{
		Bend:       [NumFingers]float64{30, 30, 30, 30, 20},
		Pinch:      [NumFingers]float64{0, 0.9, 0.85, 0.8, 0.1},
		Confidence: ConfidenceHigh,
		Origin:     Vec3{X: 0.2, Y: 1.1, Z: 0.3},
	}
}

// OpenHand returns the skeleton for OpenHandShape.
func OpenHand() Hand { return BuildHand(OpenHandShape()) }

// GripHand returns the skeleton for GripHandShape.
func GripHand() Hand { return BuildHand(GripHandShape()) }

// PinchHand returns the skeleton for PinchHandShape.
func PinchHand() Hand { return BuildHand(PinchHandShape()) }

// Phase is one segment of a synthetic session.
type Phase struct {
	Duration float64 // seconds
	// Speed is the forward walking speed in m/s along +X; zero means standing.
	Speed float64
	// BobAmplitude and BobHz describe the vertical head oscillation.
	BobAmplitude float64
	BobHz        float64
	// ArmSwing is the wrist pitch amplitude in degrees, swinging once per stride pair.
	ArmSwing float64
	Hand     Shape
}

// Synthetic generates a scripted session at a fixed sampling step.
// It is used for demos and to exercise the classifiers end to end.
type Synthetic struct {
	phases []Phase
	step   float64
	loop   bool

	t        float64 // time since session start
	done     bool
	phase    int
	phaseT   float64
	headX    float64
	eyeLevel float64
}

// NewSynthetic creates a generator that advances step seconds per Next call.
// Phases with a non-positive duration are dropped.
func NewSynthetic(step float64, loop bool, phases ...Phase) *Synthetic {
	kept := make([]Phase, 0, len(phases))
	for _, p := range phases {
		if p.Duration > 0 {
			kept = append(kept, p)
		}
	}
	return &Synthetic{
		phases:   kept,
		step:     step,
		loop:     loop,
		eyeLevel: 1.6,
	}
}

// Next returns the sample for the current time and advances the clock.
func (s *Synthetic) Next() (Sample, bool) {
	if len(s.phases) == 0 || s.step <= 0 || s.done {
		return Sample{}, false
	}
	// Tolerance keeps accumulated steps from spilling one sample into the next phase.
	for s.phaseT >= s.phases[s.phase].Duration-1e-9 {
		s.phaseT -= s.phases[s.phase].Duration
		s.phase++
		if s.phase >= len(s.phases) {
			if !s.loop {
				s.done = true
				return Sample{}, false
			}
			s.phase = 0
		}
	}

	p := s.phases[s.phase]
	// Phase offset keeps sampled bob peaks off exact sample boundaries.
	bob := p.BobAmplitude * math.Sin(2*math.Pi*p.BobHz*s.t+math.Pi/10)

	sample := Sample{
		Head: Vec3{X: s.headX, Y: s.eyeLevel + bob, Z: 0},
		Hand: BuildHand(p.Hand),
	}
	sample.Hand.Wrist.X += p.ArmSwing * math.Sin(math.Pi*p.BobHz*s.t)

	s.headX += p.Speed * s.step
	s.t += s.step
	s.phaseT += s.step
	return sample, true
}

// Done reports whether a non-looping script has run out.
func (s *Synthetic) Done() bool {
	return s.done
}

// Elapsed returns the synthetic time in seconds.
func (s *Synthetic) Elapsed() float64 {
	return s.t
}

// WalkThenHold returns a demo script: walk, stop, grip a handle, then pinch.
func WalkThenHold() []Phase {
	return []Phase{
		{Duration: 4, Speed: 0.6, BobAmplitude: 0.02, BobHz: 2, ArmSwing: 40, Hand: OpenHandShape()},
		{Duration: 2, Hand: OpenHandShape()},
		{Duration: 3, Hand: GripHandShape()},
		{Duration: 3, Hand: PinchHandShape()},
	}
}
