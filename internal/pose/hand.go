package pose

import (
	"fmt"
	"strings"
)

// Finger identifies one finger of a tracked hand.
type Finger int

// Fingers in skeleton order.
const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
	NumFingers
)

var fingerNames = [NumFingers]string{"thumb", "index", "middle", "ring", "pinky"}

// String returns the lowercase finger name.
func (f Finger) String() string {
	if f < 0 || f >= NumFingers {
		return fmt.Sprintf("finger(%d)", int(f))
	}
	return fingerNames[f]
}

// MarshalText implements encoding.TextMarshaler.
func (f Finger) MarshalText() ([]byte, error) {
	if f < 0 || f >= NumFingers {
		return nil, fmt.Errorf("invalid finger %d", int(f))
	}
	return []byte(fingerNames[f]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Finger) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range fingerNames {
		if n == name {
			*f = Finger(i)
			return nil
		}
	}
	return fmt.Errorf("unknown finger %q", string(text))
}

// Confidence is the per-finger tracking quality tier reported by the pose source.
type Confidence int

// Confidence tiers, lowest first.
const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

var confidenceNames = [...]string{"low", "medium", "high"}

// String returns the lowercase tier name.
func (c Confidence) String() string {
	if c < 0 || int(c) >= len(confidenceNames) {
		return fmt.Sprintf("confidence(%d)", int(c))
	}
	return confidenceNames[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c Confidence) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(confidenceNames) {
		return nil, fmt.Errorf("invalid confidence %d", int(c))
	}
	return []byte(confidenceNames[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Confidence) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range confidenceNames {
		if n == name {
			*c = Confidence(i)
			return nil
		}
	}
	return fmt.Errorf("unknown confidence %q", string(text))
}

// JointID identifies a bone joint in the hand skeleton.
type JointID int

// Hand joint identifiers. Proximal joints come first within each finger.
const (
	WristRoot JointID = iota
	Thumb0
	Thumb1
	Thumb2
	Thumb3
	Index1
	Index2
	Index3
	Middle1
	Middle2
	Middle3
	Ring1
	Ring2
	Ring3
	Pinky0
	Pinky1
	Pinky2
	Pinky3
	ThumbTip
	IndexTip
	MiddleTip
	RingTip
	PinkyTip
	NumJoints
)

var jointNames = [NumJoints]string{
	"wrist_root",
	"thumb0", "thumb1", "thumb2", "thumb3",
	"index1", "index2", "index3",
	"middle1", "middle2", "middle3",
	"ring1", "ring2", "ring3",
	"pinky0", "pinky1", "pinky2", "pinky3",
	"thumb_tip", "index_tip", "middle_tip", "ring_tip", "pinky_tip",
}

// String returns the joint name.
func (j JointID) String() string {
	if j < 0 || j >= NumJoints {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// MarshalText implements encoding.TextMarshaler.
func (j JointID) MarshalText() ([]byte, error) {
	if j < 0 || j >= NumJoints {
		return nil, fmt.Errorf("invalid joint %d", int(j))
	}
	return []byte(jointNames[j]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (j *JointID) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range jointNames {
		if n == name {
			*j = JointID(i)
			return nil
		}
	}
	return fmt.Errorf("unknown joint %q", string(text))
}

// Joint is a single skeleton joint position in world space.
type Joint struct {
	ID       JointID `json:"id"`
	Position Vec3    `json:"position"`
}

// Hand is the per-tick hand tracking input.
type Hand struct {
	// Valid mirrors the tracker's data-valid flag.
	Valid      bool                   `json:"valid"`
	Joints     []Joint                `json:"joints"`
	Wrist      Euler                  `json:"wrist"`
	Pinch      [NumFingers]float64    `json:"pinch"`
	Confidence [NumFingers]Confidence `json:"confidence"`
}

// Sample is everything the pose source supplies for one tick.
type Sample struct {
	Head Vec3 `json:"head"`
	Hand Hand `json:"hand"`
}

// Triple is the proximal, intermediate and distal joint of one finger.
type Triple [3]JointID

// Topology maps each finger to the joint triple used for its curl.
type Topology map[Finger]Triple

// DefaultTopology returns the triples used by the reference hand skeleton.
// The pinky and thumb start one joint earlier because their first segment carries the bend.
func DefaultTopology() Topology {
	return Topology{
		Thumb:  {Thumb0, Thumb1, Thumb2},
		Index:  {Index1, Index2, Index3},
		Middle: {Middle1, Middle2, Middle3},
		Ring:   {Ring1, Ring2, Ring3},
		Pinky:  {Pinky0, Pinky1, Pinky2},
	}
}

// Missing returns the first joint of t that joints does not contain.
// Fingers are checked in order, thumb first.
func (t Topology) Missing(joints []Joint) (JointID, bool) {
	have := make(map[JointID]bool, len(joints))
	for _, j := range joints {
		have[j.ID] = true
	}
	for f := Thumb; f < NumFingers; f++ {
		triple, ok := t[f]
		if !ok {
			continue
		}
		for _, id := range triple {
			if !have[id] {
				return id, true
			}
		}
	}
	return 0, false
}
