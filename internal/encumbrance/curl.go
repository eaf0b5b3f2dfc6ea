package encumbrance

import "github.com/ayusman/gaitgrip/internal/pose"

// Curl returns 180 minus the angle in degrees between the bones p0->p1 and p1->p2.
// Collinear bones read 180 and the value drops as the finger folds.
func Curl(p0, p1, p2 pose.Vec3) float64 {
	return 180 - pose.AngleDeg(p1.Sub(p0), p2.Sub(p1))
}

// average returns the mean of values over the given fingers, or 0 for an empty subset.
func average(values [pose.NumFingers]float64, fingers []pose.Finger) float64 {
	if len(fingers) == 0 {
		return 0
	}
	var sum float64
	for _, f := range fingers {
		sum += values[f]
	}
	return sum / float64(len(fingers))
}

// jointIndex resolves joint IDs to positions in a skeleton slice.
// It is rebuilt only when the skeleton layout changes.
type jointIndex struct {
	layout []pose.JointID
	pos    [pose.NumJoints]int
}

// resolve makes sure the index matches joints.
func (ix *jointIndex) resolve(joints []pose.Joint) {
	if ix.matches(joints) {
		return
	}
	for i := range ix.pos {
		ix.pos[i] = -1
	}
	ix.layout = ix.layout[:0]
	for i, j := range joints {
		ix.layout = append(ix.layout, j.ID)
		if j.ID >= 0 && j.ID < pose.NumJoints && ix.pos[j.ID] < 0 {
			ix.pos[j.ID] = i
		}
	}
}

func (ix *jointIndex) matches(joints []pose.Joint) bool {
	if ix.layout == nil || len(ix.layout) != len(joints) {
		return false
	}
	for i, j := range joints {
		if ix.layout[i] != j.ID {
			return false
		}
	}
	return true
}

// lookup returns the slice position of id, or -1.
func (ix *jointIndex) lookup(id pose.JointID) int {
	if id < 0 || id >= pose.NumJoints {
		return -1
	}
	return ix.pos[id]
}
