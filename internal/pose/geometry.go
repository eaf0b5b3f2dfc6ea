// Package pose provides the per-tick motion-capture data model consumed by the classifiers
// and the sources that produce it.
package pose

import "math"

// Vec3 represents a 3D point or direction in tracking space.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Scale returns v multiplied by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Len returns the Euclidean length of v.
func (v Vec3) Len() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalized returns v scaled to unit length.
// Vectors shorter than 1e-10 normalize to the zero vector.
func (v Vec3) Normalized() Vec3 {
	l := v.Len()
	if l < 1e-10 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// AngleDeg returns the unsigned angle between a and b in degrees, in [0, 180].
// Returns 0 when either vector is degenerate.
func AngleDeg(a, b Vec3) float64 {
	denom := a.Len() * b.Len()
	if denom < 1e-15 {
		return 0
	}
	cos := a.Dot(b) / denom
	// Rounding can push |cos| a hair above 1.
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// Vec2 is a horizontal (ground-plane) vector made of the X and Z components of a Vec3.
type Vec2 struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Horizontal projects v onto the ground plane.
func (v Vec3) Horizontal() Vec2 {
	return Vec2{X: v.X, Z: v.Z}
}

// Len returns the length of the horizontal vector.
func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Z)
}

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Z*o.Z
}

// Normalized returns v scaled to unit length, or the zero vector when v is degenerate.
func (v Vec2) Normalized() Vec2 {
	l := v.Len()
	if l < 1e-10 {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Z: v.Z / l}
}

// Euler is an orientation expressed as three axis rotations in degrees.
type Euler struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}
