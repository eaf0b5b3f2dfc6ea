package encumbrance

import "math"

// NormalizeAngle maps a in degrees into (-180, 180].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 360)
	if a > 180 {
		a -= 360
	} else if a <= -180 {
		a += 360
	}
	return a
}

// DeltaAngle returns the signed shortest rotation in degrees from `from` to `to`.
//
// The result lies in [-180, 180] and DeltaAngle(x, y) == -DeltaAngle(y, x).
// For a half-turn the sign is picked from the normalized operands so that
// both directions still mirror each other.
func DeltaAngle(from, to float64) float64 {
	d := NormalizeAngle(to - from)
	if d == 180 && NormalizeAngle(to) < NormalizeAngle(from) {
		return -180
	}
	return d
}
