package pose

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func TestAngleDeg(t *testing.T) {
	tests := []struct {
		name string
		a, b Vec3
		want float64
	}{
		{"same direction", Vec3{X: 1}, Vec3{X: 2}, 0},
		{"perpendicular", Vec3{X: 1}, Vec3{Y: 3}, 90},
		{"opposite", Vec3{Z: 1}, Vec3{Z: -1}, 180},
		{"forty-five", Vec3{X: 1}, Vec3{X: 1, Y: 1}, 45},
		{"degenerate", Vec3{}, Vec3{X: 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AngleDeg(tt.a, tt.b); math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("AngleDeg() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVec3_Horizontal(t *testing.T) {
	h := Vec3{X: 3, Y: 100, Z: 4}.Horizontal()
	if h.Len() != 5 {
		t.Errorf("Len() = %v, want 5", h.Len())
	}
	n := h.Normalized()
	if math.Abs(n.X-0.6) > epsilon || math.Abs(n.Z-0.8) > epsilon {
		t.Errorf("Normalized() = %+v, want {0.6 0.8}", n)
	}
	if (Vec2{}).Normalized() != (Vec2{}) {
		t.Error("zero vector should normalize to zero")
	}
}

func TestVec3_Normalized(t *testing.T) {
	v := Vec3{X: 0, Y: 0, Z: -2}.Normalized()
	if v != (Vec3{Z: -1}) {
		t.Errorf("Normalized() = %+v, want {0 0 -1}", v)
	}
	if (Vec3{X: 1e-12}).Normalized() != (Vec3{}) {
		t.Error("tiny vector should normalize to zero")
	}
}
