package geom

import (
	"math"
	"testing"
)

func TestVec2Arithmetic(t *testing.T) {
	v := Vec2{X: 3, Y: 4}
	w := Vec2{X: -1, Y: 2}

	if got := v.Add(w); got != (Vec2{X: 2, Y: 6}) {
		t.Errorf("Add = %v", got)
	}
	if got := v.Sub(w); got != (Vec2{X: 4, Y: 2}) {
		t.Errorf("Sub = %v", got)
	}
	if got := v.Scale(2); got != (Vec2{X: 6, Y: 8}) {
		t.Errorf("Scale = %v", got)
	}
	if got := v.Norm2(); got != 25 {
		t.Errorf("Norm2 = %v", got)
	}
	if got := v.Norm(); got != 5 {
		t.Errorf("Norm = %v", got)
	}
}

func TestMat2Inverse(t *testing.T) {
	m := Mat2{M00: 4, M01: 1, M10: 2, M11: 3}
	inv, ok := m.Inverse(1e-12)
	if !ok {
		t.Fatal("matrix should be invertible")
	}

	// m · inv = I
	i00 := m.M00*inv.M00 + m.M01*inv.M10
	i01 := m.M00*inv.M01 + m.M01*inv.M11
	i10 := m.M10*inv.M00 + m.M11*inv.M10
	i11 := m.M10*inv.M01 + m.M11*inv.M11
	if math.Abs(i00-1) > 1e-12 || math.Abs(i11-1) > 1e-12 ||
		math.Abs(i01) > 1e-12 || math.Abs(i10) > 1e-12 {
		t.Errorf("m·inv != I: [%v %v; %v %v]", i00, i01, i10, i11)
	}
}

func TestMat2Inverse_Singular(t *testing.T) {
	m := Mat2{M00: 1, M01: 2, M10: 2, M11: 4}
	if _, ok := m.Inverse(1e-12); ok {
		t.Error("singular matrix reported invertible")
	}
}

func TestMat2QuadForm(t *testing.T) {
	m := Mat2{M00: 2, M01: 0.5, M10: 0.5, M11: 3}
	v := Vec2{X: 1, Y: -2}
	// 1·1·2 + 1·(-2)·1 + 4·3 = 12
	if got := m.QuadForm(v); got != 12 {
		t.Errorf("QuadForm = %v, want 12", got)
	}
}
