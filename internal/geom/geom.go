// Package geom holds the small fixed-size value types shared by the
// simulator and the tracker: 2-D points and 2×2 matrices. The heavier
// 4-state filter algebra lives in gonum; these types are the wire format
// between components and the CSV/report layers.
package geom

import "math"

// Vec2 is a 2-D point or vector in the world frame (metres).
type Vec2 struct {
	X float64
	Y float64
}

// Add returns v + w.
func (v Vec2) Add(w Vec2) Vec2 { return Vec2{v.X + w.X, v.Y + w.Y} }

// Sub returns v - w.
func (v Vec2) Sub(w Vec2) Vec2 { return Vec2{v.X - w.X, v.Y - w.Y} }

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Norm2 returns the squared Euclidean norm.
func (v Vec2) Norm2() float64 { return v.X*v.X + v.Y*v.Y }

// Norm returns the Euclidean norm.
func (v Vec2) Norm() float64 { return math.Sqrt(v.Norm2()) }

// Mat2 is a 2×2 matrix.
type Mat2 struct {
	M00, M01 float64
	M10, M11 float64
}

// Det returns the determinant.
func (m Mat2) Det() float64 { return m.M00*m.M11 - m.M01*m.M10 }

// Inverse returns the inverse and whether the matrix was invertible
// (determinant magnitude above the given floor).
func (m Mat2) Inverse(minDet float64) (Mat2, bool) {
	det := m.Det()
	if math.Abs(det) < minDet {
		return Mat2{}, false
	}
	return Mat2{
		M00: m.M11 / det, M01: -m.M01 / det,
		M10: -m.M10 / det, M11: m.M00 / det,
	}, true
}

// QuadForm returns vᵀ·m·v.
func (m Mat2) QuadForm(v Vec2) float64 {
	return v.X*v.X*m.M00 + v.X*v.Y*(m.M01+m.M10) + v.Y*v.Y*m.M11
}
