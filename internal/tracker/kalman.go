package tracker

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/radar-tracker/internal/geom"
)

// ErrSingularInnovation is returned by KalmanCV2D.Update when the innovation
// covariance S cannot be inverted. With a positive measurement noise this is
// an arithmetic pathology, not a data event, so it surfaces instead of being
// masked.
var ErrSingularInnovation = errors.New("singular innovation covariance")

// minDeterminant is the floor below which a 2×2 innovation covariance is
// treated as singular during gating.
const minDeterminant = 1e-12

// KalmanCV2D is a constant-velocity Kalman filter over the state
// [px, py, vx, vy] with a 2-D position measurement.
//
// Dt, SigmaA and SigmaZ are re-applied by the tracker before every predict,
// so parameters may vary across steps without reconstructing tracks.
type KalmanCV2D struct {
	X *mat.VecDense // state, length 4
	P *mat.Dense    // covariance, 4×4

	Dt     float64 // step length (s)
	SigmaA float64 // process noise acceleration std (m/s²)
	SigmaZ float64 // measurement noise std (m)
}

// NewKalmanCV2D returns a filter with zero state and identity covariance.
func NewKalmanCV2D(dt, sigmaA, sigmaZ float64) *KalmanCV2D {
	return &KalmanCV2D{
		X:      mat.NewVecDense(4, nil),
		P:      identity4(),
		Dt:     dt,
		SigmaA: sigmaA,
		SigmaZ: sigmaZ,
	}
}

func identity4() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// transition returns the constant-velocity transition matrix F for the
// current Dt.
func (kf *KalmanCV2D) transition() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1, 0, kf.Dt, 0,
		0, 1, 0, kf.Dt,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
}

// processNoise returns the discretized continuous white-noise-acceleration
// matrix Q: block (dt⁴/4, dt³/2; dt³/2, dt²) per axis, scaled by σₐ².
func (kf *KalmanCV2D) processNoise() *mat.Dense {
	dt2 := kf.Dt * kf.Dt
	dt3 := dt2 * kf.Dt
	dt4 := dt2 * dt2
	q := kf.SigmaA * kf.SigmaA
	return mat.NewDense(4, 4, []float64{
		dt4 / 4 * q, 0, dt3 / 2 * q, 0,
		0, dt4 / 4 * q, 0, dt3 / 2 * q,
		dt3 / 2 * q, 0, dt2 * q, 0,
		0, dt3 / 2 * q, 0, dt2 * q,
	})
}

// measurementMatrix returns H, which selects position from the state.
func measurementMatrix() *mat.Dense {
	return mat.NewDense(2, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
	})
}

// Predict advances the state by one Dt under the constant-velocity model
// and grows the covariance by the process noise. It never fails.
func (kf *KalmanCV2D) Predict() {
	F := kf.transition()

	var x mat.VecDense
	x.MulVec(F, kf.X)
	kf.X.CopyVec(&x)

	var fp, fpft mat.Dense
	fp.Mul(F, kf.P)
	fpft.Mul(&fp, F.T())
	fpft.Add(&fpft, kf.processNoise())
	kf.P.Copy(&fpft)
}

// InnovationCov returns S = H·P·Hᵀ + R for the current state. Because H
// selects position, S is the position block of P plus σ_z² on the diagonal.
func (kf *KalmanCV2D) InnovationCov() geom.Mat2 {
	r := kf.SigmaZ * kf.SigmaZ
	return geom.Mat2{
		M00: kf.P.At(0, 0) + r, M01: kf.P.At(0, 1),
		M10: kf.P.At(1, 0), M11: kf.P.At(1, 1) + r,
	}
}

// Innovation returns y = z − H·x for the current state.
func (kf *KalmanCV2D) Innovation(z geom.Vec2) geom.Vec2 {
	return geom.Vec2{X: z.X - kf.X.AtVec(0), Y: z.Y - kf.X.AtVec(1)}
}

// Update folds the position measurement z into the state and returns the
// innovation y and innovation covariance S for diagnostics. The covariance
// update uses the P ← (I − K·H)·P form.
func (kf *KalmanCV2D) Update(z geom.Vec2) (geom.Vec2, geom.Mat2, error) {
	H := measurementMatrix()
	r := kf.SigmaZ * kf.SigmaZ

	yv := kf.Innovation(z)
	y := mat.NewVecDense(2, []float64{yv.X, yv.Y})

	var hp, S mat.Dense
	hp.Mul(H, kf.P)
	S.Mul(&hp, H.T())
	S.Set(0, 0, S.At(0, 0)+r)
	S.Set(1, 1, S.At(1, 1)+r)

	Sout := geom.Mat2{
		M00: S.At(0, 0), M01: S.At(0, 1),
		M10: S.At(1, 0), M11: S.At(1, 1),
	}

	var sinv mat.Dense
	if err := sinv.Inverse(&S); err != nil {
		return geom.Vec2{}, geom.Mat2{}, fmt.Errorf("invert S: %w", ErrSingularInnovation)
	}

	// K = P·Hᵀ·S⁻¹
	var pht, K mat.Dense
	pht.Mul(kf.P, H.T())
	K.Mul(&pht, &sinv)

	var ky mat.VecDense
	ky.MulVec(&K, y)
	kf.X.AddVec(kf.X, &ky)

	var kh mat.Dense
	kh.Mul(&K, H)
	ikh := identity4()
	ikh.Sub(ikh, &kh)
	var newP mat.Dense
	newP.Mul(ikh, kf.P)
	kf.P.Copy(&newP)

	return yv, Sout, nil
}

// StateVec returns the state as a fixed array [px, py, vx, vy].
func (kf *KalmanCV2D) StateVec() [4]float64 {
	return [4]float64{kf.X.AtVec(0), kf.X.AtVec(1), kf.X.AtVec(2), kf.X.AtVec(3)}
}

// CovMat returns the covariance as a row-major [16]float64.
func (kf *KalmanCV2D) CovMat() [16]float64 {
	var out [16]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i*4+j] = kf.P.At(i, j)
		}
	}
	return out
}
