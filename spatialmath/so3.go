package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Skew returns the skew-symmetric cross-product matrix [v]x.
func Skew(v r3.Vector) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v.Z, v.Y,
		v.Z, 0, -v.X,
		-v.Y, v.X, 0,
	})
}

// ExpSO3 maps an axis-angle vector to a rotation matrix via the Rodrigues
// formula. Near zero the first-order expansion I + [w]x is used.
func ExpSO3(w r3.Vector) *mat.Dense {
	theta := w.Norm()
	k := Skew(w)
	out := identity3()
	if theta < 1e-10 {
		out.Add(out, k)
		return out
	}
	var k2 mat.Dense
	k2.Mul(k, k)
	var term mat.Dense
	term.Scale(math.Sin(theta)/theta, k)
	out.Add(out, &term)
	term.Scale((1-math.Cos(theta))/(theta*theta), &k2)
	out.Add(out, &term)
	return out
}

// LogSO3 maps a rotation matrix to its axis-angle vector.
func LogSO3(r *mat.Dense) r3.Vector {
	theta := RotationAngle(r)
	v := r3.Vector{
		X: r.At(2, 1) - r.At(1, 2),
		Y: r.At(0, 2) - r.At(2, 0),
		Z: r.At(1, 0) - r.At(0, 1),
	}
	if theta < 1e-10 {
		return v.Mul(0.5)
	}
	return v.Mul(theta / (2 * math.Sin(theta)))
}

// RotationAngle returns the rotation angle of r in radians,
// acos((tr(R)-1)/2) clamped against numerical drift.
func RotationAngle(r *mat.Dense) float64 {
	c := 0.5 * (r.At(0, 0) + r.At(1, 1) + r.At(2, 2) - 1)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}
