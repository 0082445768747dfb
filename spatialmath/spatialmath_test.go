package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestExpLogRoundTrip(t *testing.T) {
	w := r3.Vector{X: 0.1, Y: -0.2, Z: 0.3}
	r := ExpSO3(w)
	back := LogSO3(r)
	test.That(t, back.X, test.ShouldAlmostEqual, w.X, 1e-10)
	test.That(t, back.Y, test.ShouldAlmostEqual, w.Y, 1e-10)
	test.That(t, back.Z, test.ShouldAlmostEqual, w.Z, 1e-10)

	zero := ExpSO3(r3.Vector{})
	test.That(t, zero.At(0, 0), test.ShouldAlmostEqual, 1)
	test.That(t, zero.At(0, 1), test.ShouldAlmostEqual, 0)
	test.That(t, RotationAngle(zero), test.ShouldAlmostEqual, 0)
}

func TestRotationAngle(t *testing.T) {
	r := ExpSO3(r3.Vector{Z: math.Pi / 2})
	test.That(t, RotationAngle(r), test.ShouldAlmostEqual, math.Pi/2, 1e-10)
	// a quarter turn about z maps x onto y
	v := RotateVec(r, r3.Vector{X: 1})
	test.That(t, v.X, test.ShouldAlmostEqual, 0, 1e-10)
	test.That(t, v.Y, test.ShouldAlmostEqual, 1, 1e-10)
}

func TestPoseComposeInverse(t *testing.T) {
	p := NewPose(ExpSO3(r3.Vector{X: 0.2, Y: 0.1}), r3.Vector{X: 1, Y: 2, Z: 3})
	q := NewPose(ExpSO3(r3.Vector{Z: -0.4}), r3.Vector{X: -1, Z: 0.5})

	v := r3.Vector{X: 0.3, Y: -0.7, Z: 2}
	lhs := p.Mul(q).Apply(v)
	rhs := p.Apply(q.Apply(v))
	test.That(t, lhs.X, test.ShouldAlmostEqual, rhs.X, 1e-12)
	test.That(t, lhs.Y, test.ShouldAlmostEqual, rhs.Y, 1e-12)
	test.That(t, lhs.Z, test.ShouldAlmostEqual, rhs.Z, 1e-12)

	round := p.Inverse().Apply(p.Apply(v))
	test.That(t, round.X, test.ShouldAlmostEqual, v.X, 1e-12)
	test.That(t, round.Y, test.ShouldAlmostEqual, v.Y, 1e-12)
	test.That(t, round.Z, test.ShouldAlmostEqual, v.Z, 1e-12)
}

func TestPoseValueCapture(t *testing.T) {
	rot := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	p := NewPose(rot, r3.Vector{X: 1})
	// mutating the source matrix must not leak into the pose
	rot.Set(0, 1, 5)
	test.That(t, p.Rotation().At(0, 1), test.ShouldAlmostEqual, 0)
}

func TestSkew(t *testing.T) {
	a := r3.Vector{X: 1, Y: 2, Z: 3}
	b := r3.Vector{X: -2, Y: 0.5, Z: 4}
	cross := a.Cross(b)
	viaSkew := RotateVec(Skew(a), b)
	test.That(t, viaSkew.X, test.ShouldAlmostEqual, cross.X, 1e-12)
	test.That(t, viaSkew.Y, test.ShouldAlmostEqual, cross.Y, 1e-12)
	test.That(t, viaSkew.Z, test.ShouldAlmostEqual, cross.Z, 1e-12)
}
