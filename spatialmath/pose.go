// Package spatialmath provides the rigid-transform and rotation math used
// by the visual odometry pipeline. Rotations are plain 3x3 matrices and
// translations are r3 vectors, matching the conventions of the motion
// estimation stack this package grew out of.
package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Pose is a rigid transform from one frame to another. A Pose is immutable
// once constructed; all operations return fresh values, so a Pose captured
// by value (e.g. the camera pose stored on a feature at capture time)
// stays valid after the owning frame moves on.
type Pose struct {
	rot   *mat.Dense
	trans r3.Vector
}

// NewPose returns a pose with the given rotation and translation.
// The rotation matrix is copied.
func NewPose(rot *mat.Dense, trans r3.Vector) Pose {
	return Pose{rot: mat.DenseCopyOf(rot), trans: trans}
}

// NewPoseIdentity returns the identity transform.
func NewPoseIdentity() Pose {
	return Pose{rot: identity3(), trans: r3.Vector{}}
}

// Rotation returns a copy of the 3x3 rotation matrix.
func (p Pose) Rotation() *mat.Dense {
	if p.rot == nil {
		return identity3()
	}
	return mat.DenseCopyOf(p.rot)
}

// Translation returns the translation component.
func (p Pose) Translation() r3.Vector {
	return p.trans
}

// Apply transforms v by the pose, R*v + t.
func (p Pose) Apply(v r3.Vector) r3.Vector {
	if p.rot == nil {
		return v.Add(p.trans)
	}
	return RotateVec(p.rot, v).Add(p.trans)
}

// Mul composes two poses, so that (p.Mul(q)).Apply(v) == p.Apply(q.Apply(v)).
func (p Pose) Mul(q Pose) Pose {
	pr, qr := p.Rotation(), q.Rotation()
	var r mat.Dense
	r.Mul(pr, qr)
	return Pose{rot: &r, trans: RotateVec(pr, q.trans).Add(p.trans)}
}

// Inverse returns the inverse transform, {R^T, -R^T t}.
func (p Pose) Inverse() Pose {
	rt := p.Rotation()
	rt = transpose3(rt)
	return Pose{rot: rt, trans: RotateVec(rt, p.trans).Mul(-1)}
}

// RotateVec multiplies a 3x3 matrix with a vector.
func RotateVec(r *mat.Dense, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: r.At(0, 0)*v.X + r.At(0, 1)*v.Y + r.At(0, 2)*v.Z,
		Y: r.At(1, 0)*v.X + r.At(1, 1)*v.Y + r.At(1, 2)*v.Z,
		Z: r.At(2, 0)*v.X + r.At(2, 1)*v.Y + r.At(2, 2)*v.Z,
	}
}

func identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

func transpose3(r *mat.Dense) *mat.Dense {
	out := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, r.At(j, i))
		}
	}
	return out
}
