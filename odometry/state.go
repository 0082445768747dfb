// Package odometry drives the visual half of the LiDAR-inertial-visual
// estimator: it associates map points with the current image, refines the
// pose with an iterated photometric Kalman update, and grows the visual map.
package odometry

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lvio/spatialmath"
)

// PoseDims is the number of leading error-state dimensions that carry the
// pose: three for rotation, three for translation. They are the only
// dimensions this subsystem measures directly.
const PoseDims = 6

// State is the shared filter state handle. It is owned by the inertial
// propagation side; the visual engine holds the write window for the pose
// block and the covariance only during Detect. Dimensions beyond the pose
// block (velocity, biases, gravity) are opaque here.
type State struct {
	// Rot is the IMU-to-world rotation.
	Rot *mat.Dense
	// Pos is the IMU position in the world.
	Pos r3.Vector
	// Aux holds the remaining error-state dimensions, nil when the state
	// is pose only.
	Aux *mat.VecDense
	// Cov is the full error-state covariance.
	Cov *mat.Dense
}

// NewState returns an identity state of the given error-state dimension
// with identity covariance.
func NewState(dim int) (*State, error) {
	if dim < PoseDims {
		return nil, errors.Errorf("state dimension %d smaller than pose block %d", dim, PoseDims)
	}
	cov := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		cov.Set(i, i, 1)
	}
	var aux *mat.VecDense
	if dim > PoseDims {
		aux = mat.NewVecDense(dim-PoseDims, nil)
	}
	return &State{
		Rot: mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}),
		Pos: r3.Vector{},
		Aux: aux,
		Cov: cov,
	}, nil
}

// Dim returns the error-state dimension.
func (s *State) Dim() int {
	if s.Aux == nil {
		return PoseDims
	}
	return PoseDims + s.Aux.Len()
}

// Pose returns the rotation and position block.
func (s *State) Pose() (*mat.Dense, r3.Vector) {
	return mat.DenseCopyOf(s.Rot), s.Pos
}

// SetPose overwrites the pose block.
func (s *State) SetPose(rot *mat.Dense, pos r3.Vector) {
	s.Rot = mat.DenseCopyOf(rot)
	s.Pos = pos
}

// Covariance returns the full covariance matrix; the visual engine reads
// and writes only through the pose block.
func (s *State) Covariance() *mat.Dense {
	return s.Cov
}

// Clone deep-copies the state.
func (s *State) Clone() *State {
	out := &State{
		Rot: mat.DenseCopyOf(s.Rot),
		Pos: s.Pos,
		Cov: mat.DenseCopyOf(s.Cov),
	}
	if s.Aux != nil {
		out.Aux = mat.VecDenseCopyOf(s.Aux)
	}
	return out
}

// CopyFrom overwrites this state with o.
func (s *State) CopyFrom(o *State) {
	s.Rot.Copy(o.Rot)
	s.Pos = o.Pos
	if s.Aux != nil {
		s.Aux.CopyVec(o.Aux)
	}
	s.Cov.Copy(o.Cov)
}

// Minus returns the error-state difference s ⊟ o: the rotation part is the
// log of the relative rotation, everything else subtracts componentwise.
func (s *State) Minus(o *State) *mat.VecDense {
	dim := s.Dim()
	out := mat.NewVecDense(dim, nil)
	var rel mat.Dense
	rel.Mul(o.Rot.T(), s.Rot)
	dr := spatialmath.LogSO3(&rel)
	out.SetVec(0, dr.X)
	out.SetVec(1, dr.Y)
	out.SetVec(2, dr.Z)
	dp := s.Pos.Sub(o.Pos)
	out.SetVec(3, dp.X)
	out.SetVec(4, dp.Y)
	out.SetVec(5, dp.Z)
	for i := PoseDims; i < dim; i++ {
		out.SetVec(i, s.Aux.AtVec(i-PoseDims)-o.Aux.AtVec(i-PoseDims))
	}
	return out
}

// PlusDelta applies an error-state increment: the rotation part through the
// exponential map, everything else additively.
func (s *State) PlusDelta(delta *mat.VecDense) {
	dr := r3.Vector{X: delta.AtVec(0), Y: delta.AtVec(1), Z: delta.AtVec(2)}
	var rot mat.Dense
	rot.Mul(s.Rot, spatialmath.ExpSO3(dr))
	s.Rot.Copy(&rot)
	s.Pos = s.Pos.Add(r3.Vector{X: delta.AtVec(3), Y: delta.AtVec(4), Z: delta.AtVec(5)})
	dim := s.Dim()
	for i := PoseDims; i < dim; i++ {
		s.Aux.SetVec(i-PoseDims, s.Aux.AtVec(i-PoseDims)+delta.AtVec(i))
	}
}
