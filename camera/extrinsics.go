package camera

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lvio/spatialmath"
)

// Extrinsics is the calibration chain from LiDAR to IMU and from camera to
// LiDAR. The engine composes the two into a single camera-to-IMU transform
// once at construction.
type Extrinsics struct {
	// RotLI and TransLI place the LiDAR in the IMU frame.
	RotLI   *mat.Dense
	TransLI r3.Vector
	// RotCL and TransCL place the LiDAR in the camera frame.
	RotCL   *mat.Dense
	TransCL r3.Vector
}

// IdentityExtrinsics returns extrinsics with all sensors coincident.
func IdentityExtrinsics() Extrinsics {
	return Extrinsics{
		RotLI: mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}),
		RotCL: mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}),
	}
}

// CameraToIMU composes the chain into the rotation and translation taking
// IMU-frame points to the camera frame.
func (e Extrinsics) CameraToIMU() (*mat.Dense, r3.Vector) {
	tIL := spatialmath.NewPose(e.RotLI, e.TransLI).Inverse()
	rli := tIL.Rotation()
	pli := tIL.Translation()

	var rci mat.Dense
	rci.Mul(e.RotCL, rli)
	pci := spatialmath.RotateVec(e.RotCL, pli).Add(e.TransCL)
	return &rci, pci
}
