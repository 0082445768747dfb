// Package camera holds the camera model contract consumed by the visual
// odometry engine, a pinhole implementation of it, and the camera/LiDAR/IMU
// extrinsic calibration.
package camera

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Model is the calibrated projection contract the engine aligns against.
// Points are in the camera frame, pixels in image coordinates.
type Model interface {
	// Width returns the image width in pixels.
	Width() int
	// Height returns the image height in pixels.
	Height() int
	// Fx returns the horizontal focal length in pixels.
	Fx() float64
	// Fy returns the vertical focal length in pixels.
	Fy() float64
	// Project maps a camera-frame point with positive depth to a pixel.
	Project(p r3.Vector) r2.Point
	// Unproject maps a pixel to the unit ray through it.
	Unproject(px r2.Point) r3.Vector
	// InFrame reports whether px lies at least border pixels inside
	// every image edge.
	InFrame(px r2.Point, border int) bool
}

// ProjectionJacobian returns the 2x3 Jacobian of the pinhole projection with
// respect to the camera-frame point p, the standard
// [[fx/z, 0, -fx x/z^2], [0, fy/z, -fy y/z^2]] form.
func ProjectionJacobian(fx, fy float64, p r3.Vector) [2][3]float64 {
	zInv := 1. / p.Z
	zInv2 := zInv * zInv
	return [2][3]float64{
		{fx * zInv, 0, -fx * p.X * zInv2},
		{0, fy * zInv, -fy * p.Y * zInv2},
	}
}
