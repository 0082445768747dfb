// Package visualmap holds the persistent visual map: frames, features,
// map points, and the voxel index over them.
package visualmap

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/lvio/spatialmath"
)

// Feature is one observation of a map point: a pixel in a particular frame,
// together with the viewing ray and camera pose at capture time. The pose and
// level-0 image are captured by value/reference here so a feature stays
// usable after its frame is gone.
type Feature struct {
	// FrameID is the id of the frame this feature was extracted in.
	FrameID int
	// Px is the sub-pixel image position.
	Px r2.Point
	// Ray is the unit viewing ray in the camera frame at capture time.
	Ray r3.Vector
	// Pose is the world-to-camera transform at capture time.
	Pose spatialmath.Pose
	// Score is the corner score at creation.
	Score float64
	// Level is the pyramid level the feature was extracted at.
	Level int
	// Img is the level-0 image of the capture frame.
	Img *image.Gray
	// Point is the map point this feature observes, nil once detached.
	Point *Point
}

// NewFeature returns a feature captured in the given frame.
func NewFeature(frameID int, px r2.Point, ray r3.Vector, pose spatialmath.Pose, score float64, level int, img *image.Gray) *Feature {
	return &Feature{
		FrameID: frameID,
		Px:      px,
		Ray:     ray,
		Pose:    pose,
		Score:   score,
		Level:   level,
		Img:     img,
	}
}

// Pos returns the capture camera's origin in world coordinates.
func (f *Feature) Pos() r3.Vector {
	return f.Pose.Inverse().Translation()
}
