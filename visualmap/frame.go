package visualmap

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/lvio/camera"
	"go.viam.com/lvio/pyramid"
	"go.viam.com/lvio/spatialmath"
)

// PyramidLevels is how many pyramid levels each frame carries; the
// photometric update walks levels 2 down to 0.
const PyramidLevels = 3

var frameCounter int

// Frame is one camera image together with its pose, pyramid, and the
// features attached to it. Key point slots 0..4 hold the features most
// representative of the image center and the four quadrants.
type Frame struct {
	// ID is assigned from a process-wide monotonic counter.
	ID int
	// Cam is the camera the image came from.
	Cam camera.Model
	// Pyr is the image pyramid, level 0 the original image.
	Pyr []*image.Gray
	// TCW is the world-to-camera transform.
	TCW spatialmath.Pose
	// KeyPts are the five representative features: center, then the four
	// quadrants NE, NW, SW, SE.
	KeyPts [5]*Feature
	// Fts are the features attached to this frame.
	Fts []*Feature
	// IsKeyframe marks frames retained as map references.
	IsKeyframe bool
}

// NewFrame builds a frame around a grayscale image, checking it against the
// camera model and constructing the pyramid.
func NewFrame(cam camera.Model, img *image.Gray) (*Frame, error) {
	if img == nil {
		return nil, errors.New("frame: nil image")
	}
	if img.Rect.Dx() != cam.Width() || img.Rect.Dy() != cam.Height() {
		return nil, errors.Errorf("frame: image %dx%d does not match camera model %dx%d",
			img.Rect.Dx(), img.Rect.Dy(), cam.Width(), cam.Height())
	}
	pyr, err := pyramid.Build(img, PyramidLevels)
	if err != nil {
		return nil, err
	}
	f := &Frame{
		ID:  frameCounter,
		Cam: cam,
		Pyr: pyr,
		TCW: spatialmath.NewPoseIdentity(),
	}
	frameCounter++
	return f, nil
}

// Pos returns the camera origin in world coordinates.
func (fr *Frame) Pos() r3.Vector {
	return fr.TCW.Inverse().Translation()
}

// W2F transforms a world point into the camera frame.
func (fr *Frame) W2F(pw r3.Vector) r3.Vector {
	return fr.TCW.Apply(pw)
}

// W2C projects a world point to a pixel in this frame.
func (fr *Frame) W2C(pw r3.Vector) r2.Point {
	return fr.Cam.Project(fr.TCW.Apply(pw))
}

// IsVisible reports whether a world point projects inside the image with
// positive depth.
func (fr *Frame) IsVisible(pw r3.Vector) bool {
	pf := fr.W2F(pw)
	if pf.Z < 0 {
		return false
	}
	px := fr.Cam.Project(pf)
	return px.X >= 0 && px.Y >= 0 && px.X < float64(fr.Cam.Width()) && px.Y < float64(fr.Cam.Height())
}

// SetKeyframe marks the frame as a keyframe and reselects its key points.
func (fr *Frame) SetKeyframe() {
	fr.IsKeyframe = true
	fr.SetKeyPoints()
}

// AddFeature attaches a feature and lets it compete for the key point slots.
func (fr *Frame) AddFeature(ftr *Feature) {
	fr.Fts = append(fr.Fts, ftr)
	if ftr.Point != nil {
		fr.checkKeyPoints(ftr)
	}
}

// SetKeyPoints clears slots whose feature lost its point and reruns the
// slot competition over all attached features.
func (fr *Frame) SetKeyPoints() {
	for i := range fr.KeyPts {
		if fr.KeyPts[i] != nil && fr.KeyPts[i].Point == nil {
			fr.KeyPts[i] = nil
		}
	}
	for _, ftr := range fr.Fts {
		if ftr.Point != nil {
			fr.checkKeyPoints(ftr)
		}
	}
}

// checkKeyPoints lets ftr challenge each slot: slot 0 wants the feature
// closest to the image center under the Chebyshev distance; each quadrant
// slot wants the feature pushed deepest into its quadrant, scored by the
// sign-corrected product of the center offsets.
func (fr *Frame) checkKeyPoints(ftr *Feature) {
	cu := float64(fr.Cam.Width() / 2)
	cv := float64(fr.Cam.Height() / 2)
	du := ftr.Px.X - cu
	dv := ftr.Px.Y - cv

	if fr.KeyPts[0] == nil {
		fr.KeyPts[0] = ftr
	} else if math.Max(math.Abs(du), math.Abs(dv)) <
		math.Max(math.Abs(fr.KeyPts[0].Px.X-cu), math.Abs(fr.KeyPts[0].Px.Y-cv)) {
		fr.KeyPts[0] = ftr
	}

	// quadrant slots 1..4: NE, NW, SW, SE
	quads := [4][2]float64{
		{1, 1},   // NE: u >= cu, v >= cv
		{1, -1},  // NW: u >= cu, v < cv
		{-1, -1}, // SW: u < cu, v < cv
		{-1, 1},  // SE: u < cu, v >= cv
	}
	for q, sgn := range quads {
		inU := du >= 0 == (sgn[0] > 0)
		inV := dv >= 0 == (sgn[1] > 0)
		if !inU || !inV {
			continue
		}
		slot := q + 1
		cur := fr.KeyPts[slot]
		if cur == nil {
			fr.KeyPts[slot] = ftr
			continue
		}
		if sgn[0]*du*sgn[1]*dv > sgn[0]*(cur.Px.X-cu)*sgn[1]*(cur.Px.Y-cv) {
			fr.KeyPts[slot] = ftr
		}
	}
}

// RemoveKeyPoint clears any slot holding ftr and reselects.
func (fr *Frame) RemoveKeyPoint(ftr *Feature) {
	found := false
	for i := range fr.KeyPts {
		if fr.KeyPts[i] == ftr {
			fr.KeyPts[i] = nil
			found = true
		}
	}
	if found {
		fr.SetKeyPoints()
	}
}
