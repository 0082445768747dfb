package odometry

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/lvio/camera"
	"go.viam.com/lvio/spatialmath"
	"go.viam.com/lvio/submap"
	"go.viam.com/lvio/visualmap"
)

// TestComputeJConvergence perturbs the pose by about a degree and a
// centimeter away from the pose the image was rendered at and checks the
// photometric update pulls it back.
func TestComputeJConvergence(t *testing.T) {
	img := testImage()

	state, err := NewState(18)
	test.That(t, err, test.ShouldBeNil)
	// weak prior so the photometric rows dominate
	state.Cov.Scale(1e4, state.Cov)

	// the perturbed pose is both the starting estimate and the
	// propagated prior
	perturbRot := r3.Vector{X: 0.010, Y: -0.008, Z: 0.012} // ~1 degree total
	perturbPos := r3.Vector{X: 0.006, Y: -0.005, Z: 0.006} // ~1 cm total
	state.Rot = spatialmath.ExpSO3(perturbRot)
	state.Pos = perturbPos
	propagat := state.Clone()

	cfg := DefaultConfig()
	cfg.MaxIterations = 8
	e, err := NewEngine(cfg, testCam(), camera.IdentityExtrinsics(), state, propagat, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	frame, err := visualmap.NewFrame(e.cam, img)
	test.That(t, err, test.ShouldBeNil)
	e.frame = frame

	// the image was rendered at the identity pose: reference patches are
	// sampled there, so the true pose is the identity
	patchSize := cfg.PatchSize
	area := patchSize * patchSize
	e.sub.Reset()
	for i := -2; i <= 2; i++ {
		for j := -2; j <= 2; j++ {
			pw := r3.Vector{X: 0.3 * float64(i), Y: 0.3 * float64(j), Z: 3}
			pt := visualmap.NewPoint(pw)
			px := e.cam.Project(pw) // identity pose projection
			patch := make([]float64, area*visualmap.PyramidLevels)
			for lvl := 0; lvl < visualmap.PyramidLevels; lvl++ {
				submap.GetPatch(img, [2]float64{px.X, px.Y}, patch, lvl, patchSize)
			}
			e.sub.Append(pt, patch, 0, 0, 0)
		}
	}

	rotErrBefore := spatialmath.RotationAngle(state.Rot)
	posErrBefore := state.Pos.Norm()
	covBefore := state.Cov.At(0, 0)

	e.computeJ(img)

	rotErrAfter := spatialmath.RotationAngle(state.Rot)
	posErrAfter := state.Pos.Norm()

	test.That(t, rotErrAfter, test.ShouldBeLessThan, rotErrBefore*0.5)
	test.That(t, posErrAfter, test.ShouldBeLessThan, posErrBefore*0.5)
	test.That(t, state.Cov.At(0, 0), test.ShouldBeLessThan, covBefore)
}

func TestUpdateStateEmptySubMap(t *testing.T) {
	e := newTestEngine(t)
	frame, err := visualmap.NewFrame(e.cam, testImage())
	test.That(t, err, test.ShouldBeNil)
	e.frame = frame
	e.sub.Reset()

	got := e.updateState(testImage(), 1e10, 0)
	test.That(t, got, test.ShouldEqual, 0)

	// computeJ on an empty working set is a no-op
	_, posBefore := e.state.Pose()
	e.computeJ(testImage())
	_, posAfter := e.state.Pose()
	test.That(t, posAfter, test.ShouldResemble, posBefore)
}

func TestUpdateStateZeroPatchErrorFinite(t *testing.T) {
	img := testImage()
	e := newTestEngine(t)
	frame, err := visualmap.NewFrame(e.cam, img)
	test.That(t, err, test.ShouldBeNil)
	e.frame = frame

	// hand the update a patch of zeros: the residuals stay large whatever
	// the pose, and the level must still end on a finite, positive mean
	// error
	patchSize := e.cfg.PatchSize
	area := patchSize * patchSize
	pw := r3.Vector{Z: 3}
	e.sub.Reset()
	e.sub.Append(visualmap.NewPoint(pw), make([]float64, area*visualmap.PyramidLevels), 0, 0, 0)

	got := e.updateState(img, 1e10, 0)
	test.That(t, math.IsNaN(got), test.ShouldBeFalse)
	test.That(t, got, test.ShouldBeGreaterThan, 0.0)
}
