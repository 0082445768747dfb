package submap

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/lvio/pointcloud"
	"go.viam.com/lvio/spatialmath"
	"go.viam.com/lvio/visualmap"
)

func newTestSelector(t *testing.T) (*Selector, *visualmap.Frame, *Grid, *SubMap) {
	t.Helper()
	cam := warpTestCam()
	frame, err := visualmap.NewFrame(cam, warpTestImage())
	test.That(t, err, test.ShouldBeNil)
	sel := NewSelector(cam, golog.NewTestLogger(t), 8, false, 0.8, 300)
	return sel, frame, NewGrid(cam.Width(), cam.Height(), 40), NewSubMap()
}

// addMapPoint inserts a map point observed head-on from the origin, which is
// where the test frame's camera sits.
func addMapPoint(vmap *visualmap.VoxelMap, frame *visualmap.Frame, pos r3.Vector, value float64) *visualmap.Point {
	cam := frame.Cam
	pt := visualmap.NewPoint(pos)
	pt.Value = value
	px := cam.Project(pos)
	ftr := visualmap.NewFeature(frame.ID, px, cam.Unproject(px), spatialmath.NewPoseIdentity(), value, 0, frame.Pyr[0])
	pt.AddObs(ftr)
	vmap.Insert(pt)
	return pt
}

func cloudOf(pts ...r3.Vector) pointcloud.PointCloud {
	pc := pointcloud.New()
	for _, p := range pts {
		pc.Append(p)
	}
	return pc
}

func TestSelectEmptyMap(t *testing.T) {
	sel, frame, grid, sm := newTestSelector(t)
	vmap := visualmap.NewVoxelMap(0.5)

	got := sel.Select(frame, frame.Pyr[0], cloudOf(r3.Vector{Z: 2}), vmap, grid, sm)
	test.That(t, got, test.ShouldBeNil)
	test.That(t, sm.Len(), test.ShouldEqual, 0)
}

func TestSelectBasic(t *testing.T) {
	sel, frame, grid, sm := newTestSelector(t)
	vmap := visualmap.NewVoxelMap(0.5)
	pos := r3.Vector{X: 0.05, Y: 0.02, Z: 2}
	pt := addMapPoint(vmap, frame, pos, 50)

	got := sel.Select(frame, frame.Pyr[0], cloudOf(pos), vmap, grid, sm)
	test.That(t, sm.Len(), test.ShouldEqual, 1)
	test.That(t, sm.Points[0], test.ShouldEqual, pt)
	test.That(t, sm.SearchLevels[0], test.ShouldEqual, 0)
	test.That(t, sm.Errors[0], test.ShouldBeLessThan, 300.0*64)
	test.That(t, len(got), test.ShouldEqual, 1)
	test.That(t, len(sm.Patches[0]), test.ShouldEqual, 3*64)
}

func TestSelectOcclusionPrefersNearest(t *testing.T) {
	sel, frame, grid, sm := newTestSelector(t)
	vmap := visualmap.NewVoxelMap(0.5)

	// both project into the same 40px cell; the near one must win even
	// though the far one scores higher
	near := addMapPoint(vmap, frame, r3.Vector{Z: 1}, 50)
	farPos := r3.Vector{X: 0.25, Y: 0.125, Z: 5}
	addMapPoint(vmap, frame, farPos, 200)

	cell := grid.CellIndex(frame.W2C(near.Pos))
	test.That(t, grid.CellIndex(frame.W2C(farPos)), test.ShouldEqual, cell)

	sel.Select(frame, frame.Pyr[0], cloudOf(near.Pos, farPos), vmap, grid, sm)
	test.That(t, sm.Len(), test.ShouldEqual, 1)
	test.That(t, sm.Points[0], test.ShouldEqual, near)
	// the cell still remembers the strongest corner score seen
	test.That(t, grid.Score[cell], test.ShouldAlmostEqual, 200)
}

func TestSelectDepthContinuityRejection(t *testing.T) {
	sel, frame, grid, sm := newTestSelector(t)
	vmap := visualmap.NewVoxelMap(0.5)
	pos := r3.Vector{Z: 3}
	addMapPoint(vmap, frame, pos, 50)

	// an occluding cloud point lands two pixels away at 0.5m depth
	occluder := r3.Vector{X: 0.0025, Y: 0, Z: 0.5}
	sel.Select(frame, frame.Pyr[0], cloudOf(pos, occluder), vmap, grid, sm)
	test.That(t, sm.Len(), test.ShouldEqual, 0)
}

func TestSelectRejectsObliqueReference(t *testing.T) {
	sel, frame, grid, sm := newTestSelector(t)
	vmap := visualmap.NewVoxelMap(0.5)

	// the point's only reference view is 70 degrees off the current ray
	pos := r3.Vector{Z: 2}
	angle := 70 * math.Pi / 180
	camPos := pos.Add(r3.Vector{X: 2 * math.Sin(angle), Z: -2 * math.Cos(angle)})
	pt := visualmap.NewPoint(pos)
	pt.Value = 50
	pose := spatialmath.NewPose(spatialmath.ExpSO3(r3.Vector{}), camPos.Mul(-1))
	ftr := visualmap.NewFeature(0, frame.Cam.Project(pos), r3.Vector{Z: 1}, pose, 50, 0, frame.Pyr[0])
	pt.AddObs(ftr)
	vmap.Insert(pt)

	sel.Select(frame, frame.Pyr[0], cloudOf(pos), vmap, grid, sm)
	test.That(t, sm.Len(), test.ShouldEqual, 0)
}

func TestSelectBehindCameraIgnored(t *testing.T) {
	sel, frame, grid, sm := newTestSelector(t)
	vmap := visualmap.NewVoxelMap(0.5)
	addMapPoint(vmap, frame, r3.Vector{Z: 2}, 50)

	// a cloud point in the same voxel but the map point now behind the
	// camera: move the frame far forward
	frame.TCW = spatialmath.NewPose(spatialmath.ExpSO3(r3.Vector{}), r3.Vector{Z: -10})
	sel.Select(frame, frame.Pyr[0], cloudOf(r3.Vector{Z: 2}), vmap, grid, sm)
	test.That(t, sm.Len(), test.ShouldEqual, 0)
}
