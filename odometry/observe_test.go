package odometry

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/lvio/spatialmath"
	"go.viam.com/lvio/visualmap"
)

// obsFeatureAt fabricates an observation whose capture camera sits at
// camPos with no rotation.
func obsFeatureAt(pt *visualmap.Point, camPos r3.Vector) *visualmap.Feature {
	pose := spatialmath.NewPose(spatialmath.ExpSO3(r3.Vector{}), camPos.Mul(-1))
	ftr := visualmap.NewFeature(0, r2.Point{}, r3.Vector{Z: 1}, pose, 0, 0, nil)
	pt.AddObs(ftr)
	return ftr
}

func TestAddObservationEviction(t *testing.T) {
	e := newTestEngine(t)
	img := testImage()

	// a point straight ahead of the identity-pose frame
	pt := visualmap.NewPoint(r3.Vector{Z: 5})
	var worst *visualmap.Feature
	for i := 0; i < visualmap.MaxObs; i++ {
		// observation i=7 is nearly head-on; the 80-degree view is the
		// most redundant one once the current ray arrives
		angle := 0.1 + 0.02*float64(i)
		if i == 7 {
			angle = 0.01
		}
		if i == 13 {
			angle = 80 * math.Pi / 180
		}
		camPos := pt.Pos.Add(r3.Vector{X: 5 * math.Sin(angle), Z: -5 * math.Cos(angle)})
		ftr := obsFeatureAt(pt, camPos)
		if i == 13 {
			worst = ftr
		}
	}
	test.That(t, len(pt.Obs), test.ShouldEqual, visualmap.MaxObs)

	frame, err := visualmap.NewFrame(e.cam, img)
	test.That(t, err, test.ShouldBeNil)
	e.frame = frame

	e.sub.Reset()
	e.sub.Append(pt, make([]float64, 3*64), 0, 0, 0)

	// the most recent observation sits >0.5m from the current camera, so
	// the translation trigger fires
	e.addObservation(img)

	test.That(t, len(pt.Obs), test.ShouldEqual, visualmap.MaxObs)
	for _, o := range pt.Obs {
		test.That(t, o, test.ShouldNotEqual, worst)
	}
	test.That(t, worst.Point, test.ShouldBeNil)
	test.That(t, pt.LastObs().FrameID, test.ShouldEqual, frame.ID)
	test.That(t, pt.LastObs().Level, test.ShouldEqual, 0)
}

func TestAddObservationNoTrigger(t *testing.T) {
	e := newTestEngine(t)
	img := testImage()

	pt := visualmap.NewPoint(r3.Vector{Z: 5})
	// last observation from exactly the current pose: no trigger fires
	pose := spatialmath.NewPoseIdentity()
	px := e.cam.Project(pt.Pos)
	ftr := visualmap.NewFeature(0, px, e.cam.Unproject(px), pose, 0, 0, img)
	pt.AddObs(ftr)

	frame, err := visualmap.NewFrame(e.cam, img)
	test.That(t, err, test.ShouldBeNil)
	e.frame = frame

	e.sub.Reset()
	e.sub.Append(pt, make([]float64, 3*64), 0, 0, 0)
	e.addObservation(img)

	test.That(t, len(pt.Obs), test.ShouldEqual, 1)
	test.That(t, pt.LastObs(), test.ShouldEqual, ftr)
}
