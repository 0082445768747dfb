package odometry

import (
	"image"

	"go.viam.com/lvio/rimage"
	"go.viam.com/lvio/spatialmath"
	"go.viam.com/lvio/visualmap"
)

// Attachment triggers: a new observation is worth keeping once the camera
// has moved far enough, rotated far enough, or the point has drifted far
// enough across the image since its last observation.
const (
	obsTransMin = 0.5
	// obsRotMin is compared against an angle in radians, so it never
	// fires as written; the translation and pixel triggers carry the
	// behavior. Kept for compatibility; the likely intent is 0.1 rad.
	obsRotMin   = 10.0
	obsPixelMin = 40.0
)

// addObservation attaches the current frame as a new observation to each
// working-set point that crossed an attachment trigger, evicting the most
// redundant view from points that are already full.
func (e *Engine) addObservation(img *image.Gray) {
	totalPoints := e.sub.Len()
	if totalPoints == 0 {
		return
	}

	for i := 0; i < totalPoints; i++ {
		pt := e.sub.Points[i]
		if pt == nil {
			continue
		}
		pc := e.frame.W2C(pt.Pos)
		poseCur := e.frame.TCW

		lastFeature := pt.LastObs()
		if lastFeature == nil {
			continue
		}

		addFlag := false

		deltaPose := lastFeature.Pose.Mul(poseCur.Inverse())
		deltaP := deltaPose.Translation().Norm()
		deltaTheta := rotationAngleOrZero(deltaPose)
		if deltaP > obsTransMin || deltaTheta > obsRotMin {
			addFlag = true
		}

		if pc.Sub(lastFeature.Px).Norm() > obsPixelMin {
			addFlag = true
		}

		if len(pt.Obs) >= visualmap.MaxObs {
			if refFtr := pt.FurthestViewObs(e.frame.Pos()); refFtr != nil {
				pt.DeleteObs(refFtr)
			}
		}
		if addFlag {
			pt.Value = rimage.ShiTomasiScore(img, pc.X, pc.Y)
			ray := e.cam.Unproject(pc)
			ftr := visualmap.NewFeature(e.frame.ID, pc, ray, e.frame.TCW, pt.Value, e.sub.SearchLevels[i], e.frame.Pyr[0])
			pt.AddObs(ftr)
			e.frame.AddFeature(ftr)
		}
	}
}

// rotationAngleOrZero is the rotation angle of the pose, zero-guarded
// against trace drift at identity.
func rotationAngleOrZero(p spatialmath.Pose) float64 {
	r := p.Rotation()
	if r.At(0, 0)+r.At(1, 1)+r.At(2, 2) > 3.0-1e-6 {
		return 0
	}
	return spatialmath.RotationAngle(r)
}
