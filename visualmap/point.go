package visualmap

import (
	"github.com/golang/geo/r3"
)

// MaxObs bounds how many observations a point keeps; adding beyond it
// evicts the most redundant view first.
const MaxObs = 20

// closeViewMinCos is cos(60 degrees); reference views further from the
// current viewing direction than that are useless for warping.
const closeViewMinCos = 0.5

// Point is a 3D map point with a bounded multi-view observation history.
// Its world position is fixed at creation.
type Point struct {
	// Pos is the world position.
	Pos r3.Vector
	// Value is the corner score from the most recent creation or update.
	Value float64
	// Obs holds the observations, oldest first.
	Obs []*Feature
}

// NewPoint returns a point at the given world position.
func NewPoint(pos r3.Vector) *Point {
	return &Point{Pos: pos}
}

// AddObs attaches a new observation of this point.
func (pt *Point) AddObs(ftr *Feature) {
	ftr.Point = pt
	pt.Obs = append(pt.Obs, ftr)
}

// DeleteObs detaches an observation, nulling the feature's back reference.
func (pt *Point) DeleteObs(ftr *Feature) {
	for i, o := range pt.Obs {
		if o == ftr {
			pt.Obs = append(pt.Obs[:i], pt.Obs[i+1:]...)
			ftr.Point = nil
			return
		}
	}
}

// LastObs returns the most recent observation, or nil if there is none.
func (pt *Point) LastObs() *Feature {
	if len(pt.Obs) == 0 {
		return nil
	}
	return pt.Obs[len(pt.Obs)-1]
}

// CloseViewObs returns the observation whose viewing direction is closest to
// the one from framePos, or false if every candidate is more than 60 degrees
// away.
func (pt *Point) CloseViewObs(framePos r3.Vector) (*Feature, bool) {
	obsDir := framePos.Sub(pt.Pos)
	n := obsDir.Norm()
	if n == 0 {
		return nil, false
	}
	obsDir = obsDir.Mul(1 / n)
	var best *Feature
	maxCos := -1.0
	for _, ftr := range pt.Obs {
		dir := ftr.Pos().Sub(pt.Pos)
		dn := dir.Norm()
		if dn == 0 {
			continue
		}
		c := dir.Mul(1 / dn).Dot(obsDir)
		if c > maxCos {
			maxCos = c
			best = ftr
		}
	}
	if best == nil || maxCos < closeViewMinCos {
		return nil, false
	}
	return best, true
}

// FurthestViewObs returns the observation whose viewing direction differs
// most from the one from framePos, or nil if there are no observations.
func (pt *Point) FurthestViewObs(framePos r3.Vector) *Feature {
	obsDir := framePos.Sub(pt.Pos)
	n := obsDir.Norm()
	if n == 0 || len(pt.Obs) == 0 {
		return nil
	}
	obsDir = obsDir.Mul(1 / n)
	var worst *Feature
	minCos := 2.0
	for _, ftr := range pt.Obs {
		dir := ftr.Pos().Sub(pt.Pos)
		dn := dir.Norm()
		if dn == 0 {
			continue
		}
		c := dir.Mul(1 / dn).Dot(obsDir)
		if c < minCos {
			minCos = c
			worst = ftr
		}
	}
	return worst
}
