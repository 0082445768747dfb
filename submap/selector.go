package submap

import (
	"image"
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/lvio/camera"
	"go.viam.com/lvio/pointcloud"
	"go.viam.com/lvio/visualmap"
)

// depthContinuityMax is the largest depth jump, in meters, tolerated inside
// a candidate's patch neighborhood before it is treated as occluded.
const depthContinuityMax = 1.5

const maxSearchLevel = 2

// Selector picks, per grid cell, the map point best supported by the current
// image: nearest to the camera, depth-continuous, with a usable reference
// view and a photometrically consistent patch.
type Selector struct {
	cam              camera.Model
	logger           golog.Logger
	patchSize        int
	nccEnabled       bool
	nccThreshold     float64
	outlierThreshold float64

	// warps memoizes the affine warp per reference frame id for the
	// duration of one Select call.
	warps map[int]*Warp
}

// NewSelector returns a selector for the given camera and patch parameters.
func NewSelector(cam camera.Model, logger golog.Logger, patchSize int, nccEnabled bool, nccThreshold, outlierThreshold float64) *Selector {
	return &Selector{
		cam:              cam,
		logger:           logger,
		patchSize:        patchSize,
		nccEnabled:       nccEnabled,
		nccThreshold:     nccThreshold,
		outlierThreshold: outlierThreshold,
	}
}

// Border returns the safe image border for this selector's patch size.
func (s *Selector) Border() int {
	return (s.patchSize/2 + 1) * 8
}

// Select populates sm with the map points associated to the current frame.
// cloud must already be downsampled. It returns the selected points for
// display. The grid's statuses and distances are reset here; its scores are
// reset too, and afterwards hold the best map-point score per cell so map
// growth can compete against them. When the map is empty it returns nil
// without touching the grid.
func (s *Selector) Select(
	frame *visualmap.Frame,
	img *image.Gray,
	cloud pointcloud.PointCloud,
	vmap *visualmap.VoxelMap,
	grid *Grid,
	sm *SubMap,
) []*visualmap.Point {
	sm.Reset()
	s.warps = make(map[int]*Warp)
	if vmap.Len() == 0 {
		return nil
	}

	grid.Reset()
	grid.ResetScores()

	width := s.cam.Width()
	height := s.cam.Height()
	half := s.patchSize / 2
	area := s.patchSize * s.patchSize
	border := s.Border()

	// Project the cloud into a sparse depth image, used only for the
	// occlusion test, and record which voxels the cloud touches.
	depth := make([]float32, width*height)
	visited := make([]visualmap.VoxelKey, 0, cloud.Size())
	seen := make(map[visualmap.VoxelKey]struct{}, cloud.Size())
	camPos := frame.Pos()

	cloud.Iterate(func(_ int, pw r3.Vector) bool {
		k := vmap.KeyAt(pw)
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			visited = append(visited, k)
		}
		pc := frame.W2F(pw)
		if pc.Z > 0 {
			px := s.cam.Project(pc)
			if s.cam.InFrame(px, border) {
				depth[width*int(px.Y)+int(px.X)] = float32(pc.Z)
			}
		}
		return true
	})

	// Gather candidate map points from the visited voxels, keeping per
	// cell the nearest point and the best corner score.
	for _, k := range visited {
		for _, pt := range vmap.At(k) {
			if pt == nil {
				continue
			}
			ptCam := frame.W2F(pt.Pos)
			if ptCam.Z < 0 {
				continue
			}
			pc := frame.W2C(pt.Pos)
			if !s.cam.InFrame(pc, border) {
				continue
			}
			idx := grid.CellIndex(pc)
			grid.Status[idx] = CellMap
			dist := camPos.Sub(pt.Pos).Norm()
			if dist <= grid.Dist[idx] {
				grid.Dist[idx] = dist
				grid.MapPoints[idx] = pt
			}
			if pt.Value >= grid.Score[idx] {
				grid.Score[idx] = pt.Value
			}
		}
	}

	// Refine each winning cell: occlusion, reference view, warp, patch,
	// photometric pre-filter.
	patchCache := make([]float64, area)
	for i := 0; i < grid.Length; i++ {
		if grid.Status[i] != CellMap {
			continue
		}
		pt := grid.MapPoints[i]
		if pt == nil {
			continue
		}
		pc := frame.W2C(pt.Pos)
		ptCam := frame.W2F(pt.Pos)

		if depthDiscontinuous(depth, width, pc, ptCam.Z, half) {
			continue
		}

		refFtr, ok := pt.CloseViewObs(camPos)
		if !ok {
			continue
		}

		warp, cached := s.warps[refFtr.FrameID]
		if !cached {
			a := AffineWarpMatrix(s.cam, refFtr.Px, refFtr.Ray,
				refFtr.Pos().Sub(pt.Pos).Norm(),
				frame.TCW.Mul(refFtr.Pose.Inverse()), half)
			warp = &Warp{SearchLevel: BestSearchLevel(a, maxSearchLevel), ACurRef: a}
			s.warps[refFtr.FrameID] = warp
		}

		patchWrap := make([]float64, area*visualmap.PyramidLevels)
		warpOK := true
		for lvl := 0; lvl < visualmap.PyramidLevels; lvl++ {
			if !WarpAffine(warp.ACurRef, refFtr.Img, refFtr.Px, warp.SearchLevel, lvl, half, patchWrap) {
				warpOK = false
				break
			}
		}
		if !warpOK {
			s.logger.Debug("affine warp is singular, dropping candidate")
			continue
		}

		GetPatch(img, [2]float64{pc.X, pc.Y}, patchCache, 0, s.patchSize)

		if s.nccEnabled {
			if NCC(patchWrap[:area], patchCache) < s.nccThreshold {
				continue
			}
		}

		var photoErr float64
		for ind := 0; ind < area; ind++ {
			d := patchWrap[ind] - patchCache[ind]
			photoErr += d * d
		}
		if photoErr > s.outlierThreshold*float64(area) {
			continue
		}

		sm.Append(pt, patchWrap, warp.SearchLevel, photoErr, i)
	}

	s.logger.Debugf("chose %d points for the working set", sm.Len())
	return append([]*visualmap.Point(nil), sm.Points...)
}

// depthDiscontinuous scans the patch neighborhood of pc in the depth image
// for samples more than depthContinuityMax away from z; a hit means the
// candidate is probably occluded by something closer.
func depthDiscontinuous(depth []float32, width int, pc r2.Point, z float64, half int) bool {
	col := int(pc.X)
	row := int(pc.Y)
	for u := -half; u <= half; u++ {
		for v := -half; v <= half; v++ {
			if u == 0 && v == 0 {
				continue
			}
			d := depth[width*(row+v)+col+u]
			if d == 0 {
				continue
			}
			if math.Abs(z-float64(d)) > depthContinuityMax {
				return true
			}
		}
	}
	return false
}
