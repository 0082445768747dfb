package odometry

import (
	"image"

	"github.com/golang/geo/r3"

	"go.viam.com/lvio/pointcloud"
	"go.viam.com/lvio/rimage"
	"go.viam.com/lvio/submap"
	"go.viam.com/lvio/visualmap"
)

// grow promotes cloud points into new map points: each grid cell takes the
// projected cloud point with the strongest corner response, provided it
// beats the score of whatever map point already claimed the cell this
// frame, and inserts it into the voxel map with a single observation from
// the current frame.
func (e *Engine) grow(img *image.Gray, cloud pointcloud.PointCloud) {
	// Statuses and distances reset; scores survive from the selection
	// pass so fresh points must out-corner the existing map.
	e.grid.Reset()

	border := e.selector.Border()
	cloud.Iterate(func(_ int, pw r3.Vector) bool {
		pc := e.frame.W2C(pw)
		if !e.cam.InFrame(pc, border) {
			return true
		}
		idx := e.grid.CellIndex(pc)
		curValue := rimage.ShiTomasiScore(img, pc.X, pc.Y)
		if curValue > e.grid.Score[idx] {
			e.grid.Score[idx] = curValue
			e.grid.CloudPoints[idx] = pw
			e.grid.Status[idx] = submap.CellPointCloud
		}
		return true
	})

	added := 0
	for i := 0; i < e.grid.Length; i++ {
		if e.grid.Status[i] != submap.CellPointCloud {
			continue
		}
		pw := e.grid.CloudPoints[i]
		pc := e.frame.W2C(pw)

		pt := visualmap.NewPoint(pw)
		ray := e.cam.Unproject(pc)
		ftr := visualmap.NewFeature(e.frame.ID, pc, ray, e.frame.TCW, e.grid.Score[i], 0, e.frame.Pyr[0])
		pt.AddObs(ftr)
		pt.Value = e.grid.Score[i]
		e.vmap.Insert(pt)
		e.frame.AddFeature(ftr)
		added++
	}
	e.logger.Debugf("added %d 3D points to the visual map", added)
}
