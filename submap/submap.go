package submap

import (
	"go.viam.com/lvio/visualmap"
)

// SubMap is the per-frame working set of map points associated to the
// current image, stored as parallel slices indexed by selection order.
type SubMap struct {
	// Points are the selected map points.
	Points []*visualmap.Point
	// Patches are the reference patches, three pyramid levels
	// concatenated per point.
	Patches [][]float64
	// SearchLevels is the pyramid level chosen from the warp determinant.
	SearchLevels []int
	// Errors is the latest photometric error per point.
	Errors []float64
	// PropaErrors is the photometric error before the update.
	PropaErrors []float64
	// CellIndex is the grid cell each point won.
	CellIndex []int
}

// NewSubMap returns an empty working set.
func NewSubMap() *SubMap {
	return &SubMap{}
}

// Len returns the number of selected points.
func (sm *SubMap) Len() int {
	return len(sm.Points)
}

// Reset drops all entries.
func (sm *SubMap) Reset() {
	sm.Points = sm.Points[:0]
	sm.Patches = sm.Patches[:0]
	sm.SearchLevels = sm.SearchLevels[:0]
	sm.Errors = sm.Errors[:0]
	sm.PropaErrors = sm.PropaErrors[:0]
	sm.CellIndex = sm.CellIndex[:0]
}

// Append adds one selected point with its reference patch and metadata.
func (sm *SubMap) Append(pt *visualmap.Point, patch []float64, searchLevel int, err float64, cell int) {
	sm.Points = append(sm.Points, pt)
	sm.Patches = append(sm.Patches, patch)
	sm.SearchLevels = append(sm.SearchLevels, searchLevel)
	sm.Errors = append(sm.Errors, err)
	sm.PropaErrors = append(sm.PropaErrors, err)
	sm.CellIndex = append(sm.CellIndex, cell)
}
