// Package submap builds the per-frame working set: the image grid that picks
// one map point per cell, the affine warps from reference views, and the
// reference patches the photometric update aligns against.
package submap

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/lvio/visualmap"
)

// CellStatus says what currently owns a grid cell.
type CellStatus uint8

// Cell states: untouched, won by a raw cloud point, or won by a map point.
const (
	CellUnknown CellStatus = iota
	CellPointCloud
	CellMap
)

const initialCellDist = 10000

// Grid partitions the image into cells of CellSize pixels and keeps, per
// cell, the best map point by distance, the best corner score, and the best
// raw cloud point. Scores survive Reset so that map growth competes against
// the map points already selected this frame; use ResetScores to clear them.
type Grid struct {
	// CellSize is the cell side length in pixels.
	CellSize int
	// Cols and Rows are the grid dimensions in cells.
	Cols, Rows int
	// Length is Cols*Rows.
	Length int
	// Status is the per-cell state.
	Status []CellStatus
	// Score is the per-cell best corner score.
	Score []float64
	// Dist is the per-cell smallest camera-to-point distance.
	Dist []float64
	// MapPoints is the per-cell chosen map point.
	MapPoints []*visualmap.Point
	// CloudPoints is the per-cell chosen raw cloud point, in world
	// coordinates.
	CloudPoints []r3.Vector
}

// NewGrid sizes a grid for an image of the given pixel dimensions.
func NewGrid(width, height, cellSize int) *Grid {
	cols := width / cellSize
	rows := height / cellSize
	length := cols * rows
	g := &Grid{
		CellSize:    cellSize,
		Cols:        cols,
		Rows:        rows,
		Length:      length,
		Status:      make([]CellStatus, length),
		Score:       make([]float64, length),
		Dist:        make([]float64, length),
		MapPoints:   make([]*visualmap.Point, length),
		CloudPoints: make([]r3.Vector, length),
	}
	g.Reset()
	return g
}

// CellIndex maps a pixel to its cell. The layout is column major:
// cells advance down a column before moving right.
func (g *Grid) CellIndex(px r2.Point) int {
	return int(px.X)/g.CellSize*g.Rows + int(px.Y)/g.CellSize
}

// Reset clears statuses, distances, and chosen points, but keeps scores.
func (g *Grid) Reset() {
	for i := 0; i < g.Length; i++ {
		g.Status[i] = CellUnknown
		g.Dist[i] = initialCellDist
		g.MapPoints[i] = nil
		g.CloudPoints[i] = r3.Vector{}
	}
}

// ResetScores clears the per-cell corner scores.
func (g *Grid) ResetScores() {
	for i := range g.Score {
		g.Score[i] = 0
	}
}
