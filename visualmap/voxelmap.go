package visualmap

import (
	"math"

	"github.com/golang/geo/r3"
)

// VoxelKey indexes a sparse 3D grid. Coordinates are floored toward
// negative infinity, so points just below zero land in the -1 voxel.
type VoxelKey struct {
	X, Y, Z int64
}

// KeyAt returns the voxel key containing p at the given voxel size.
func KeyAt(p r3.Vector, voxelSize float64) VoxelKey {
	return VoxelKey{
		X: int64(math.Floor(p.X / voxelSize)),
		Y: int64(math.Floor(p.Y / voxelSize)),
		Z: int64(math.Floor(p.Z / voxelSize)),
	}
}

// VoxelMap is the persistent hash index from voxel keys to the map points
// that were inserted inside each voxel. A point lives in exactly one bucket,
// chosen at insertion; it is never re-bucketed afterwards.
type VoxelMap struct {
	voxelSize float64
	buckets   map[VoxelKey][]*Point
	size      int
}

// NewVoxelMap returns an empty map with the given bucket granularity.
func NewVoxelMap(voxelSize float64) *VoxelMap {
	return &VoxelMap{
		voxelSize: voxelSize,
		buckets:   make(map[VoxelKey][]*Point),
	}
}

// VoxelSize returns the bucket granularity.
func (m *VoxelMap) VoxelSize() float64 {
	return m.voxelSize
}

// KeyAt returns the voxel key containing p at this map's granularity.
func (m *VoxelMap) KeyAt(p r3.Vector) VoxelKey {
	return KeyAt(p, m.voxelSize)
}

// Insert appends pt to the bucket containing its position.
func (m *VoxelMap) Insert(pt *Point) {
	k := m.KeyAt(pt.Pos)
	m.buckets[k] = append(m.buckets[k], pt)
	m.size++
}

// At returns the bucket for a key in insertion order, or nil.
func (m *VoxelMap) At(k VoxelKey) []*Point {
	return m.buckets[k]
}

// Len returns the number of occupied voxels.
func (m *VoxelMap) Len() int {
	return len(m.buckets)
}

// Size returns the total number of points in the map.
func (m *VoxelMap) Size() int {
	return m.size
}
