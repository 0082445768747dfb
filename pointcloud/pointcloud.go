// Package pointcloud defines a point cloud and provides an implementation
// for one.
//
// The implementation here is a flat, order-preserving store: the odometry
// pipeline depends on iterating points in the order they arrived.
package pointcloud

import (
	"github.com/golang/geo/r3"
)

// PointCloud is a general purpose container of points.
type PointCloud interface {
	// Size returns the number of points in the cloud.
	Size() int

	// Append adds a point to the cloud.
	Append(p r3.Vector)

	// At returns the i-th point in insertion order.
	At(i int) r3.Vector

	// Iterate iterates over all points in insertion order and calls the
	// given function for each point. If the supplied function returns
	// false, iteration stops.
	Iterate(fn func(i int, p r3.Vector) bool)
}

type basicPointCloud struct {
	points []r3.Vector
}

// New returns a new empty PointCloud backed by a slice.
func New() PointCloud {
	return &basicPointCloud{}
}

// NewWithPrealloc returns a new empty PointCloud with preallocated storage.
func NewWithPrealloc(size int) PointCloud {
	return &basicPointCloud{points: make([]r3.Vector, 0, size)}
}

func (cloud *basicPointCloud) Size() int {
	return len(cloud.points)
}

func (cloud *basicPointCloud) Append(p r3.Vector) {
	cloud.points = append(cloud.points, p)
}

func (cloud *basicPointCloud) At(i int) r3.Vector {
	return cloud.points[i]
}

func (cloud *basicPointCloud) Iterate(fn func(i int, p r3.Vector) bool) {
	for i, p := range cloud.points {
		if !fn(i, p) {
			return
		}
	}
}
