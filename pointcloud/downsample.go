package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

type voxelCoords struct {
	i, j, k int64
}

func coordsAt(p r3.Vector, leaf float64) voxelCoords {
	return voxelCoords{
		i: int64(math.Floor(p.X / leaf)),
		j: int64(math.Floor(p.Y / leaf)),
		k: int64(math.Floor(p.Z / leaf)),
	}
}

// FilterVoxelGrid downsamples a cloud on a regular grid with the given leaf
// size, replacing the points of each occupied voxel by their centroid.
// Output order follows the first appearance of each voxel in the input, so
// repeated calls on the same cloud yield the same result.
func FilterVoxelGrid(cloud PointCloud, leaf float64) PointCloud {
	type accum struct {
		sum r3.Vector
		n   int
	}
	seen := make(map[voxelCoords]*accum)
	order := make([]voxelCoords, 0, cloud.Size())
	cloud.Iterate(func(_ int, p r3.Vector) bool {
		c := coordsAt(p, leaf)
		a, ok := seen[c]
		if !ok {
			a = &accum{}
			seen[c] = a
			order = append(order, c)
		}
		a.sum = a.sum.Add(p)
		a.n++
		return true
	})
	out := NewWithPrealloc(len(order))
	for _, c := range order {
		a := seen[c]
		out.Append(a.sum.Mul(1 / float64(a.n)))
	}
	return out
}
