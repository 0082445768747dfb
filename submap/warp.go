package submap

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/lvio/camera"
	"go.viam.com/lvio/rimage"
	"go.viam.com/lvio/spatialmath"
)

// Warp is the cached mapping from one reference feature's neighborhood to
// the current frame.
type Warp struct {
	// SearchLevel is the pyramid level to match at.
	SearchLevel int
	// ACurRef is the 2x2 affine from reference pixels to current pixels.
	ACurRef [2][2]float64
}

// AffineWarpMatrix approximates the pixel deformation between the reference
// view and the current view of a small patch at the reference depth. It
// projects the patch center and two half-patch offsets through the relative
// pose and finite-differences the resulting pixels.
func AffineWarpMatrix(
	cam camera.Model,
	pxRef r2.Point,
	rayRef r3.Vector,
	depthRef float64,
	tCurRef spatialmath.Pose,
	halfpatch int,
) [2][2]float64 {
	xyzRef := rayRef.Mul(depthRef)
	hp := float64(halfpatch)
	xyzDu := cam.Unproject(r2.Point{X: pxRef.X + hp, Y: pxRef.Y})
	xyzDv := cam.Unproject(r2.Point{X: pxRef.X, Y: pxRef.Y + hp})
	xyzDu = xyzDu.Mul(xyzRef.Z / xyzDu.Z)
	xyzDv = xyzDv.Mul(xyzRef.Z / xyzDv.Z)
	pxCur := cam.Project(tCurRef.Apply(xyzRef))
	pxDu := cam.Project(tCurRef.Apply(xyzDu))
	pxDv := cam.Project(tCurRef.Apply(xyzDv))
	return [2][2]float64{
		{(pxDu.X - pxCur.X) / hp, (pxDv.X - pxCur.X) / hp},
		{(pxDu.Y - pxCur.Y) / hp, (pxDv.Y - pxCur.Y) / hp},
	}
}

// BestSearchLevel picks the pyramid level whose scale best matches the area
// change of the warp, halving the absolute determinant until it drops to 3 or
// below.
func BestSearchLevel(a [2][2]float64, maxLevel int) int {
	level := 0
	d := math.Abs(a[0][0]*a[1][1] - a[0][1]*a[1][0])
	for d > 3.0 && level < maxLevel {
		level++
		d *= 0.5
	}
	return level
}

// WarpAffine inverse-warps the reference image into dst's pyramidLevel slice
// so the result is aligned with the current frame. Out-of-bounds samples are
// 0. It reports false when the warp is singular or NaN.
func WarpAffine(
	a [2][2]float64,
	refImg *image.Gray,
	pxRef r2.Point,
	searchLevel, pyramidLevel, halfpatch int,
	dst []float64,
) bool {
	patchSize := 2 * halfpatch
	area := patchSize * patchSize
	det := a[0][0]*a[1][1] - a[0][1]*a[1][0]
	if det == 0 || math.IsNaN(det) {
		return false
	}
	inv := [2][2]float64{
		{a[1][1] / det, -a[0][1] / det},
		{-a[1][0] / det, a[0][0] / det},
	}
	scale := float64(int(1) << uint(searchLevel) << uint(pyramidLevel))
	for y := 0; y < patchSize; y++ {
		for x := 0; x < patchSize; x++ {
			pu := float64(x-halfpatch) * scale
			pv := float64(y-halfpatch) * scale
			u := inv[0][0]*pu + inv[0][1]*pv + pxRef.X
			v := inv[1][0]*pu + inv[1][1]*pv + pxRef.Y
			// BilinearGray returns 0 outside the image.
			dst[area*pyramidLevel+y*patchSize+x] = rimage.BilinearGray(refImg, u, v)
		}
	}
	return true
}

// NCC is the normalized cross correlation between two patches.
func NCC(ref, cur []float64) float64 {
	n := len(ref)
	var sumRef, sumCur float64
	for i := 0; i < n; i++ {
		sumRef += ref[i]
		sumCur += cur[i]
	}
	meanRef := sumRef / float64(n)
	meanCur := sumCur / float64(n)
	var num, den1, den2 float64
	for i := 0; i < n; i++ {
		dr := ref[i] - meanRef
		dc := cur[i] - meanCur
		num += dr * dc
		den1 += dr * dr
		den2 += dc * dc
	}
	return num / math.Sqrt(den1*den2+1e-10)
}
