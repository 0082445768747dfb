package rimage

import (
	"image"
	"math"
)

// ShiTomasiScore computes the minimum eigenvalue of the image-gradient
// structure tensor over an 8x8 window centered at (u, v). Higher scores mean
// stronger corners. Windows that touch the image border score 0.
func ShiTomasiScore(img *image.Gray, u, v float64) float64 {
	const halfBox = 4
	const boxArea = (2 * halfBox) * (2 * halfBox)

	w := img.Rect.Dx()
	h := img.Rect.Dy()
	x := int(u)
	y := int(v)
	xMin := x - halfBox
	xMax := x + halfBox
	yMin := y - halfBox
	yMax := y + halfBox
	if xMin < 1 || yMin < 1 || xMax >= w-1 || yMax >= h-1 {
		return 0
	}

	var dXX, dYY, dXY float64
	stride := img.Stride
	for row := yMin; row < yMax; row++ {
		i := row*stride + xMin
		for col := xMin; col < xMax; col, i = col+1, i+1 {
			dx := float64(img.Pix[i+1]) - float64(img.Pix[i-1])
			dy := float64(img.Pix[i+stride]) - float64(img.Pix[i-stride])
			dXX += dx * dx
			dYY += dy * dy
			dXY += dx * dy
		}
	}

	dXX /= 2 * boxArea
	dYY /= 2 * boxArea
	dXY /= 2 * boxArea
	return 0.5 * (dXX + dYY - math.Sqrt((dXX+dYY)*(dXX+dYY)-4*(dXX*dYY-dXY*dXY)))
}
