package submap

import (
	"image"
	"math"
)

// GetPatch bilinearly samples a patchSize x patchSize patch around pc out of
// img at the given pyramid level and writes it into the level-th slice of
// dst, laid out as dst[area*level + row*patchSize + col]. Samples whose
// 2x2 interpolation support leaves the image are 0.
func GetPatch(img *image.Gray, pc [2]float64, dst []float64, level, patchSize int) {
	half := patchSize / 2
	area := patchSize * patchSize
	scale := 1 << uint(level)
	fs := float64(scale)
	uRefI := int(math.Floor(pc[0]/fs)) * scale
	vRefI := int(math.Floor(pc[1]/fs)) * scale
	subU := (pc[0] - float64(uRefI)) / fs
	subV := (pc[1] - float64(vRefI)) / fs
	wTL := (1 - subU) * (1 - subV)
	wTR := subU * (1 - subV)
	wBL := (1 - subU) * subV
	wBR := subU * subV

	w := img.Rect.Dx()
	h := img.Rect.Dy()
	stride := img.Stride
	for row := 0; row < patchSize; row++ {
		r := vRefI + (row-half)*scale
		for col := 0; col < patchSize; col++ {
			c := uRefI + (col-half)*scale
			if r < 0 || c < 0 || r+scale >= h || c+scale >= w {
				dst[area*level+row*patchSize+col] = 0
				continue
			}
			i := r*stride + c
			dst[area*level+row*patchSize+col] = wTL*float64(img.Pix[i]) +
				wTR*float64(img.Pix[i+scale]) +
				wBL*float64(img.Pix[i+scale*stride]) +
				wBR*float64(img.Pix[i+scale*stride+scale])
		}
	}
}
