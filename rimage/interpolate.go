package rimage

import (
	"image"
	"math"
)

// BilinearGray samples img at the sub-pixel position (u, v) with bilinear
// interpolation. Samples whose 2x2 interpolation support leaves the image
// (u < 0, v < 0, u >= width-1 or v >= height-1) return 0.
func BilinearGray(img *image.Gray, u, v float64) float64 {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	if u < 0 || v < 0 || u >= float64(w-1) || v >= float64(h-1) {
		return 0
	}
	ui := int(math.Floor(u))
	vi := int(math.Floor(v))
	su := u - float64(ui)
	sv := v - float64(vi)
	wTL := (1 - su) * (1 - sv)
	wTR := su * (1 - sv)
	wBL := (1 - su) * sv
	wBR := su * sv
	i := vi*img.Stride + ui
	return wTL*float64(img.Pix[i]) +
		wTR*float64(img.Pix[i+1]) +
		wBL*float64(img.Pix[i+img.Stride]) +
		wBR*float64(img.Pix[i+img.Stride+1])
}
