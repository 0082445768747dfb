// Package pyramid builds grayscale image pyramids for coarse-to-fine
// photometric alignment.
package pyramid

import (
	"image"

	"github.com/pkg/errors"
)

// Build produces a pyramid with the given number of levels. Level 0 is the
// input image itself; each further level is a 2x2 box downsample of the one
// before it, sampling at half-integer positions.
func Build(img *image.Gray, levels int) ([]*image.Gray, error) {
	if img == nil {
		return nil, errors.New("pyramid: nil image")
	}
	if levels < 1 {
		return nil, errors.Errorf("pyramid: need at least 1 level, got %d", levels)
	}
	if img.Rect.Dx()>>(levels-1) < 1 || img.Rect.Dy()>>(levels-1) < 1 {
		return nil, errors.Errorf("pyramid: image %dx%d too small for %d levels",
			img.Rect.Dx(), img.Rect.Dy(), levels)
	}
	pyr := make([]*image.Gray, levels)
	pyr[0] = img
	for i := 1; i < levels; i++ {
		pyr[i] = halfSample(pyr[i-1])
	}
	return pyr, nil
}

// halfSample averages each 2x2 block of the input into one output pixel.
func halfSample(in *image.Gray) *image.Gray {
	w := in.Rect.Dx() / 2
	h := in.Rect.Dy() / 2
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		top := 2 * y * in.Stride
		bot := top + in.Stride
		for x := 0; x < w; x++ {
			sum := uint32(in.Pix[top+2*x]) + uint32(in.Pix[top+2*x+1]) +
				uint32(in.Pix[bot+2*x]) + uint32(in.Pix[bot+2*x+1])
			out.Pix[y*out.Stride+x] = uint8(sum / 4)
		}
	}
	return out
}
