// Package rimage contains the small set of image utilities the odometry
// pipeline needs: grayscale conversion, sub-pixel bilinear sampling,
// corner scoring, and overlay drawing.
package rimage

import (
	"image"
	"image/draw"
)

// MakeGray converts an image to an 8-bit single-channel grayscale image.
// If the input already is one, it is returned unchanged.
func MakeGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	gray := image.NewGray(img.Bounds())
	draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
	return gray
}

// CloneGray returns a copy of a grayscale image.
func CloneGray(img *image.Gray) *image.Gray {
	out := image.NewGray(img.Bounds())
	copy(out.Pix, img.Pix)
	return out
}
