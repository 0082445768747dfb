package camera

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PinholeIntrinsics is a distortion-free pinhole camera.
type PinholeIntrinsics struct {
	W      int     `json:"width_px"`
	H      int     `json:"height_px"`
	FocalX float64 `json:"fx"`
	FocalY float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeIntrinsics have valid inputs.
func (params *PinholeIntrinsics) CheckValid() error {
	if params == nil {
		return errors.New("pinhole intrinsics not defined")
	}
	if params.W <= 0 || params.H <= 0 {
		return errors.Errorf("invalid image dimensions %dx%d", params.W, params.H)
	}
	if params.FocalX <= 0 || params.FocalY <= 0 {
		return errors.Errorf("invalid focal lengths fx=%f fy=%f", params.FocalX, params.FocalY)
	}
	return nil
}

// Width returns the image width in pixels.
func (params *PinholeIntrinsics) Width() int { return params.W }

// Height returns the image height in pixels.
func (params *PinholeIntrinsics) Height() int { return params.H }

// Fx returns the horizontal focal length in pixels.
func (params *PinholeIntrinsics) Fx() float64 { return params.FocalX }

// Fy returns the vertical focal length in pixels.
func (params *PinholeIntrinsics) Fy() float64 { return params.FocalY }

// Project maps a camera-frame point to a pixel.
func (params *PinholeIntrinsics) Project(p r3.Vector) r2.Point {
	return r2.Point{
		X: params.FocalX*p.X/p.Z + params.Ppx,
		Y: params.FocalY*p.Y/p.Z + params.Ppy,
	}
}

// Unproject maps a pixel to the unit ray through it.
func (params *PinholeIntrinsics) Unproject(px r2.Point) r3.Vector {
	v := r3.Vector{
		X: (px.X - params.Ppx) / params.FocalX,
		Y: (px.Y - params.Ppy) / params.FocalY,
		Z: 1,
	}
	return v.Mul(1 / math.Sqrt(v.X*v.X+v.Y*v.Y+1))
}

// InFrame reports whether px lies at least border pixels inside every edge.
func (params *PinholeIntrinsics) InFrame(px r2.Point, border int) bool {
	u := int(px.X)
	v := int(px.Y)
	return u >= border && v >= border && u < params.W-border && v < params.H-border
}
