package odometry

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/fogleman/gg"

	"go.viam.com/lvio/rimage"
)

// trackedErrMax separates well-tracked working-set points (drawn green)
// from poorly tracked ones (drawn blue).
const trackedErrMax = 8000

// DisplayKeypatch renders the current working set over the frame: one
// filled circle per point, green when its photometric error is low, blue
// otherwise, plus a frequency readout for the given frame duration.
func (e *Engine) DisplayKeypatch(dt time.Duration) image.Image {
	if e.frame == nil {
		return nil
	}
	dc := gg.NewContextForImage(e.frame.Pyr[0])
	if e.sub.Len() == 0 {
		return dc.Image()
	}
	for i, pt := range e.subPoints {
		if pt == nil {
			continue
		}
		pc := e.frame.W2C(pt.Pos)
		c := color.NRGBA{B: 255, A: 255}
		if e.sub.Errors[i] < trackedErrMax {
			c = color.NRGBA{G: 255, A: 255}
		}
		rimage.DrawFilledCircle(dc, pc.X, pc.Y, 6, c)
	}
	hz := 0
	if dt > 0 {
		hz = int(1 / dt.Seconds())
	}
	rimage.DrawString(dc, fmt.Sprintf("%d HZ", hz), image.Point{X: 20, Y: 20}, color.White, 16)
	return dc.Image()
}
