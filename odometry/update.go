package odometry

import (
	"image"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lvio/camera"
	"go.viam.com/lvio/spatialmath"
	"go.viam.com/lvio/visualmap"
)

// Convergence thresholds on the pose increment: 0.001 degrees of rotation
// and 0.001 cm of translation.
const (
	rotConvergedDeg  = 0.001
	transConvergedCM = 0.001
)

const radToDeg = 57.3

// computeJ runs the iterated photometric Kalman update over the pyramid,
// coarse to fine, then shrinks the covariance if the error improved and
// refreshes the frame pose from the updated state.
func (e *Engine) computeJ(img *image.Gray) {
	if e.sub.Len() == 0 {
		return
	}
	startError := 1e10
	nowError := startError
	for level := visualmap.PyramidLevels - 1; level >= 0; level-- {
		nowError = e.updateState(img, startError, level)
	}
	if nowError < startError {
		// cov -= G * cov
		var gc mat.Dense
		gc.Mul(e.gain, e.state.Cov)
		e.state.Cov.Sub(e.state.Cov, &gc)
	}
	e.updateFrameState()
}

// updateState runs up to MaxIterations Gauss-Newton style Kalman iterations
// at one pyramid level, returning the best mean residual reached.
func (e *Engine) updateState(img *image.Gray, totalResidual float64, level int) float64 {
	totalPoints := e.sub.Len()
	if totalPoints == 0 {
		return 0
	}

	cfg := e.cfg
	patchSize := cfg.PatchSize
	half := patchSize / 2
	area := patchSize * patchSize
	dim := e.state.Dim()
	hDim := totalPoints * area

	width := img.Rect.Dx()
	height := img.Rect.Dy()
	stride := img.Stride
	pix := img.Pix

	oldState := e.state.Clone()
	lastError := totalResidual

	hSub := mat.NewDense(hDim, PoseDims, nil)
	z := mat.NewVecDense(hDim, nil)

	// (cov / img_point_cov)^-1 is constant across iterations.
	var scaledCov, priorInfo mat.Dense
	scaledCov.Scale(1/cfg.ImgPointCov, e.state.Cov)
	if err := priorInfo.Inverse(&scaledCov); err != nil {
		e.logger.Debugw("state covariance not invertible, skipping level", "error", err)
		return lastError
	}

	ekfEnd := false
	for iteration := 0; iteration < cfg.MaxIterations && !ekfEnd; iteration++ {
		errSum := 0.0
		nMeas := 0

		rwiT := transpose(e.state.Rot)
		var rcw mat.Dense
		rcw.Mul(e.rci, rwiT)
		pcw := spatialmath.RotateVec(&rcw, e.state.Pos).Mul(-1).Add(e.pci)
		var jdpDT mat.Dense
		jdpDT.Mul(e.rci, rwiT)

		hSub.Zero()
		z.Zero()

		for i := 0; i < totalPoints; i++ {
			pt := e.sub.Points[i]
			if pt == nil {
				continue
			}
			searchLevel := e.sub.SearchLevels[i]
			pyramidLevel := level + searchLevel
			scale := 1 << uint(pyramidLevel)
			fs := float64(scale)

			pf := spatialmath.RotateVec(&rcw, pt.Pos).Add(pcw)
			if pf.Z <= 0 {
				continue
			}
			pc := e.cam.Project(pf)
			jdpi := camera.ProjectionJacobian(e.cam.Fx(), e.cam.Fy(), pf)
			pHat := spatialmath.Skew(pf)

			uRefI := int(math.Floor(pc.X/fs)) * scale
			vRefI := int(math.Floor(pc.Y/fs)) * scale
			// The gradient stencil reaches one sample left/up and two
			// samples right/down of each patch pixel.
			if uRefI-(half+1)*scale < 0 || vRefI-(half+1)*scale < 0 ||
				uRefI+(half+2)*scale >= width || vRefI+(half+2)*scale >= height {
				continue
			}
			subU := (pc.X - float64(uRefI)) / fs
			subV := (pc.Y - float64(vRefI)) / fs
			wTL := (1 - subU) * (1 - subV)
			wTR := subU * (1 - subV)
			wBL := (1 - subU) * subV
			wBR := subU * subV

			patch := e.sub.Patches[i]
			patchError := 0.0
			for x := 0; x < patchSize; x++ {
				base := (vRefI+(x-half)*scale)*stride + uRefI - half*scale
				for y := 0; y < patchSize; y++ {
					p := base + y*scale
					sample := func(off int) float64 { return float64(pix[p+off]) }
					du := 0.5 * ((wTL*sample(scale) + wTR*sample(scale*2) + wBL*sample(scale*stride+scale) + wBR*sample(scale*stride+scale*2)) -
						(wTL*sample(-scale) + wTR*sample(0) + wBL*sample(scale*stride-scale) + wBR*sample(scale*stride)))
					dv := 0.5 * ((wTL*sample(scale*stride) + wTR*sample(scale+scale*stride) + wBL*sample(stride*scale*2) + wBR*sample(stride*scale*2+scale)) -
						(wTL*sample(-scale*stride) + wTR*sample(-scale*stride+scale) + wBL*sample(0) + wBR*sample(scale)))
					du /= fs
					dv /= fs

					// Chain the image gradient through the projection and
					// the SE(3) kinematics into the IMU frame.
					var jdphi, jdp, jdR, jdt [3]float64
					for c := 0; c < 3; c++ {
						jp := du*jdpi[0][c] + dv*jdpi[1][c]
						jdp[c] = -jp
					}
					for c := 0; c < 3; c++ {
						jdphi[c] = -(jdp[0]*pHat.At(0, c) + jdp[1]*pHat.At(1, c) + jdp[2]*pHat.At(2, c))
						jdR[c] = jdphi[0]*e.jdphiDR.At(0, c) + jdphi[1]*e.jdphiDR.At(1, c) + jdphi[2]*e.jdphiDR.At(2, c) +
							jdp[0]*e.jdpDR.At(0, c) + jdp[1]*e.jdpDR.At(1, c) + jdp[2]*e.jdpDR.At(2, c)
						jdt[c] = jdp[0]*jdpDT.At(0, c) + jdp[1]*jdpDT.At(1, c) + jdp[2]*jdpDT.At(2, c)
					}

					cur := wTL*sample(0) + wTR*sample(scale) + wBL*sample(scale*stride) + wBR*sample(scale*stride+scale)
					res := cur - patch[area*level+x*patchSize+y]

					row := i*area + x*patchSize + y
					z.SetVec(row, res)
					hSub.Set(row, 0, jdR[0])
					hSub.Set(row, 1, jdR[1])
					hSub.Set(row, 2, jdR[2])
					hSub.Set(row, 3, jdt[0])
					hSub.Set(row, 4, jdt[1])
					hSub.Set(row, 5, jdt[2])

					patchError += res * res
					nMeas++
				}
			}
			e.sub.Errors[i] = patchError
			errSum += patchError
		}

		if nMeas == 0 {
			return lastError
		}
		meanError := errSum / float64(nMeas)

		if meanError <= lastError {
			oldState.CopyFrom(e.state)
			lastError = meanError

			// Fold the photometric rows into a Kalman update against the
			// propagated prior, restricted to the pose block.
			var hth6 mat.Dense
			hth6.Mul(hSub.T(), hSub)
			hth := mat.NewDense(dim, dim, nil)
			hth.Slice(0, PoseDims, 0, PoseDims).(*mat.Dense).Copy(&hth6)

			var sum, k1 mat.Dense
			sum.Add(hth, &priorInfo)
			if err := k1.Inverse(&sum); err != nil {
				e.logger.Debugw("measurement information not invertible, ending level", "error", err)
				e.state.CopyFrom(oldState)
				return lastError
			}
			var htz mat.VecDense
			htz.MulVec(hSub.T(), z)

			vec := e.statePropagat.Minus(e.state)

			k1Pose := k1.Slice(0, dim, 0, PoseDims)
			e.gain.Zero()
			e.gain.Slice(0, dim, 0, PoseDims).(*mat.Dense).Mul(k1Pose, &hth6)

			solution := mat.NewVecDense(dim, nil)
			var kz mat.VecDense
			kz.MulVec(k1Pose, &htz)
			var gv mat.VecDense
			gv.MulVec(e.gain.Slice(0, dim, 0, PoseDims), vec.SliceVec(0, PoseDims))
			for r := 0; r < dim; r++ {
				solution.SetVec(r, -kz.AtVec(r)+vec.AtVec(r)-gv.AtVec(r))
			}
			e.state.PlusDelta(solution)

			rotAdd := r3.Vector{X: solution.AtVec(0), Y: solution.AtVec(1), Z: solution.AtVec(2)}
			tAdd := r3.Vector{X: solution.AtVec(3), Y: solution.AtVec(4), Z: solution.AtVec(5)}
			if rotAdd.Norm()*radToDeg < rotConvergedDeg && tAdd.Norm()*100 < transConvergedCM {
				ekfEnd = true
			}
		} else {
			e.state.CopyFrom(oldState)
			ekfEnd = true
		}
	}
	return lastError
}
