package odometry

import (
	"image"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lvio/camera"
	"go.viam.com/lvio/pointcloud"
	"go.viam.com/lvio/rimage"
	"go.viam.com/lvio/spatialmath"
	"go.viam.com/lvio/submap"
	"go.viam.com/lvio/visualmap"
)

// Stage is the engine lifecycle state.
type Stage uint8

// The engine starts in StageFirstFrame and moves to StageDefaultFrame on the
// first frame that arrives with a usable cloud. There is no way back.
const (
	StageFirstFrame Stage = iota
	StageDefaultFrame
)

// firstFrameMinCloud is how many cloud points the bootstrap frame needs.
const firstFrameMinCloud = 10

// Engine is the photometric alignment and visual map management engine. All
// methods must be called from a single driver goroutine.
type Engine struct {
	cfg    *Config
	cam    camera.Model
	logger golog.Logger
	clk    clock.Clock

	// state and statePropagat are externally owned; the engine is the
	// exclusive writer of their pose block during Detect.
	state         *State
	statePropagat *State

	// camera-to-IMU extrinsics and the constant Jacobian blocks built
	// from them.
	rci     *mat.Dense
	pci     r3.Vector
	jdphiDR *mat.Dense
	jdpDR   *mat.Dense

	vmap      *visualmap.VoxelMap
	grid      *submap.Grid
	selector  *submap.Selector
	sub       *submap.SubMap
	subPoints []*visualmap.Point
	frame     *visualmap.Frame
	stage     Stage

	// gain holds K*H from the last accepted update, used to shrink the
	// covariance once the pyramid loop improves the error.
	gain *mat.Dense

	frameCount int
	aveTotal   float64
}

// NewEngine wires the engine against its collaborators. state and
// statePropagat must share the same error-state dimension.
func NewEngine(
	cfg *Config,
	cam camera.Model,
	ext camera.Extrinsics,
	state, statePropagat *State,
	logger golog.Logger,
) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	if state == nil || statePropagat == nil {
		return nil, errors.New("engine needs both the state and the propagated state")
	}
	if state.Dim() != statePropagat.Dim() {
		return nil, errors.Errorf("state dimensions differ: %d vs %d", state.Dim(), statePropagat.Dim())
	}

	rci, pci := ext.CameraToIMU()
	pic := spatialmath.RotateVec(transpose(rci), pci).Mul(-1)
	var jdpDR mat.Dense
	jdpDR.Mul(rci, spatialmath.Skew(pic))
	jdpDR.Scale(-1, &jdpDR)

	dim := state.Dim()
	e := &Engine{
		cfg:           cfg,
		cam:           cam,
		logger:        logger,
		clk:           clock.New(),
		state:         state,
		statePropagat: statePropagat,
		rci:           rci,
		pci:           pci,
		jdphiDR:       mat.DenseCopyOf(rci),
		jdpDR:         &jdpDR,
		vmap:          visualmap.NewVoxelMap(cfg.VoxelSize),
		grid:          submap.NewGrid(cam.Width(), cam.Height(), cfg.GridSize),
		sub:           submap.NewSubMap(),
		gain:          mat.NewDense(dim, dim, nil),
	}
	e.selector = submap.NewSelector(cam, logger, cfg.PatchSize, cfg.NCCEnabled, cfg.NCCThreshold, cfg.OutlierThreshold)
	return e, nil
}

// Stage returns the lifecycle state.
func (e *Engine) Stage() Stage {
	return e.stage
}

// VoxelMap returns the persistent visual map.
func (e *Engine) VoxelMap() *visualmap.VoxelMap {
	return e.vmap
}

// Frame returns the frame built by the most recent Detect.
func (e *Engine) Frame() *visualmap.Frame {
	return e.frame
}

// SubMap returns the working set of the most recent Detect.
func (e *Engine) SubMap() *submap.SubMap {
	return e.sub
}

// Detect runs one full visual update for a camera image and its de-skewed
// cloud: association, photometric state refinement, observation
// bookkeeping, and map growth. The returned error is a precondition
// violation; every expected failure is absorbed internally.
func (e *Engine) Detect(img image.Image, cloud pointcloud.PointCloud) error {
	start := e.clk.Now()

	gray := rimage.MakeGray(img)
	frame, err := visualmap.NewFrame(e.cam, gray)
	if err != nil {
		return errors.Wrap(err, "detect")
	}
	e.frame = frame
	e.updateFrameState()

	if e.stage == StageFirstFrame && cloud.Size() > firstFrameMinCloud {
		frame.SetKeyframe()
		e.stage = StageDefaultFrame
	}

	down := pointcloud.FilterVoxelGrid(cloud, e.cfg.LeafSize)
	e.subPoints = e.selector.Select(frame, gray, down, e.vmap, e.grid, e.sub)

	e.grow(gray, cloud)

	e.computeJ(gray)

	e.addObservation(gray)

	elapsed := e.clk.Since(start).Seconds()
	e.frameCount++
	e.aveTotal = e.aveTotal*float64(e.frameCount-1)/float64(e.frameCount) + elapsed/float64(e.frameCount)
	e.logger.Debugf("detect: %d working-set points, %.6fs (avg %.6fs)", e.sub.Len(), elapsed, e.aveTotal)
	return nil
}

// updateFrameState recomputes the current frame's camera pose from the
// shared IMU state through the extrinsics.
func (e *Engine) updateFrameState() {
	rwi, pwi := e.state.Rot, e.state.Pos
	rwiT := transpose(rwi)
	var rcw mat.Dense
	rcw.Mul(e.rci, rwiT)
	pcw := spatialmath.RotateVec(&rcw, pwi).Mul(-1).Add(e.pci)
	e.frame.TCW = spatialmath.NewPose(&rcw, pcw)
}

func transpose(m *mat.Dense) *mat.Dense {
	out := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, m.At(j, i))
		}
	}
	return out
}
