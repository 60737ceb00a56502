package retarget

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// FrameContext carries the per-frame sensor context consumed by time- and
// environment-dependent stages. It is frame-scoped: the animator never
// retains it beyond the Update call.
type FrameContext struct {
	// DeltaT is the monotonic elapsed time since the previous frame in
	// seconds. Zero means the time source was unavailable; time-dependent
	// stages then make no smoothing progress instead of failing.
	DeltaT float64
	// FloorPlane holds the detected floor plane equation coefficients
	// (Ax+By+Cz+D=0). The zero vector means no plane was detected.
	FloorPlane mgl64.Vec4
	// TiltAngleDeg is the sensor's motor elevation angle in signed degrees.
	TiltAngleDeg int
}

// Stage is one step of the skeleton correction pipeline. Stages mutate the
// skeleton in place and must tolerate nil and untracked skeletons as no-ops.
type Stage interface {
	Name() string
	Apply(skel *Skeleton, frame *FrameContext)
}

// stageFunc adapts a closure to the Stage interface, used for stages whose
// apply signature carries extra state from the animator.
type stageFunc struct {
	name string
	fn   func(*Skeleton, *FrameContext)
}

func (s stageFunc) Name() string                              { return s.name }
func (s stageFunc) Apply(skel *Skeleton, frame *FrameContext) { s.fn(skel, frame) }

// Config selects and tunes the pipeline stages of one animated avatar.
type Config struct {
	ClippedLegs          bool
	SelfIntersection     bool
	TiltCorrection       bool
	FloorOffset          bool
	Mirror               bool
	PositionSmoothing    bool
	BoneConstraints      bool
	OrientationSmoothing bool
	RootStabilizer       bool

	PositionParams    SmoothingParameters
	OrientationParams SmoothingParameters

	// AvatarHipHeight is the target avatar's standing hip height in meters,
	// used by the floor corrector's last-resort inference.
	AvatarHipHeight float64

	// NominalFrameInterval seeds the root stabilizer's motion model.
	NominalFrameInterval float64

	Retarget RetargetConfig
}

// DefaultConfig enables every stage except the floor offset, with stock
// smoothing parameters.
func DefaultConfig() Config {
	return Config{
		ClippedLegs:          true,
		SelfIntersection:     true,
		TiltCorrection:       true,
		FloorOffset:          false,
		Mirror:               true,
		PositionSmoothing:    true,
		BoneConstraints:      true,
		OrientationSmoothing: true,
		RootStabilizer:       true,
		PositionParams:       DefaultPositionSmoothing(),
		OrientationParams:    DefaultOrientationSmoothing(),
		AvatarHipHeight:      0.95,
		NominalFrameInterval: 1.0 / 30.0,
		Retarget:             DefaultRetargetConfig(),
	}
}

// Animator owns one avatar's filter state and runs the full correction and
// retargeting pipeline once per frame. All stages run sequentially on the
// calling goroutine; per-joint history is exclusively owned by each filter
// instance.
//
// The stage order is a behavioral contract: later stages depend on earlier
// ones (the orientation filter reads already-mirrored positions, constraints
// read already-filtered rotations). Do not reorder.
type Animator struct {
	id  uuid.UUID
	cfg Config

	clippedLegs   *ClippedLegsFilter
	selfIntersect SelfIntersectionConstraint
	tilt          *TiltCorrector
	floor         *FloorCorrector
	mirror        MirrorCorrector
	positions     *PositionFilter
	constraints   *BoneConstraints
	orientations  *OrientationFilter
	rootMotion    *RootMotionStabilizer
	retargeter    *Retargeter

	stages []Stage

	lastTrackingID uuid.UUID
	hasTrackingID  bool
}

// NewAnimator builds an animator for one target mesh binding. Setup errors
// (an unusable binding, inconsistent retarget configuration) surface here,
// never during per-frame work.
func NewAnimator(cfg Config, binding *MeshBinding) (*Animator, error) {
	if cfg.NominalFrameInterval <= 0 {
		return nil, errors.New("nominal frame interval must be positive")
	}
	retargeter, err := NewRetargeter(binding, cfg.Retarget)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build retargeter")
	}

	a := &Animator{
		id:           uuid.New(),
		cfg:          cfg,
		clippedLegs:  NewClippedLegsFilter(),
		tilt:         NewTiltCorrector(),
		floor:        NewFloorCorrector(cfg.AvatarHipHeight),
		positions:    NewPositionFilter(cfg.PositionParams),
		constraints:  NewBoneConstraints(),
		orientations: NewOrientationFilter(cfg.OrientationParams),
		rootMotion:   NewRootMotionStabilizer(cfg.NominalFrameInterval),
		retargeter:   retargeter,
	}
	a.stages = a.buildStages()
	return a, nil
}

// buildStages assembles the enabled stages in the fixed pipeline order.
func (a *Animator) buildStages() []Stage {
	var stages []Stage
	if a.cfg.ClippedLegs {
		stages = append(stages, a.clippedLegs)
	}
	if a.cfg.SelfIntersection {
		stages = append(stages, a.selfIntersect)
	}
	if a.cfg.TiltCorrection {
		stages = append(stages, a.tilt)
	}
	if a.cfg.FloorOffset {
		stages = append(stages, a.floor)
	}
	if a.cfg.Mirror {
		stages = append(stages, a.mirror)
	}
	if a.cfg.PositionSmoothing {
		stages = append(stages, a.positions)
	}
	if a.cfg.BoneConstraints {
		stages = append(stages, stageFunc{
			name: "bone-constraints",
			fn: func(skel *Skeleton, _ *FrameContext) {
				a.constraints.Constrain(skel, a.cfg.Mirror)
			},
		})
	}
	if a.cfg.OrientationSmoothing {
		stages = append(stages, a.orientations)
	}
	return stages
}

// ID returns the animator's instance identifier.
func (a *Animator) ID() uuid.UUID {
	return a.id
}

// Stages returns the names of the enabled stages in execution order.
func (a *Animator) Stages() []string {
	names := make([]string, len(a.stages))
	for i, st := range a.stages {
		names[i] = st.Name()
	}
	return names
}

// ClippedLegs exposes the clipped-legs filter, mainly for diagnostics.
func (a *Animator) ClippedLegs() *ClippedLegsFilter {
	return a.clippedLegs
}

// Reset clears all filter state: smoothing histories, running averages,
// blend gates, and the root motion track.
func (a *Animator) Reset() {
	a.clippedLegs.Reset()
	a.tilt.Reset()
	a.floor.Reset()
	a.positions.Reset()
	a.orientations.Reset()
	a.rootMotion.Reset()
}

// Update runs the full pipeline on the frame's working skeleton and refreshes
// the target bone transforms. The skeleton is mutated in place and must not be
// aliased by the caller afterward. A nil or untracked skeleton skips the frame
// wholesale; a PositionOnly skeleton only advances the root placement estimate.
func (a *Animator) Update(skel *Skeleton, frame *FrameContext) error {
	if skel == nil || skel.TrackingState == SkeletonNotTracked {
		return nil
	}
	if frame == nil {
		frame = &FrameContext{}
	}

	// A new tracked identity must not inherit the previous person's state.
	if a.hasTrackingID && skel.TrackingID != a.lastTrackingID {
		a.Reset()
	}
	a.lastTrackingID = skel.TrackingID
	a.hasTrackingID = true

	if skel.TrackingState == SkeletonPositionOnly {
		if a.cfg.RootStabilizer {
			a.rootMotion.Predict()
		}
		return nil
	}

	for _, stage := range a.stages {
		stage.Apply(skel, frame)
	}

	rootPos := a.rootPlacement(skel)
	a.retargeter.Retarget(skel, rootPos)
	return nil
}

// rootPlacement chooses the world placement source for the avatar root:
// the shoulder center in seated mode, otherwise the (optionally stabilized)
// hip center.
func (a *Animator) rootPlacement(skel *Skeleton) mgl64.Vec3 {
	if a.cfg.Retarget.SeatedMode {
		return skel.Joints[JointShoulderCenter].Position
	}
	hip := skel.Joints[JointHipCenter].Position
	if !a.cfg.RootStabilizer {
		return hip
	}
	if err := a.rootMotion.Update(hip); err != nil {
		// A rejected measurement is not fatal; fall back to the last estimate.
		return a.rootMotion.StabilizedPosition(hip)
	}
	return a.rootMotion.StabilizedPosition(hip)
}

// BoneTransforms returns the retargeted per-bone local transform array.
// This is a reference, not a copy.
func (a *Animator) BoneTransforms() []mgl64.Mat4 {
	return a.retargeter.BoneTransforms()
}
