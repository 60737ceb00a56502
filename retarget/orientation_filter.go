package retarget

import "github.com/go-gl/mathgl/mgl64"

// orientationHistory is the per-joint state of the orientation filter.
type orientationHistory struct {
	rawRotation      mgl64.Quat
	filteredRotation mgl64.Quat
	trend            mgl64.Quat
	frameCount       uint32
}

// OrientationFilter is the quaternion twin of PositionFilter: Holt
// double-exponential smoothing with jitter rejection and bounded prediction
// applied to each bone's hierarchical rotation. The distance metric is the
// rotation angle between orientations; radii are radians.
//
// Joints are processed root first so that each joint's absolute rotation can
// be recomputed from its parent's already-updated absolute rotation within
// the same pass.
type OrientationFilter struct {
	params  SmoothingParameters
	history [JointCount]orientationHistory
}

// NewOrientationFilter creates an orientation filter with the given base parameters.
func NewOrientationFilter(params SmoothingParameters) *OrientationFilter {
	f := &OrientationFilter{params: params}
	f.Reset()
	return f
}

// NewDefaultOrientationFilter creates an orientation filter with stock parameters.
func NewDefaultOrientationFilter() *OrientationFilter {
	return NewOrientationFilter(DefaultOrientationSmoothing())
}

// Reset zeroes all per-joint history, forcing every joint to re-seed.
func (f *OrientationFilter) Reset() {
	for i := range f.history {
		f.history[i] = orientationHistory{
			rawRotation:      mgl64.QuatIdent(),
			filteredRotation: mgl64.QuatIdent(),
			trend:            mgl64.QuatIdent(),
		}
	}
}

// Name implements Stage.
func (f *OrientationFilter) Name() string { return "orientation-smoothing" }

// Apply implements Stage.
func (f *OrientationFilter) Apply(skel *Skeleton, _ *FrameContext) {
	f.Update(skel)
}

// Update smooths every bone's hierarchical rotation in place and rebuilds the
// absolute rotations top-down. It is a no-op if the skeleton is nil or not
// fully tracked.
func (f *OrientationFilter) Update(skel *Skeleton) {
	if !skel.IsTracked() {
		return
	}
	for _, jt := range HierarchicalJointOrder {
		params := f.params
		if skel.Joints[jt].TrackingState != JointTracked || isFoot(jt) {
			params = params.relaxed()
		}
		f.filterJoint(skel, jt, params.sanitized())
	}
}

func (f *OrientationFilter) filterJoint(skel *Skeleton, jt JointType, params SmoothingParameters) {
	hist := &f.history[jt]
	bone := &skel.BoneOrientations[jt]

	raw := bone.Hierarchical.Quat
	if quatIsNaN(raw) || skel.Joints[jt].TrackingState == JointNotTracked {
		// Garbage in: hold the last good estimate and re-seed next frame.
		raw = hist.filteredRotation
		hist.frameCount = 0
	}
	raw = ensureNeighborhood(hist.filteredRotation, raw.Normalize())

	var filtered, trend mgl64.Quat
	switch hist.frameCount {
	case 0:
		filtered = raw
		trend = mgl64.QuatIdent()
	case 1:
		filtered = quatSlerp(hist.rawRotation, raw, 0.5)
		diff := hist.filteredRotation.Inverse().Mul(filtered)
		trend = quatSlerp(hist.trend, diff, params.Correction)
	default:
		// Absorb deviations below the jitter radius.
		angle := quatAngle(raw, hist.filteredRotation)
		if angle <= params.JitterRadius {
			filtered = quatSlerp(hist.filteredRotation, raw, angle/params.JitterRadius)
		} else {
			filtered = raw
		}
		predictedPrev := hist.filteredRotation.Mul(hist.trend)
		filtered = quatSlerp(filtered, predictedPrev, params.Smoothing)
		diff := hist.filteredRotation.Inverse().Mul(filtered)
		trend = quatSlerp(hist.trend, diff, params.Correction)
	}

	predicted := filtered.Mul(quatScale(trend, params.Prediction)).Normalize()

	// Never let prediction run further than the deviation bound from raw.
	if angle := quatAngle(predicted, raw); angle > params.MaxDeviationRadius {
		predicted = quatSlerp(raw, predicted, params.MaxDeviationRadius/angle)
	}

	hist.rawRotation = raw
	hist.filteredRotation = filtered.Normalize()
	hist.trend = trend.Normalize()
	hist.frameCount++

	bone.Hierarchical.SetQuat(predicted)
	if jt == JointHipCenter {
		bone.Absolute.SetQuat(predicted)
	} else {
		parentAbs := skel.BoneOrientations[bone.StartJoint].Absolute.Quat
		bone.Absolute.SetQuat(parentAbs.Mul(predicted).Normalize())
	}
}
