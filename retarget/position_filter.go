package retarget

import "github.com/go-gl/mathgl/mgl64"

// positionHistory is the per-joint state of the position filter.
type positionHistory struct {
	rawPosition      mgl64.Vec3
	filteredPosition mgl64.Vec3
	trend            mgl64.Vec3
	frameCount       uint32
}

// PositionFilter applies Holt double-exponential smoothing with jitter
// rejection and bounded prediction to every joint position, independently
// per joint. Filter state persists across frames until Reset.
type PositionFilter struct {
	params  SmoothingParameters
	history [JointCount]positionHistory
}

// NewPositionFilter creates a position filter with the given base parameters.
func NewPositionFilter(params SmoothingParameters) *PositionFilter {
	return &PositionFilter{params: params}
}

// NewDefaultPositionFilter creates a position filter with stock parameters.
func NewDefaultPositionFilter() *PositionFilter {
	return NewPositionFilter(DefaultPositionSmoothing())
}

// Reset zeroes all per-joint history, forcing every joint to re-seed.
func (f *PositionFilter) Reset() {
	f.history = [JointCount]positionHistory{}
}

// Name implements Stage.
func (f *PositionFilter) Name() string { return "position-smoothing" }

// Apply implements Stage.
func (f *PositionFilter) Apply(skel *Skeleton, _ *FrameContext) {
	f.Update(skel)
}

// Update smooths every joint position of the skeleton in place. It is a no-op
// if the skeleton is nil or not fully tracked.
func (f *PositionFilter) Update(skel *Skeleton) {
	if !skel.IsTracked() {
		return
	}
	for _, jt := range HierarchicalJointOrder {
		params := f.params
		if skel.Joints[jt].TrackingState != JointTracked {
			params = params.relaxed()
		}
		f.filterJoint(skel, jt, params.sanitized())
	}
}

func (f *PositionFilter) filterJoint(skel *Skeleton, jt JointType, params SmoothingParameters) {
	hist := &f.history[jt]

	raw := skel.Joints[jt].Position
	if vecIsZero(raw) {
		// Missing data: hold the last good estimate and re-seed next frame.
		raw = hist.filteredPosition
		hist.frameCount = 0
	}

	var filtered, trend mgl64.Vec3
	switch hist.frameCount {
	case 0:
		filtered = raw
	case 1:
		filtered = raw.Add(hist.rawPosition).Mul(0.5)
		diff := filtered.Sub(hist.filteredPosition)
		trend = diff.Mul(params.Correction).Add(hist.trend.Mul(1 - params.Correction))
	default:
		// Absorb deviations below the jitter radius.
		diff := raw.Sub(hist.filteredPosition)
		length := diff.Len()
		if length <= params.JitterRadius {
			alpha := length / params.JitterRadius
			filtered = vecLerp(hist.filteredPosition, raw, alpha)
		} else {
			filtered = raw
		}
		filtered = filtered.Mul(1 - params.Smoothing).
			Add(hist.filteredPosition.Add(hist.trend).Mul(params.Smoothing))
		diff = filtered.Sub(hist.filteredPosition)
		trend = diff.Mul(params.Correction).Add(hist.trend.Mul(1 - params.Correction))
	}

	predicted := filtered.Add(trend.Mul(params.Prediction))

	// Never let prediction run further than the deviation bound from raw.
	diff := predicted.Sub(raw)
	if length := diff.Len(); length > params.MaxDeviationRadius {
		alpha := params.MaxDeviationRadius / length
		predicted = vecLerp(raw, predicted, alpha)
	}

	hist.rawPosition = raw
	hist.filteredPosition = filtered
	hist.trend = trend
	hist.frameCount++

	skel.Joints[jt].Position = predicted
}
