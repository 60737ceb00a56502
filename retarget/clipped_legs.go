package retarget

// Gate indices into the clipped-legs blend array.
const (
	gateKneeLeft = iota
	gateAnkleLeft
	gateFootLeft
	gateKneeRight
	gateAnkleRight
	gateFootRight
	gateCount
)

// ClippedLegsFilter blends heavily smoothed leg estimates over the raw joints
// when a leg drops out of the camera's field of view. The blend weight per
// lower-leg joint is a timed gate that eases in and out, so tracking-state
// flicker never produces a visible snap.
type ClippedLegsFilter struct {
	filter   *PositionFilter
	filtered *Skeleton
	gates    [gateCount]*TimedLerp
}

// NewClippedLegsFilter creates the filter with the stock floaty smoothing
// profile and half-second ease-in / quarter-second ease-out gates.
func NewClippedLegsFilter() *ClippedLegsFilter {
	clf := &ClippedLegsFilter{
		filter: NewPositionFilter(ClippedLegsSmoothing()),
	}
	for i := range clf.gates {
		clf.gates[i] = NewTimedLerp(0.5, 0.25)
	}
	return clf
}

// Reset clears the smoothed copy, the filter history, and all gates.
func (clf *ClippedLegsFilter) Reset() {
	clf.filter.Reset()
	clf.filtered = nil
	for _, gate := range clf.gates {
		gate.Reset()
	}
}

// GateValue returns the current linear blend weight of one gate; used by the
// pipeline's diagnostics and tests.
func (clf *ClippedLegsFilter) GateValue(gate int) float64 {
	return clf.gates[gate].Value()
}

// Name implements Stage.
func (clf *ClippedLegsFilter) Name() string { return "clipped-legs" }

// Apply implements Stage.
func (clf *ClippedLegsFilter) Apply(skel *Skeleton, frame *FrameContext) {
	clf.FilterSkeleton(skel, frame.DeltaT)
}

// FilterSkeleton advances the gates by dt and, where a gate is open, blends
// the joint from its raw position toward the heavily smoothed estimate.
// It reports whether any joint was modified.
func (clf *ClippedLegsFilter) FilterSkeleton(skel *Skeleton, dt float64) bool {
	if !skel.IsTracked() {
		return false
	}

	for _, gate := range clf.gates {
		gate.Tick(dt)
	}

	// Maintain the floaty shadow copy regardless of clipping so the
	// estimate is warm when a leg does drop out.
	clf.filtered = skel.Copy()
	clf.filter.Update(clf.filtered)

	// Without a reliable body frame there is nothing to judge clipping
	// against.
	if !skel.JointAtLeastInferred(JointHipCenter) ||
		!skel.JointAtLeastInferred(JointHipLeft) ||
		!skel.JointAtLeastInferred(JointHipRight) {
		return false
	}

	bottomClipped := skel.ClippedEdges.Has(ClippedBottom)

	leftBlend := legBlendTargets(skel, JointKneeLeft, JointAnkleLeft, JointFootLeft, bottomClipped)
	rightBlend := legBlendTargets(skel, JointKneeRight, JointAnkleRight, JointFootRight, bottomClipped)

	clf.gates[gateKneeLeft].SetEnabled(leftBlend[0])
	clf.gates[gateAnkleLeft].SetEnabled(leftBlend[1])
	clf.gates[gateFootLeft].SetEnabled(leftBlend[2])
	clf.gates[gateKneeRight].SetEnabled(rightBlend[0])
	clf.gates[gateAnkleRight].SetEnabled(rightBlend[1])
	clf.gates[gateFootRight].SetEnabled(rightBlend[2])

	updated := false
	updated = clf.blendJoint(skel, JointKneeLeft, gateKneeLeft, JointTracked) || updated
	updated = clf.blendJoint(skel, JointAnkleLeft, gateAnkleLeft, JointTracked) || updated
	updated = clf.blendJoint(skel, JointFootLeft, gateFootLeft, JointInferred) || updated
	updated = clf.blendJoint(skel, JointKneeRight, gateKneeRight, JointTracked) || updated
	updated = clf.blendJoint(skel, JointAnkleRight, gateAnkleRight, JointTracked) || updated
	updated = clf.blendJoint(skel, JointFootRight, gateFootRight, JointInferred) || updated
	return updated
}

// legBlendTargets picks the discrete blend mask for one leg based on the
// highest untracked joint, halved when the body is not flagged as clipped by
// the bottom field-of-view edge.
func legBlendTargets(skel *Skeleton, knee, ankle, foot JointType, bottomClipped bool) [3]float64 {
	var mask [3]float64
	switch {
	case skel.Joints[knee].TrackingState == JointNotTracked:
		mask = [3]float64{1, 1, 1}
	case skel.Joints[ankle].TrackingState == JointNotTracked:
		mask = [3]float64{0.5, 1, 1}
	case skel.Joints[foot].TrackingState == JointNotTracked:
		mask = [3]float64{0, 0, 1}
	default:
		return [3]float64{0, 0, 0}
	}
	if !bottomClipped {
		for i := range mask {
			mask[i] *= 0.5
		}
	}
	return mask
}

// blendJoint cosine-eases one joint from raw toward the smoothed copy and
// stamps the provenance tracking state while its gate is open.
func (clf *ClippedLegsFilter) blendJoint(skel *Skeleton, jt JointType, gate int, provenance JointTrackingState) bool {
	if clf.gates[gate].Value() <= 0 {
		return false
	}
	alpha := clf.gates[gate].SmoothValue()
	raw := skel.Joints[jt].Position
	smoothed := clf.filtered.Joints[jt].Position
	skel.Joints[jt].Position = vecLerp(raw, smoothed, alpha)
	skel.Joints[jt].TrackingState = provenance
	return true
}
