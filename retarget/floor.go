package retarget

import "math"

// FloorCorrector translates the skeleton vertically so the feet rest on the
// detected or inferred floor. The offset estimate is a running average owned
// by the instance; Reset clears it.
type FloorCorrector struct {
	// AvatarHipHeight is the configured hip height (meters) of the target
	// avatar, used as the last-resort offset inference.
	AvatarHipHeight float64

	avgOffset float64
	seeded    bool
}

// NewFloorCorrector creates a floor corrector for an avatar with the given
// standing hip height.
func NewFloorCorrector(avatarHipHeight float64) *FloorCorrector {
	return &FloorCorrector{AvatarHipHeight: avatarHipHeight}
}

// Reset clears the running offset estimate.
func (fc *FloorCorrector) Reset() {
	fc.avgOffset = 0
	fc.seeded = false
}

// Name implements Stage.
func (fc *FloorCorrector) Name() string { return "floor-offset" }

// Apply subtracts the estimated floor offset from every joint's vertical
// coordinate. Preference order for the estimate: lowest tracked or inferred
// ankle/foot height, the floor plane's vertical offset term, then the hip
// height relative to the configured avatar hip height.
func (fc *FloorCorrector) Apply(skel *Skeleton, frame *FrameContext) {
	if !skel.IsTracked() {
		return
	}

	candidate, ok := fc.lowestFootHeight(skel)
	if !ok {
		candidate, ok = floorPlaneOffset(frame)
	}
	if !ok {
		candidate = skel.Joints[JointHipCenter].Position[1] - fc.AvatarHipHeight
		ok = true
	}

	if !fc.seeded {
		fc.avgOffset = candidate
		fc.seeded = true
	} else {
		fc.avgOffset = fc.avgOffset*0.9 + candidate*0.1
	}

	for jt := range skel.Joints {
		skel.Joints[jt].Position[1] -= fc.avgOffset
	}
}

// lowestFootHeight returns the smallest Y among ankle/foot joints that are at
// least inferred.
func (fc *FloorCorrector) lowestFootHeight(skel *Skeleton) (float64, bool) {
	lowest := math.Inf(1)
	for _, jt := range []JointType{JointAnkleLeft, JointFootLeft, JointAnkleRight, JointFootRight} {
		if !skel.JointAtLeastInferred(jt) {
			continue
		}
		if y := skel.Joints[jt].Position[1]; y < lowest {
			lowest = y
		}
	}
	if math.IsInf(lowest, 1) {
		return 0, false
	}
	return lowest, true
}

// floorPlaneOffset extracts the floor height below the sensor origin from a
// plane equation Ax+By+Cz+D=0 with an upward-pointing normal: the floor sits
// at y = -D/B on the vertical axis.
func floorPlaneOffset(frame *FrameContext) (float64, bool) {
	a, b, c, d := frame.FloorPlane[0], frame.FloorPlane[1], frame.FloorPlane[2], frame.FloorPlane[3]
	if a == 0 && b == 0 && c == 0 && d == 0 {
		return 0, false
	}
	if math.Abs(b) < 1e-9 {
		return 0, false
	}
	return -d / b, true
}
