package retarget

// Torso capsule tuning. The extension factor stretches the shoulder-hip
// segment past each end; the push-out leaves the joint slightly outside the
// radius so floating-point boundary jitter does not re-trigger every frame.
const (
	torsoExtendFactor  = 0.5
	torsoRadiusFactor  = 0.75
	collisionTolerance = 1.01
)

// SelfIntersectionConstraint pushes wrist and hand joints out of a capsule
// spanning the torso, a cheap stand-in for real collision response.
type SelfIntersectionConstraint struct{}

// Name implements Stage.
func (SelfIntersectionConstraint) Name() string { return "self-intersection" }

// Apply moves any wrist/hand joint found inside the torso capsule onto its
// surface, along the perpendicular from the capsule's axis segment.
func (SelfIntersectionConstraint) Apply(skel *Skeleton, _ *FrameContext) {
	if !skel.IsTracked() {
		return
	}
	if !skel.JointAtLeastInferred(JointShoulderCenter) || !skel.JointAtLeastInferred(JointHipCenter) {
		return
	}

	shoulder := skel.Joints[JointShoulderCenter].Position
	hip := skel.Joints[JointHipCenter].Position

	axis := shoulder.Sub(hip)
	top := shoulder.Add(axis.Mul(torsoExtendFactor))
	bottom := hip.Sub(axis.Mul(torsoExtendFactor))

	shoulderWidth := skel.Joints[JointShoulderLeft].Position.
		Sub(skel.Joints[JointShoulderRight].Position).Len()
	radius := shoulderWidth * 0.5 * torsoRadiusFactor
	if radius <= 0 {
		return
	}

	for _, jt := range []JointType{JointWristLeft, JointHandLeft, JointWristRight, JointHandRight} {
		p := skel.Joints[jt].Position
		closest := closestPointOnSegment(p, bottom, top)
		away := p.Sub(closest)
		dist := away.Len()
		if dist >= radius || dist < 1e-9 {
			continue
		}
		skel.Joints[jt].Position = closest.Add(away.Mul(radius * collisionTolerance / dist))
	}
}
