package retarget

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BoneOrientationConstraint limits one bone's direction to a cone around an
// axis expressed in the parent bone's local frame, approximating the joint's
// anatomical range of motion.
type BoneOrientationConstraint struct {
	Joint JointType
	// Axis is the cone center in the parent-local frame. It does not need
	// to be normalized.
	Axis mgl64.Vec3
	// ConeHalfAngle is the permitted half-angle in degrees.
	ConeHalfAngle float64
	// Violation is recomputed every frame: 0 when centered in the cone,
	// >1 when outside it by that multiple.
	Violation float64
}

// BoneConstraints clamps bone hierarchical rotations to per-joint cones.
// The constraint set can be mirrored to follow the mirror corrector's
// left/right swap.
type BoneConstraints struct {
	constraints []BoneOrientationConstraint
	mirrored    bool
}

// NewBoneConstraints creates an empty solver; the default constraint table is
// installed lazily on first use.
func NewBoneConstraints() *BoneConstraints {
	return &BoneConstraints{}
}

// AddConstraint appends a cone constraint for the bone ending at joint.
func (bc *BoneConstraints) AddConstraint(joint JointType, axis mgl64.Vec3, coneHalfAngle float64) {
	bc.constraints = append(bc.constraints, BoneOrientationConstraint{
		Joint:         joint,
		Axis:          axis,
		ConeHalfAngle: coneHalfAngle,
	})
}

// Constraints exposes the current table, including each entry's last
// computed violation ratio.
func (bc *BoneConstraints) Constraints() []BoneOrientationConstraint {
	return bc.constraints
}

// addDefaultConstraints installs cones for the spine and the
// shoulder/elbow/wrist/hip/knee/ankle pairs, tuned for a standing pose.
// Axes are the expected bone +Y direction in the parent frame.
func (bc *BoneConstraints) addDefaultConstraints() {
	bc.AddConstraint(JointSpine, mgl64.Vec3{0, 1, 0.3}, 45)
	bc.AddConstraint(JointShoulderLeft, mgl64.Vec3{0.7, -0.3, 0}, 80)
	bc.AddConstraint(JointShoulderRight, mgl64.Vec3{-0.7, -0.3, 0}, 80)
	bc.AddConstraint(JointElbowLeft, mgl64.Vec3{0.2, 1, 0}, 90)
	bc.AddConstraint(JointElbowRight, mgl64.Vec3{-0.2, 1, 0}, 90)
	bc.AddConstraint(JointWristLeft, mgl64.Vec3{0, 1, 0}, 60)
	bc.AddConstraint(JointWristRight, mgl64.Vec3{0, 1, 0}, 60)
	bc.AddConstraint(JointHipLeft, mgl64.Vec3{0.3, -1, 0}, 50)
	bc.AddConstraint(JointHipRight, mgl64.Vec3{-0.3, -1, 0}, 50)
	bc.AddConstraint(JointKneeLeft, mgl64.Vec3{0, -1, 0.2}, 90)
	bc.AddConstraint(JointKneeRight, mgl64.Vec3{0, -1, 0.2}, 90)
	bc.AddConstraint(JointAnkleLeft, mgl64.Vec3{0, -0.3, 1}, 45)
	bc.AddConstraint(JointAnkleRight, mgl64.Vec3{0, -0.3, 1}, 45)
}

// swapLeftRight flips each constraint onto the opposite-side joint and
// negates the X component of its cone axis.
func (bc *BoneConstraints) swapLeftRight() {
	for i := range bc.constraints {
		c := &bc.constraints[i]
		c.Joint = MirrorJoint(c.Joint)
		c.Axis[0] = -c.Axis[0]
	}
}

// Constrain clamps every tracked, non-root bone of the skeleton to its cone
// and rebuilds absolute rotations top-down. mirrored must match whether the
// skeleton has been passed through the mirror corrector this frame.
func (bc *BoneConstraints) Constrain(skel *Skeleton, mirrored bool) {
	if !skel.IsTracked() {
		return
	}
	if len(bc.constraints) == 0 {
		bc.addDefaultConstraints()
	}
	if mirrored != bc.mirrored {
		bc.swapLeftRight()
		bc.mirrored = mirrored
	}

	for i := range bc.constraints {
		c := &bc.constraints[i]
		if c.Joint == JointHipCenter || skel.Joints[c.Joint].TrackingState != JointTracked {
			continue
		}

		bone := &skel.BoneOrientations[c.Joint]
		boneDir := bone.Hierarchical.Quat.Rotate(unitY)
		angle := math.Acos(clamp(boneDir.Normalize().Dot(c.Axis.Normalize()), -1, 1))
		halfAngle := mgl64.DegToRad(c.ConeHalfAngle)
		if halfAngle <= 0 {
			continue
		}
		c.Violation = angle / halfAngle

		if c.Violation > 1 {
			// Pull the bone back toward the cone boundary proportionally
			// to how far outside it sits, never snapping.
			pull := clamp(c.Violation-1, 0, 1)
			correction := quatScale(bone.Hierarchical.Quat.Inverse(), pull)
			bone.Hierarchical.SetQuat(bone.Hierarchical.Quat.Mul(correction).Normalize())
		}
	}

	skel.UpdateAbsoluteRotations()
}
