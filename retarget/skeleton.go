package retarget

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Joint is a single tracked anatomical landmark.
type Joint struct {
	Position      mgl64.Vec3
	TrackingState JointTrackingState
}

// BoneRotation bundles the quaternion and matrix form of one rotation.
// SetQuat keeps the two in sync; never assign the fields independently.
type BoneRotation struct {
	Quat mgl64.Quat
	Mat  mgl64.Mat4
}

// SetQuat stores q and refreshes the matrix form.
func (br *BoneRotation) SetQuat(q mgl64.Quat) {
	br.Quat = q
	br.Mat = q.Mat4()
}

// BoneOrientation is the rotation of the bone ending at EndJoint, expressed
// both relative to the parent bone frame and relative to the sensor frame.
type BoneOrientation struct {
	StartJoint   JointType
	EndJoint     JointType
	Hierarchical BoneRotation
	Absolute     BoneRotation
}

// Skeleton is one frame's snapshot of the tracked body. It is the unit of
// work passed through the filtering pipeline; every stage mutates it in place.
type Skeleton struct {
	// TrackingID is the sensor-assigned identity of the tracked person.
	// A change of identity between frames resets all filter state.
	TrackingID uuid.UUID

	TrackingState SkeletonTrackingState

	// Position is the body centroid in meters, valid in PositionOnly and
	// Tracked states.
	Position mgl64.Vec3

	ClippedEdges ClippedEdges

	Joints           [JointCount]Joint
	BoneOrientations [JointCount]BoneOrientation
}

// NewSkeleton returns a skeleton with identity bone orientations and the
// static parent table installed.
func NewSkeleton() *Skeleton {
	skel := &Skeleton{}
	for _, jt := range HierarchicalJointOrder {
		bone := &skel.BoneOrientations[jt]
		bone.StartJoint = ParentJoint(jt)
		bone.EndJoint = jt
		bone.Hierarchical.SetQuat(mgl64.QuatIdent())
		bone.Absolute.SetQuat(mgl64.QuatIdent())
	}
	return skel
}

// Copy returns a deep copy of the skeleton. Joint and bone collections are
// plain arrays, so a value copy is sufficient.
func (skel *Skeleton) Copy() *Skeleton {
	if skel == nil {
		return nil
	}
	dup := *skel
	return &dup
}

// IsTracked reports whether the whole skeleton is tracked this frame.
func (skel *Skeleton) IsTracked() bool {
	return skel != nil && skel.TrackingState == SkeletonTracked
}

// JointAtLeastInferred reports whether jt carries at least inferred position data.
func (skel *Skeleton) JointAtLeastInferred(jt JointType) bool {
	return skel.Joints[jt].TrackingState >= JointInferred
}

// UpdateAbsoluteRotations recomputes every joint's absolute rotation from the
// hierarchical rotations, root first. Any stage that modifies a hierarchical
// rotation must call this (or perform the equivalent parent-first update)
// before another stage reads absolute rotations.
func (skel *Skeleton) UpdateAbsoluteRotations() {
	for _, jt := range HierarchicalJointOrder {
		bone := &skel.BoneOrientations[jt]
		if jt == JointHipCenter {
			bone.Absolute.SetQuat(bone.Hierarchical.Quat)
			continue
		}
		parentAbs := skel.BoneOrientations[bone.StartJoint].Absolute.Quat
		bone.Absolute.SetQuat(parentAbs.Mul(bone.Hierarchical.Quat).Normalize())
	}
}

// ValidateHierarchy verifies that for every non-root joint the absolute
// rotation equals the parent's absolute rotation composed with the joint's
// hierarchical rotation, within tol radians.
func (skel *Skeleton) ValidateHierarchy(tol float64) error {
	for _, jt := range HierarchicalJointOrder {
		if jt == JointHipCenter {
			continue
		}
		bone := skel.BoneOrientations[jt]
		parentAbs := skel.BoneOrientations[bone.StartJoint].Absolute.Quat
		want := parentAbs.Mul(bone.Hierarchical.Quat)
		if ang := quatAngle(want, bone.Absolute.Quat); ang > tol {
			return errors.Errorf("hierarchy violated at %s: off by %.6f rad", jt, ang)
		}
	}
	return nil
}
