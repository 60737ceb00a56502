package retarget

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestSelfIntersectionPushesWristOut(t *testing.T) {
	var sc SelfIntersectionConstraint
	hip := mgl64.Vec3{0, 1, 3}
	skel := testPose(hip)
	// Shoulder width 0.4 gives a torso capsule radius of 0.15; park the
	// wrist well inside it.
	skel.Joints[JointWristLeft].Position = hip.Add(mgl64.Vec3{0.05, 0.2, 0})

	sc.Apply(skel, &FrameContext{})

	got := skel.Joints[JointWristLeft].Position
	want := hip.Add(mgl64.Vec3{0.15 * 1.01, 0.2, 0})
	if got.Sub(want).Len() > 1e-9 {
		t.Errorf("wrist not pushed to the capsule surface: got %v want %v", got, want)
	}
}

func TestSelfIntersectionLeavesOutsideJointsAlone(t *testing.T) {
	var sc SelfIntersectionConstraint
	skel := testPose(mgl64.Vec3{0, 1, 3})
	before := skel.Joints

	sc.Apply(skel, &FrameContext{})

	if skel.Joints != before {
		t.Error("hands outside the torso capsule must not move")
	}
}

func TestSelfIntersectionPreservesRadialDirection(t *testing.T) {
	var sc SelfIntersectionConstraint
	hip := mgl64.Vec3{0, 1, 3}
	skel := testPose(hip)
	skel.Joints[JointHandRight].Position = hip.Add(mgl64.Vec3{-0.03, 0.35, 0.04})

	sc.Apply(skel, &FrameContext{})

	got := skel.Joints[JointHandRight].Position
	radial := got.Sub(hip.Add(mgl64.Vec3{0, 0.35, 0}))
	if !scalar.EqualWithinAbs(radial.Len(), 0.15*1.01, 1e-9) {
		t.Errorf("hand must sit on the capsule surface, radial distance %.6f", radial.Len())
	}
	wantDir := mgl64.Vec3{-0.03, 0, 0.04}.Normalize()
	if radial.Normalize().Sub(wantDir).Len() > 1e-9 {
		t.Errorf("push must follow the perpendicular from the axis, got direction %v", radial.Normalize())
	}
}

func TestSelfIntersectionBailsWithoutTorso(t *testing.T) {
	var sc SelfIntersectionConstraint
	hip := mgl64.Vec3{0, 1, 3}
	skel := testPose(hip)
	skel.Joints[JointShoulderCenter].TrackingState = JointNotTracked
	skel.Joints[JointWristLeft].Position = hip.Add(mgl64.Vec3{0.05, 0.2, 0})
	before := skel.Joints

	sc.Apply(skel, &FrameContext{})

	if skel.Joints != before {
		t.Error("without a torso estimate nothing can be pushed out")
	}
}
