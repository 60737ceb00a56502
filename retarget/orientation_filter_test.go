package retarget

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestOrientationFilterNoOpWhenNotTracked(t *testing.T) {
	f := NewDefaultOrientationFilter()

	f.Update(nil)

	skel := testPose(mgl64.Vec3{0, 1, 3})
	skel.TrackingState = SkeletonNotTracked
	before := *skel
	f.Update(skel)

	if *skel != before {
		t.Error("untracked skeleton must not be modified")
	}
	for jt, hist := range f.history {
		if hist.frameCount != 0 {
			t.Errorf("history of %s mutated on a no-op frame", JointType(jt))
		}
	}
}

func TestOrientationFilterFirstFramePassesThrough(t *testing.T) {
	f := NewDefaultOrientationFilter()
	skel := testPose(mgl64.Vec3{0, 1, 3})
	q := mgl64.QuatRotate(0.4, mgl64.Vec3{1, 0, 0})
	skel.BoneOrientations[JointSpine].Hierarchical.SetQuat(q)
	skel.UpdateAbsoluteRotations()

	f.Update(skel)

	got := skel.BoneOrientations[JointSpine].Hierarchical.Quat
	if ang := quatAngle(q, got); ang > 1e-9 {
		t.Errorf("first frame must pass through unchanged, off by %.9f rad", ang)
	}
}

func TestOrientationFilterMaintainsHierarchy(t *testing.T) {
	f := NewDefaultOrientationFilter()
	skel := testPose(mgl64.Vec3{0, 1, 3})

	for i := 0; i < 8; i++ {
		angle := 0.1 * float64(i)
		skel.BoneOrientations[JointHipCenter].Hierarchical.SetQuat(mgl64.QuatRotate(angle, mgl64.Vec3{0, 1, 0}))
		skel.BoneOrientations[JointSpine].Hierarchical.SetQuat(mgl64.QuatRotate(angle/2, mgl64.Vec3{1, 0, 0}))
		skel.BoneOrientations[JointElbowLeft].Hierarchical.SetQuat(mgl64.QuatRotate(-angle, mgl64.Vec3{0, 0, 1}))
		skel.UpdateAbsoluteRotations()

		f.Update(skel)

		if err := skel.ValidateHierarchy(1e-9); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
}

func TestOrientationFilterNaNReseed(t *testing.T) {
	f := NewDefaultOrientationFilter()
	skel := testPose(mgl64.Vec3{0, 1, 3})
	good := mgl64.QuatRotate(0.3, mgl64.Vec3{0, 0, 1})
	skel.BoneOrientations[JointElbowRight].Hierarchical.SetQuat(good)
	skel.UpdateAbsoluteRotations()
	f.Update(skel)

	// Poison the next frame.
	skel.BoneOrientations[JointElbowRight].Hierarchical.Quat = mgl64.Quat{
		W: math.NaN(), V: mgl64.Vec3{math.NaN(), 0, 0},
	}
	f.Update(skel)

	got := skel.BoneOrientations[JointElbowRight].Hierarchical.Quat
	if quatIsNaN(got) {
		t.Fatal("NaN input must not propagate to the output")
	}
	if ang := quatAngle(good, got); ang > 1e-9 {
		t.Errorf("invalid input must hold the last good rotation, off by %.9f rad", ang)
	}
	if f.history[JointElbowRight].frameCount != 1 {
		t.Errorf("invalid input must force a re-seed, frameCount=%d", f.history[JointElbowRight].frameCount)
	}
}

func TestOrientationFilterBoundedDeviation(t *testing.T) {
	params := DefaultOrientationSmoothing()
	f := NewOrientationFilter(params)
	skel := testPose(mgl64.Vec3{0, 1, 3})

	// The spine swings fast enough for the trend to overshoot.
	for i := 0; i < 20; i++ {
		raw := mgl64.QuatRotate(0.25*float64(i), mgl64.Vec3{1, 0, 0})
		skel.BoneOrientations[JointSpine].Hierarchical.SetQuat(raw)
		skel.UpdateAbsoluteRotations()

		f.Update(skel)

		got := skel.BoneOrientations[JointSpine].Hierarchical.Quat
		if ang := quatAngle(raw, got); ang > params.MaxDeviationRadius+1e-9 {
			t.Errorf("frame %d: output %.6f rad from raw, bound is %.6f", i, ang, params.MaxDeviationRadius)
		}
	}
}

func TestOrientationFilterSteadyStateConverges(t *testing.T) {
	f := NewDefaultOrientationFilter()
	skel := testPose(mgl64.Vec3{0, 1, 3})
	target := mgl64.QuatRotate(0.6, mgl64.Vec3{0, 1, 0})

	var ang float64
	for i := 0; i < 60; i++ {
		skel.BoneOrientations[JointShoulderLeft].Hierarchical.SetQuat(target)
		skel.UpdateAbsoluteRotations()
		f.Update(skel)
		ang = quatAngle(target, skel.BoneOrientations[JointShoulderLeft].Hierarchical.Quat)
	}
	if !scalar.EqualWithinAbs(ang, 0, 1e-6) {
		t.Errorf("constant input must converge to itself, still %.9f rad away", ang)
	}
}
