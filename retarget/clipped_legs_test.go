package retarget

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestClippedLegsIgnoresHealthySkeleton(t *testing.T) {
	clf := NewClippedLegsFilter()
	skel := testPose(mgl64.Vec3{0, 1, 3})

	if clf.FilterSkeleton(skel, 1.0/30) {
		t.Error("fully tracked legs must not be touched")
	}
	for gate := 0; gate < gateCount; gate++ {
		if clf.GateValue(gate) != 0 {
			t.Errorf("gate %d opened with nothing clipped", gate)
		}
	}
}

func TestClippedLegsBailsWithoutBodyFrame(t *testing.T) {
	clf := NewClippedLegsFilter()
	skel := testPose(mgl64.Vec3{0, 1, 3})
	skel.ClippedEdges = ClippedBottom
	skel.Joints[JointHipLeft].TrackingState = JointNotTracked
	skel.Joints[JointAnkleLeft].TrackingState = JointNotTracked

	if clf.FilterSkeleton(skel, 1.0/30) {
		t.Error("without the hips there is no body frame to judge against")
	}
}

func TestClippedLegsGateOpensGradually(t *testing.T) {
	clf := NewClippedLegsFilter()
	skel := testPose(mgl64.Vec3{0, 1, 3})
	skel.ClippedEdges = ClippedBottom
	skel.Joints[JointAnkleLeft].TrackingState = JointNotTracked
	skel.Joints[JointFootLeft].TrackingState = JointNotTracked

	const dt = 1.0 / 30
	prev := 0.0
	for i := 0; i < 10; i++ {
		frame := skel.Copy()
		clf.FilterSkeleton(frame, dt)

		v := clf.GateValue(gateAnkleLeft)
		if v > 1 || v < prev {
			t.Fatalf("frame %d: gate must rise monotonically within [0,1], got %.4f after %.4f", i, v, prev)
		}
		prev = v
	}
	if prev <= 0 {
		t.Fatal("ankle gate never opened")
	}
	// Ease-in rate is 2/s so ten frames at 30fps get most of the way up.
	if prev < 0.5 {
		t.Errorf("gate only reached %.4f after 10 frames", prev)
	}
	// Knee blend target is capped at 0.5 for this mask.
	if knee := clf.GateValue(gateKneeLeft); knee > 0.5+1e-9 {
		t.Errorf("knee gate exceeded its 0.5 target, got %.4f", knee)
	}
}

func TestClippedLegsBlendsTowardSmoothedEstimate(t *testing.T) {
	clf := NewClippedLegsFilter()
	skel := testPose(mgl64.Vec3{0, 1, 3})
	skel.ClippedEdges = ClippedBottom
	skel.Joints[JointAnkleLeft].TrackingState = JointNotTracked
	skel.Joints[JointFootLeft].TrackingState = JointNotTracked

	const dt = 1.0 / 30
	base := skel.Joints[JointAnkleLeft].Position
	prevDist := 0.0
	for i := 0; i < 10; i++ {
		frame := skel.Copy()
		// The clipped ankle reading drifts while the shadow copy lags it.
		frame.Joints[JointAnkleLeft].Position = base.Add(mgl64.Vec3{0, -0.02 * float64(i), 0})
		raw := frame.Joints[JointAnkleLeft].Position
		frame.Joints[JointAnkleLeft].TrackingState = JointNotTracked

		updated := clf.FilterSkeleton(frame, dt)
		if i > 0 && !updated {
			t.Fatalf("frame %d: open gate must modify the leg", i)
		}

		dist := frame.Joints[JointAnkleLeft].Position.Sub(raw).Len()
		if i > 1 && dist < prevDist {
			t.Fatalf("frame %d: blend distance fell from %.5f to %.5f while the gate opens", i, prevDist, dist)
		}
		prevDist = dist

		if updated && frame.Joints[JointAnkleLeft].TrackingState != JointTracked {
			t.Fatalf("frame %d: blended ankle must be stamped tracked", i)
		}
	}
	if prevDist == 0 {
		t.Error("smoothed estimate never diverged from the raw ankle")
	}
}

func TestClippedLegsMaskHalvedWithoutBottomClip(t *testing.T) {
	clf := NewClippedLegsFilter()
	skel := testPose(mgl64.Vec3{0, 1, 3})
	skel.Joints[JointKneeRight].TrackingState = JointNotTracked

	const dt = 1.0 / 30
	for i := 0; i < 120; i++ {
		frame := skel.Copy()
		clf.FilterSkeleton(frame, dt)
	}
	if v := clf.GateValue(gateKneeRight); v > 0.5+1e-9 {
		t.Errorf("without a bottom clip the knee gate must saturate at 0.5, got %.4f", v)
	}
	if v := clf.GateValue(gateKneeRight); v < 0.5-1e-9 {
		t.Errorf("knee gate should have saturated by now, got %.4f", v)
	}
}

func TestClippedLegsReset(t *testing.T) {
	clf := NewClippedLegsFilter()
	skel := testPose(mgl64.Vec3{0, 1, 3})
	skel.ClippedEdges = ClippedBottom
	skel.Joints[JointKneeLeft].TrackingState = JointNotTracked
	for i := 0; i < 10; i++ {
		clf.FilterSkeleton(skel.Copy(), 1.0/30)
	}
	if clf.GateValue(gateKneeLeft) == 0 {
		t.Fatal("gate should be open before the reset")
	}

	clf.Reset()

	for gate := 0; gate < gateCount; gate++ {
		if clf.GateValue(gate) != 0 {
			t.Errorf("gate %d still open after reset", gate)
		}
	}
}
