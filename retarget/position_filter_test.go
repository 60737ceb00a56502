package retarget

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestPositionFilterNoOpWhenNotTracked(t *testing.T) {
	f := NewDefaultPositionFilter()

	f.Update(nil)

	skel := testPose(mgl64.Vec3{0, 1, 3})
	skel.TrackingState = SkeletonPositionOnly
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

func TestPositionFilterFirstFramePassesThrough(t *testing.T) {
	f := NewDefaultPositionFilter()
	skel := testPose(mgl64.Vec3{0, 1, 3})
	want := skel.Joints[JointHead].Position

	f.Update(skel)

	if got := skel.Joints[JointHead].Position; got != want {
		t.Errorf("first frame must pass through unchanged: got %v, want %v", got, want)
	}
}

func TestPositionFilterReseedAfterInvalidInput(t *testing.T) {
	params := SmoothingParameters{
		Smoothing:          0.5,
		Correction:         0.5,
		Prediction:         0.5,
		JitterRadius:       0.05,
		MaxDeviationRadius: 0.04,
	}
	f := NewPositionFilter(params)

	a := mgl64.Vec3{0.1, 1.0, 2.0}
	b := a.Add(mgl64.Vec3{0.02, 0, 0})

	frame := func(pos mgl64.Vec3) *Skeleton {
		skel := testPose(mgl64.Vec3{0, 1, 3})
		skel.Joints[JointHandLeft].Position = pos
		return skel
	}

	// Valid, invalid (all-zero marker), valid again.
	f.Update(frame(a))

	invalid := frame(mgl64.Vec3{})
	f.Update(invalid)
	if got := invalid.Joints[JointHandLeft].Position; got != a {
		t.Errorf("invalid input must be substituted with last good value: got %v", got)
	}
	if f.history[JointHandLeft].frameCount != 1 {
		t.Errorf("invalid input must force a re-seed, frameCount=%d", f.history[JointHandLeft].frameCount)
	}

	third := frame(b)
	f.Update(third)

	// The third frame must reproduce the frameCount==1 branch exactly:
	// filtered = (b+a)/2, trend = (filtered-a)*correction, out = filtered + trend*prediction.
	filtered := b.Add(a).Mul(0.5)
	trend := filtered.Sub(a).Mul(params.Correction)
	want := filtered.Add(trend.Mul(params.Prediction))
	got := third.Joints[JointHandLeft].Position
	for i := 0; i < 3; i++ {
		if !scalar.EqualWithinAbs(got[i], want[i], 1e-12) {
			t.Errorf("component %d after re-seed: got %.12f, want %.12f", i, got[i], want[i])
		}
	}
}

func TestPositionFilterJitterSuppression(t *testing.T) {
	f := NewDefaultPositionFilter()
	steady := mgl64.Vec3{0.3, 1.2, 2.5}
	outlier := steady.Add(mgl64.Vec3{0.02, 0, 0}) // below the 0.05 jitter radius

	for i := 0; i < 5; i++ {
		skel := testPose(mgl64.Vec3{0, 1, 3})
		skel.Joints[JointHandRight].Position = steady
		f.Update(skel)
	}

	skel := testPose(mgl64.Vec3{0, 1, 3})
	skel.Joints[JointHandRight].Position = outlier
	f.Update(skel)

	deviation := skel.Joints[JointHandRight].Position.Sub(steady).Len()
	if deviation >= 0.02 {
		t.Errorf("outlier below jitter radius must be damped: deviation %.5f, raw outlier 0.02", deviation)
	}
}

func TestPositionFilterBoundedPrediction(t *testing.T) {
	f := NewDefaultPositionFilter()
	maxDev := DefaultPositionSmoothing().MaxDeviationRadius

	// A fast ramp makes the trend extrapolate aggressively.
	for i := 0; i < 20; i++ {
		skel := testPose(mgl64.Vec3{0, 1, 3})
		raw := mgl64.Vec3{float64(i) * 0.3, 1.0, 2.0}
		skel.Joints[JointWristLeft].Position = raw
		f.Update(skel)

		got := skel.Joints[JointWristLeft].Position
		if dev := got.Sub(raw).Len(); dev > maxDev+1e-9 {
			t.Errorf("frame %d: output deviates %.6f from raw, bound is %.6f", i, dev, maxDev)
		}
	}
}

func TestPositionFilterRelaxesUntrackedJoints(t *testing.T) {
	f := NewDefaultPositionFilter()
	skel := testPose(mgl64.Vec3{0, 1, 3})
	skel.Joints[JointFootLeft].TrackingState = JointInferred
	f.Update(skel)
	// Base parameters must not be mutated by the transient relaxation.
	if f.params.JitterRadius != DefaultPositionSmoothing().JitterRadius {
		t.Errorf("base jitter radius mutated: %f", f.params.JitterRadius)
	}
}

func TestPositionFilterReset(t *testing.T) {
	f := NewDefaultPositionFilter()
	f.Update(testPose(mgl64.Vec3{0, 1, 3}))
	f.Reset()
	for jt, hist := range f.history {
		if hist.frameCount != 0 {
			t.Errorf("history of %s not cleared by reset", JointType(jt))
		}
	}
}
