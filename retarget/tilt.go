package retarget

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// tiltTrustAngle is the sensor elevation (degrees) beyond which a detected
// floor plane is trusted over the motor angle reading.
const tiltTrustAngle = 50

// TiltCorrector de-rotates the whole skeleton about the hip center so that
// "up" is consistent regardless of the physical sensor tilt. It keeps a
// running average of the estimated up normal; the average is instance state
// and is cleared by Reset.
type TiltCorrector struct {
	avgNormal mgl64.Vec3
}

// NewTiltCorrector creates a tilt corrector seeded with the canonical up normal.
func NewTiltCorrector() *TiltCorrector {
	return &TiltCorrector{avgNormal: unitY}
}

// Reset restores the running average to the canonical up normal.
func (tc *TiltCorrector) Reset() {
	tc.avgNormal = unitY
}

// Name implements Stage.
func (tc *TiltCorrector) Name() string { return "tilt-correction" }

// Apply rotates every joint about the hip-center pivot by the shortest
// rotation mapping the running-averaged measured normal onto canonical up.
func (tc *TiltCorrector) Apply(skel *Skeleton, frame *FrameContext) {
	if !skel.IsTracked() {
		return
	}

	normal := tc.pickNormal(frame)
	tc.avgNormal = tc.avgNormal.Mul(0.9).Add(normal.Mul(0.1))
	if tc.avgNormal.Len() < 1e-9 {
		tc.avgNormal = unitY
		return
	}
	tc.avgNormal = tc.avgNormal.Normalize()

	deRotate := rotationBetween(tc.avgNormal, unitY)
	pivot := skel.Joints[JointHipCenter].Position
	for jt := range skel.Joints {
		p := skel.Joints[jt].Position
		skel.Joints[jt].Position = pivot.Add(deRotate.Rotate(p.Sub(pivot)))
	}
}

// pickNormal chooses the up estimate: a valid detected floor plane when the
// motor reads level or is tilted past the trust angle, otherwise the normal
// implied by the motor elevation angle.
func (tc *TiltCorrector) pickNormal(frame *FrameContext) mgl64.Vec3 {
	planeNormal := mgl64.Vec3{frame.FloorPlane[0], frame.FloorPlane[1], frame.FloorPlane[2]}
	planeValid := planeNormal.Len() > 1e-9

	tilt := frame.TiltAngleDeg
	if planeValid && (tilt == 0 || math.Abs(float64(tilt)) >= tiltTrustAngle) {
		return planeNormal.Normalize()
	}
	theta := mgl64.DegToRad(float64(tilt))
	return mgl64.Vec3{0, math.Cos(theta), math.Sin(theta)}
}
