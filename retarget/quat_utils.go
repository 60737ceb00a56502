package retarget

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	unitX = mgl64.Vec3{1, 0, 0}
	unitY = mgl64.Vec3{0, 1, 0}
	unitZ = mgl64.Vec3{0, 0, 1}
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// quatIsNaN reports whether any quaternion component is NaN.
func quatIsNaN(q mgl64.Quat) bool {
	return math.IsNaN(q.W) || math.IsNaN(q.V[0]) || math.IsNaN(q.V[1]) || math.IsNaN(q.V[2])
}

// vecIsZero reports whether v is the all-zero vector, the sensor's marker for
// a missing joint position.
func vecIsZero(v mgl64.Vec3) bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// ensureNeighborhood returns b flipped into the same hemisphere of the 4D
// double cover as a. Quaternions must be aligned this way before any blend,
// else the interpolation takes the long way around.
func ensureNeighborhood(a, b mgl64.Quat) mgl64.Quat {
	if a.Dot(b) < 0 {
		return mgl64.Quat{W: -b.W, V: mgl64.Vec3{-b.V[0], -b.V[1], -b.V[2]}}
	}
	return b
}

// quatAngle returns the rotation angle in radians between two orientations:
// twice the arccosine of the dot product after hemisphere alignment.
func quatAngle(a, b mgl64.Quat) float64 {
	b = ensureNeighborhood(a, b)
	dot := clamp(a.Normalize().Dot(b.Normalize()), -1, 1)
	return 2 * math.Acos(dot)
}

// quatSlerp is a hemisphere-safe spherical interpolation from a to b.
func quatSlerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	return mgl64.QuatSlerp(a, ensureNeighborhood(a, b), t)
}

// quatScale raises q to the power s by slerping from identity, i.e. the same
// rotation axis with the angle scaled by s.
func quatScale(q mgl64.Quat, s float64) mgl64.Quat {
	return quatSlerp(mgl64.QuatIdent(), q, s)
}

// rotationBetween returns the shortest rotation taking direction from onto
// direction to. Degenerate inputs collapse to identity.
func rotationBetween(from, to mgl64.Vec3) mgl64.Quat {
	if from.Len() < 1e-9 || to.Len() < 1e-9 {
		return mgl64.QuatIdent()
	}
	f := from.Normalize()
	t := to.Normalize()
	dot := clamp(f.Dot(t), -1, 1)
	if dot > 1-1e-12 {
		return mgl64.QuatIdent()
	}
	if dot < -1+1e-12 {
		// Opposite directions: rotate half a turn about any perpendicular.
		perp := f.Cross(unitX)
		if perp.Len() < 1e-9 {
			perp = f.Cross(unitY)
		}
		return mgl64.QuatRotate(math.Pi, perp.Normalize())
	}
	axis := f.Cross(t).Normalize()
	return mgl64.QuatRotate(math.Acos(dot), axis)
}

// vecLerp linearly interpolates between a and b.
func vecLerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// rotationOnly strips the translation column from an affine transform.
func rotationOnly(m mgl64.Mat4) mgl64.Mat4 {
	out := m
	out.SetCol(3, mgl64.Vec4{0, 0, 0, 1})
	return out
}

// closestPointOnSegment returns the point on segment [a, b] nearest to p.
func closestPointOnSegment(p, a, b mgl64.Vec3) mgl64.Vec3 {
	ab := b.Sub(a)
	denom := ab.Dot(ab)
	if denom < 1e-12 {
		return a
	}
	t := clamp(p.Sub(a).Dot(ab)/denom, 0, 1)
	return a.Add(ab.Mul(t))
}
