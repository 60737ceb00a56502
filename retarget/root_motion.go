package retarget

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// RootMotionStabilizer smooths the hip-center trajectory on the ground (XZ)
// plane with a constant-velocity Kalman filter, so avatar world placement
// does not inherit frame-to-frame sensor noise. During PositionOnly frames it
// keeps predicting forward, bridging brief joint-tracking loss without the
// avatar freezing in place. Vertical placement passes through untouched; the
// floor corrector owns that axis.
type RootMotionStabilizer struct {
	dt          float64
	tracker     *kalman_filter.Kalman2D
	stabilized  mgl64.Vec3
	track       []mgl64.Vec3
	maxTrackLen int
	seeded      bool
}

// NewRootMotionStabilizer creates a stabilizer with the given nominal frame
// interval in seconds.
func NewRootMotionStabilizer(dt float64) *RootMotionStabilizer {
	return &RootMotionStabilizer{
		dt:          dt,
		track:       make([]mgl64.Vec3, 0, 150),
		maxTrackLen: 150,
	}
}

// Reset discards the filter state and track history.
func (rm *RootMotionStabilizer) Reset() {
	rm.tracker = nil
	rm.track = rm.track[:0]
	rm.seeded = false
}

// Seeded reports whether the stabilizer has consumed at least one measurement.
func (rm *RootMotionStabilizer) Seeded() bool {
	return rm.seeded
}

// Predict advances the filter one frame without a measurement. Call it on
// PositionOnly frames to keep the placement estimate moving.
func (rm *RootMotionStabilizer) Predict() {
	if !rm.seeded {
		return
	}
	rm.tracker.Predict()
	x, z := rm.tracker.GetState()
	rm.stabilized[0] = x
	rm.stabilized[2] = z
}

// Update feeds the raw hip position as a measurement and refreshes the
// stabilized estimate. The first call seeds the filter state directly.
func (rm *RootMotionStabilizer) Update(hip mgl64.Vec3) error {
	if !rm.seeded {
		ux := 1.0
		uz := 1.0
		stdDevA := 2.0
		stdDevMx := 0.1
		stdDevMz := 0.1
		rm.tracker = kalman_filter.NewKalman2D(rm.dt, ux, uz, stdDevA, stdDevMx, stdDevMz,
			kalman_filter.WithState2D(hip[0], hip[2]))
		rm.stabilized = hip
		rm.seeded = true
		rm.appendTrack(hip)
		return nil
	}

	rm.tracker.Predict()
	if err := rm.tracker.Update(hip[0], hip[2]); err != nil {
		return errors.Wrap(err, "Can't update root motion tracker")
	}
	x, z := rm.tracker.GetState()
	rm.stabilized = mgl64.Vec3{x, hip[1], z}
	rm.appendTrack(rm.stabilized)
	return nil
}

// StabilizedPosition returns raw with its ground-plane components replaced by
// the filter estimate. Before seeding it returns raw unchanged.
func (rm *RootMotionStabilizer) StabilizedPosition(raw mgl64.Vec3) mgl64.Vec3 {
	if !rm.seeded {
		return raw
	}
	return mgl64.Vec3{rm.stabilized[0], raw[1], rm.stabilized[2]}
}

// Track returns the stabilized position history. This is a reference, not a copy.
func (rm *RootMotionStabilizer) Track() []mgl64.Vec3 {
	return rm.track
}

// SetMaxTrackLen bounds the retained history length.
func (rm *RootMotionStabilizer) SetMaxTrackLen(n int) {
	rm.maxTrackLen = n
}

func (rm *RootMotionStabilizer) appendTrack(p mgl64.Vec3) {
	rm.track = append(rm.track, p)
	if len(rm.track) > rm.maxTrackLen {
		rm.track = rm.track[1:]
	}
}
