package retarget

import "math"

// minJitterRadius is the floor applied to jitter radii before use, avoiding a
// division by zero when a caller configures zero.
const minJitterRadius = 1e-4

// SmoothingParameters configures one double-exponential filter instance.
// Radii are meters for the position filter and radians for the orientation
// filter.
type SmoothingParameters struct {
	// Smoothing in [0,1]: how much the previous filtered estimate dominates.
	Smoothing float64
	// Correction in [0,1]: how fast the trend follows changes.
	Correction float64
	// Prediction >= 0: how many trend steps ahead the output runs.
	Prediction float64
	// JitterRadius > 0: deviations below this are absorbed as noise.
	JitterRadius float64
	// MaxDeviationRadius >= 0: the output never strays further than this
	// from the raw value.
	MaxDeviationRadius float64
}

// DefaultPositionSmoothing returns the stock parameters for joint positions.
func DefaultPositionSmoothing() SmoothingParameters {
	return SmoothingParameters{
		Smoothing:          0.5,
		Correction:         0.5,
		Prediction:         0.5,
		JitterRadius:       0.05,
		MaxDeviationRadius: 0.04,
	}
}

// DefaultOrientationSmoothing returns the stock parameters for bone orientations.
func DefaultOrientationSmoothing() SmoothingParameters {
	return SmoothingParameters{
		Smoothing:          0.5,
		Correction:         0.8,
		Prediction:         0.75,
		JitterRadius:       0.1,
		MaxDeviationRadius: 0.1,
	}
}

// ClippedLegsSmoothing returns the deliberately floaty parameters used for the
// heavily smoothed leg estimate blended in when the legs leave the field of view.
func ClippedLegsSmoothing() SmoothingParameters {
	return SmoothingParameters{
		Smoothing:          0.75,
		Correction:         0.2,
		Prediction:         0.5,
		JitterRadius:       1.0,
		MaxDeviationRadius: 0.5,
	}
}

// relaxed returns a transient copy with jitter and deviation radii doubled,
// used for untracked joints without mutating the stored base parameters.
func (sp SmoothingParameters) relaxed() SmoothingParameters {
	sp.JitterRadius *= 2
	sp.MaxDeviationRadius *= 2
	return sp
}

// sanitized returns a copy with the jitter radius floored.
func (sp SmoothingParameters) sanitized() SmoothingParameters {
	sp.JitterRadius = math.Max(sp.JitterRadius, minJitterRadius)
	return sp
}

// TimedLerp is a blend-weight gate that eases between 0 and a target value
// over time rather than switching instantly. One gate guards each lower-leg
// joint in the clipped-legs filter.
type TimedLerp struct {
	enabled float64
	value   float64
	easeIn  float64 // units per second while rising
	easeOut float64 // units per second while falling
}

// NewTimedLerp creates a gate easing in over easeInSeconds and out over
// easeOutSeconds.
func NewTimedLerp(easeInSeconds, easeOutSeconds float64) *TimedLerp {
	tl := &TimedLerp{}
	if easeInSeconds > 0 {
		tl.easeIn = 1 / easeInSeconds
	}
	if easeOutSeconds > 0 {
		tl.easeOut = 1 / easeOutSeconds
	}
	return tl
}

// SetEnabled sets the target blend weight in [0,1].
func (tl *TimedLerp) SetEnabled(target float64) {
	tl.enabled = clamp(target, 0, 1)
}

// Tick advances the gate by dt seconds toward its target.
func (tl *TimedLerp) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	if tl.value < tl.enabled {
		tl.value = math.Min(tl.enabled, tl.value+tl.easeIn*dt)
	} else if tl.value > tl.enabled {
		tl.value = math.Max(tl.enabled, tl.value-tl.easeOut*dt)
	}
}

// Value returns the current linear blend weight.
func (tl *TimedLerp) Value() float64 {
	return tl.value
}

// SmoothValue returns the cosine-eased blend weight.
func (tl *TimedLerp) SmoothValue() float64 {
	return 0.5 - 0.5*math.Cos(math.Pi*tl.value)
}

// Reset snaps the gate closed.
func (tl *TimedLerp) Reset() {
	tl.enabled = 0
	tl.value = 0
}
