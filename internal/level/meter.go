package level

import "math"

const (
	// meterScale maps normalized [0,1] amplitude to the 0-100 range the UI
	// level meters display.
	meterScale = 100.0

	// DBFloor is the lowest reported decibel value. Silence and non-positive
	// linear inputs map here instead of negative infinity.
	DBFloor = -60.0

	// DefaultSmoothing is the exponential moving average factor used for
	// needle movement when the caller does not supply one.
	DefaultSmoothing = 0.2
)

// CalculateRMS returns the root-mean-square energy of the samples scaled to
// the 0-100 meter range. Empty input yields 0.
func CalculateRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}

	return math.Sqrt(sum/float64(len(samples))) * meterScale
}

// CalculatePeak returns the maximum absolute sample value scaled to the
// 0-100 meter range. Empty input yields 0.
func CalculatePeak(samples []float32) float64 {
	var peak float64
	for _, s := range samples {
		abs := math.Abs(float64(s))
		if abs > peak {
			peak = abs
		}
	}
	return peak * meterScale
}

// LinearToDB converts a normalized linear amplitude to decibels, floored at
// DBFloor. Non-positive input maps directly to the floor.
func LinearToDB(linear float64) float64 {
	if linear <= 0 {
		return DBFloor
	}

	db := 20 * math.Log10(linear)
	if db < DBFloor {
		return DBFloor
	}
	return db
}

// SmoothLevel moves current towards target by the given exponential factor.
// It is a pure function; the caller owns the smoothed state. A factor outside
// (0, 1] falls back to DefaultSmoothing.
func SmoothLevel(current, target, factor float64) float64 {
	if factor <= 0 || factor > 1 {
		factor = DefaultSmoothing
	}
	return current + (target-current)*factor
}
