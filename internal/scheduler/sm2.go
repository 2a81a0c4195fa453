// Package scheduler implements the SM-2 variant used to space card reviews.
package scheduler

import "math"

const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3
)

// NextState returns the interval and ease factor after a review of the given quality.
// A zero ease factor is read as DefaultEaseFactor.
func NextState(currentInterval int, easeFactor float64, quality Quality) (int, float64) {
	if easeFactor == 0 {
		easeFactor = DefaultEaseFactor
	}
	if currentInterval < 0 {
		currentInterval = 0
	}
	quality = quality.clamp()

	return nextInterval(currentInterval, easeFactor, quality), nextEaseFactor(easeFactor, quality)
}

func nextInterval(currentInterval int, easeFactor float64, quality Quality) int {
	// Lapse: start over
	if !quality.IsCorrect() {
		return 1
	}

	switch currentInterval {
	case 0:
		return 1
	case 1:
		return 6
	default:
		interval := int(math.Round(float64(currentInterval) * easeFactor))
		if interval < 1 {
			return 1
		}
		return interval
	}
}

func nextEaseFactor(easeFactor float64, quality Quality) float64 {
	q := float64(quality)
	delta := 0.1 - (5-q)*(0.08+(5-q)*0.02)

	newEF := math.Max(easeFactor+delta, MinEaseFactor)
	return math.Round(newEF*100) / 100
}
