package game

import (
	"math"

	"github.com/twistvox/twistvox/internal/twister"
)

// SuccessThreshold is the minimum accuracy percentage for an attempt to
// count as successful.
const SuccessThreshold = 80.0

// Speed bonus tiers, first match wins. Finishing under three seconds is
// worth half a perfect base score.
const (
	bonusFastSeconds   = 3
	bonusMediumSeconds = 5
	bonusSlowSeconds   = 8

	bonusFast   = 500
	bonusMedium = 300
	bonusSlow   = 100
)

// ComputeScore converts accuracy, elapsed time, and difficulty into the
// attempt's integer score. Base is accuracy × 10 (so 0–1000), a speed bonus
// rewards quick completions, and the difficulty multiplier scales the sum.
// The result is floored and never negative.
func ComputeScore(accuracy float64, elapsedSeconds float64, difficulty twister.Difficulty) int {
	base := accuracy * 10

	var bonus float64
	switch {
	case elapsedSeconds < bonusFastSeconds:
		bonus = bonusFast
	case elapsedSeconds < bonusMediumSeconds:
		bonus = bonusMedium
	case elapsedSeconds < bonusSlowSeconds:
		bonus = bonusSlow
	}

	score := int(math.Floor((base + bonus) * difficulty.Multiplier()))
	if score < 0 {
		return 0
	}
	return score
}

// IsSuccessful reports whether an accuracy percentage clears the success
// threshold.
func IsSuccessful(accuracy float64) bool {
	return accuracy >= SuccessThreshold
}

// AttemptResult is the immutable outcome of a single scored attempt.
type AttemptResult struct {
	SpokenText  string
	Accuracy    float64
	TimeSeconds float64
	Score       int
	Mistakes    []Mistake
}

// Successful reports whether this attempt cleared the success threshold.
func (r AttemptResult) Successful() bool {
	return IsSuccessful(r.Accuracy)
}
