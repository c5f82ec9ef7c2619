// Package scoring computes points for answered questions with a time-decay
// bonus: answering sooner after the announcement is worth more.
package scoring

import (
	"math"
	"time"

	"daily-trivia-service/internal/domain"
)

const (
	// minDecayFactor floors the bonus so a late correct answer still scores.
	minDecayFactor = 0.2
	secondsPerDay  = 86_400
)

var basePoints = map[domain.Tier]int{
	domain.TierEasy:   50,
	domain.TierMedium: 100,
	domain.TierHard:   150,
}

// BasePoints returns the undecayed value of a tier.
func BasePoints(tier domain.Tier) int {
	return basePoints[tier]
}

// Result breaks down a computed score.
type Result struct {
	Points      int
	DecayFactor float64
	Elapsed     time.Duration
}

// ComputePoints derives the score for a correct answer at answeredAt to a
// question announced at announcedAt. Deterministic; elapsed time is clamped
// to zero so clock skew never produces a bonus above the base.
func ComputePoints(tier domain.Tier, announcedAt, answeredAt time.Time) Result {
	elapsed := answeredAt.Sub(announcedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	decay := 1 - elapsed.Seconds()/secondsPerDay
	if decay < minDecayFactor {
		decay = minDecayFactor
	}

	base := basePoints[tier]
	return Result{
		Points:      int(math.Round(float64(base) * decay)),
		DecayFactor: decay,
		Elapsed:     elapsed,
	}
}
