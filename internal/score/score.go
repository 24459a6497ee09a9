// Package score implements the answer-scoring curve. The engine consumes it
// as an opaque function with a fixed contract: it returns 0 for an incorrect
// answer, never returns a negative value, is non-decreasing in streak,
// non-increasing in time spent, and scaled by difficulty.
package score

import (
	"github.com/shopspring/decimal"
)

// Func computes the points earned for one answer. It must be pure and
// synchronous; it is called inside the room read-modify-write window and must
// never block.
type Func func(difficulty string, timeSpentMs int64, streak int, isCorrect bool) int

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

var (
	basePoints = decimal.NewFromInt(100)

	difficultyMultiplier = map[string]decimal.Decimal{
		DifficultyEasy:   decimal.NewFromInt(1),
		DifficultyMedium: decimal.NewFromFloat(1.5),
		DifficultyHard:   decimal.NewFromInt(2),
	}

	// streakStep adds 10% of the base per consecutive correct answer.
	streakStep = decimal.NewFromFloat(0.1)

	// Time decay bottoms out at 20% of the base so a correct answer is never
	// worth nothing.
	minTimeFactor = decimal.NewFromFloat(0.2)
	decayWindowMs = decimal.NewFromInt(60_000)
	oneDec        = decimal.NewFromInt(1)
)

// CalculateAnswerScore is the default scoring curve. Custom (free-text)
// difficulties score with the medium multiplier.
func CalculateAnswerScore(difficulty string, timeSpentMs int64, streak int, isCorrect bool) int {
	if !isCorrect {
		return 0
	}

	if timeSpentMs < 0 {
		timeSpentMs = 0
	}
	if streak < 0 {
		streak = 0
	}

	mult, ok := difficultyMultiplier[difficulty]
	if !ok {
		mult = difficultyMultiplier[DifficultyMedium]
	}

	timeFactor := oneDec.Sub(decimal.NewFromInt(timeSpentMs).Div(decayWindowMs))
	if timeFactor.LessThan(minTimeFactor) {
		timeFactor = minTimeFactor
	}

	streakBonus := oneDec.Add(streakStep.Mul(decimal.NewFromInt(int64(streak))))

	points := basePoints.Mul(mult).Mul(timeFactor).Mul(streakBonus)

	n := int(points.Round(0).IntPart())
	if n < 0 {
		return 0
	}
	return n
}
