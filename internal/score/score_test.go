package score_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playq/triviaroom/internal/score"
)

func TestCalculateAnswerScore_IncorrectIsZero(t *testing.T) {
	for _, d := range []string{"easy", "medium", "hard", "quantum physics"} {
		assert.Zero(t, score.CalculateAnswerScore(d, 1000, 5, false))
	}
}

func TestCalculateAnswerScore_NonIncreasingInTime(t *testing.T) {
	prev := score.CalculateAnswerScore("medium", 0, 0, true)
	require.Positive(t, prev)

	for _, ms := range []int64{1_000, 5_000, 15_000, 30_000, 60_000, 600_000} {
		got := score.CalculateAnswerScore("medium", ms, 0, true)
		assert.LessOrEqual(t, got, prev, "score should not increase with time spent (ms=%d)", ms)
		assert.Positive(t, got, "a correct answer should always earn points")
		prev = got
	}
}

func TestCalculateAnswerScore_NonDecreasingInStreak(t *testing.T) {
	prev := 0
	for streak := 0; streak <= 10; streak++ {
		got := score.CalculateAnswerScore("hard", 5_000, streak, true)
		assert.GreaterOrEqual(t, got, prev, "score should not decrease with streak (streak=%d)", streak)
		prev = got
	}
}

func TestCalculateAnswerScore_DifficultyScaling(t *testing.T) {
	easy := score.CalculateAnswerScore("easy", 5_000, 0, true)
	medium := score.CalculateAnswerScore("medium", 5_000, 0, true)
	hard := score.CalculateAnswerScore("hard", 5_000, 0, true)

	assert.Less(t, easy, medium)
	assert.Less(t, medium, hard)

	// Free-text custom difficulty falls back to the medium multiplier.
	custom := score.CalculateAnswerScore("90s pop culture", 5_000, 0, true)
	assert.Equal(t, medium, custom)
}

func TestCalculateAnswerScore_NeverNegative(t *testing.T) {
	assert.GreaterOrEqual(t, score.CalculateAnswerScore("easy", -50, -3, true), 0)
	assert.GreaterOrEqual(t, score.CalculateAnswerScore("easy", 1<<40, 0, true), 0)
}
