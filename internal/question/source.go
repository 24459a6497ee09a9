// Package question holds the question-source boundary. The engine treats
// question acquisition as a pre-step completed before a game starts; a slow
// or failing source never holds up a room operation.
package question

import (
	"context"
	"math/rand"

	"github.com/google/uuid"

	"github.com/playq/triviaroom/internal/domain"
	"github.com/playq/triviaroom/internal/errors"
)

// Source supplies an ordered question sequence for a topic and difficulty.
type Source interface {
	Questions(ctx context.Context, topic, difficulty string, count int) ([]domain.Question, error)
}

// StaticSource serves questions from an in-memory bank, shuffled per request.
// Used for local wiring and tests in place of the AI-backed source. The first
// option of each bank entry is the correct one; option order is reshuffled on
// every request so clients cannot learn a fixed position.
type StaticSource struct {
	bank []domain.Question
}

func NewStaticSource(texts map[string][]string) *StaticSource {
	s := &StaticSource{}
	for text, options := range texts {
		s.bank = append(s.bank, domain.Question{
			QuestionID:         uuid.NewString(),
			Text:               text,
			Options:            options,
			CorrectAnswerIndex: 0,
		})
	}
	return s
}

func (s *StaticSource) Questions(_ context.Context, _, _ string, count int) ([]domain.Question, error) {
	if count <= 0 || count > len(s.bank) {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("question source holds %d questions, requested %d", len(s.bank), count))
	}

	qs := make([]domain.Question, len(s.bank))
	copy(qs, s.bank)
	rand.Shuffle(len(qs), func(i, j int) {
		qs[i], qs[j] = qs[j], qs[i]
	})
	qs = qs[:count]

	for i := range qs {
		qs[i] = shuffleOptions(qs[i])
	}

	return qs, nil
}

func shuffleOptions(q domain.Question) domain.Question {
	correct := q.Options[q.CorrectAnswerIndex]

	options := make([]string, len(q.Options))
	copy(options, q.Options)
	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	q.Options = options
	for i, o := range options {
		if o == correct {
			q.CorrectAnswerIndex = i
			break
		}
	}

	return q
}
