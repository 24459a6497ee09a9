// Package game owns question progression, answer acceptance and scoring
// integration. It operates on a Room working copy handed to it and persists
// through the lifecycle component; it never reads the store itself.
package game

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/playq/triviaroom/internal/domain"
	"github.com/playq/triviaroom/internal/errors"
	"github.com/playq/triviaroom/internal/score"
)

// RoomSaver persists a mutated working copy. Implemented by the room
// lifecycle service.
type RoomSaver interface {
	Save(ctx context.Context, r *domain.Room) error
}

type Config struct {
	Saver RoomSaver
	// Score is the external scoring function. Defaults to the built-in curve.
	Score score.Func
	// NowFunc overrides the clock in tests.
	NowFunc func() time.Time
}

type Service struct {
	saver RoomSaver
	score score.Func
	now   func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		saver: c.Saver,
		score: c.Score,
		now:   c.NowFunc,
	}

	if s.score == nil {
		s.score = score.CalculateAnswerScore
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// GameState derives the read-only projection for a room. Pure: no store
// access, no mutation.
func (s *Service) GameState(r *domain.Room) *domain.GameState {
	gs := &domain.GameState{
		RoomID:               r.RoomID,
		Status:               r.Status,
		CurrentQuestion:      r.CurrentQuestion(),
		CurrentQuestionIndex: r.CurrentQuestionIndex,
		TotalQuestions:       len(r.Questions),
		TimeRemaining:        s.timeRemaining(r),
		Answers:              make(map[string]int),
		Scores:               make(map[string]int, len(r.Players)),
		Leaderboard:          Leaderboard(r),
	}

	for _, p := range r.Players {
		gs.Scores[p.UserID] = p.Score
		if p.Status == domain.PlayerAnswered && p.CurrentAnswer != nil {
			gs.Answers[p.UserID] = *p.CurrentAnswer
		}
	}

	return gs
}

// Leaderboard ranks players by score descending, then correct answers
// descending. Exact ties keep join order (stable sort over the player slice).
func Leaderboard(r *domain.Room) domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(r.Players))
	for _, p := range r.Players {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:         p.UserID,
			Score:          p.Score,
			CorrectAnswers: p.CorrectAnswers,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].CorrectAnswers > entries[j].CorrectAnswers
	})

	return domain.Leaderboard{
		RoomID:  r.RoomID,
		Entries: entries,
	}
}

type SubmitAnswerRequest struct {
	UserID           string
	QuestionID       string
	AnswerIndex      int
	TimeSpentSeconds float64
}

type SubmitAnswerResponse struct {
	Room        *domain.Room
	IsCorrect   bool
	ScoreEarned int
}

// SubmitAnswer records one answer against the current question. A second
// submission for the same question is an idempotent no-op that reports the
// original correctness with zero points; a submission against any other
// question is a state error and never mutates the room.
func (s *Service) SubmitAnswer(ctx context.Context, r *domain.Room, req SubmitAnswerRequest) (*SubmitAnswerResponse, error) {
	p := r.FindPlayer(req.UserID)
	if p == nil {
		return nil, errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("not a member of room %s: user=%s", r.RoomID, req.UserID))
	}

	if r.Status != domain.RoomPlaying {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("game is not in progress: room=%s status=%s", r.RoomID, r.Status))
	}

	q := r.CurrentQuestion()
	if q == nil || q.QuestionID != req.QuestionID {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("answer targets a stale question: room=%s question=%s", r.RoomID, req.QuestionID))
	}

	if p.Status == domain.PlayerAnswered {
		isCorrect := p.CurrentAnswer != nil && *p.CurrentAnswer == q.CorrectAnswerIndex
		return &SubmitAnswerResponse{
			Room:        r,
			IsCorrect:   isCorrect,
			ScoreEarned: 0,
		}, nil
	}

	isCorrect := req.AnswerIndex == q.CorrectAnswerIndex
	earned := s.score(r.Config.Difficulty, int64(req.TimeSpentSeconds*1000), p.CorrectAnswers, isCorrect)

	if isCorrect {
		p.Score += earned
		p.CorrectAnswers++
	}
	p.AnswersSubmitted++
	p.Status = domain.PlayerAnswered
	answer := req.AnswerIndex
	spent := req.TimeSpentSeconds
	p.CurrentAnswer = &answer
	p.TimeSpent = &spent

	if err := s.saver.Save(ctx, r); err != nil {
		return nil, err
	}

	return &SubmitAnswerResponse{
		Room:        r,
		IsCorrect:   isCorrect,
		ScoreEarned: earned,
	}, nil
}

// NextQuestion advances to the next question, or finishes the game when the
// current question is the last one. Transient per-player answer state is
// cleared on every advance.
func (s *Service) NextQuestion(ctx context.Context, r *domain.Room) (*domain.Room, error) {
	if r.Status != domain.RoomPlaying {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("game is not in progress: room=%s status=%s", r.RoomID, r.Status))
	}

	now := s.now().UTC()

	if r.CurrentQuestionIndex >= len(r.Questions)-1 {
		r.Status = domain.RoomFinished
		r.EndTime = &now

		for i := range r.Players {
			if r.Players[i].Status != domain.PlayerDisconnected {
				r.Players[i].Status = domain.PlayerFinished
			}
		}
	} else {
		r.CurrentQuestionIndex++
		r.CurrentQuestionStartTime = &now

		for i := range r.Players {
			switch r.Players[i].Status {
			case domain.PlayerDisconnected, domain.PlayerFinished:
			default:
				r.Players[i].Status = domain.PlayerPlaying
				r.Players[i].CurrentAnswer = nil
				r.Players[i].TimeSpent = nil
			}
		}
	}

	if err := s.saver.Save(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

// timeRemaining derives the advisory countdown for the current question. The
// engine never enforces expiry; advancing is always an explicit call.
func (s *Service) timeRemaining(r *domain.Room) int {
	if r.Status != domain.RoomPlaying || r.CurrentQuestionStartTime == nil {
		return r.Config.TimePerQuestion
	}

	elapsed := s.now().Sub(*r.CurrentQuestionStartTime).Seconds()
	remaining := int(math.Floor(float64(r.Config.TimePerQuestion) - elapsed))
	if remaining < 0 {
		return 0
	}

	return remaining
}
