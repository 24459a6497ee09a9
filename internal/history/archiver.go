// Package history archives finished games into postgres. It is a write-only
// collaborator boundary: the engine never reads this data back, and a failed
// archive never fails a game operation.
package history

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playq/triviaroom/internal/domain"
	"github.com/playq/triviaroom/internal/event"
	"github.com/playq/triviaroom/internal/game"
)

type Config struct {
	DB       *pgxpool.Pool
	EventBus *event.Bus
}

type Archiver struct {
	db *pgxpool.Pool
}

// NewArchiver subscribes to game.finished and records final standings.
func NewArchiver(c Config) *Archiver {
	a := &Archiver{db: c.DB}

	c.EventBus.Subscribe(domain.EventNameGameFinished, func(ctx context.Context, e event.Event) error {
		return a.ArchiveGame(ctx, e.(domain.EventGameFinished))
	})

	return a
}

// ArchiveGame inserts one row per player with their final rank.
func (a *Archiver) ArchiveGame(ctx context.Context, e domain.EventGameFinished) (err error) {
	r := e.Room

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("history: begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		insGameStmt = `
INSERT INTO games (room_id, topic, difficulty, game_mode, question_count, started_at, ended_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);`
		insResultStmt = `
INSERT INTO game_results (room_id, user_id, rank, score, correct_answers, answers_submitted)
VALUES ($1, $2, $3, $4, $5, $6);`
	)

	_, err = tx.Exec(ctx, insGameStmt,
		r.RoomID, r.Config.Topic, r.Config.Difficulty, string(r.Config.GameMode),
		len(r.Questions), r.StartTime, r.EndTime,
	)
	if err != nil {
		return fmt.Errorf("history: insert game: %w", err)
	}

	lb := game.Leaderboard(&r)
	for rank, entry := range lb.Entries {
		p := r.FindPlayer(entry.UserID)
		if p == nil {
			continue
		}

		_, err = tx.Exec(ctx, insResultStmt,
			r.RoomID, p.UserID, rank+1, p.Score, p.CorrectAnswers, p.AnswersSubmitted,
		)
		if err != nil {
			return fmt.Errorf("history: insert result: %w", err)
		}
	}

	return tx.Commit(ctx)
}
