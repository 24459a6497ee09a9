// Package session is the orchestrator façade consumed identically by the
// websocket gateway and the request/response API. It sequences lifecycle and
// game-state calls, serializes operations per room, and recovers from store
// eviction with a process-local snapshot cache.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/playq/triviaroom/internal/domain"
	"github.com/playq/triviaroom/internal/errors"
	"github.com/playq/triviaroom/internal/event"
	"github.com/playq/triviaroom/internal/game"
	"github.com/playq/triviaroom/internal/room"
)

type Config struct {
	Rooms    *room.Service
	Game     *game.Service
	EventBus *event.Bus
}

type Service struct {
	rooms *room.Service
	game  *game.Service
	eb    *event.Bus

	locks keyedMutex

	// cache holds the last-known snapshot per room this process has touched.
	// It is never authoritative; it only seeds eviction recovery.
	mu    sync.Mutex
	cache map[string]*domain.Room
}

func NewService(c Config) *Service {
	return &Service{
		rooms: c.Rooms,
		game:  c.Game,
		eb:    c.EventBus,
		cache: make(map[string]*domain.Room),
	}
}

func (s *Service) CreateRoom(ctx context.Context, creatorID string, cfg domain.RoomConfig) (*domain.Room, error) {
	r, err := s.rooms.CreateRoom(ctx, room.CreateRoomRequest{
		CreatorID: creatorID,
		Config:    cfg,
	})
	if err != nil {
		return nil, err
	}

	s.remember(r)
	s.eb.Publish(ctx, domain.EventRoomCreated{Room: *r})
	return r, nil
}

func (s *Service) JoinRoom(ctx context.Context, code, userID string) (*domain.Room, error) {
	roomID, err := room.NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(roomID)
	defer unlock()

	var r *domain.Room
	err = s.withRecovery(ctx, roomID, func() error {
		r, err = s.rooms.JoinRoom(ctx, roomID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.remember(r)
	s.eb.Publish(ctx, domain.EventPlayerJoined{Room: *r, UserID: userID})
	return r, nil
}

func (s *Service) LeaveRoom(ctx context.Context, code, userID string) (*domain.Room, error) {
	roomID, err := room.NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(roomID)
	defer unlock()

	var r *domain.Room
	err = s.withRecovery(ctx, roomID, func() error {
		r, err = s.rooms.LeaveRoom(ctx, roomID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if r == nil {
		s.forget(roomID)
		s.eb.Publish(ctx, domain.EventRoomClosed{RoomID: roomID})
		return nil, nil
	}

	s.remember(r)
	s.eb.Publish(ctx, domain.EventPlayerLeft{Room: *r, UserID: userID})
	return r, nil
}

func (s *Service) StartGame(ctx context.Context, code, userID string, questions []domain.Question) (*domain.Room, error) {
	roomID, err := room.NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(roomID)
	defer unlock()

	var r *domain.Room
	err = s.withRecovery(ctx, roomID, func() error {
		r, err = s.rooms.StartGame(ctx, room.StartGameRequest{
			RoomID:    roomID,
			UserID:    userID,
			Questions: questions,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.remember(r)
	s.eb.Publish(ctx, domain.EventGameStarted{Room: *r})
	return r, nil
}

func (s *Service) SubmitAnswer(ctx context.Context, code string, req game.SubmitAnswerRequest) (*game.SubmitAnswerResponse, error) {
	roomID, err := room.NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(roomID)
	defer unlock()

	var resp *game.SubmitAnswerResponse
	err = s.withRecovery(ctx, roomID, func() error {
		r, err := s.rooms.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}

		resp, err = s.game.SubmitAnswer(ctx, r, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.remember(resp.Room)
	s.eb.Publish(ctx, domain.EventAnswerSubmitted{
		Room:        *resp.Room,
		UserID:      req.UserID,
		QuestionID:  req.QuestionID,
		IsCorrect:   resp.IsCorrect,
		ScoreEarned: resp.ScoreEarned,
	})
	return resp, nil
}

func (s *Service) NextQuestion(ctx context.Context, code string) (*domain.Room, error) {
	roomID, err := room.NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(roomID)
	defer unlock()

	var r *domain.Room
	err = s.withRecovery(ctx, roomID, func() error {
		cur, err := s.rooms.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}

		r, err = s.game.NextQuestion(ctx, cur)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.remember(r)
	if r.Status == domain.RoomFinished {
		s.eb.Publish(ctx, domain.EventGameFinished{Room: *r})
	} else {
		s.eb.Publish(ctx, domain.EventQuestionAdvanced{Room: *r})
	}
	return r, nil
}

// GetRoom returns the room details. Restricted to participants. Reads take
// the room lock too: the recovery path can write a restored snapshot, and
// that write must serialize with mutating operations.
func (s *Service) GetRoom(ctx context.Context, code, userID string) (*domain.Room, error) {
	roomID, err := room.NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(roomID)
	defer unlock()

	var r *domain.Room
	err = s.withRecovery(ctx, roomID, func() error {
		r, err = s.rooms.GetRoom(ctx, roomID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !r.HasPlayer(userID) {
		return nil, errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("not a member of room %s: user=%s", roomID, userID))
	}

	s.remember(r)
	return r, nil
}

// GetGameState returns the derived game view. Restricted to participants.
func (s *Service) GetGameState(ctx context.Context, code, userID string) (*domain.GameState, error) {
	r, err := s.GetRoom(ctx, code, userID)
	if err != nil {
		return nil, err
	}

	return s.game.GameState(r), nil
}

// withRecovery runs op and, when it fails with NotFound and a cached snapshot
// exists, re-inserts the snapshot and retries exactly once. A second NotFound
// is permanent: it propagates unchanged, no further retries. Any other error
// class passes through untouched.
func (s *Service) withRecovery(ctx context.Context, roomID string, op func() error) error {
	err := op()
	if err == nil || !errors.IsNotFound(err) {
		return err
	}

	snap, ok := s.snapshot(roomID)
	if !ok {
		return err
	}

	slog.WarnContext(ctx, "session: room missing from store, restoring cached snapshot",
		"room", roomID,
		"snapshot_updated_at", snap.UpdatedAt,
	)

	if rerr := s.rooms.Restore(ctx, snap); rerr != nil {
		return rerr
	}

	return op()
}

func (s *Service) remember(r *domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[r.RoomID] = r.Clone()
}

func (s *Service) forget(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, roomID)
}

func (s *Service) snapshot(roomID string) (*domain.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.cache[roomID]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// keyedMutex serializes operations per room id. The store has no
// compare-and-swap on snapshots, so without this two overlapping
// read-modify-write windows on one room would be last-writer-wins.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*roomLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &roomLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
