// Package room implements the room lifecycle: creation, membership and game
// start. It owns the room-code format and every membership invariant; all
// snapshot writes from the engine funnel through its Save.
package room

import (
	"context"
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/playq/triviaroom/internal/domain"
	"github.com/playq/triviaroom/internal/errors"
	"github.com/playq/triviaroom/internal/store"
)

const (
	codeLength   = 8
	codeCharset  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeTries = 5

	MinPlayers         = 2
	MaxPlayersLimit    = 20
	MaxQuestions       = 50
	MinTimePerQuestion = 5
	MaxTimePerQuestion = 120
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// NormalizeCode uppercases a client-supplied room code and validates its
// format. Both access paths must call this before any lookup.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return "", errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("malformed room code: %q", code))
	}

	return code, nil
}

type Config struct {
	Rooms store.Rooms
}

type Service struct {
	rooms store.Rooms
}

func NewService(c Config) *Service {
	return &Service{
		rooms: c.Rooms,
	}
}

// CreateRoomRequest carries the creator and the game settings for a new room.
type CreateRoomRequest struct {
	CreatorID string
	Config    domain.RoomConfig
}

// CreateRoom generates a unique room code, validates the config bounds and
// persists a WAITING room with the creator as its sole player.
func (s *Service) CreateRoom(ctx context.Context, req CreateRoomRequest) (*domain.Room, error) {
	if req.CreatorID == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("creator id is required"))
	}

	cfg, err := validateConfig(req.Config)
	if err != nil {
		return nil, err
	}

	code, err := s.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	r := &domain.Room{
		RoomID:    code,
		CreatorID: req.CreatorID,
		Config:    cfg,
		Players: []domain.Player{
			{UserID: req.CreatorID, Status: domain.PlayerWaiting},
		},
		Status: domain.RoomWaiting,
	}

	if err := s.Save(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

// JoinRoom appends the user as a WAITING player. Joining a room the user is
// already in is idempotent and returns the current state.
func (s *Service) JoinRoom(ctx context.Context, roomID, userID string) (*domain.Room, error) {
	r, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if r.HasPlayer(userID) {
		return r, nil
	}

	if len(r.Players) >= r.Config.MaxPlayers {
		return nil, errors.New(errors.CodeResourceExhausted,
			errors.WithMessagef("room is full: room=%s max_players=%d", roomID, r.Config.MaxPlayers))
	}

	r.Players = append(r.Players, domain.Player{
		UserID: userID,
		Status: domain.PlayerWaiting,
	})

	if err := s.Save(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

// LeaveRoom removes the player. When the last player leaves, the room is
// deleted from the store and nil is returned to signal the room closed.
// Leaving a room the user is not in is a no-op. Removal never touches the
// question index or the remaining players' state.
func (s *Service) LeaveRoom(ctx context.Context, roomID, userID string) (*domain.Room, error) {
	r, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if !r.HasPlayer(userID) {
		return r, nil
	}

	players := r.Players[:0]
	for _, p := range r.Players {
		if p.UserID != userID {
			players = append(players, p)
		}
	}
	r.Players = players

	if len(r.Players) == 0 {
		if err := s.rooms.Delete(ctx, roomID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := s.Save(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

// StartGameRequest installs the pre-acquired question sequence. Question
// acquisition is a collaborator concern completed before this call.
type StartGameRequest struct {
	RoomID    string
	UserID    string
	Questions []domain.Question
}

// StartGame transitions the room from WAITING to PLAYING. Only the original
// creator may start; every player is reset to a clean PLAYING slate.
func (s *Service) StartGame(ctx context.Context, req StartGameRequest) (*domain.Room, error) {
	if len(req.Questions) == 0 {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("cannot start a game without questions"))
	}

	r, err := s.rooms.Get(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	if r.CreatorID != req.UserID {
		return nil, errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("only the room creator can start the game: room=%s", req.RoomID))
	}

	if r.Status != domain.RoomWaiting {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("game already started: room=%s status=%s", req.RoomID, r.Status))
	}

	now := time.Now().UTC()
	r.Questions = req.Questions
	r.Status = domain.RoomPlaying
	r.CurrentQuestionIndex = 0
	r.StartTime = &now
	r.CurrentQuestionStartTime = &now

	for i := range r.Players {
		r.Players[i] = domain.Player{
			UserID: r.Players[i].UserID,
			Status: domain.PlayerPlaying,
		}
	}

	if err := s.Save(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

// GetRoom fetches the current snapshot.
func (s *Service) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.rooms.Get(ctx, roomID)
}

// Restore re-inserts a previously observed snapshot. Used only by the session
// orchestrator's eviction recovery.
func (s *Service) Restore(ctx context.Context, r *domain.Room) error {
	return s.Save(ctx, r)
}

// Save stamps UpdatedAt and persists the snapshot, refreshing its TTL.
func (s *Service) Save(ctx context.Context, r *domain.Room) error {
	r.UpdatedAt = time.Now().UTC()
	return s.rooms.Save(ctx, r)
}

func (s *Service) generateCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeTries; i++ {
		code, err := randomCode()
		if err != nil {
			return "", fmt.Errorf("room: generate code: %w", err)
		}

		taken, err := s.rooms.Exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}

	return "", errors.New(errors.CodeInternal,
		errors.WithMessagef("could not generate a unique room code after %d attempts", maxCodeTries))
}

func randomCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	for i := range b {
		b[i] = codeCharset[int(b[i])%len(codeCharset)]
	}

	return string(b), nil
}

func validateConfig(c domain.RoomConfig) (domain.RoomConfig, error) {
	if c.MaxPlayers < MinPlayers || c.MaxPlayers > MaxPlayersLimit {
		return c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("max players must be between %d and %d, got %d", MinPlayers, MaxPlayersLimit, c.MaxPlayers))
	}

	if c.QuestionCount < 1 || c.QuestionCount > MaxQuestions {
		return c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("question count must be between 1 and %d, got %d", MaxQuestions, c.QuestionCount))
	}

	if c.TimePerQuestion < MinTimePerQuestion || c.TimePerQuestion > MaxTimePerQuestion {
		return c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("time per question must be between %d and %d seconds, got %d", MinTimePerQuestion, MaxTimePerQuestion, c.TimePerQuestion))
	}

	if strings.TrimSpace(c.Difficulty) == "" {
		return c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("difficulty is required"))
	}

	switch c.GameMode {
	case domain.ModeStandard, domain.ModeRapid:
	case "":
		c.GameMode = domain.ModeStandard
	default:
		return c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("unknown game mode: %q", c.GameMode))
	}

	return c, nil
}
