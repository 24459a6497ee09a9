package domain

import (
	"time"
)

// RoomStatus is the lifecycle state of a room. Transitions are monotonic:
// WAITING -> PLAYING -> FINISHED, never backward.
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "WAITING"
	RoomPlaying  RoomStatus = "PLAYING"
	RoomFinished RoomStatus = "FINISHED"
)

// PlayerStatus is the per-player state within a room.
type PlayerStatus string

const (
	PlayerWaiting      PlayerStatus = "WAITING"
	PlayerPlaying      PlayerStatus = "PLAYING"
	PlayerAnswered     PlayerStatus = "ANSWERED"
	PlayerFinished     PlayerStatus = "FINISHED"
	PlayerDisconnected PlayerStatus = "DISCONNECTED"
)

type GameMode string

const (
	ModeStandard GameMode = "standard"
	ModeRapid    GameMode = "rapid"
)

// RoomConfig holds the game settings fixed at room creation.
type RoomConfig struct {
	Topic           string   `json:"topic"`
	Difficulty      string   `json:"difficulty"`
	QuestionCount   int      `json:"questionCount"`
	MaxPlayers      int      `json:"maxPlayers"`
	GameMode        GameMode `json:"gameMode"`
	TimePerQuestion int      `json:"timePerQuestion"` // seconds
}

// Room is one multiplayer trivia session. Between operations the serialized
// snapshot in the room store is the only source of truth; a process holds a
// working copy for the duration of a single operation only.
type Room struct {
	RoomID    string     `json:"roomId"` // 8-char uppercase alphanumeric code
	CreatorID string     `json:"creatorId"`
	Config    RoomConfig `json:"config"`

	// Players is ordered by join time. Join order is display order, not rank.
	Players   []Player   `json:"players"`
	Questions []Question `json:"questions"`

	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
	Status               RoomStatus `json:"status"`

	StartTime                *time.Time `json:"startTime,omitempty"`
	EndTime                  *time.Time `json:"endTime,omitempty"`
	CurrentQuestionStartTime *time.Time `json:"currentQuestionStartTime,omitempty"`
	UpdatedAt                time.Time  `json:"updatedAt"`
}

// Player is embedded in a Room and never addressed on its own.
type Player struct {
	UserID           string       `json:"userId"`
	Status           PlayerStatus `json:"status"`
	Score            int          `json:"score"`
	CorrectAnswers   int          `json:"correctAnswers"`
	AnswersSubmitted int          `json:"answersSubmitted"`

	// CurrentAnswer and TimeSpent are transient, cleared at the start of
	// every new question.
	CurrentAnswer *int     `json:"currentAnswer,omitempty"`
	TimeSpent     *float64 `json:"timeSpent,omitempty"` // seconds
}

type Question struct {
	QuestionID         string   `json:"questionId"`
	Text               string   `json:"text"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
}

// FindPlayer returns a pointer into r.Players for the given user, or nil.
func (r *Room) FindPlayer(userID string) *Player {
	for i := range r.Players {
		if r.Players[i].UserID == userID {
			return &r.Players[i]
		}
	}
	return nil
}

// HasPlayer reports whether the user is a member of the room.
func (r *Room) HasPlayer(userID string) bool {
	return r.FindPlayer(userID) != nil
}

// CurrentQuestion returns the question at the current index, or nil when the
// index is out of range.
func (r *Room) CurrentQuestion() *Question {
	if r.CurrentQuestionIndex < 0 || r.CurrentQuestionIndex >= len(r.Questions) {
		return nil
	}
	return &r.Questions[r.CurrentQuestionIndex]
}

// Clone returns a deep copy of the room. Snapshot caches must never share
// player state with a live working copy.
func (r *Room) Clone() *Room {
	c := *r

	c.Players = make([]Player, len(r.Players))
	for i, p := range r.Players {
		if p.CurrentAnswer != nil {
			a := *p.CurrentAnswer
			p.CurrentAnswer = &a
		}
		if p.TimeSpent != nil {
			t := *p.TimeSpent
			p.TimeSpent = &t
		}
		c.Players[i] = p
	}

	c.Questions = append([]Question(nil), r.Questions...)

	if r.StartTime != nil {
		t := *r.StartTime
		c.StartTime = &t
	}
	if r.EndTime != nil {
		t := *r.EndTime
		c.EndTime = &t
	}
	if r.CurrentQuestionStartTime != nil {
		t := *r.CurrentQuestionStartTime
		c.CurrentQuestionStartTime = &t
	}

	return &c
}

// GameState is a derived, read-only projection of a room mid-game. It is
// recomputed on demand and never stored.
type GameState struct {
	RoomID               string         `json:"roomId"`
	Status               RoomStatus     `json:"status"`
	CurrentQuestion      *Question      `json:"currentQuestion,omitempty"`
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	TotalQuestions       int            `json:"totalQuestions"`
	TimeRemaining        int            `json:"timeRemaining"` // seconds
	Answers              map[string]int `json:"answers"`       // userId -> answer index, current question only
	Scores               map[string]int `json:"scores"`        // userId -> score
	Leaderboard          Leaderboard    `json:"leaderboard"`
}

// Leaderboard ranks players by score descending, ties broken by correct
// answers descending, stable by join order otherwise.
type Leaderboard struct {
	RoomID  string             `json:"roomId"`
	Entries []LeaderboardEntry `json:"entries"`
}

type LeaderboardEntry struct {
	UserID         string `json:"userId"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correctAnswers"`
}
