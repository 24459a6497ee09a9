package api

import (
	"time"

	"github.com/playq/triviaroom/internal/domain"
)

// Wire views are sanitized projections of the domain aggregates. Correct
// answer indexes never leave the server.
type (
	RoomView struct {
		RoomID               string       `json:"roomId"`
		CreatorID            string       `json:"creatorId"`
		Config               ConfigView   `json:"config"`
		Players              []PlayerView `json:"players"`
		Status               string       `json:"status"`
		CurrentQuestionIndex int          `json:"currentQuestionIndex"`
		TotalQuestions       int          `json:"totalQuestions"`
		StartTime            *time.Time   `json:"startTime,omitempty"`
		EndTime              *time.Time   `json:"endTime,omitempty"`
		UpdatedAt            time.Time    `json:"updatedAt"`
	}

	ConfigView struct {
		Topic           string `json:"topic"`
		Difficulty      string `json:"difficulty"`
		QuestionCount   int    `json:"questionCount"`
		MaxPlayers      int    `json:"maxPlayers"`
		GameMode        string `json:"gameMode"`
		TimePerQuestion int    `json:"timePerQuestion"`
	}

	PlayerView struct {
		UserID           string `json:"userId"`
		Status           string `json:"status"`
		Score            int    `json:"score"`
		CorrectAnswers   int    `json:"correctAnswers"`
		AnswersSubmitted int    `json:"answersSubmitted"`
	}

	QuestionView struct {
		QuestionID string   `json:"questionId"`
		Text       string   `json:"text"`
		Options    []string `json:"options"`
	}

	GameStateView struct {
		RoomID               string             `json:"roomId"`
		Status               string             `json:"status"`
		CurrentQuestion      *QuestionView      `json:"currentQuestion,omitempty"`
		CurrentQuestionIndex int                `json:"currentQuestionIndex"`
		TotalQuestions       int                `json:"totalQuestions"`
		TimeRemaining        int                `json:"timeRemaining"`
		Answers              map[string]int     `json:"answers"`
		Scores               map[string]int     `json:"scores"`
		Leaderboard          []LeaderboardEntry `json:"leaderboard"`
	}

	LeaderboardEntry struct {
		UserID         string `json:"userId"`
		Score          int    `json:"score"`
		CorrectAnswers int    `json:"correctAnswers"`
	}

	SubmitAnswerResult struct {
		IsCorrect   bool `json:"isCorrect"`
		ScoreEarned int  `json:"scoreEarned"`
		TotalScore  int  `json:"totalScore"`
	}
)

func toRoomView(r *domain.Room) RoomView {
	v := RoomView{
		RoomID:    r.RoomID,
		CreatorID: r.CreatorID,
		Config: ConfigView{
			Topic:           r.Config.Topic,
			Difficulty:      r.Config.Difficulty,
			QuestionCount:   r.Config.QuestionCount,
			MaxPlayers:      r.Config.MaxPlayers,
			GameMode:        string(r.Config.GameMode),
			TimePerQuestion: r.Config.TimePerQuestion,
		},
		Players:              make([]PlayerView, 0, len(r.Players)),
		Status:               string(r.Status),
		CurrentQuestionIndex: r.CurrentQuestionIndex,
		TotalQuestions:       len(r.Questions),
		StartTime:            r.StartTime,
		EndTime:              r.EndTime,
		UpdatedAt:            r.UpdatedAt,
	}

	for _, p := range r.Players {
		v.Players = append(v.Players, toPlayerView(p))
	}

	return v
}

func toPlayerView(p domain.Player) PlayerView {
	return PlayerView{
		UserID:           p.UserID,
		Status:           string(p.Status),
		Score:            p.Score,
		CorrectAnswers:   p.CorrectAnswers,
		AnswersSubmitted: p.AnswersSubmitted,
	}
}

func toQuestionView(q *domain.Question) *QuestionView {
	if q == nil {
		return nil
	}

	return &QuestionView{
		QuestionID: q.QuestionID,
		Text:       q.Text,
		Options:    q.Options,
	}
}

func toGameStateView(gs *domain.GameState) GameStateView {
	v := GameStateView{
		RoomID:               gs.RoomID,
		Status:               string(gs.Status),
		CurrentQuestion:      toQuestionView(gs.CurrentQuestion),
		CurrentQuestionIndex: gs.CurrentQuestionIndex,
		TotalQuestions:       gs.TotalQuestions,
		TimeRemaining:        gs.TimeRemaining,
		Answers:              gs.Answers,
		Scores:               gs.Scores,
		Leaderboard:          make([]LeaderboardEntry, 0, len(gs.Leaderboard.Entries)),
	}

	for _, e := range gs.Leaderboard.Entries {
		v.Leaderboard = append(v.Leaderboard, LeaderboardEntry{
			UserID:         e.UserID,
			Score:          e.Score,
			CorrectAnswers: e.CorrectAnswers,
		})
	}

	return v
}
