// Package api is the stateless request/response façade over the session
// orchestrator, mirrored by the websocket gateway. It translates typed engine
// errors to HTTP and fans state changes out through redis pubsub.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playq/triviaroom/internal/domain"
	"github.com/playq/triviaroom/internal/errors"
	"github.com/playq/triviaroom/internal/event"
	"github.com/playq/triviaroom/internal/game"
	"github.com/playq/triviaroom/internal/question"
	"github.com/playq/triviaroom/internal/session"
)

// userHeader carries the already-authenticated identity. Identity resolution
// happens upstream; the engine treats the value as opaque.
const userHeader = "X-User-ID"

type Config struct {
	Router       gin.IRouter
	EventBus     *event.Bus
	Session      *session.Service
	Questions    question.Source
	Redis        Redis
	PubsubPrefix string
}

type API struct {
	session   *session.Service
	questions question.Source

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		session:   c.Session,
		questions: c.Questions,
		redis:     c.Redis,
		prefix:    c.PubsubPrefix,
	}

	v1 := c.Router.Group("/v1")
	v1.POST("/rooms", a.CreateRoom)
	v1.POST("/rooms/:code/join", a.JoinRoom)
	v1.POST("/rooms/:code/leave", a.LeaveRoom)
	v1.POST("/rooms/:code/start", a.StartGame)
	v1.POST("/rooms/:code/answers", a.SubmitAnswer)
	v1.POST("/rooms/:code/next", a.NextQuestion)
	v1.GET("/rooms/:code", a.GetRoom)
	v1.GET("/rooms/:code/state", a.GetGameState)

	a.subscribeRoomEvents(c.EventBus)

	return a
}

type CreateRoomRequest struct {
	Topic           string `json:"topic"`
	Difficulty      string `json:"difficulty"`
	QuestionCount   int    `json:"questionCount"`
	MaxPlayers      int    `json:"maxPlayers"`
	GameMode        string `json:"gameMode"`
	TimePerQuestion int    `json:"timePerQuestion"`
}

func (a *API) CreateRoom(c *gin.Context) {
	userID, ok := a.userID(c)
	if !ok {
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	r, err := a.session.CreateRoom(c.Request.Context(), userID, domain.RoomConfig{
		Topic:           req.Topic,
		Difficulty:      req.Difficulty,
		QuestionCount:   req.QuestionCount,
		MaxPlayers:      req.MaxPlayers,
		GameMode:        domain.GameMode(req.GameMode),
		TimePerQuestion: req.TimePerQuestion,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toRoomView(r))
}

func (a *API) JoinRoom(c *gin.Context) {
	userID, ok := a.userID(c)
	if !ok {
		return
	}

	r, err := a.session.JoinRoom(c.Request.Context(), c.Param("code"), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRoomView(r))
}

func (a *API) LeaveRoom(c *gin.Context) {
	userID, ok := a.userID(c)
	if !ok {
		return
	}

	r, err := a.session.LeaveRoom(c.Request.Context(), c.Param("code"), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if r == nil {
		c.JSON(http.StatusOK, gin.H{"closed": true})
		return
	}

	c.JSON(http.StatusOK, toRoomView(r))
}

// StartGame acquires questions from the source first, then asks the
// orchestrator to start. A slow source therefore never sits inside the
// room's read-modify-write window.
func (a *API) StartGame(c *gin.Context) {
	userID, ok := a.userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	r, err := a.session.GetRoom(ctx, c.Param("code"), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	qs, err := a.questions.Questions(ctx, r.Config.Topic, r.Config.Difficulty, r.Config.QuestionCount)
	if err != nil {
		abortWithError(c, err)
		return
	}

	r, err = a.session.StartGame(ctx, r.RoomID, userID, qs)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRoomView(r))
}

type SubmitAnswerRequest struct {
	QuestionID       string  `json:"questionId"`
	AnswerIndex      int     `json:"answerIndex"`
	TimeSpentSeconds float64 `json:"timeSpentSeconds"`
}

func (a *API) SubmitAnswer(c *gin.Context) {
	userID, ok := a.userID(c)
	if !ok {
		return
	}

	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	resp, err := a.session.SubmitAnswer(c.Request.Context(), c.Param("code"), game.SubmitAnswerRequest{
		UserID:           userID,
		QuestionID:       req.QuestionID,
		AnswerIndex:      req.AnswerIndex,
		TimeSpentSeconds: req.TimeSpentSeconds,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	var total int
	if p := resp.Room.FindPlayer(userID); p != nil {
		total = p.Score
	}

	c.JSON(http.StatusOK, SubmitAnswerResult{
		IsCorrect:   resp.IsCorrect,
		ScoreEarned: resp.ScoreEarned,
		TotalScore:  total,
	})
}

// NextQuestion advances the room. Question expiry is observed, not enforced:
// the timer-owning client (or any participant action) drives the advance.
func (a *API) NextQuestion(c *gin.Context) {
	userID, ok := a.userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	// Participant check; the orchestrator advance itself is not user-scoped.
	r, err := a.session.GetRoom(ctx, c.Param("code"), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	r, err = a.session.NextQuestion(ctx, r.RoomID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRoomView(r))
}

func (a *API) GetRoom(c *gin.Context) {
	userID, ok := a.userID(c)
	if !ok {
		return
	}

	r, err := a.session.GetRoom(c.Request.Context(), c.Param("code"), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRoomView(r))
}

func (a *API) GetGameState(c *gin.Context) {
	userID, ok := a.userID(c)
	if !ok {
		return
	}

	gs, err := a.session.GetGameState(c.Request.Context(), c.Param("code"), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toGameStateView(gs))
}

func (a *API) userID(c *gin.Context) (string, bool) {
	userID := c.GetHeader(userHeader)
	if userID == "" {
		abortWithError(c, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("missing %s header", userHeader)))
		return "", false
	}

	return userID, true
}

func abortWithError(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}
