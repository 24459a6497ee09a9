package domain

const (
	EventNameRoomCreated      = "room.created"
	EventNamePlayerJoined     = "room.player_joined"
	EventNamePlayerLeft       = "room.player_left"
	EventNameRoomClosed       = "room.closed"
	EventNameGameStarted      = "game.started"
	EventNameAnswerSubmitted  = "game.answer_submitted"
	EventNameQuestionAdvanced = "game.question_advanced"
	EventNameGameFinished     = "game.finished"
)

type EventRoomCreated struct {
	Room Room
}

func (EventRoomCreated) Name() string { return EventNameRoomCreated }

type EventPlayerJoined struct {
	Room   Room
	UserID string
}

func (EventPlayerJoined) Name() string { return EventNamePlayerJoined }

type EventPlayerLeft struct {
	Room   Room
	UserID string
}

func (EventPlayerLeft) Name() string { return EventNamePlayerLeft }

type EventRoomClosed struct {
	RoomID string
}

func (EventRoomClosed) Name() string { return EventNameRoomClosed }

type EventGameStarted struct {
	Room Room
}

func (EventGameStarted) Name() string { return EventNameGameStarted }

type EventAnswerSubmitted struct {
	Room        Room
	UserID      string
	QuestionID  string
	IsCorrect   bool
	ScoreEarned int
}

func (EventAnswerSubmitted) Name() string { return EventNameAnswerSubmitted }

type EventQuestionAdvanced struct {
	Room Room
}

func (EventQuestionAdvanced) Name() string { return EventNameQuestionAdvanced }

type EventGameFinished struct {
	Room Room
}

func (EventGameFinished) Name() string { return EventNameGameFinished }
