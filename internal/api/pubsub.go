package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/playq/triviaroom/internal/domain"
	"github.com/playq/triviaroom/internal/event"
)

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Notification is the pubsub envelope consumed by the websocket gateway.
// Delivery is best-effort: a subscriber that misses a message reconciles by
// polling the request/response façade.
type Notification struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type AnswerNotice struct {
	Room        RoomView `json:"room"`
	UserID      string   `json:"userId"`
	ScoreEarned int      `json:"scoreEarned"`
}

func (a *API) subscribeRoomEvents(eb *event.Bus) {
	roomEvent := func(pick func(e event.Event) (roomID string, data any)) event.Handler {
		return func(ctx context.Context, e event.Event) error {
			roomID, data := pick(e)
			return a.publishNotification(ctx, roomID, e.Name(), data)
		}
	}

	eb.Subscribe(domain.EventNamePlayerJoined, roomEvent(func(e event.Event) (string, any) {
		ev := e.(domain.EventPlayerJoined)
		return ev.Room.RoomID, toRoomView(&ev.Room)
	}))
	eb.Subscribe(domain.EventNamePlayerLeft, roomEvent(func(e event.Event) (string, any) {
		ev := e.(domain.EventPlayerLeft)
		return ev.Room.RoomID, toRoomView(&ev.Room)
	}))
	eb.Subscribe(domain.EventNameRoomClosed, roomEvent(func(e event.Event) (string, any) {
		ev := e.(domain.EventRoomClosed)
		return ev.RoomID, map[string]string{"roomId": ev.RoomID}
	}))
	eb.Subscribe(domain.EventNameGameStarted, roomEvent(func(e event.Event) (string, any) {
		ev := e.(domain.EventGameStarted)
		return ev.Room.RoomID, toRoomView(&ev.Room)
	}))
	eb.Subscribe(domain.EventNameAnswerSubmitted, roomEvent(func(e event.Event) (string, any) {
		ev := e.(domain.EventAnswerSubmitted)
		return ev.Room.RoomID, AnswerNotice{
			Room:        toRoomView(&ev.Room),
			UserID:      ev.UserID,
			ScoreEarned: ev.ScoreEarned,
		}
	}))
	eb.Subscribe(domain.EventNameQuestionAdvanced, roomEvent(func(e event.Event) (string, any) {
		ev := e.(domain.EventQuestionAdvanced)
		return ev.Room.RoomID, toRoomView(&ev.Room)
	}))
	eb.Subscribe(domain.EventNameGameFinished, roomEvent(func(e event.Event) (string, any) {
		ev := e.(domain.EventGameFinished)
		return ev.Room.RoomID, toRoomView(&ev.Room)
	}))
}

func (a *API) publishNotification(ctx context.Context, roomID, eventName string, data any) error {
	n := Notification{
		Event: eventName,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", eventName, err)
	}

	return a.redis.Publish(ctx, RoomChannel(a.prefix, roomID), b).Err()
}

// RoomChannel is the pubsub channel carrying all notifications for one room.
func RoomChannel(prefix, roomID string) string {
	return fmt.Sprintf("%s:room:%s", prefix, roomID)
}
