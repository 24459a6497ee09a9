package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/playq/triviaroom/internal/domain"
	"github.com/playq/triviaroom/internal/errors"
	"github.com/playq/triviaroom/internal/store"
)

func TestRedisRooms_RoundTrip(t *testing.T) {
	s, _ := makeStore(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	room := &domain.Room{
		RoomID:    "ABC12345",
		CreatorID: "u1",
		Config: domain.RoomConfig{
			Topic:           "history",
			Difficulty:      "medium",
			QuestionCount:   5,
			MaxPlayers:      4,
			GameMode:        domain.ModeStandard,
			TimePerQuestion: 30,
		},
		Players: []domain.Player{
			{UserID: "u1", Status: domain.PlayerWaiting},
		},
		Status:    domain.RoomWaiting,
		UpdatedAt: now,
	}

	require.NoError(t, s.Save(context.Background(), room))

	got, err := s.Get(context.Background(), "ABC12345")
	require.NoError(t, err)
	require.Equal(t, room, got)
}

func TestRedisRooms_GetMissing(t *testing.T) {
	s, _ := makeStore(t)

	_, err := s.Get(context.Background(), "NOPE0000")
	require.Error(t, err)
	require.True(t, errors.IsNotFound(err), "missing room should be a NotFound error")
}

func TestRedisRooms_Delete(t *testing.T) {
	s, _ := makeStore(t)

	room := &domain.Room{RoomID: "ABC12345", Status: domain.RoomWaiting}
	require.NoError(t, s.Save(context.Background(), room))

	require.NoError(t, s.Delete(context.Background(), "ABC12345"))

	ok, err := s.Exists(context.Background(), "ABC12345")
	require.NoError(t, err)
	require.False(t, ok)

	// Deleting again is a no-op, not an error.
	require.NoError(t, s.Delete(context.Background(), "ABC12345"))
}

func TestRedisRooms_TTL(t *testing.T) {
	s, rs := makeStore(t)

	room := &domain.Room{RoomID: "ABC12345", Status: domain.RoomWaiting}
	require.NoError(t, s.Save(context.Background(), room))

	ttl := rs.TTL("test:room:ABC12345")
	require.Greater(t, ttl, time.Duration(0), "saved room should carry a TTL")

	// Eviction makes the room unobservable.
	rs.FastForward(ttl + time.Second)
	_, err := s.Get(context.Background(), "ABC12345")
	require.True(t, errors.IsNotFound(err))
}

func makeStore(t *testing.T) (*store.RedisRooms, *miniredis.Miniredis) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	return store.NewRedisRooms(store.Config{
		Redis:  rc,
		Prefix: "test",
		TTL:    time.Hour,
	}), rs
}
