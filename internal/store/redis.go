package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playq/triviaroom/internal/domain"
	"github.com/playq/triviaroom/internal/errors"
)

const defaultTTL = 2 * time.Hour

type Config struct {
	Redis  redis.UniversalClient
	Prefix string
	// TTL bounds how long an untouched room survives. Every Save refreshes it.
	TTL time.Duration
}

// RedisRooms stores each room as a JSON snapshot under {prefix}:room:{id}.
type RedisRooms struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisRooms(c Config) *RedisRooms {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &RedisRooms{
		redis:  c.Redis,
		prefix: c.Prefix,
		ttl:    ttl,
	}
}

func (s *RedisRooms) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	b, err := s.redis.Get(ctx, s.roomKey(roomID)).Bytes()
	if err == redis.Nil {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("room not found: room=%s", roomID))
	}
	if err != nil {
		return nil, fmt.Errorf("store: get room %s: %w", roomID, err)
	}

	var r domain.Room
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("store: unmarshal room %s: %w", roomID, err)
	}

	return &r, nil
}

func (s *RedisRooms) Save(ctx context.Context, room *domain.Room) error {
	b, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("store: marshal room %s: %w", room.RoomID, err)
	}

	if err := s.redis.Set(ctx, s.roomKey(room.RoomID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("store: save room %s: %w", room.RoomID, err)
	}

	return nil
}

func (s *RedisRooms) Delete(ctx context.Context, roomID string) error {
	if err := s.redis.Del(ctx, s.roomKey(roomID)).Err(); err != nil {
		return fmt.Errorf("store: delete room %s: %w", roomID, err)
	}

	return nil
}

func (s *RedisRooms) Exists(ctx context.Context, roomID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.roomKey(roomID)).Result()
	if err != nil {
		return false, fmt.Errorf("store: exists room %s: %w", roomID, err)
	}

	return n > 0, nil
}

func (s *RedisRooms) roomKey(roomID string) string {
	return fmt.Sprintf("%s:room:%s", s.prefix, roomID)
}
