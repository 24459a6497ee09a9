// Package store implements the room store: a redis-backed repository holding
// one serialized snapshot per room under a TTL. It is the sole durable source
// of truth for a room's state; everything else in the engine works on copies.
package store

import (
	"context"

	"github.com/playq/triviaroom/internal/domain"
)

// Rooms is the repository consumed by the lifecycle and game components. All
// room access goes through it; nothing else reads or writes snapshots.
type Rooms interface {
	// Get returns the room snapshot, or a NotFound error if absent.
	Get(ctx context.Context, roomID string) (*domain.Room, error)
	// Save overwrites the room snapshot and refreshes its TTL.
	Save(ctx context.Context, room *domain.Room) error
	// Delete removes the room snapshot. Deleting an absent room is not an error.
	Delete(ctx context.Context, roomID string) error
	// Exists reports whether a snapshot is present, used for room-code
	// collision checks.
	Exists(ctx context.Context, roomID string) (bool, error)
}
