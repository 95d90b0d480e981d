package room

import "context"

// Runner serializes work per room. Services depend on this rather than on
// Manager so tests can run jobs inline.
type Runner interface {
	Do(ctx context.Context, roomID string, fn func(context.Context) error) error
	// RemoveRoom releases roomID's loop once the room is over.
	RemoveRoom(roomID string)
}
