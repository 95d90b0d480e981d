// Package events carries room notifications from the services to whoever
// pushes them to clients.
package events

import (
	"context"
	"time"

	"github.com/wfunc/partygame/logger"
	"github.com/wfunc/partygame/models"
)

type Kind string

const (
	PlayerJoined  Kind = "player_joined"
	PlayerLeft    Kind = "player_left"
	PlayerReady   Kind = "player_ready"
	RoomCancelled Kind = "room_cancelled"
	GameStarted   Kind = "game_started"
	// StateChanged tells clients to refetch their view; it never carries
	// game state, which may be private.
	StateChanged Kind = "state_changed"
	GameAction   Kind = "game_action"
	PhaseChanged Kind = "phase_changed"
	GameFinished Kind = "game_finished"
)

type Event struct {
	Kind     Kind         `json:"kind"`
	RoomID   string       `json:"room_id"`
	PlayerID string       `json:"player_id,omitempty"`
	Phase    models.Phase `json:"phase,omitempty"`
	Round    int          `json:"round,omitempty"`
	// Payload holds public details only, such as an action type or final rankings.
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

// Publisher delivers events. Publish must not block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// LogPublisher writes every event to the process logger.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, e Event) {
	logger.Log.Debugw("room event",
		"kind", e.Kind,
		"room_id", e.RoomID,
		"player_id", e.PlayerID,
		"phase", e.Phase,
		"round", e.Round,
	)
}

// Multi fans an event out to several publishers in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) {
	for _, p := range m {
		p.Publish(ctx, e)
	}
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
