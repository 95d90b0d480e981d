// models/models.go
package models

import (
	"encoding/json"
	"time"
)

// Phase is the coarse stage of a room's game, shared by every game type.
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhasePlaying  Phase = "playing"
	PhaseRoundEnd Phase = "round_end"
	PhaseFinished Phase = "finished"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseSetup, PhasePlaying, PhaseRoundEnd, PhaseFinished:
		return true
	}
	return false
}

// RoomStatus 房间的业务状态
type RoomStatus string

const (
	RoomWaiting   RoomStatus = "waiting"
	RoomPlaying   RoomStatus = "playing"
	RoomFinished  RoomStatus = "finished"
	RoomCancelled RoomStatus = "cancelled"
)

type PlayerStatus string

const (
	PlayerJoined       PlayerStatus = "joined"
	PlayerReady        PlayerStatus = "ready"
	PlayerPlaying      PlayerStatus = "playing"
	PlayerDisconnected PlayerStatus = "disconnected"
	PlayerLeft         PlayerStatus = "left"
)

// Room 游戏房间
type Room struct {
	ID         string     `json:"id"`
	HostID     string     `json:"host_id"`
	GameSlug   string     `json:"game_slug"`
	Name       string     `json:"name"`
	Status     RoomStatus `json:"status"`
	Config     GameConfig `json:"config"`
	MaxPlayers int        `json:"max_players"`
	// HostPlays is false when the host only runs the screen and never submits guesses.
	HostPlays bool      `json:"host_plays"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Player is a user's seat in one room.
type Player struct {
	ID          string       `json:"id"`
	RoomID      string       `json:"room_id"`
	UserID      string       `json:"user_id"`
	DisplayName string       `json:"display_name"`
	Status      PlayerStatus `json:"status"`
	Score       int          `json:"score"`
	JoinedAt    time.Time    `json:"joined_at"`
}

// GameState is the persisted game row of a room. StateData belongs to the
// room's game plugin and is never inspected outside of it.
type GameState struct {
	RoomID        string          `json:"room_id"`
	Phase         Phase           `json:"phase"`
	CurrentRound  int             `json:"current_round"`
	TotalRounds   int             `json:"total_rounds"`
	StateData     json.RawMessage `json:"state_data"`
	PhaseDeadline *time.Time      `json:"phase_deadline"`
	// PhaseSeq changes only when the phase changes. Timers carry it so a
	// deadline armed for an earlier phase can tell it is stale.
	PhaseSeq int64 `json:"phase_seq"`
	// Version increases by one on every write; updates must name the version they read.
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GameAction 游戏动作审计记录
type GameAction struct {
	ID         string         `json:"id"`
	RoomID     string         `json:"room_id"`
	PlayerID   string         `json:"player_id"`
	ActionType string         `json:"action_type"`
	ActionData map[string]any `json:"action_data"`
	Round      int            `json:"round"`
	CreatedAt  time.Time      `json:"created_at"`
}

type InviteCode struct {
	ID        string     `json:"id"`
	RoomID    string     `json:"room_id"`
	Code      string     `json:"code"`
	MaxUses   *int       `json:"max_uses"`
	UseCount  int        `json:"use_count"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the code has passed its expiry at now.
func (i *InviteCode) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && i.ExpiresAt.Before(now)
}

// Exhausted reports whether the code has no uses left.
func (i *InviteCode) Exhausted() bool {
	return i.MaxUses != nil && i.UseCount >= *i.MaxUses
}
