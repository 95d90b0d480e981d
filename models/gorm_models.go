package models

import "time"

// 定义GORM模型. ID is the storage key; the string IDs are what the rest of
// the system sees. Players are listed by ID, which preserves join order.

type RoomRow struct {
	ID         uint   `gorm:"primaryKey"`
	RoomID     string `gorm:"uniqueIndex;not null"`
	HostID     string `gorm:"index;not null"`
	GameSlug   string `gorm:"not null"`
	Name       string
	Status     string     `gorm:"index;not null"`
	Config     GameConfig `gorm:"serializer:json"`
	MaxPlayers int
	HostPlays  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (RoomRow) TableName() string { return "rooms" }

func (r *RoomRow) ToRoom() *Room {
	return &Room{
		ID:         r.RoomID,
		HostID:     r.HostID,
		GameSlug:   r.GameSlug,
		Name:       r.Name,
		Status:     RoomStatus(r.Status),
		Config:     r.Config,
		MaxPlayers: r.MaxPlayers,
		HostPlays:  r.HostPlays,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type PlayerRow struct {
	ID          uint   `gorm:"primaryKey"`
	PlayerID    string `gorm:"uniqueIndex;not null"`
	RoomID      string `gorm:"index:idx_room_user,unique;not null"`
	UserID      string `gorm:"index:idx_room_user,unique;not null"`
	DisplayName string
	Status      string `gorm:"not null"`
	Score       int
	JoinedAt    time.Time
}

func (PlayerRow) TableName() string { return "players" }

func (r *PlayerRow) ToPlayer() *Player {
	return &Player{
		ID:          r.PlayerID,
		RoomID:      r.RoomID,
		UserID:      r.UserID,
		DisplayName: r.DisplayName,
		Status:      PlayerStatus(r.Status),
		Score:       r.Score,
		JoinedAt:    r.JoinedAt,
	}
}

type GameStateRow struct {
	ID            uint   `gorm:"primaryKey"`
	RoomID        string `gorm:"uniqueIndex;not null"`
	Phase         string `gorm:"index;not null"`
	CurrentRound  int
	TotalRounds   int
	StateData     []byte
	PhaseDeadline *time.Time
	PhaseSeq      int64
	Version       int64 `gorm:"not null"`
	UpdatedAt     time.Time
}

func (GameStateRow) TableName() string { return "game_states" }

func (r *GameStateRow) ToGameState() *GameState {
	return &GameState{
		RoomID:        r.RoomID,
		Phase:         Phase(r.Phase),
		CurrentRound:  r.CurrentRound,
		TotalRounds:   r.TotalRounds,
		StateData:     r.StateData,
		PhaseDeadline: r.PhaseDeadline,
		PhaseSeq:      r.PhaseSeq,
		Version:       r.Version,
		UpdatedAt:     r.UpdatedAt,
	}
}

type GameActionRow struct {
	ID         uint           `gorm:"primaryKey"`
	ActionID   string         `gorm:"uniqueIndex;not null"`
	RoomID     string         `gorm:"index:idx_room_round;not null"`
	PlayerID   string         `gorm:"not null"`
	ActionType string         `gorm:"not null"`
	ActionData map[string]any `gorm:"serializer:json"`
	Round      int            `gorm:"index:idx_room_round"`
	CreatedAt  time.Time
}

func (GameActionRow) TableName() string { return "game_actions" }

func (r *GameActionRow) ToGameAction() *GameAction {
	return &GameAction{
		ID:         r.ActionID,
		RoomID:     r.RoomID,
		PlayerID:   r.PlayerID,
		ActionType: r.ActionType,
		ActionData: r.ActionData,
		Round:      r.Round,
		CreatedAt:  r.CreatedAt,
	}
}

type InviteRow struct {
	ID        uint   `gorm:"primaryKey"`
	InviteID  string `gorm:"uniqueIndex;not null"`
	RoomID    string `gorm:"index;not null"`
	Code      string `gorm:"uniqueIndex;not null"`
	MaxUses   *int
	UseCount  int
	ExpiresAt *time.Time
	CreatedBy string
	CreatedAt time.Time
}

func (InviteRow) TableName() string { return "invite_codes" }

func (r *InviteRow) ToInviteCode() *InviteCode {
	return &InviteCode{
		ID:        r.InviteID,
		RoomID:    r.RoomID,
		Code:      r.Code,
		MaxUses:   r.MaxUses,
		UseCount:  r.UseCount,
		ExpiresAt: r.ExpiresAt,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}
}
