// persistence/interface.go
package persistence

import (
	"context"
	"errors"

	"github.com/wfunc/partygame/models"
)

// 错误定义
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrVersionConflict = errors.New("version conflict")
)

type RoomRepository interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	FindRoom(ctx context.Context, roomID string) (*models.Room, error)
	UpdateRoomStatus(ctx context.Context, roomID string, status models.RoomStatus) error
}

// PlayerRepository lists players in join order.
type PlayerRepository interface {
	AddPlayer(ctx context.Context, player *models.Player) error
	FindPlayersByRoom(ctx context.Context, roomID string) ([]*models.Player, error)
	FindPlayer(ctx context.Context, roomID, userID string) (*models.Player, error)
	UpdatePlayerStatus(ctx context.Context, playerID string, status models.PlayerStatus) error
	UpdatePlayerScore(ctx context.Context, playerID string, score int) error
	RemovePlayer(ctx context.Context, roomID, userID string) error
	CountPlayers(ctx context.Context, roomID string) (int, error)
}

// GameStateRepository stores one versioned game row per room.
type GameStateRepository interface {
	// CreateGameState stores gs with version 1.
	CreateGameState(ctx context.Context, gs *models.GameState) error
	FindGameState(ctx context.Context, roomID string) (*models.GameState, error)
	// UpdateGameState writes gs if the stored version still equals
	// gs.Version, then bumps gs.Version. Otherwise it returns
	// ErrVersionConflict and writes nothing.
	UpdateGameState(ctx context.Context, gs *models.GameState) error
	// ListActiveGameStates returns every game that has not finished.
	ListActiveGameStates(ctx context.Context) ([]*models.GameState, error)
}

// ActionLog is the append-only audit trail of accepted game actions.
type ActionLog interface {
	RecordAction(ctx context.Context, action *models.GameAction) error
	FindActions(ctx context.Context, roomID string) ([]*models.GameAction, error)
	FindActionsByRound(ctx context.Context, roomID string, round int) ([]*models.GameAction, error)
}

type InviteRepository interface {
	CreateInvite(ctx context.Context, invite *models.InviteCode) error
	FindInviteByCode(ctx context.Context, code string) (*models.InviteCode, error)
	FindInvitesByRoom(ctx context.Context, roomID string) ([]*models.InviteCode, error)
	IncrementInviteUse(ctx context.Context, inviteID string) error
}

// Store 数据库接口
type Store interface {
	RoomRepository
	PlayerRepository
	GameStateRepository
	ActionLog
	InviteRepository
	Close() error
}
