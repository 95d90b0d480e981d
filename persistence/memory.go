package persistence

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/partygame/models"
)

// MemoryStore keeps everything in process memory. Every read and write
// copies, so callers never share a pointer with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	rooms      map[string]models.Room
	players    map[string][]models.Player // roomID -> players in join order
	gameStates map[string]models.GameState
	actions    map[string][]models.GameAction
	invites    map[string]models.InviteCode // code -> invite
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:      make(map[string]models.Room),
		players:    make(map[string][]models.Player),
		gameStates: make(map[string]models.GameState),
		actions:    make(map[string][]models.GameAction),
		invites:    make(map[string]models.InviteCode),
		now:        time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) CreateRoom(ctx context.Context, room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := m.now()
	room.CreatedAt, room.UpdatedAt = now, now
	r := *room
	r.Config = room.Config.Clone()
	m.rooms[room.ID] = r
	return nil
}

func (m *MemoryStore) FindRoom(ctx context.Context, roomID string) (*models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	r.Config = r.Config.Clone()
	return &r, nil
}

func (m *MemoryStore) UpdateRoomStatus(ctx context.Context, roomID string, status models.RoomStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return ErrRecordNotFound
	}
	r.Status = status
	r.UpdatedAt = m.now()
	m.rooms[roomID] = r
	return nil
}

func (m *MemoryStore) AddPlayer(ctx context.Context, player *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if player.ID == "" {
		player.ID = uuid.NewString()
	}
	player.JoinedAt = m.now()
	m.players[player.RoomID] = append(m.players[player.RoomID], *player)
	return nil
}

func (m *MemoryStore) FindPlayersByRoom(ctx context.Context, roomID string) ([]*models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.players[roomID]
	out := make([]*models.Player, 0, len(list))
	for i := range list {
		p := list[i]
		out = append(out, &p)
	}
	return out, nil
}

func (m *MemoryStore) FindPlayer(ctx context.Context, roomID, userID string) (*models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.players[roomID] {
		if p.UserID == userID {
			return &p, nil
		}
	}
	return nil, ErrRecordNotFound
}

// updatePlayer applies fn to the player with the given id.
func (m *MemoryStore) updatePlayer(playerID string, fn func(*models.Player)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for roomID, list := range m.players {
		for i := range list {
			if list[i].ID == playerID {
				fn(&m.players[roomID][i])
				return nil
			}
		}
	}
	return ErrRecordNotFound
}

func (m *MemoryStore) UpdatePlayerStatus(ctx context.Context, playerID string, status models.PlayerStatus) error {
	return m.updatePlayer(playerID, func(p *models.Player) { p.Status = status })
}

func (m *MemoryStore) UpdatePlayerScore(ctx context.Context, playerID string, score int) error {
	return m.updatePlayer(playerID, func(p *models.Player) { p.Score = score })
}

func (m *MemoryStore) RemovePlayer(ctx context.Context, roomID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.players[roomID]
	for i, p := range list {
		if p.UserID == userID {
			m.players[roomID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return ErrRecordNotFound
}

func (m *MemoryStore) CountPlayers(ctx context.Context, roomID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players[roomID]), nil
}

func (m *MemoryStore) CreateGameState(ctx context.Context, gs *models.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	gs.Version = 1
	gs.UpdatedAt = m.now()
	m.gameStates[gs.RoomID] = copyGameState(*gs)
	return nil
}

func (m *MemoryStore) FindGameState(ctx context.Context, roomID string) (*models.GameState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gs, ok := m.gameStates[roomID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	out := copyGameState(gs)
	return &out, nil
}

func (m *MemoryStore) UpdateGameState(ctx context.Context, gs *models.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.gameStates[gs.RoomID]
	if !ok {
		return ErrRecordNotFound
	}
	if stored.Version != gs.Version {
		return ErrVersionConflict
	}
	gs.Version++
	gs.UpdatedAt = m.now()
	m.gameStates[gs.RoomID] = copyGameState(*gs)
	return nil
}

func (m *MemoryStore) ListActiveGameStates(ctx context.Context) ([]*models.GameState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.GameState
	for _, gs := range m.gameStates {
		if gs.Phase == models.PhaseFinished {
			continue
		}
		c := copyGameState(gs)
		out = append(out, &c)
	}
	return out, nil
}

func (m *MemoryStore) RecordAction(ctx context.Context, action *models.GameAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	action.CreatedAt = m.now()
	m.actions[action.RoomID] = append(m.actions[action.RoomID], *action)
	return nil
}

func (m *MemoryStore) FindActions(ctx context.Context, roomID string) ([]*models.GameAction, error) {
	return m.filterActions(roomID, func(*models.GameAction) bool { return true }), nil
}

func (m *MemoryStore) FindActionsByRound(ctx context.Context, roomID string, round int) ([]*models.GameAction, error) {
	return m.filterActions(roomID, func(a *models.GameAction) bool { return a.Round == round }), nil
}

func (m *MemoryStore) filterActions(roomID string, keep func(*models.GameAction) bool) []*models.GameAction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.GameAction
	for i := range m.actions[roomID] {
		a := m.actions[roomID][i]
		if keep(&a) {
			out = append(out, &a)
		}
	}
	return out
}

func (m *MemoryStore) CreateInvite(ctx context.Context, invite *models.InviteCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if invite.ID == "" {
		invite.ID = uuid.NewString()
	}
	invite.CreatedAt = m.now()
	m.invites[invite.Code] = *invite
	return nil
}

func (m *MemoryStore) FindInviteByCode(ctx context.Context, code string) (*models.InviteCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inv, ok := m.invites[code]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &inv, nil
}

func (m *MemoryStore) FindInvitesByRoom(ctx context.Context, roomID string) ([]*models.InviteCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.InviteCode
	for _, inv := range m.invites {
		if inv.RoomID == roomID {
			out = append(out, &inv)
		}
	}
	return out, nil
}

func (m *MemoryStore) IncrementInviteUse(ctx context.Context, inviteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for code, inv := range m.invites {
		if inv.ID == inviteID {
			inv.UseCount++
			m.invites[code] = inv
			return nil
		}
	}
	return ErrRecordNotFound
}

func (m *MemoryStore) Close() error { return nil }

func copyGameState(gs models.GameState) models.GameState {
	gs.StateData = append(json.RawMessage(nil), gs.StateData...)
	if gs.PhaseDeadline != nil {
		d := *gs.PhaseDeadline
		gs.PhaseDeadline = &d
	}
	return gs
}
