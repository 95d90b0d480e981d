package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/partygame/apperr"
	"github.com/wfunc/partygame/config"
	"github.com/wfunc/partygame/events"
	"github.com/wfunc/partygame/logger"
	"github.com/wfunc/partygame/models"
	"github.com/wfunc/partygame/persistence"
	"github.com/wfunc/partygame/room"
	"github.com/wfunc/partygame/state"
)

// inviteAlphabet leaves out 0/O and 1/I so codes survive being read aloud.
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RoomService runs the lobby: creating rooms, joining through invite codes,
// leaving and readying up. Membership changes of one room run on its actor
// so the capacity check and the insert cannot interleave.
type RoomService struct {
	store     persistence.Store
	registry  *state.Registry
	runner    room.Runner
	publisher events.Publisher
	cfg       config.GameConfig
	intn      func(n int) int
	now       func() time.Time
}

type RoomServiceOption func(*RoomService)

func WithRoomPublisher(p events.Publisher) RoomServiceOption {
	return func(s *RoomService) { s.publisher = p }
}

// WithCodeSource replaces the random source of invite codes.
func WithCodeSource(intn func(n int) int) RoomServiceOption {
	return func(s *RoomService) { s.intn = intn }
}

func WithRoomClock(now func() time.Time) RoomServiceOption {
	return func(s *RoomService) { s.now = now }
}

func NewRoomService(store persistence.Store, registry *state.Registry, runner room.Runner, cfg config.GameConfig, opts ...RoomServiceOption) *RoomService {
	s := &RoomService{
		store:     store,
		registry:  registry,
		runner:    runner,
		publisher: events.Nop{},
		cfg:       cfg,
		intn:      rand.IntN,
		now:       time.Now,
	}
	if s.cfg.InviteCodeLength <= 0 {
		s.cfg.InviteCodeLength = 8
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateRoomInput struct {
	HostID          string
	HostDisplayName string
	GameSlug        string
	Name            string
	// MaxPlayers of 0 picks the smaller of the game's maximum and the
	// configured default.
	MaxPlayers int
	Config     models.GameConfig
}

type CreateRoomResult struct {
	Room   *models.Room       `json:"room"`
	Invite *models.InviteCode `json:"invite"`
}

// CreateRoom 创建房间, seats the host and issues an open invite code.
func (s *RoomService) CreateRoom(ctx context.Context, in CreateRoomInput) (*CreateRoomResult, error) {
	plugin, ok := s.registry.Get(in.GameSlug)
	if !ok {
		return nil, apperr.GameNotFound(in.GameSlug)
	}
	info := plugin.Info()

	cfg, err := plugin.NormalizeConfig(in.Config)
	if err != nil {
		return nil, apperr.InvalidConfig(err)
	}
	maxPlayers, err := s.maxPlayers(info, in.MaxPlayers)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = info.Name
	}

	rm := &models.Room{
		ID:         uuid.NewString(),
		HostID:     in.HostID,
		GameSlug:   info.Slug,
		Name:       name,
		Status:     models.RoomWaiting,
		Config:     cfg,
		MaxPlayers: maxPlayers,
		HostPlays:  info.HostPlays,
	}
	if err := s.store.CreateRoom(ctx, rm); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	// 房主自动加入
	host := &models.Player{
		RoomID:      rm.ID,
		UserID:      in.HostID,
		DisplayName: in.HostDisplayName,
		Status:      models.PlayerJoined,
	}
	if err := s.store.AddPlayer(ctx, host); err != nil {
		return nil, fmt.Errorf("seat host: %w", err)
	}

	invite := &models.InviteCode{
		RoomID:    rm.ID,
		Code:      s.generateCode(),
		CreatedBy: in.HostID,
	}
	if err := s.store.CreateInvite(ctx, invite); err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}

	logger.Log.Infow("room created",
		"room_id", rm.ID,
		"game", rm.GameSlug,
		"host_id", rm.HostID,
		"max_players", rm.MaxPlayers,
	)
	s.publish(ctx, events.Event{Kind: events.PlayerJoined, RoomID: rm.ID, PlayerID: in.HostID})
	return &CreateRoomResult{Room: rm, Invite: invite}, nil
}

func (s *RoomService) maxPlayers(info state.Info, requested int) (int, error) {
	limit := info.MaxPlayers
	if s.cfg.MaxRoomPlayers > 0 && s.cfg.MaxRoomPlayers < limit {
		limit = s.cfg.MaxRoomPlayers
	}
	if requested == 0 {
		requested = limit
		if s.cfg.DefaultMaxPlayers > 0 && s.cfg.DefaultMaxPlayers < limit {
			requested = s.cfg.DefaultMaxPlayers
		}
	}
	if requested < info.MinPlayers || requested > limit {
		return 0, apperr.InvalidConfig(fmt.Errorf("max players must be between %d and %d", info.MinPlayers, limit))
	}
	return requested, nil
}

func (s *RoomService) generateCode() string {
	var b strings.Builder
	b.Grow(s.cfg.InviteCodeLength)
	for range s.cfg.InviteCodeLength {
		b.WriteByte(inviteAlphabet[s.intn(len(inviteAlphabet))])
	}
	return b.String()
}

// checkInvite returns the reason an invite can no longer be used, or "".
func (s *RoomService) checkInvite(invite *models.InviteCode) string {
	switch {
	case invite.Expired(s.now()):
		return "Code has expired"
	case invite.Exhausted():
		return "Code has reached max uses"
	}
	return ""
}

type JoinRoomResult struct {
	Room   *models.Room   `json:"room"`
	Player *models.Player `json:"player"`
}

// JoinRoom seats userID in the room behind code.
func (s *RoomService) JoinRoom(ctx context.Context, code, userID, displayName string) (*JoinRoomResult, error) {
	invite, err := s.store.FindInviteByCode(ctx, normalizeCode(code))
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, apperr.InvalidInvite("Code not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find invite: %w", err)
	}
	if reason := s.checkInvite(invite); reason != "" {
		return nil, apperr.InvalidInvite(reason)
	}

	var result *JoinRoomResult
	err = s.runner.Do(ctx, invite.RoomID, func(ctx context.Context) error {
		rm, err := s.loadRoom(ctx, invite.RoomID)
		if err != nil {
			return err
		}
		if rm.Status != models.RoomWaiting {
			return apperr.InvalidInvite("Game has already started or ended")
		}
		if _, err := s.store.FindPlayer(ctx, rm.ID, userID); err == nil {
			return apperr.AlreadyInRoom()
		} else if !errors.Is(err, persistence.ErrRecordNotFound) {
			return fmt.Errorf("find player: %w", err)
		}
		count, err := s.store.CountPlayers(ctx, rm.ID)
		if err != nil {
			return fmt.Errorf("count players: %w", err)
		}
		if count >= rm.MaxPlayers {
			return apperr.RoomFull()
		}

		player := &models.Player{
			RoomID:      rm.ID,
			UserID:      userID,
			DisplayName: displayName,
			Status:      models.PlayerJoined,
		}
		if err := s.store.AddPlayer(ctx, player); err != nil {
			return fmt.Errorf("add player: %w", err)
		}
		if err := s.store.IncrementInviteUse(ctx, invite.ID); err != nil {
			return fmt.Errorf("count invite use: %w", err)
		}
		result = &JoinRoomResult{Room: rm, Player: player}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Infow("player joined", "room_id", result.Room.ID, "user_id", userID)
	s.publish(ctx, events.Event{Kind: events.PlayerJoined, RoomID: result.Room.ID, PlayerID: userID})
	return result, nil
}

// LeaveRoom removes userID from a waiting room; the host leaving cancels it.
// Once a game has started the seat stays, marked left, so the final results
// can still name the player.
func (s *RoomService) LeaveRoom(ctx context.Context, roomID, userID string) error {
	cancelled := false
	err := s.runner.Do(ctx, roomID, func(ctx context.Context) error {
		rm, err := s.loadRoom(ctx, roomID)
		if err != nil {
			return err
		}
		player, err := s.store.FindPlayer(ctx, roomID, userID)
		if errors.Is(err, persistence.ErrRecordNotFound) || (err == nil && player.Status == models.PlayerLeft) {
			return apperr.PlayerNotInRoom()
		}
		if err != nil {
			return fmt.Errorf("find player: %w", err)
		}

		if rm.Status != models.RoomWaiting {
			return s.store.UpdatePlayerStatus(ctx, player.ID, models.PlayerLeft)
		}
		if err := s.store.RemovePlayer(ctx, roomID, userID); err != nil {
			return fmt.Errorf("remove player: %w", err)
		}
		if rm.HostID == userID {
			if err := s.store.UpdateRoomStatus(ctx, roomID, models.RoomCancelled); err != nil {
				return fmt.Errorf("cancel room: %w", err)
			}
			cancelled = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Log.Infow("player left", "room_id", roomID, "user_id", userID, "room_cancelled", cancelled)
	s.publish(ctx, events.Event{Kind: events.PlayerLeft, RoomID: roomID, PlayerID: userID})
	if cancelled {
		s.runner.RemoveRoom(roomID)
		s.publish(ctx, events.Event{Kind: events.RoomCancelled, RoomID: roomID})
	}
	return nil
}

// ToggleReady flips userID between joined and ready.
func (s *RoomService) ToggleReady(ctx context.Context, roomID, userID string) (*models.Player, error) {
	var player *models.Player
	err := s.runner.Do(ctx, roomID, func(ctx context.Context) error {
		rm, err := s.loadRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if rm.Status != models.RoomWaiting {
			return apperr.RoomNotWaiting()
		}
		player, err = s.store.FindPlayer(ctx, roomID, userID)
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return apperr.PlayerNotInRoom()
		}
		if err != nil {
			return fmt.Errorf("find player: %w", err)
		}

		next := models.PlayerReady
		if player.Status == models.PlayerReady {
			next = models.PlayerJoined
		}
		if err := s.store.UpdatePlayerStatus(ctx, player.ID, next); err != nil {
			return fmt.Errorf("update player status: %w", err)
		}
		player.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{Kind: events.PlayerReady, RoomID: roomID, PlayerID: userID})
	return player, nil
}

// InviteCheck is the answer to "can I join with this code?". Valid is false
// with a user-facing Error when not.
type InviteCheck struct {
	Valid       bool         `json:"valid"`
	Room        *models.Room `json:"room,omitempty"`
	PlayerCount int          `json:"player_count"`
	Error       string       `json:"error,omitempty"`
}

// ValidateInvite looks code up, retrying a few times with a delay so a code
// created a moment ago on a lagging replica is still found.
func (s *RoomService) ValidateInvite(ctx context.Context, code string) (*InviteCheck, error) {
	code = normalizeCode(code)

	invite, err := s.store.FindInviteByCode(ctx, code)
	for attempt := 0; errors.Is(err, persistence.ErrRecordNotFound) && attempt < s.cfg.InviteLookupRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.cfg.InviteLookupDelay):
		}
		invite, err = s.store.FindInviteByCode(ctx, code)
	}
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return &InviteCheck{Error: "Invalid invite code"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find invite: %w", err)
	}
	switch {
	case invite.Expired(s.now()):
		return &InviteCheck{Error: "Invite code has expired"}, nil
	case invite.Exhausted():
		return &InviteCheck{Error: "Invite code has reached max uses"}, nil
	}

	rm, err := s.store.FindRoom(ctx, invite.RoomID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return &InviteCheck{Error: "Room not found"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find room: %w", err)
	}
	if rm.Status != models.RoomWaiting {
		return &InviteCheck{Room: rm, Error: "Game has already started or ended"}, nil
	}
	count, err := s.store.CountPlayers(ctx, rm.ID)
	if err != nil {
		return nil, fmt.Errorf("count players: %w", err)
	}
	if count >= rm.MaxPlayers {
		return &InviteCheck{Room: rm, PlayerCount: count, Error: "Room is full"}, nil
	}
	return &InviteCheck{Valid: true, Room: rm, PlayerCount: count}, nil
}

type RoomDetails struct {
	Room      *models.Room         `json:"room"`
	Players   []*models.Player     `json:"players"`
	GameState *GameSummary         `json:"game_state,omitempty"`
	Invites   []*models.InviteCode `json:"invites"`
}

// GameSummary is the public part of a game row. The plugin state is left out.
type GameSummary struct {
	Phase         models.Phase `json:"phase"`
	CurrentRound  int          `json:"current_round"`
	TotalRounds   int          `json:"total_rounds"`
	PhaseDeadline *time.Time   `json:"phase_deadline"`
}

// GetRoom returns the room with its players. Players who left are only
// listed once the game has finished, so results can still show their names.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*RoomDetails, error) {
	rm, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	seats, err := s.store.FindPlayersByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	players := make([]*models.Player, 0, len(seats))
	for _, p := range seats {
		if p.Status == models.PlayerLeft && rm.Status != models.RoomFinished {
			continue
		}
		players = append(players, p)
	}

	details := &RoomDetails{Room: rm, Players: players}
	gs, err := s.store.FindGameState(ctx, roomID)
	switch {
	case err == nil:
		details.GameState = &GameSummary{
			Phase:         gs.Phase,
			CurrentRound:  gs.CurrentRound,
			TotalRounds:   gs.TotalRounds,
			PhaseDeadline: gs.PhaseDeadline,
		}
	case !errors.Is(err, persistence.ErrRecordNotFound):
		return nil, fmt.Errorf("load game state: %w", err)
	}

	if details.Invites, err = s.store.FindInvitesByRoom(ctx, roomID); err != nil {
		return nil, fmt.Errorf("load invites: %w", err)
	}
	return details, nil
}

func (s *RoomService) loadRoom(ctx context.Context, roomID string) (*models.Room, error) {
	rm, err := s.store.FindRoom(ctx, roomID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, apperr.RoomNotFound(roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	return rm, nil
}

func (s *RoomService) publish(ctx context.Context, e events.Event) {
	e.At = s.now()
	s.publisher.Publish(ctx, e)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
