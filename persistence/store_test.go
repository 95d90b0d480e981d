package persistence

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/partygame/config"
	"github.com/wfunc/partygame/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newSQLiteStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "partygame.db")), gormConfig())
	require.NoError(t, err)
	store, err := NewGormStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("gorm-sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func TestStore_Rooms(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		room := &models.Room{
			HostID:     "host",
			GameSlug:   "number-guesser",
			Name:       "Friday",
			Status:     models.RoomWaiting,
			Config:     models.GameConfig{"rounds": 3},
			MaxPlayers: 8,
			HostPlays:  true,
		}
		require.NoError(t, s.CreateRoom(ctx, room))
		require.NotEmpty(t, room.ID)

		got, err := s.FindRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, "Friday", got.Name)
		assert.Equal(t, models.RoomWaiting, got.Status)
		rounds, ok := got.Config.Int("rounds")
		assert.True(t, ok)
		assert.Equal(t, 3, rounds)

		require.NoError(t, s.UpdateRoomStatus(ctx, room.ID, models.RoomPlaying))
		got, err = s.FindRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoomPlaying, got.Status)

		_, err = s.FindRoom(ctx, "missing")
		assert.ErrorIs(t, err, ErrRecordNotFound)
		assert.ErrorIs(t, s.UpdateRoomStatus(ctx, "missing", models.RoomPlaying), ErrRecordNotFound)
	})
}

func TestStore_PlayersKeepJoinOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, user := range []string{"zoe", "adam", "mia"} {
			require.NoError(t, s.AddPlayer(ctx, &models.Player{RoomID: "r1", UserID: user, DisplayName: user, Status: models.PlayerJoined}))
		}
		require.NoError(t, s.AddPlayer(ctx, &models.Player{RoomID: "r2", UserID: "zoe", Status: models.PlayerJoined}))

		players, err := s.FindPlayersByRoom(ctx, "r1")
		require.NoError(t, err)
		require.Len(t, players, 3)
		assert.Equal(t, []string{"zoe", "adam", "mia"}, []string{players[0].UserID, players[1].UserID, players[2].UserID})

		adam, err := s.FindPlayer(ctx, "r1", "adam")
		require.NoError(t, err)
		require.NoError(t, s.UpdatePlayerStatus(ctx, adam.ID, models.PlayerReady))
		require.NoError(t, s.UpdatePlayerScore(ctx, adam.ID, 1500))
		adam, err = s.FindPlayer(ctx, "r1", "adam")
		require.NoError(t, err)
		assert.Equal(t, models.PlayerReady, adam.Status)
		assert.Equal(t, 1500, adam.Score)

		require.NoError(t, s.RemovePlayer(ctx, "r1", "zoe"))
		n, err := s.CountPlayers(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.ErrorIs(t, s.RemovePlayer(ctx, "r1", "zoe"), ErrRecordNotFound)

		_, err = s.FindPlayer(ctx, "r2", "adam")
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestStore_GameStateVersioning(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		deadline := time.Now().Add(30 * time.Second).Truncate(time.Second)
		gs := &models.GameState{
			RoomID:        "r1",
			Phase:         models.PhasePlaying,
			CurrentRound:  1,
			TotalRounds:   3,
			StateData:     json.RawMessage(`{"current_round":1}`),
			PhaseDeadline: &deadline,
			PhaseSeq:      1,
		}
		require.NoError(t, s.CreateGameState(ctx, gs))
		assert.Equal(t, int64(1), gs.Version)

		first, err := s.FindGameState(ctx, "r1")
		require.NoError(t, err)
		second, err := s.FindGameState(ctx, "r1")
		require.NoError(t, err)

		first.Phase = models.PhaseRoundEnd
		first.PhaseDeadline = nil
		first.PhaseSeq = 2
		require.NoError(t, s.UpdateGameState(ctx, first))
		assert.Equal(t, int64(2), first.Version)

		second.StateData = json.RawMessage(`{"current_round":9}`)
		assert.ErrorIs(t, s.UpdateGameState(ctx, second), ErrVersionConflict)

		got, err := s.FindGameState(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, models.PhaseRoundEnd, got.Phase)
		assert.Nil(t, got.PhaseDeadline)
		assert.Equal(t, int64(2), got.PhaseSeq)
		assert.JSONEq(t, `{"current_round":1}`, string(got.StateData))

		missing := &models.GameState{RoomID: "nope", Version: 1}
		assert.ErrorIs(t, s.UpdateGameState(ctx, missing), ErrRecordNotFound)
	})
}

func TestStore_ListActiveGameStates(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.CreateGameState(ctx, &models.GameState{RoomID: "live", Phase: models.PhasePlaying, StateData: json.RawMessage(`{}`)}))
		require.NoError(t, s.CreateGameState(ctx, &models.GameState{RoomID: "done", Phase: models.PhaseFinished, StateData: json.RawMessage(`{}`)}))

		active, err := s.ListActiveGameStates(ctx)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "live", active[0].RoomID)
	})
}

func TestStore_Actions(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for round, guess := range []float64{50, 25, 37} {
			require.NoError(t, s.RecordAction(ctx, &models.GameAction{
				RoomID:     "r1",
				PlayerID:   "p1",
				ActionType: "guess",
				ActionData: map[string]any{"guess": guess},
				Round:      round/2 + 1,
			}))
		}

		all, err := s.FindActions(ctx, "r1")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, float64(50), all[0].ActionData["guess"])

		second, err := s.FindActionsByRound(ctx, "r1", 2)
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.Equal(t, float64(37), second[0].ActionData["guess"])
	})
}

func TestStore_Invites(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		limit := 2
		invite := &models.InviteCode{RoomID: "r1", Code: "ABCD2345", MaxUses: &limit, CreatedBy: "host"}
		require.NoError(t, s.CreateInvite(ctx, invite))

		got, err := s.FindInviteByCode(ctx, "ABCD2345")
		require.NoError(t, err)
		assert.Equal(t, invite.ID, got.ID)
		require.NotNil(t, got.MaxUses)
		assert.Equal(t, 2, *got.MaxUses)

		require.NoError(t, s.IncrementInviteUse(ctx, invite.ID))
		require.NoError(t, s.IncrementInviteUse(ctx, invite.ID))
		got, err = s.FindInviteByCode(ctx, "ABCD2345")
		require.NoError(t, err)
		assert.True(t, got.Exhausted())

		byRoom, err := s.FindInvitesByRoom(ctx, "r1")
		require.NoError(t, err)
		assert.Len(t, byRoom, 1)

		_, err = s.FindInviteByCode(ctx, "ZZZZ")
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestWithActionLog(t *testing.T) {
	ctx := context.Background()
	primary := NewMemoryStore()
	audit := NewMemoryStore()
	s := WithActionLog(primary, audit)

	require.NoError(t, s.RecordAction(ctx, &models.GameAction{RoomID: "r1", ActionType: "guess"}))

	fromPrimary, err := primary.FindActions(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, fromPrimary)
	fromAudit, err := s.FindActions(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, fromAudit, 1)
	assert.NoError(t, s.Close())
}

func TestOpen(t *testing.T) {
	s, err := Open(config.DatabaseConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(config.DatabaseConfig{Driver: "mongo"})
	assert.Error(t, err)
}
