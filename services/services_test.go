package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wfunc/partygame/config"
	"github.com/wfunc/partygame/events"
	"github.com/wfunc/partygame/games/numberguesser"
	"github.com/wfunc/partygame/games/threecrumbs"
	"github.com/wfunc/partygame/models"
	"github.com/wfunc/partygame/persistence"
	"github.com/wfunc/partygame/room"
	"github.com/wfunc/partygame/state"
)

var start = time.Date(2026, 5, 2, 19, 30, 0, 0, time.UTC)

// fakeClock is a settable clock shared by the services under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type armedTimer struct {
	at time.Time
	fn func()
}

// MockScheduler records deadlines instead of firing them.
type MockScheduler struct {
	mu        sync.Mutex
	armed     map[string]armedTimer
	cancelled int
}

func NewMockScheduler() *MockScheduler {
	return &MockScheduler{armed: make(map[string]armedTimer)}
}

func (m *MockScheduler) Schedule(roomID string, at time.Time, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed[roomID] = armedTimer{at: at, fn: fn}
}

func (m *MockScheduler) Cancel(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.armed, roomID)
	m.cancelled++
}

func (m *MockScheduler) get(roomID string) (armedTimer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.armed[roomID]
	return a, ok
}

// fire runs roomID's pending timer the way the timer goroutine would.
func (m *MockScheduler) fire(t *testing.T, roomID string) {
	t.Helper()
	m.mu.Lock()
	a, ok := m.armed[roomID]
	delete(m.armed, roomID)
	m.mu.Unlock()
	require.True(t, ok, "no timer armed for room %s", roomID)
	a.fn()
}

type MockPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *MockPublisher) Publish(ctx context.Context, e events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *MockPublisher) kinds() []events.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Kind, len(m.events))
	for i, e := range m.events {
		out[i] = e.Kind
	}
	return out
}

var errStoreDown = errors.New("store unavailable")

// faultyStore fails the chosen writes while their switch is on.
type faultyStore struct {
	*persistence.MemoryStore
	failScores      atomic.Bool
	failFinishedRow atomic.Bool
	failCreate      atomic.Bool
}

func (s *faultyStore) UpdatePlayerScore(ctx context.Context, playerID string, score int) error {
	if s.failScores.Load() {
		return errStoreDown
	}
	return s.MemoryStore.UpdatePlayerScore(ctx, playerID, score)
}

func (s *faultyStore) UpdateGameState(ctx context.Context, gs *models.GameState) error {
	if s.failFinishedRow.Load() && gs.Phase == models.PhaseFinished {
		return errStoreDown
	}
	return s.MemoryStore.UpdateGameState(ctx, gs)
}

func (s *faultyStore) CreateGameState(ctx context.Context, gs *models.GameState) error {
	if s.failCreate.Load() {
		return errStoreDown
	}
	return s.MemoryStore.CreateGameState(ctx, gs)
}

type fixture struct {
	store   *persistence.MemoryStore
	faults  *faultyStore
	manager *room.Manager
	orch    *Orchestrator
	rooms   *RoomService
	sched   *MockScheduler
	clock   *fakeClock
	pub     *MockPublisher
}

var crumbsBank = threecrumbs.Bank{
	"food": {
		{Answer: "Pizza", Clues: []string{"queen", "slice", "cheese"}},
		{Answer: "Sushi", Clues: []string{"vinegar", "wasabi", "raw fish"}},
	},
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry, err := state.NewRegistry(
		// every target is min_number + 41, so 42 with the default range
		numberguesser.New(numberguesser.WithRandom(func(int) int { return 41 })),
		threecrumbs.New(
			threecrumbs.WithBank(crumbsBank),
			threecrumbs.WithRandom(func(n int) int { return n - 1 }),
		),
	)
	require.NoError(t, err)

	manager := room.NewRoomManager()
	t.Cleanup(manager.Stop)

	f := &fixture{
		store:   persistence.NewMemoryStore(),
		manager: manager,
		sched:   NewMockScheduler(),
		clock:   &fakeClock{t: start},
		pub:     &MockPublisher{},
	}
	f.faults = &faultyStore{MemoryStore: f.store}
	f.orch = NewOrchestrator(f.faults, registry, manager, f.sched,
		WithClock(f.clock.Now),
		WithPublisher(f.pub),
	)
	f.rooms = NewRoomService(f.faults, registry, manager, config.GameConfig{
		InviteCodeLength:    6,
		InviteLookupRetries: 2,
		InviteLookupDelay:   time.Millisecond,
		DefaultMaxPlayers:   10,
		MaxRoomPlayers:      100,
	}, WithRoomPublisher(f.pub), WithRoomClock(f.clock.Now))
	return f
}

// createRoom opens a room hosted by "host" and seats players through the invite code.
func (f *fixture) createRoom(t *testing.T, slug string, cfg models.GameConfig, players ...string) string {
	t.Helper()
	ctx := context.Background()

	res, err := f.rooms.CreateRoom(ctx, CreateRoomInput{
		HostID:          "host",
		HostDisplayName: "Host",
		GameSlug:        slug,
		Config:          cfg,
	})
	require.NoError(t, err)
	for _, p := range players {
		_, err := f.rooms.JoinRoom(ctx, res.Invite.Code, p, "Player "+p)
		require.NoError(t, err)
	}
	return res.Room.ID
}

func (f *fixture) gameState(t *testing.T, roomID string) *models.GameState {
	t.Helper()
	gs, err := f.store.FindGameState(context.Background(), roomID)
	require.NoError(t, err)
	return gs
}

func (f *fixture) roomStatus(t *testing.T, roomID string) models.RoomStatus {
	t.Helper()
	rm, err := f.store.FindRoom(context.Background(), roomID)
	require.NoError(t, err)
	return rm.Status
}

func (f *fixture) scoreOf(t *testing.T, roomID, userID string) int {
	t.Helper()
	p, err := f.store.FindPlayer(context.Background(), roomID, userID)
	require.NoError(t, err)
	return p.Score
}

func numberGuess(player string, n int) state.Action {
	return state.Action{Type: numberguesser.ActionGuess, PlayerID: player, Data: map[string]any{"guess": n}}
}
