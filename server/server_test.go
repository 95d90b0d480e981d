package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/partygame/apperr"
	"github.com/wfunc/partygame/broadcast"
	"github.com/wfunc/partygame/config"
	"github.com/wfunc/partygame/events"
	"github.com/wfunc/partygame/games/numberguesser"
	"github.com/wfunc/partygame/logger"
	"github.com/wfunc/partygame/network"
	"github.com/wfunc/partygame/persistence"
	"github.com/wfunc/partygame/room"
	"github.com/wfunc/partygame/services"
	"github.com/wfunc/partygame/session"
	"github.com/wfunc/partygame/state"
)

func init() {
	logger.Init("error")
}

type nopScheduler struct{}

func (nopScheduler) Schedule(string, time.Time, func()) {}
func (nopScheduler) Cancel(string)                      {}

type MockGauge struct{ online atomic.Int32 }

func (m *MockGauge) IncOnlineSessions() { m.online.Add(1) }
func (m *MockGauge) DecOnlineSessions() { m.online.Add(-1) }

type testServer struct {
	*httptest.Server
	game *GameServer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	registry, err := state.NewRegistry(numberguesser.New(numberguesser.WithRandom(func(int) int { return 41 })))
	require.NoError(t, err)

	store := persistence.NewMemoryStore()
	runner := room.NewRoomManager()
	t.Cleanup(runner.Stop)

	sessions := session.NewManager()
	publisher := events.Multi{events.LogPublisher{}, broadcast.NewRoomBroadcaster(sessions)}
	orch := services.NewOrchestrator(store, registry, runner, nopScheduler{}, services.WithPublisher(publisher))
	rooms := services.NewRoomService(store, registry, runner, config.GameConfig{
		InviteCodeLength:  6,
		DefaultMaxPlayers: 10,
		MaxRoomPlayers:    100,
	}, services.WithRoomPublisher(publisher))

	gs := NewGameServer(config.ServerConfig{ActionRate: 100, ActionBurst: 100}, registry, rooms, orch, sessions)
	ts := httptest.NewServer(gs.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, game: gs}
}

func (ts *testServer) do(t *testing.T, method, path, playerID string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	if playerID != "" {
		req.Header.Set(PlayerHeader, playerID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

// openRoom creates a number-guesser room hosted by "host" with "p2" seated
// and returns its id.
func (ts *testServer) openRoom(t *testing.T, cfg map[string]any) string {
	t.Helper()
	status, created := ts.do(t, http.MethodPost, "/rooms", "host", map[string]any{
		"game_slug":    numberguesser.Slug,
		"display_name": "Host",
		"config":       cfg,
	})
	require.Equal(t, http.StatusCreated, status, created)
	roomID := created["room"].(map[string]any)["id"].(string)
	code := created["invite"].(map[string]any)["code"].(string)

	status, joined := ts.do(t, http.MethodPost, "/invites/"+strings.ToLower(code)+"/join", "p2", map[string]any{"display_name": "Pat"})
	require.Equal(t, http.StatusOK, status, joined)
	return roomID
}

func TestListGames(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/games")
	require.NoError(t, err)
	defer resp.Body.Close()

	var games []gameInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&games))
	require.Len(t, games, 1)
	assert.Equal(t, numberguesser.Slug, games[0].Slug)
	assert.Equal(t, 2, games[0].MinPlayers)
	assert.NotEmpty(t, games[0].Defaults)
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	roomID := ts.openRoom(t, map[string]any{"rounds": 1})

	status, body := ts.do(t, http.MethodPost, "/rooms/"+roomID+"/start", "p2", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, string(apperr.CodeNotHost), body["code"])

	status, body = ts.do(t, http.MethodPost, "/rooms/"+roomID+"/start", "host", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "playing", body["phase"])

	status, body = ts.do(t, http.MethodPost, "/rooms/"+roomID+"/actions", "p2", map[string]any{"type": "dance"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(apperr.CodeInvalidGameAction), body["code"])
	assert.Equal(t, "Invalid action type", body["metadata"].(map[string]any)["reason"])

	status, body = ts.do(t, http.MethodPost, "/rooms/"+roomID+"/actions", "p2", map[string]any{"type": "guess", "data": map[string]any{"guess": 42}})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["valid"])

	status, body = ts.do(t, http.MethodGet, "/rooms/"+roomID+"/view", "p2", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "playing", body["phase"])

	status, body = ts.do(t, http.MethodGet, "/rooms/"+roomID+"/results", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(apperr.CodeInvalidPhase), body["code"])

	status, body = ts.do(t, http.MethodPost, "/rooms/"+roomID+"/actions", "host", map[string]any{"type": "guess", "data": map[string]any{"guess": 42}})
	require.Equal(t, http.StatusOK, status, body)

	status, body = ts.do(t, http.MethodGet, "/rooms/"+roomID+"/results", "", nil)
	require.Equal(t, http.StatusOK, status, body)
	rankings := body["rankings"].([]any)
	require.Len(t, rankings, 2)
	assert.Equal(t, "p2", rankings[0].(map[string]any)["player_id"])
	assert.Equal(t, "Pat", rankings[0].(map[string]any)["display_name"])
}

func TestRequestErrors(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodPost, "/rooms", "", map[string]any{"game_slug": numberguesser.Slug})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, string(codeUnauthenticated), body["code"])

	status, body = ts.do(t, http.MethodGet, "/rooms/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, string(apperr.CodeRoomNotFound), body["code"])

	status, body = ts.do(t, http.MethodPost, "/rooms", "host", map[string]any{"game_slug": "chess"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, string(apperr.CodeGameNotFound), body["code"])

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/rooms", strings.NewReader("{"))
	require.NoError(t, err)
	req.Header.Set(PlayerHeader, "host")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestValidateInviteAndLeave(t *testing.T) {
	ts := newTestServer(t)
	status, created := ts.do(t, http.MethodPost, "/rooms", "host", map[string]any{"game_slug": numberguesser.Slug})
	require.Equal(t, http.StatusCreated, status)
	roomID := created["room"].(map[string]any)["id"].(string)
	code := created["invite"].(map[string]any)["code"].(string)

	status, body := ts.do(t, http.MethodGet, "/invites/"+code, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["valid"])
	assert.EqualValues(t, 1, body["player_count"])

	status, _ = ts.do(t, http.MethodPost, "/rooms/"+roomID+"/leave", "host", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = ts.do(t, http.MethodGet, "/invites/"+code, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "Game has already started or ended", body["error"])
}

// wsClient speaks the packet protocol for tests.
type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func (ts *testServer) dial(t *testing.T, playerID string) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?player_id=" + playerID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(msgID uint16, v any) {
	c.t.Helper()
	data, err := json.Marshal(v)
	require.NoError(c.t, err)
	raw, err := network.EncodePacket(msgID, data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.BinaryMessage, raw))
}

// next reads packets until one with msgID arrives.
func (c *wsClient) next(msgID uint16) []byte {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, raw, err := c.conn.ReadMessage()
		require.NoError(c.t, err)
		p, err := network.DecodePacket(raw)
		require.NoError(c.t, err)
		if p.MsgID == msgID {
			return p.Data
		}
	}
}

func TestWebSocket_SubscribeAndAct(t *testing.T) {
	ts := newTestServer(t)
	roomID := ts.openRoom(t, map[string]any{"rounds": 2})

	host := ts.dial(t, "host")
	host.send(network.MsgTypeSubscribe, network.SubscribeRequest{RoomID: roomID})
	host.next(network.MsgTypeSubscribe)

	status, body := ts.do(t, http.MethodPost, "/rooms/"+roomID+"/start", "host", nil)
	require.Equal(t, http.StatusOK, status, body)

	var e events.Event
	require.NoError(t, json.Unmarshal(host.next(network.MsgTypeRoomEvent), &e))
	assert.Equal(t, events.GameStarted, e.Kind)
	assert.Equal(t, roomID, e.RoomID)

	host.send(network.MsgTypeGameAction, network.ActionRequest{Type: "guess", Data: map[string]any{"guess": 50}})
	var res network.ActionResult
	require.NoError(t, json.Unmarshal(host.next(network.MsgTypeActionResult), &res))
	assert.True(t, res.Valid, res.Error)

	host.send(network.MsgTypeGameAction, network.ActionRequest{Type: "guess", Data: map[string]any{"guess": 5000}})
	res = network.ActionResult{}
	require.NoError(t, json.Unmarshal(host.next(network.MsgTypeActionResult), &res))
	assert.False(t, res.Valid)
	assert.Equal(t, string(apperr.CodeInvalidGameAction), res.Code)
	assert.Contains(t, res.Error, "Guess must be between")
}

func TestWebSocket_Rejections(t *testing.T) {
	ts := newTestServer(t)
	roomID := ts.openRoom(t, nil)

	stranger := ts.dial(t, "stranger")
	stranger.send(network.MsgTypeSubscribe, network.SubscribeRequest{RoomID: roomID})
	var msg network.ErrorMessage
	require.NoError(t, json.Unmarshal(stranger.next(network.MsgTypeError), &msg))
	assert.Equal(t, string(apperr.CodePlayerNotInRoom), msg.Code)

	stranger.send(network.MsgTypeGameAction, network.ActionRequest{Type: "guess"})
	var res network.ActionResult
	require.NoError(t, json.Unmarshal(stranger.next(network.MsgTypeActionResult), &res))
	assert.False(t, res.Valid)
	assert.Equal(t, string(apperr.CodePlayerNotInRoom), res.Code)

	resp, err := http.Get(ts.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestShutdownClosesSessions(t *testing.T) {
	ts := newTestServer(t)
	gauge := &MockGauge{}
	ts.game.gauge = gauge

	c := ts.dial(t, "host")
	c.send(network.MsgTypeHeartbeat, struct{}{})
	c.next(network.MsgTypeHeartbeat)
	require.Equal(t, 1, ts.game.sessionManager.Count())
	require.EqualValues(t, 1, gauge.online.Load())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, ts.game.Shutdown(ctx))

	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := c.conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool {
		return ts.game.sessionManager.Count() == 0 && gauge.online.Load() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
