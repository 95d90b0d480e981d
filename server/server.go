package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/partygame/config"
	"github.com/wfunc/partygame/logger"
	"github.com/wfunc/partygame/services"
	"github.com/wfunc/partygame/session"
	"github.com/wfunc/partygame/state"
)

const (
	// PlayerHeader carries the caller's user id. Authentication happens upstream.
	PlayerHeader      = "X-Player-ID"
	DisplayNameHeader = "X-Display-Name"

	heartbeatInterval = 30 * time.Second
)

// SessionGauge counts live websocket sessions.
type SessionGauge interface {
	IncOnlineSessions()
	DecOnlineSessions()
}

type nopGauge struct{}

func (nopGauge) IncOnlineSessions() {}
func (nopGauge) DecOnlineSessions() {}

type GameServer struct {
	cfg            config.ServerConfig
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	registry       *state.Registry
	rooms          *services.RoomService
	games          *services.Orchestrator
	sessionManager *session.Manager
	gauge          SessionGauge
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
}

type Option func(*GameServer)

func WithSessionGauge(g SessionGauge) Option {
	return func(s *GameServer) { s.gauge = g }
}

func NewGameServer(cfg config.ServerConfig, registry *state.Registry, rooms *services.RoomService, games *services.Orchestrator, sessions *session.Manager, opts ...Option) *GameServer {
	s := &GameServer{
		cfg:            cfg,
		registry:       registry,
		rooms:          rooms,
		games:          games,
		sessionManager: sessions,
		gauge:          nopGauge{},
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the REST and websocket routes.
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /games", s.handleListGames)
	mux.HandleFunc("POST /rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /rooms/{id}", s.handleGetRoom)
	mux.HandleFunc("POST /rooms/{id}/ready", s.handleToggleReady)
	mux.HandleFunc("POST /rooms/{id}/leave", s.handleLeaveRoom)
	mux.HandleFunc("POST /rooms/{id}/start", s.handleStartGame)
	mux.HandleFunc("POST /rooms/{id}/actions", s.handleSubmitAction)
	mux.HandleFunc("GET /rooms/{id}/view", s.handlePlayerView)
	mux.HandleFunc("GET /rooms/{id}/results", s.handleResults)
	mux.HandleFunc("GET /invites/{code}", s.handleValidateInvite)
	mux.HandleFunc("POST /invites/{code}/join", s.handleJoinRoom)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// Start serves until Shutdown is called.
func (s *GameServer) Start() error {
	logger.Log.Infof("Game server listening on %s", s.cfg.HTTPAddress)
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes every websocket and waits for
// in-flight requests until ctx expires.
func (s *GameServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
	s.sessionManager.CloseAll()
	return s.httpServer.Shutdown(ctx)
}
