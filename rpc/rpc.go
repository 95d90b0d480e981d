package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"github.com/wfunc/partygame/apperr"
	"github.com/wfunc/partygame/logger"
	"github.com/wfunc/partygame/services"
	"github.com/wfunc/partygame/state"
)

const callTimeout = 10 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	server   *rpc.Server
}

// NewServer listens on addr and registers service under the name "GameService".
func NewServer(addr string, service *GameService) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName("GameService", service); err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		server:   srv,
	}, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests. Connections speak JSON-RPC 1.0
// since game data is open-ended JSON that gob cannot carry without
// registering every plugin type.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.server.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// GameService exposes game play to trusted backends, such as a bot runner
// or an admin console, that already know the player's identity.
type GameService struct {
	games *services.Orchestrator
}

func NewGameService(games *services.Orchestrator) *GameService {
	return &GameService{games: games}
}

type SubmitActionArgs struct {
	RoomID   string
	PlayerID string
	Type     string
	Data     map[string]any
}

// SubmitActionReply mirrors the websocket ActionResult. A rejected action is
// a normal reply with Valid false; only internal failures are RPC errors.
type SubmitActionReply struct {
	Valid bool
	Error string
	Code  string
}

func (gs *GameService) SubmitAction(args *SubmitActionArgs, reply *SubmitActionReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	err := gs.games.SubmitAction(ctx, args.RoomID, state.Action{Type: args.Type, PlayerID: args.PlayerID, Data: args.Data})
	if err == nil {
		reply.Valid = true
		return nil
	}
	var e *apperr.Error
	if !errors.As(err, &e) || e.Code == apperr.CodeInternal {
		return err
	}
	reply.Error = e.Message
	reply.Code = string(e.Code)
	return nil
}

type PlayerViewArgs struct {
	RoomID   string
	PlayerID string
}

func (gs *GameService) PlayerView(args *PlayerViewArgs, reply *state.PlayerView) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	view, err := gs.games.PlayerView(ctx, args.RoomID, args.PlayerID)
	if err != nil {
		return err
	}
	*reply = view
	return nil
}

type ResultsArgs struct {
	RoomID string
}

func (gs *GameService) Results(args *ResultsArgs, reply *state.Results) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	results, err := gs.games.Results(ctx, args.RoomID)
	if err != nil {
		return err
	}
	*reply = results
	return nil
}
