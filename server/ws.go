package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/partygame/apperr"
	"github.com/wfunc/partygame/logger"
	"github.com/wfunc/partygame/models"
	"github.com/wfunc/partygame/network"
	"github.com/wfunc/partygame/session"
	"github.com/wfunc/partygame/state"
)

const codeRateLimited apperr.Code = "RATE_LIMITED"

// handleWebSocket upgrades the request. Browsers cannot set headers on a
// websocket handshake, so the player id may also come as ?player_id=.
func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	playerID := strings.TrimSpace(r.Header.Get(PlayerHeader))
	if playerID == "" {
		playerID = strings.TrimSpace(r.URL.Query().Get("player_id"))
	}
	if playerID == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: codeUnauthenticated, Message: "Missing " + PlayerHeader + " header"})
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn, playerID)
}

func (s *GameServer) handleConnection(conn *websocket.Conn, playerID string) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(heartbeatInterval)
	sess := session.NewSession(uuid.New().String(), playerID, wsConn, s.cfg.ActionRate, s.cfg.ActionBurst)
	s.sessionManager.Add(sess)
	s.gauge.IncOnlineSessions()
	go sess.WriteLoop()

	logger.Log.Infow("session opened", "remote", wsConn.RemoteAddr(), "session_id", sess.GetID(), "player_id", playerID)

	defer func() {
		logger.Log.Infow("session closed", "remote", wsConn.RemoteAddr(), "session_id", sess.GetID(), "player_id", playerID)
		s.sessionManager.Remove(sess.GetID())
		s.gauge.DecOnlineSessions()
		sess.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}
		packet, err := wsConn.ReadPacket()
		if err != nil {
			return
		}
		s.handlePacket(sess, packet)
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	sess.Touch()
	ctx := context.Background()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		s.reply(sess, network.MsgTypeHeartbeat, struct{}{})
	case network.MsgTypeSubscribe:
		s.handleSubscribe(ctx, sess, packet)
	case network.MsgTypeUnsubscribe:
		sess.Subscribe("")
	case network.MsgTypeGameAction:
		s.handleGameAction(ctx, sess, packet)
	default:
		logger.Log.Infow("unknown message type", "msg_id", packet.MsgID, "session_id", sess.GetID())
		s.replyError(sess, apperr.New(codeBadRequest, "Unknown message type"))
	}
}

// handleSubscribe only lets seated players follow a room.
func (s *GameServer) handleSubscribe(ctx context.Context, sess *session.Session, packet *network.Packet) {
	var req network.SubscribeRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.RoomID == "" {
		s.replyError(sess, apperr.New(codeBadRequest, "Malformed subscribe request"))
		return
	}
	details, err := s.rooms.GetRoom(ctx, req.RoomID)
	if err != nil {
		s.replyError(sess, err)
		return
	}
	seated := slices.ContainsFunc(details.Players, func(p *models.Player) bool {
		return p.UserID == sess.PlayerID && p.Status != models.PlayerLeft
	})
	if !seated {
		s.replyError(sess, apperr.PlayerNotInRoom())
		return
	}
	sess.Subscribe(req.RoomID)
	s.reply(sess, network.MsgTypeSubscribe, req)
}

func (s *GameServer) handleGameAction(ctx context.Context, sess *session.Session, packet *network.Packet) {
	roomID := sess.RoomID()
	if roomID == "" {
		s.reply(sess, network.MsgTypeActionResult, network.ActionResult{Error: "Subscribe to a room first", Code: string(apperr.CodePlayerNotInRoom)})
		return
	}
	if !sess.AllowAction() {
		s.reply(sess, network.MsgTypeActionResult, network.ActionResult{Error: "Too many actions", Code: string(codeRateLimited)})
		return
	}
	var req network.ActionRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.reply(sess, network.MsgTypeActionResult, network.ActionResult{Error: "Malformed action", Code: string(codeBadRequest)})
		return
	}

	err := s.games.SubmitAction(ctx, roomID, state.Action{Type: req.Type, PlayerID: sess.PlayerID, Data: req.Data})
	s.reply(sess, network.MsgTypeActionResult, actionResult(err))
}

func actionResult(err error) network.ActionResult {
	if err == nil {
		return network.ActionResult{Valid: true}
	}
	var e *apperr.Error
	if !errors.As(err, &e) || e.Code == apperr.CodeInternal {
		logger.Log.Errorw("game action failed", "error", err)
		return network.ActionResult{Error: "Internal server error", Code: string(apperr.CodeInternal)}
	}
	return network.ActionResult{Error: e.Message, Code: string(e.Code)}
}

func (s *GameServer) replyError(sess *session.Session, err error) {
	msg := network.ErrorMessage{Code: string(apperr.CodeInternal), Message: "Internal server error"}
	var e *apperr.Error
	if errors.As(err, &e) && e.Code != apperr.CodeInternal {
		msg = network.ErrorMessage{Code: string(e.Code), Message: e.Message}
	} else {
		logger.Log.Errorw("websocket request failed", "session_id", sess.GetID(), "error", err)
	}
	s.reply(sess, network.MsgTypeError, msg)
}

func (s *GameServer) reply(sess *session.Session, msgID uint16, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorw("encode reply", "msg_id", msgID, "error", err)
		return
	}
	if !sess.Queue(msgID, data) {
		logger.Log.Debugw("reply dropped", "session_id", sess.GetID(), "msg_id", msgID)
	}
}
