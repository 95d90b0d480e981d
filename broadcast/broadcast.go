// broadcast/broadcast.go
package broadcast

import (
	"context"
	"encoding/json"

	"github.com/wfunc/partygame/events"
	"github.com/wfunc/partygame/logger"
	"github.com/wfunc/partygame/network"
	"github.com/wfunc/partygame/session"
)

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) int
	BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) int
}

// RoomBroadcaster pushes to the sessions subscribed to a room. It is also
// the events.Publisher that turns room events into websocket messages.
type RoomBroadcaster struct {
	sessionManager *session.Manager
}

var (
	_ Broadcaster      = (*RoomBroadcaster)(nil)
	_ events.Publisher = (*RoomBroadcaster)(nil)
)

func NewRoomBroadcaster(sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{sessionManager: sessionManager}
}

// BroadcastToRoom returns how many sessions accepted the message.
func (b *RoomBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) int {
	return send(b.sessionManager.InRoom(roomID), msgID, data)
}

func (b *RoomBroadcaster) BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) int {
	delivered := 0
	for _, playerID := range playerIDs {
		delivered += send(b.sessionManager.GetByPlayerID(playerID), msgID, data)
	}
	return delivered
}

// Publish forwards e to the room's subscribers.
func (b *RoomBroadcaster) Publish(ctx context.Context, e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		logger.Log.Errorw("encode room event", "kind", e.Kind, "room_id", e.RoomID, "error", err)
		return
	}
	b.BroadcastToRoom(e.RoomID, network.MsgTypeRoomEvent, data)
}

// send queues data on every session; a slow client loses messages instead
// of holding up the room.
func send(sessions []*session.Session, msgID uint16, data []byte) int {
	delivered := 0
	for _, s := range sessions {
		if !s.Queue(msgID, data) {
			logger.Log.Debugw("broadcast dropped", "session_id", s.GetID(), "player_id", s.PlayerID)
			continue
		}
		delivered++
	}
	return delivered
}
