package network

// Client → server
const (
	MsgTypeHeartbeat   = 1
	MsgTypeSubscribe   = 101
	MsgTypeUnsubscribe = 102
	MsgTypeGameAction  = 201
)

// Server → client
const (
	MsgTypeActionResult = 202
	MsgTypeRoomEvent    = 301
	MsgTypeError        = 302
)

// SubscribeRequest asks for the events of one room. The player must have a
// seat in it.
type SubscribeRequest struct {
	RoomID string `json:"room_id"`
}

// ActionRequest submits a game action to the subscribed room.
type ActionRequest struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// ActionResult answers an ActionRequest. A rejected action has Valid false
// and the game's reason in Error.
type ActionResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
