package apperr

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a stable machine-readable error code.
type Code string

const (
	CodeInternal Code = "INTERNAL"

	// Room errors
	CodeRoomNotFound   Code = "ROOM_NOT_FOUND"
	CodeRoomFull       Code = "ROOM_FULL"
	CodeRoomNotWaiting Code = "ROOM_NOT_WAITING"
	CodeRoomNotPlaying Code = "ROOM_NOT_PLAYING"
	CodeNotHost        Code = "NOT_HOST"

	// Invite errors
	CodeInvalidInvite Code = "INVALID_INVITE"

	// Player errors
	CodePlayerNotInRoom  Code = "PLAYER_NOT_IN_ROOM"
	CodeAlreadyInRoom    Code = "ALREADY_IN_ROOM"
	CodeNotEnoughPlayers Code = "NOT_ENOUGH_PLAYERS"

	// Game errors
	CodeGameNotFound      Code = "GAME_NOT_FOUND"
	CodeGameStateNotFound Code = "GAME_STATE_NOT_FOUND"
	CodeInvalidGameAction Code = "INVALID_GAME_ACTION"
	CodeInvalidPhase      Code = "INVALID_PHASE"
	CodeInvalidConfig     Code = "INVALID_CONFIG"

	// Storage errors
	CodeVersionConflict Code = "VERSION_CONFLICT"
)

// GRPCCode maps a domain code to the gRPC status code used at RPC boundaries.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeInvalidGameAction, CodeInvalidInvite, CodeInvalidConfig:
		return codes.InvalidArgument
	case CodeRoomNotFound, CodeGameNotFound, CodeGameStateNotFound, CodePlayerNotInRoom:
		return codes.NotFound
	case CodeAlreadyInRoom:
		return codes.AlreadyExists
	case CodeNotHost:
		return codes.PermissionDenied
	case CodeRoomFull:
		return codes.ResourceExhausted
	case CodeRoomNotWaiting, CodeRoomNotPlaying, CodeInvalidPhase, CodeNotEnoughPlayers:
		return codes.FailedPrecondition
	case CodeVersionConflict:
		return codes.Aborted
	default:
		return codes.Internal
	}
}

// HTTPStatus maps a domain code to the HTTP status used by the JSON boundary.
func (c Code) HTTPStatus() int {
	switch c.GRPCCode() {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.ResourceExhausted:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
