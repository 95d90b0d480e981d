// Package apperr holds the domain error kinds raised by the orchestration layer.
//
// Player input that a game rejects is not an error; plugins report it as a
// state.Validation and the orchestrator turns it into CodeInvalidGameAction.
package apperr

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/status"
)

// Error is a domain error carrying a stable code and a user-facing message.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// GRPCStatus lets grpc/status.FromError recover a typed status from the error.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Code.GRPCCode(), e.Message)
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func RoomNotFound(roomID string) *Error {
	return WithMetadata(CodeRoomNotFound, fmt.Sprintf("Room %s not found", roomID), map[string]string{"room_id": roomID})
}

func RoomFull() *Error {
	return New(CodeRoomFull, "Room is full")
}

func InvalidInvite(reason string) *Error {
	return New(CodeInvalidInvite, "Invalid invite: "+reason)
}

func NotHost() *Error {
	return New(CodeNotHost, "Only the host can perform this action")
}

func InvalidGameAction(reason string) *Error {
	return WithMetadata(CodeInvalidGameAction, "Invalid game action: "+reason, map[string]string{"reason": reason})
}

func GameNotFound(slug string) *Error {
	return WithMetadata(CodeGameNotFound, fmt.Sprintf("Game type '%s' not found", slug), map[string]string{"slug": slug})
}

func InvalidPhase(expected, actual string) *Error {
	return Newf(CodeInvalidPhase, "Expected phase '%s', got '%s'", expected, actual)
}

func PlayerNotInRoom() *Error {
	return New(CodePlayerNotInRoom, "Player is not in this room")
}

func AlreadyInRoom() *Error {
	return New(CodeAlreadyInRoom, "Player is already in this room")
}

func NotEnoughPlayers(min int) *Error {
	return Newf(CodeNotEnoughPlayers, "Need at least %d players to start", min)
}

func RoomNotWaiting() *Error {
	return New(CodeRoomNotWaiting, "Game already started")
}

func RoomNotPlaying() *Error {
	return New(CodeRoomNotPlaying, "Game is not in progress")
}

func GameStateNotFound(roomID string) *Error {
	return WithMetadata(CodeGameStateNotFound, "Game state not found", map[string]string{"room_id": roomID})
}

func InvalidConfig(cause error) *Error {
	return Wrap(CodeInvalidConfig, "Invalid game config", cause)
}
