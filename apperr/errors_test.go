package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("join: %w", RoomFull())

	assert.True(t, errors.Is(err, RoomFull()))
	assert.True(t, errors.Is(err, &Error{Code: CodeRoomFull}))
	assert.False(t, errors.Is(err, NotHost()))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeInvalidInvite, CodeOf(fmt.Errorf("wrapped: %w", InvalidInvite("Code not found"))))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, CodeInternal, CodeOf(nil))
}

func TestError_GRPCStatus(t *testing.T) {
	st, ok := status.FromError(InvalidGameAction("Guess must be an integer"))
	assert.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())
	assert.Equal(t, "Invalid game action: Guess must be an integer", st.Message())
}

func TestCode_HTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeRoomNotFound:      http.StatusNotFound,
		CodeRoomFull:          http.StatusBadRequest,
		CodeInvalidGameAction: http.StatusBadRequest,
		CodeNotHost:           http.StatusForbidden,
		CodeAlreadyInRoom:     http.StatusConflict,
		CodeVersionConflict:   http.StatusConflict,
		CodeInternal:          http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, code.HTTPStatus(), code)
	}
}

func TestError_WrapKeepsCause(t *testing.T) {
	cause := errors.New("bad rounds")
	err := InvalidConfig(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "bad rounds")
}
