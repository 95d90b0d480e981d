package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/wfunc/partygame/apperr"
	"github.com/wfunc/partygame/logger"
	"github.com/wfunc/partygame/models"
	"github.com/wfunc/partygame/services"
	"github.com/wfunc/partygame/state"
)

const maxBodyBytes = 64 << 10

const (
	codeUnauthenticated apperr.Code = "UNAUTHENTICATED"
	codeBadRequest      apperr.Code = "BAD_REQUEST"
)

type gameInfo struct {
	Slug        string            `json:"slug"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	MinPlayers  int               `json:"min_players"`
	MaxPlayers  int               `json:"max_players"`
	HostPlays   bool              `json:"host_plays"`
	Defaults    models.GameConfig `json:"default_config"`
}

type createRoomRequest struct {
	GameSlug    string            `json:"game_slug"`
	Name        string            `json:"name"`
	MaxPlayers  int               `json:"max_players"`
	Config      models.GameConfig `json:"config"`
	DisplayName string            `json:"display_name"`
}

type joinRoomRequest struct {
	DisplayName string `json:"display_name"`
}

type actionRequest struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type errorBody struct {
	Code     apperr.Code       `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *GameServer) handleListGames(w http.ResponseWriter, r *http.Request) {
	plugins := s.registry.All()
	out := make([]gameInfo, 0, len(plugins))
	for _, p := range plugins {
		info := p.Info()
		out = append(out, gameInfo{
			Slug:        info.Slug,
			Name:        info.Name,
			Description: info.Description,
			MinPlayers:  info.MinPlayers,
			MaxPlayers:  info.MaxPlayers,
			HostPlays:   info.HostPlays,
			Defaults:    p.DefaultConfig(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *GameServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	var req createRoomRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.rooms.CreateRoom(r.Context(), services.CreateRoomInput{
		HostID:          playerID,
		HostDisplayName: displayName(r, req.DisplayName, playerID),
		GameSlug:        req.GameSlug,
		Name:            req.Name,
		MaxPlayers:      req.MaxPlayers,
		Config:          req.Config,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *GameServer) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	details, err := s.rooms.GetRoom(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *GameServer) handleToggleReady(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	player, err := s.rooms.ToggleReady(r.Context(), r.PathValue("id"), playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (s *GameServer) handleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	if err := s.rooms.LeaveRoom(r.Context(), r.PathValue("id"), playerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *GameServer) handleStartGame(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	gs, err := s.games.StartGame(r.Context(), r.PathValue("id"), playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, services.GameSummary{
		Phase:         gs.Phase,
		CurrentRound:  gs.CurrentRound,
		TotalRounds:   gs.TotalRounds,
		PhaseDeadline: gs.PhaseDeadline,
	})
}

func (s *GameServer) handleSubmitAction(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := s.games.SubmitAction(r.Context(), r.PathValue("id"), state.Action{
		Type:     req.Type,
		PlayerID: playerID,
		Data:     req.Data,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state.Accept())
}

func (s *GameServer) handlePlayerView(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	view, err := s.games.PlayerView(r.Context(), r.PathValue("id"), playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *GameServer) handleResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.games.Results(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *GameServer) handleValidateInvite(w http.ResponseWriter, r *http.Request) {
	check, err := s.rooms.ValidateInvite(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (s *GameServer) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	var req joinRoomRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.rooms.JoinRoom(r.Context(), r.PathValue("code"), playerID, displayName(r, req.DisplayName, playerID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func requirePlayer(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(PlayerHeader))
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: codeUnauthenticated, Message: "Missing " + PlayerHeader + " header"})
		return "", false
	}
	return id, true
}

// displayName prefers the body, then the header, then the user id.
func displayName(r *http.Request, fromBody, playerID string) string {
	if name := strings.TrimSpace(fromBody); name != "" {
		return name
	}
	if name := strings.TrimSpace(r.Header.Get(DisplayNameHeader)); name != "" {
		return name
	}
	return playerID
}

// decodeBody accepts an empty body as the zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeJSON(w, http.StatusBadRequest, errorBody{Code: codeBadRequest, Message: "Malformed request body"})
	return false
}

func writeError(w http.ResponseWriter, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) || e.Code == apperr.CodeInternal {
		logger.Log.Errorw("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: apperr.CodeInternal, Message: "Internal server error"})
		return
	}
	writeJSON(w, e.Code.HTTPStatus(), errorBody{Code: e.Code, Message: e.Message, Metadata: e.Metadata})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debugw("write response", "error", err)
	}
}
