// state/interfaces.go
package state

import (
	"encoding/json"
	"time"

	"github.com/wfunc/partygame/models"
)

// Blob is a plugin's serialized state. Only the owning plugin may look inside.
type Blob = json.RawMessage

// Action is a player or host input addressed to a game.
type Action struct {
	Type     string         `json:"type"`
	PlayerID string         `json:"player_id"`
	Data     map[string]any `json:"data"`
}

// Validation is the outcome of ValidateAction. A rejection is an expected
// result, not an error.
type Validation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func Accept() Validation { return Validation{Valid: true} }

func Reject(reason string) Validation { return Validation{Error: reason} }

// Seats names the people of a new game. PlayerIDs is in join order and
// leaves out a host who only runs the screen.
type Seats struct {
	HostID    string
	PlayerIDs []string
}

// PlayerView is the state as one player is allowed to see it.
type PlayerView struct {
	Phase         models.Phase   `json:"phase"`
	CurrentRound  int            `json:"current_round"`
	TotalRounds   int            `json:"total_rounds"`
	TimeRemaining *int           `json:"time_remaining"`
	PublicState   map[string]any `json:"public_state"`
	PrivateState  map[string]any `json:"private_state"`
}

type Ranking struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
	Rank        int    `json:"rank"`
}

type Results struct {
	Rankings []Ranking      `json:"rankings"`
	Stats    map[string]any `json:"stats"`
}

// Info describes a game type to the lobby and the orchestrator.
type Info struct {
	Slug        string
	Name        string
	Description string
	MinPlayers  int
	MaxPlayers  int
	// HostPlays is false for games where the host only runs the shared screen.
	HostPlays bool
	// HostCountsTowardMinimum decides whether a non-playing host still counts
	// toward MinPlayers when the game is started.
	HostCountsTowardMinimum bool
	// HostActions lists action types only the room host may submit.
	HostActions []string
}

// IsHostAction reports whether actionType is reserved for the host.
func (i Info) IsHostAction(actionType string) bool {
	for _, a := range i.HostActions {
		if a == actionType {
			return true
		}
	}
	return false
}

// Plugin is the contract every game type implements. All methods are pure
// functions of their arguments; now is the only clock a plugin may read.
// A non-nil error always means a contract violation (unknown phase, corrupt
// blob), never a rejected player input.
type Plugin interface {
	Info() Info

	DefaultConfig() models.GameConfig
	// NormalizeConfig fills defaults and range-checks the host's settings.
	NormalizeConfig(cfg models.GameConfig) (models.GameConfig, error)
	// PhaseDuration returns false when the phase has no timer.
	PhaseDuration(phase models.Phase, cfg models.GameConfig) (time.Duration, bool)

	InitializeState(cfg models.GameConfig, seats Seats, now time.Time) (Blob, error)
	// ValidateAction rejects actions from anyone the game does not know.
	ValidateAction(blob Blob, action Action) (Validation, error)
	ApplyAction(blob Blob, action Action, now time.Time) (Blob, error)
	IsPhaseComplete(blob Blob, phase models.Phase) (bool, error)
	ResolvePhase(blob Blob, phase models.Phase, now time.Time) (Blob, error)
	NextPhase(current models.Phase, blob Blob) (models.Phase, error)
	IsGameOver(blob Blob) (bool, error)
	CalculateResults(blob Blob) (Results, error)
	PlayerView(blob Blob, playerID string, phase models.Phase, now time.Time) (PlayerView, error)
	// Rounds reports the round counter and total as the plugin tracks them.
	Rounds(blob Blob) (current, total int, err error)
}
