package numberguesser

import "time"

const Slug = "number-guesser"

const (
	ActionGuess     = "guess"
	ActionNextRound = "next_round"
	ActionTimeUp    = "time_up"
)

// TargetKey is the state key of the secret number. It must never appear in a
// public view while a round is being played.
const TargetKey = "target_number"

const (
	defaultRounds        = 3
	defaultMinNumber     = 1
	defaultMaxNumber     = 100
	defaultRoundDuration = 30
	roundEndDuration     = 5 * time.Second

	minRounds        = 1
	maxRounds        = 20
	minRoundDuration = 10
	maxRoundDuration = 300
)

// Config keys as supplied by the host.
const (
	KeyRounds               = "rounds"
	KeyMinNumber            = "min_number"
	KeyMaxNumber            = "max_number"
	KeyRoundDurationSeconds = "round_duration_seconds"
)

type Config struct {
	Rounds               int `json:"rounds"`
	MinNumber            int `json:"min_number"`
	MaxNumber            int `json:"max_number"`
	RoundDurationSeconds int `json:"round_duration_seconds"`
}

type SolvedEntry struct {
	GuessCount    int     `json:"guess_count"`
	TimeRemaining float64 `json:"time_remaining"`
	Score         int     `json:"score"`
}

type PlayerRoundResult struct {
	Guesses    []int `json:"guesses"`
	Correct    bool  `json:"correct"`
	GuessCount int   `json:"guess_count"`
	Score      int   `json:"score"`
}

type RoundResult struct {
	Round         int                          `json:"round"`
	TargetNumber  int                          `json:"target_number"`
	PlayerResults map[string]PlayerRoundResult `json:"player_results"`
}

type PlayerStatus struct {
	GuessCount int  `json:"guess_count"`
	Solved     bool `json:"solved"`
}

// gameState is the blob this plugin owns.
type gameState struct {
	Config         Config                 `json:"config"`
	CurrentRound   int                    `json:"current_round"`
	TotalRounds    int                    `json:"total_rounds"`
	TargetNumber   int                    `json:"target_number"`
	Guesses        map[string][]int       `json:"guesses"`
	SolvedBy       map[string]SolvedEntry `json:"solved_by"`
	RoundStartedAt time.Time              `json:"round_started_at"`
	RoundOpen      bool                   `json:"round_open"`
	RoundResults   []RoundResult          `json:"round_results"`
	PlayerScores   map[string]int         `json:"player_scores"`
	PlayerIDs      []string               `json:"player_ids"`
	AdvancePhase   bool                   `json:"advance_phase,omitempty"`
	TimeUp         bool                   `json:"time_up,omitempty"`
}

func (s *gameState) hasPlayer(id string) bool {
	for _, pid := range s.PlayerIDs {
		if pid == id {
			return true
		}
	}
	return false
}

func (s *gameState) allSolved() bool {
	for _, pid := range s.PlayerIDs {
		if _, ok := s.SolvedBy[pid]; !ok {
			return false
		}
	}
	return true
}
