package threecrumbs

import "time"

const Slug = "three-crumbs"

const (
	ActionGuess     = "guess"
	ActionNextRound = "next_round"
	ActionTimeUp    = "time_up"
	ActionEndGame   = "end_game"
)

const (
	KeyRounds     = "rounds"
	KeyCategory   = "category"
	KeyDifficulty = "difficulty"
)

const (
	defaultRounds     = 10
	defaultCategory   = "food"
	defaultDifficulty = "medium"
	minRounds         = 1
	maxRounds         = 20
	clueCount         = 3
)

var categories = []string{"bible", "food", "animals", "holidays", "office"}

var difficultyDurations = map[string]time.Duration{
	"easy":   60 * time.Second,
	"medium": 45 * time.Second,
	"hard":   30 * time.Second,
}

type Config struct {
	Rounds     int    `json:"rounds"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
}

func (c Config) RoundDuration() time.Duration {
	if d, ok := difficultyDurations[c.Difficulty]; ok {
		return d
	}
	return difficultyDurations[defaultDifficulty]
}

type GuessEntry struct {
	Text    string    `json:"text"`
	Correct bool      `json:"correct"`
	At      time.Time `json:"at"`
}

type SolvedEntry struct {
	ClueNumber    int     `json:"clue_number"`
	TimeRemaining float64 `json:"time_remaining"`
	Score         int     `json:"score"`
}

type PlayerRoundResult struct {
	Correct       bool         `json:"correct"`
	Guesses       []GuessEntry `json:"guesses"`
	ClueNumber    int          `json:"clue_number"`
	TimeRemaining float64      `json:"time_remaining"`
	BasePoints    int          `json:"base_points"`
	TimeBonus     int          `json:"time_bonus"`
	Score         int          `json:"score"`
}

type RoundResult struct {
	Round         int                          `json:"round"`
	Answer        string                       `json:"answer"`
	PlayerResults map[string]PlayerRoundResult `json:"player_results"`
}

type PlayerStatus struct {
	GuessCount int  `json:"guess_count"`
	Solved     bool `json:"solved"`
}

type gameState struct {
	HostID         string                  `json:"host_id"`
	Config         Config                  `json:"config"`
	CurrentRound   int                     `json:"current_round"`
	TotalRounds    int                     `json:"total_rounds"`
	RoundQuestions []Question              `json:"round_questions"`
	Guesses        map[string][]GuessEntry `json:"guesses"`
	SolvedBy       map[string]SolvedEntry  `json:"solved_by"`
	RoundStartedAt time.Time               `json:"round_started_at"`
	RoundOpen      bool                    `json:"round_open"`
	RoundResults   []RoundResult           `json:"round_results"`
	PlayerScores   map[string]int          `json:"player_scores"`
	PlayerIDs      []string                `json:"player_ids"`
	AdvancePhase   bool                    `json:"advance_phase,omitempty"`
	TimeUp         bool                    `json:"time_up,omitempty"`
	ForceEnd       bool                    `json:"force_end,omitempty"`
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

// question returns the question for round, or nil past the last round.
func (s *gameState) question(round int) *Question {
	if round < 1 || round > len(s.RoundQuestions) {
		return nil
	}
	return &s.RoundQuestions[round-1]
}
