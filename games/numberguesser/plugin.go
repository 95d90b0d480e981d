// Package numberguesser implements the secret-number game: each round a
// random integer is drawn and players race to find it.
package numberguesser

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/wfunc/partygame/models"
	"github.com/wfunc/partygame/state"
)

var _ state.Plugin = (*Plugin)(nil)

type Plugin struct {
	intn func(n int) int
}

type Option func(*Plugin)

// WithRandom replaces the source used to draw targets. intn must return a
// value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(p *Plugin) { p.intn = intn }
}

func New(opts ...Option) *Plugin {
	p := &Plugin{intn: rand.IntN}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Plugin) Info() state.Info {
	return state.Info{
		Slug:                    Slug,
		Name:                    "Number Guesser",
		Description:             "Guess the secret number! Fewer guesses and faster solves score more.",
		MinPlayers:              2,
		MaxPlayers:              20,
		HostPlays:               true,
		HostCountsTowardMinimum: true,
		HostActions:             []string{ActionNextRound, ActionTimeUp},
	}
}

// ComputeScore rewards fewer guesses and faster solves, with a floor of 100
// on the guess part.
func ComputeScore(guessCount int, timeRemaining float64, roundDurationSeconds int) int {
	guessBonus := max(100, 1000-(guessCount-1)*150)
	timeBonus := int(math.Floor(500 * timeRemaining / float64(roundDurationSeconds)))
	return guessBonus + timeBonus
}

func (p *Plugin) DefaultConfig() models.GameConfig {
	return models.GameConfig{
		KeyRounds:               defaultRounds,
		KeyMinNumber:            defaultMinNumber,
		KeyMaxNumber:            defaultMaxNumber,
		KeyRoundDurationSeconds: defaultRoundDuration,
	}
}

func (p *Plugin) NormalizeConfig(cfg models.GameConfig) (models.GameConfig, error) {
	c, err := parseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return models.GameConfig{
		KeyRounds:               c.Rounds,
		KeyMinNumber:            c.MinNumber,
		KeyMaxNumber:            c.MaxNumber,
		KeyRoundDurationSeconds: c.RoundDurationSeconds,
	}, nil
}

func parseConfig(cfg models.GameConfig) (Config, error) {
	c := Config{
		Rounds:               defaultRounds,
		MinNumber:            defaultMinNumber,
		MaxNumber:            defaultMaxNumber,
		RoundDurationSeconds: defaultRoundDuration,
	}
	fields := []struct {
		key    string
		dst    *int
		lo, hi int
	}{
		{KeyRounds, &c.Rounds, minRounds, maxRounds},
		{KeyMinNumber, &c.MinNumber, math.MinInt32, math.MaxInt32},
		{KeyMaxNumber, &c.MaxNumber, math.MinInt32, math.MaxInt32},
		{KeyRoundDurationSeconds, &c.RoundDurationSeconds, minRoundDuration, maxRoundDuration},
	}
	for _, f := range fields {
		raw, present := cfg[f.key]
		if !present {
			continue
		}
		v, ok := models.AsInt(raw)
		if !ok {
			return Config{}, fmt.Errorf("%s must be an integer", f.key)
		}
		if v < f.lo || v > f.hi {
			return Config{}, fmt.Errorf("%s must be between %d and %d", f.key, f.lo, f.hi)
		}
		*f.dst = v
	}
	if c.MaxNumber <= c.MinNumber {
		return Config{}, fmt.Errorf("%s must be greater than %s", KeyMaxNumber, KeyMinNumber)
	}
	return c, nil
}

func (p *Plugin) PhaseDuration(phase models.Phase, cfg models.GameConfig) (time.Duration, bool) {
	switch phase {
	case models.PhasePlaying:
		c, err := parseConfig(cfg)
		if err != nil {
			return defaultRoundDuration * time.Second, true
		}
		return time.Duration(c.RoundDurationSeconds) * time.Second, true
	case models.PhaseRoundEnd:
		return roundEndDuration, true
	}
	return 0, false
}

func (p *Plugin) InitializeState(cfg models.GameConfig, seats state.Seats, now time.Time) (state.Blob, error) {
	c, err := parseConfig(cfg)
	if err != nil {
		return nil, p.violation("InitializeState", "", err)
	}

	ids := append([]string{}, seats.PlayerIDs...)
	s := &gameState{
		Config:         c,
		CurrentRound:   1,
		TotalRounds:    c.Rounds,
		TargetNumber:   p.drawTarget(c),
		Guesses:        make(map[string][]int, len(ids)),
		SolvedBy:       map[string]SolvedEntry{},
		RoundStartedAt: now,
		RoundOpen:      true,
		RoundResults:   []RoundResult{},
		PlayerScores:   make(map[string]int, len(ids)),
		PlayerIDs:      ids,
	}
	for _, id := range ids {
		s.Guesses[id] = []int{}
		s.PlayerScores[id] = 0
	}
	return state.Encode(s)
}

func (p *Plugin) ValidateAction(blob state.Blob, action state.Action) (state.Validation, error) {
	s, err := p.decode(blob, "ValidateAction")
	if err != nil {
		return state.Validation{}, err
	}
	// the host plays this game, so control actions come from a seat too
	if !s.hasPlayer(action.PlayerID) {
		return state.Reject("Player not in game"), nil
	}

	switch action.Type {
	case ActionNextRound:
		if s.RoundOpen {
			return state.Reject("Round is still in progress"), nil
		}
		return state.Accept(), nil
	case ActionTimeUp:
		if !s.RoundOpen {
			return state.Reject("Round is not in progress"), nil
		}
		return state.Accept(), nil
	case ActionGuess:
	default:
		return state.Reject("Invalid action type"), nil
	}

	if !s.RoundOpen || s.TimeUp {
		return state.Reject("Round is not in progress"), nil
	}
	if _, solved := s.SolvedBy[action.PlayerID]; solved {
		return state.Reject("You already solved this round"), nil
	}
	guess, ok := models.AsInt(action.Data["guess"])
	if !ok {
		return state.Reject("Guess must be an integer"), nil
	}
	if guess < s.Config.MinNumber || guess > s.Config.MaxNumber {
		return state.Reject(fmt.Sprintf("Guess must be between %d and %d", s.Config.MinNumber, s.Config.MaxNumber)), nil
	}
	return state.Accept(), nil
}

func (p *Plugin) ApplyAction(blob state.Blob, action state.Action, now time.Time) (state.Blob, error) {
	s, err := p.decode(blob, "ApplyAction")
	if err != nil {
		return nil, err
	}

	switch action.Type {
	case ActionNextRound:
		s.AdvancePhase = true
	case ActionTimeUp:
		s.TimeUp = true
	case ActionGuess:
		if _, solved := s.SolvedBy[action.PlayerID]; solved {
			return nil, p.violation("ApplyAction", "", errors.New("guess from a player who already solved"))
		}
		guess, ok := models.AsInt(action.Data["guess"])
		if !ok {
			return nil, p.violation("ApplyAction", "", errors.New("unvalidated guess payload"))
		}
		s.Guesses[action.PlayerID] = append(s.Guesses[action.PlayerID], guess)

		if guess == s.TargetNumber {
			duration := s.Config.RoundDurationSeconds
			elapsed := now.Sub(s.RoundStartedAt).Seconds()
			remaining := max(0, float64(duration)-elapsed)
			count := len(s.Guesses[action.PlayerID])
			s.SolvedBy[action.PlayerID] = SolvedEntry{
				GuessCount:    count,
				TimeRemaining: remaining,
				Score:         ComputeScore(count, remaining, duration),
			}
		}
	default:
		return nil, p.violation("ApplyAction", "", fmt.Errorf("unknown action type %q", action.Type))
	}
	return state.Encode(s)
}

func (p *Plugin) IsPhaseComplete(blob state.Blob, phase models.Phase) (bool, error) {
	s, err := p.decode(blob, "IsPhaseComplete")
	if err != nil {
		return false, err
	}
	switch phase {
	case models.PhasePlaying:
		return s.TimeUp || s.allSolved(), nil
	case models.PhaseRoundEnd:
		return s.AdvancePhase, nil
	case models.PhaseSetup, models.PhaseFinished:
		return false, nil
	}
	return false, p.violation("IsPhaseComplete", phase, state.ErrUnknownPhase)
}

func (p *Plugin) ResolvePhase(blob state.Blob, phase models.Phase, now time.Time) (state.Blob, error) {
	s, err := p.decode(blob, "ResolvePhase")
	if err != nil {
		return nil, err
	}

	switch phase {
	case models.PhaseRoundEnd:
		s.AdvancePhase = false
		s.TimeUp = false
		s.RoundStartedAt = now
		s.RoundOpen = true
	case models.PhasePlaying:
		p.closeRound(s)
	case models.PhaseSetup, models.PhaseFinished:
		return nil, p.violation("ResolvePhase", phase, errors.New("phase has no resolution"))
	default:
		return nil, p.violation("ResolvePhase", phase, state.ErrUnknownPhase)
	}
	return state.Encode(s)
}

// closeRound records the round, banks the scores and draws the next target,
// so the following playing phase can start without another initialization.
func (p *Plugin) closeRound(s *gameState) {
	s.TimeUp = false

	results := make(map[string]PlayerRoundResult, len(s.PlayerIDs))
	for _, pid := range s.PlayerIDs {
		guesses := s.Guesses[pid]
		if guesses == nil {
			guesses = []int{}
		}
		entry, solved := s.SolvedBy[pid]
		score := 0
		if solved {
			score = entry.Score
		}
		results[pid] = PlayerRoundResult{
			Guesses:    guesses,
			Correct:    solved,
			GuessCount: len(guesses),
			Score:      score,
		}
		s.PlayerScores[pid] += score
	}
	s.RoundResults = append(s.RoundResults, RoundResult{
		Round:         s.CurrentRound,
		TargetNumber:  s.TargetNumber,
		PlayerResults: results,
	})

	s.CurrentRound++
	s.TargetNumber = p.drawTarget(s.Config)
	s.Guesses = make(map[string][]int, len(s.PlayerIDs))
	for _, pid := range s.PlayerIDs {
		s.Guesses[pid] = []int{}
	}
	s.SolvedBy = map[string]SolvedEntry{}
	s.RoundOpen = false
}

func (p *Plugin) NextPhase(current models.Phase, blob state.Blob) (models.Phase, error) {
	s, err := p.decode(blob, "NextPhase")
	if err != nil {
		return "", err
	}
	switch current {
	case models.PhaseSetup:
		return models.PhasePlaying, nil
	case models.PhasePlaying:
		return models.PhaseRoundEnd, nil
	case models.PhaseRoundEnd:
		if s.CurrentRound > s.TotalRounds {
			return models.PhaseFinished, nil
		}
		return models.PhasePlaying, nil
	case models.PhaseFinished:
		return models.PhaseFinished, nil
	}
	return "", p.violation("NextPhase", current, state.ErrUnknownPhase)
}

func (p *Plugin) IsGameOver(blob state.Blob) (bool, error) {
	s, err := p.decode(blob, "IsGameOver")
	if err != nil {
		return false, err
	}
	return s.CurrentRound > s.TotalRounds, nil
}

func (p *Plugin) CalculateResults(blob state.Blob) (state.Results, error) {
	s, err := p.decode(blob, "CalculateResults")
	if err != nil {
		return state.Results{}, err
	}
	return state.Results{
		Rankings: state.Rank(s.PlayerIDs, s.PlayerScores),
		Stats: map[string]any{
			"rounds":       s.RoundResults,
			"total_rounds": s.TotalRounds,
		},
	}, nil
}

func (p *Plugin) PlayerView(blob state.Blob, playerID string, phase models.Phase, now time.Time) (state.PlayerView, error) {
	s, err := p.decode(blob, "PlayerView")
	if err != nil {
		return state.PlayerView{}, err
	}
	if !phase.Valid() {
		return state.PlayerView{}, p.violation("PlayerView", phase, state.ErrUnknownPhase)
	}

	status := make(map[string]PlayerStatus, len(s.PlayerIDs))
	for _, pid := range s.PlayerIDs {
		_, solved := s.SolvedBy[pid]
		status[pid] = PlayerStatus{GuessCount: len(s.Guesses[pid]), Solved: solved}
	}

	public := map[string]any{
		"current_round": s.CurrentRound,
		"total_rounds":  s.TotalRounds,
		"min_number":    s.Config.MinNumber,
		"max_number":    s.Config.MaxNumber,
		"player_scores": s.PlayerScores,
		"round_results": s.RoundResults,
		"player_status": status,
	}
	if (phase == models.PhaseRoundEnd || phase == models.PhaseFinished) && len(s.RoundResults) > 0 {
		public["last_round_result"] = s.RoundResults[len(s.RoundResults)-1]
	}

	mine := s.Guesses[playerID]
	if mine == nil {
		mine = []int{}
	}
	hints := make([]string, len(mine))
	for i, g := range mine {
		switch {
		case g == s.TargetNumber:
			hints[i] = "correct"
		case g < s.TargetNumber:
			hints[i] = "higher"
		default:
			hints[i] = "lower"
		}
	}
	_, solved := s.SolvedBy[playerID]

	return state.PlayerView{
		Phase:        phase,
		CurrentRound: s.CurrentRound,
		TotalRounds:  s.TotalRounds,
		PublicState:  public,
		PrivateState: map[string]any{
			"my_guesses": mine,
			"hints":      hints,
			"solved":     solved,
		},
	}, nil
}

func (p *Plugin) Rounds(blob state.Blob) (int, int, error) {
	s, err := p.decode(blob, "Rounds")
	if err != nil {
		return 0, 0, err
	}
	return s.CurrentRound, s.TotalRounds, nil
}

func (p *Plugin) drawTarget(c Config) int {
	return c.MinNumber + p.intn(c.MaxNumber-c.MinNumber+1)
}

func (p *Plugin) decode(blob state.Blob, op string) (*gameState, error) {
	s, err := state.Decode(blob, checkState)
	if err != nil {
		return nil, p.violation(op, "", err)
	}
	return s, nil
}

func (p *Plugin) violation(op string, phase models.Phase, err error) error {
	return state.Violation(Slug, op, phase, err)
}

func checkState(s *gameState) error {
	switch {
	case s.CurrentRound < 1:
		return errors.New("current_round must be at least 1")
	case s.TotalRounds < 1:
		return errors.New("total_rounds must be at least 1")
	case s.Config.RoundDurationSeconds <= 0:
		return errors.New("config.round_duration_seconds missing")
	case s.Config.MaxNumber <= s.Config.MinNumber:
		return errors.New("config number range is empty")
	case s.PlayerIDs == nil, s.Guesses == nil, s.SolvedBy == nil, s.PlayerScores == nil:
		return errors.New("player maps missing")
	}
	return nil
}
