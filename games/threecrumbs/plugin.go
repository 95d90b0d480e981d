// Package threecrumbs implements "3 Crumbs": players name the answer behind
// three clues that get easier as the round runs down.
package threecrumbs

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/wfunc/partygame/models"
	"github.com/wfunc/partygame/state"
)

var _ state.Plugin = (*Plugin)(nil)

type Plugin struct {
	intn func(n int) int
	bank Bank
}

type Option func(*Plugin)

// WithRandom replaces the shuffle source. intn must return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(p *Plugin) { p.intn = intn }
}

// WithBank replaces the embedded question bank.
func WithBank(b Bank) Option {
	return func(p *Plugin) { p.bank = b }
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
		Slug:        Slug,
		Name:        "3 Crumbs",
		Description: "3 clues, 1 answer. Guess the answer from the crumbs the host reveals!",
		MinPlayers:  2,
		MaxPlayers:  50,
		HostPlays:   false,
		HostActions: []string{ActionNextRound, ActionTimeUp, ActionEndGame},
	}
}

func (p *Plugin) DefaultConfig() models.GameConfig {
	return models.GameConfig{
		KeyRounds:     defaultRounds,
		KeyCategory:   defaultCategory,
		KeyDifficulty: defaultDifficulty,
	}
}

func (p *Plugin) NormalizeConfig(cfg models.GameConfig) (models.GameConfig, error) {
	c, err := parseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return models.GameConfig{
		KeyRounds:     c.Rounds,
		KeyCategory:   c.Category,
		KeyDifficulty: c.Difficulty,
	}, nil
}

func parseConfig(cfg models.GameConfig) (Config, error) {
	c := Config{Rounds: defaultRounds, Category: defaultCategory, Difficulty: defaultDifficulty}

	if _, present := cfg[KeyRounds]; present {
		v, ok := cfg.Int(KeyRounds)
		if !ok {
			return Config{}, fmt.Errorf("%s must be an integer", KeyRounds)
		}
		if v < minRounds || v > maxRounds {
			return Config{}, fmt.Errorf("%s must be between %d and %d", KeyRounds, minRounds, maxRounds)
		}
		c.Rounds = v
	}
	if _, present := cfg[KeyCategory]; present {
		v, ok := cfg.String(KeyCategory)
		if !ok || !slices.Contains(categories, v) {
			return Config{}, fmt.Errorf("%s must be one of %s", KeyCategory, strings.Join(categories, ", "))
		}
		c.Category = v
	}
	if _, present := cfg[KeyDifficulty]; present {
		v, ok := cfg.String(KeyDifficulty)
		if _, known := difficultyDurations[v]; !ok || !known {
			return Config{}, fmt.Errorf("%s must be easy, medium or hard", KeyDifficulty)
		}
		c.Difficulty = v
	}
	return c, nil
}

func (p *Plugin) PhaseDuration(phase models.Phase, cfg models.GameConfig) (time.Duration, bool) {
	if phase != models.PhasePlaying {
		// the host advances round_end by hand
		return 0, false
	}
	c, err := parseConfig(cfg)
	if err != nil {
		return difficultyDurations[defaultDifficulty], true
	}
	return c.RoundDuration(), true
}

func (p *Plugin) questionBank() (Bank, error) {
	if p.bank != nil {
		return p.bank, nil
	}
	return DefaultBank()
}

func (p *Plugin) InitializeState(cfg models.GameConfig, seats state.Seats, now time.Time) (state.Blob, error) {
	c, err := parseConfig(cfg)
	if err != nil {
		return nil, p.violation("InitializeState", "", err)
	}
	bank, err := p.questionBank()
	if err != nil {
		return nil, p.violation("InitializeState", "", err)
	}

	pool := bank.Pool(c.Category)
	for i := len(pool) - 1; i > 0; i-- {
		j := p.intn(i + 1)
		pool[i], pool[j] = pool[j], pool[i]
	}
	questions := pool[:min(c.Rounds, len(pool))]
	if len(questions) == 0 {
		return nil, p.violation("InitializeState", "", fmt.Errorf("no questions for category %q", c.Category))
	}

	if seats.HostID == "" {
		return nil, p.violation("InitializeState", "", errors.New("no host"))
	}
	ids := append([]string{}, seats.PlayerIDs...)
	s := &gameState{
		HostID:         seats.HostID,
		Config:         c,
		CurrentRound:   1,
		TotalRounds:    len(questions),
		RoundQuestions: questions,
		Guesses:        make(map[string][]GuessEntry, len(ids)),
		SolvedBy:       map[string]SolvedEntry{},
		RoundStartedAt: now,
		RoundOpen:      true,
		RoundResults:   []RoundResult{},
		PlayerScores:   make(map[string]int, len(ids)),
		PlayerIDs:      ids,
	}
	for _, id := range ids {
		s.Guesses[id] = []GuessEntry{}
		s.PlayerScores[id] = 0
	}
	return state.Encode(s)
}

func (p *Plugin) ValidateAction(blob state.Blob, action state.Action) (state.Validation, error) {
	s, err := p.decode(blob, "ValidateAction")
	if err != nil {
		return state.Validation{}, err
	}

	if slices.Contains(p.Info().HostActions, action.Type) && action.PlayerID != s.HostID {
		return state.Reject("Only the host can do that"), nil
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
	case ActionEndGame:
		return state.Accept(), nil
	case ActionGuess:
	default:
		return state.Reject("Invalid action type"), nil
	}

	if !s.hasPlayer(action.PlayerID) {
		return state.Reject("Player not in game"), nil
	}
	if s.TimeUp {
		return state.Reject("Time is up"), nil
	}
	if !s.RoundOpen {
		return state.Reject("Round is not in progress"), nil
	}
	if _, solved := s.SolvedBy[action.PlayerID]; solved {
		return state.Reject("You already solved this round"), nil
	}
	text, ok := action.Data["guess"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return state.Reject("Guess must be a non-empty string"), nil
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
	case ActionEndGame:
		s.ForceEnd = true
		s.AdvancePhase = true
	case ActionGuess:
		text, ok := action.Data["guess"].(string)
		if !ok {
			return nil, p.violation("ApplyAction", "", errors.New("unvalidated guess payload"))
		}
		q := s.question(s.CurrentRound)
		if q == nil {
			return nil, p.violation("ApplyAction", "", fmt.Errorf("no question for round %d", s.CurrentRound))
		}
		text = strings.TrimSpace(text)
		correct := IsCorrectAnswer(text, *q)
		s.Guesses[action.PlayerID] = append(s.Guesses[action.PlayerID], GuessEntry{Text: text, Correct: correct, At: now})

		if correct {
			duration := s.Config.RoundDuration()
			elapsed := now.Sub(s.RoundStartedAt)
			clue := ActiveClue(elapsed, duration)
			remaining := max(0, (duration - elapsed).Seconds())
			s.SolvedBy[action.PlayerID] = SolvedEntry{
				ClueNumber:    clue,
				TimeRemaining: remaining,
				Score:         ComputeScore(clue, remaining),
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
		return s.TimeUp || s.ForceEnd || s.allSolved(), nil
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
		s.RoundOpen = !s.ForceEnd
	case models.PhasePlaying:
		if err := closeRound(s); err != nil {
			return nil, p.violation("ResolvePhase", phase, err)
		}
	case models.PhaseSetup, models.PhaseFinished:
		return nil, p.violation("ResolvePhase", phase, errors.New("phase has no resolution"))
	default:
		return nil, p.violation("ResolvePhase", phase, state.ErrUnknownPhase)
	}
	return state.Encode(s)
}

func closeRound(s *gameState) error {
	q := s.question(s.CurrentRound)
	if q == nil {
		return fmt.Errorf("no question for round %d", s.CurrentRound)
	}
	s.TimeUp = false

	results := make(map[string]PlayerRoundResult, len(s.PlayerIDs))
	for _, pid := range s.PlayerIDs {
		guesses := s.Guesses[pid]
		if guesses == nil {
			guesses = []GuessEntry{}
		}
		r := PlayerRoundResult{Guesses: guesses}
		if entry, solved := s.SolvedBy[pid]; solved {
			base := BasePoints(entry.ClueNumber)
			r.Correct = true
			r.ClueNumber = entry.ClueNumber
			r.TimeRemaining = entry.TimeRemaining
			r.BasePoints = base
			r.TimeBonus = entry.Score - base
			r.Score = entry.Score
		}
		results[pid] = r
		s.PlayerScores[pid] += r.Score
	}
	s.RoundResults = append(s.RoundResults, RoundResult{
		Round:         s.CurrentRound,
		Answer:        q.Answer,
		PlayerResults: results,
	})

	s.CurrentRound++
	s.Guesses = make(map[string][]GuessEntry, len(s.PlayerIDs))
	for _, pid := range s.PlayerIDs {
		s.Guesses[pid] = []GuessEntry{}
	}
	s.SolvedBy = map[string]SolvedEntry{}
	s.RoundOpen = false
	return nil
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
		if s.ForceEnd || s.CurrentRound > s.TotalRounds {
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
	return s.ForceEnd || s.CurrentRound > s.TotalRounds, nil
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
			"ended_early":  s.ForceEnd,
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

	duration := s.Config.RoundDuration()
	public := map[string]any{
		"current_round":    s.CurrentRound,
		"total_rounds":     s.TotalRounds,
		"player_scores":    s.PlayerScores,
		"round_results":    s.RoundResults,
		"player_status":    status,
		"duration_seconds": int(duration / time.Second),
		"round_started_at": s.RoundStartedAt,
		"category":         s.Config.Category,
		"difficulty":       s.Config.Difficulty,
	}

	switch phase {
	case models.PhasePlaying:
		if q := s.question(s.CurrentRound); q != nil && s.RoundOpen {
			clue := ActiveClue(now.Sub(s.RoundStartedAt), duration)
			public["active_clue"] = clue
			public["clues"] = append([]string(nil), q.Clues[:clue]...)
		}
	case models.PhaseRoundEnd, models.PhaseFinished:
		if n := len(s.RoundResults); n > 0 {
			last := s.RoundResults[n-1]
			public["last_round_result"] = last
			if q := s.question(last.Round); q != nil {
				public["last_clues"] = q.Clues
			}
		}
	}

	mine := s.Guesses[playerID]
	if mine == nil {
		mine = []GuessEntry{}
	}
	private := map[string]any{
		"my_guesses":  mine,
		"solved":      false,
		"solved_info": nil,
	}
	if entry, solved := s.SolvedBy[playerID]; solved {
		private["solved"] = true
		private["solved_info"] = entry
	}

	return state.PlayerView{
		Phase:        phase,
		CurrentRound: s.CurrentRound,
		TotalRounds:  s.TotalRounds,
		PublicState:  public,
		PrivateState: private,
	}, nil
}

func (p *Plugin) Rounds(blob state.Blob) (int, int, error) {
	s, err := p.decode(blob, "Rounds")
	if err != nil {
		return 0, 0, err
	}
	return s.CurrentRound, s.TotalRounds, nil
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
	case s.TotalRounds < 1 || s.TotalRounds != len(s.RoundQuestions):
		return errors.New("total_rounds does not match the question list")
	case s.PlayerIDs == nil, s.Guesses == nil, s.SolvedBy == nil, s.PlayerScores == nil:
		return errors.New("player maps missing")
	}
	for i, q := range s.RoundQuestions {
		if len(q.Clues) != clueCount {
			return fmt.Errorf("question %d has %d clues", i+1, len(q.Clues))
		}
	}
	return nil
}
