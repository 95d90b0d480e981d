package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wfunc/partygame/apperr"
	"github.com/wfunc/partygame/events"
	"github.com/wfunc/partygame/logger"
	"github.com/wfunc/partygame/models"
	"github.com/wfunc/partygame/persistence"
	"github.com/wfunc/partygame/room"
	"github.com/wfunc/partygame/state"
	"github.com/wfunc/partygame/tracing"
)

// timeoutRetryDelay is how long a phase timeout that failed on the store
// waits before it runs again.
const timeoutRetryDelay = 5 * time.Second

// Orchestrator drives game plugins against the store. All mutation of one
// room's game runs on that room's actor, and every game-state write is a
// compare-and-swap on the row version.
type Orchestrator struct {
	store     persistence.Store
	registry  *state.Registry
	runner    room.Runner
	scheduler Scheduler
	machine   *state.PhaseMachine
	players   *PlayerService
	publisher events.Publisher
	observer  Observer
	now       func() time.Time
}

type OrchestratorOption func(*Orchestrator)

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

func WithPublisher(p events.Publisher) OrchestratorOption {
	return func(o *Orchestrator) { o.publisher = p }
}

func WithObserver(obs Observer) OrchestratorOption {
	return func(o *Orchestrator) { o.observer = obs }
}

func NewOrchestrator(store persistence.Store, registry *state.Registry, runner room.Runner, scheduler Scheduler, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		registry:  registry,
		runner:    runner,
		scheduler: scheduler,
		machine:   state.DefaultPhaseMachine(),
		players:   NewPlayerService(store),
		publisher: events.Nop{},
		observer:  nopObserver{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// step describes what one resolution did to the game row.
type step struct {
	from, to models.Phase
	moved    bool
	finished bool
	results  state.Results
}

// StartGame initializes the room's game and arms the first deadline. Only
// the host may start, and only while the room is waiting. A start that fails
// on the store leaves the room waiting, so the host can try again.
func (o *Orchestrator) StartGame(ctx context.Context, roomID, userID string) (gs *models.GameState, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "Orchestrator.StartGame",
		trace.WithAttributes(attribute.String("room.id", roomID)))
	defer func() { endSpan(span, err) }()

	err = o.runner.Do(ctx, roomID, func(ctx context.Context) error {
		var err error
		gs, err = o.startGame(ctx, roomID, userID)
		return err
	})
	return gs, err
}

func (o *Orchestrator) startGame(ctx context.Context, roomID, userID string) (*models.GameState, error) {
	rm, err := o.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if rm.HostID != userID {
		return nil, apperr.NotHost()
	}
	if rm.Status != models.RoomWaiting {
		return nil, apperr.RoomNotWaiting()
	}
	plugin, err := o.plugin(rm.GameSlug)
	if err != nil {
		return nil, err
	}
	info := plugin.Info()

	seats, err := o.store.FindPlayersByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load players of room %s: %w", roomID, err)
	}
	playerIDs, hostSeated := gamePlayerIDs(rm, info, seats)
	counted := len(playerIDs)
	if !info.HostPlays && info.HostCountsTowardMinimum && hostSeated {
		counted++
	}
	if len(playerIDs) == 0 || counted < info.MinPlayers {
		return nil, apperr.NotEnoughPlayers(info.MinPlayers)
	}

	cfg, err := plugin.NormalizeConfig(rm.Config)
	if err != nil {
		return nil, apperr.InvalidConfig(err)
	}
	if err := o.machine.Check(models.PhaseSetup, models.PhasePlaying); err != nil {
		return nil, err
	}

	now := o.now()
	blob, err := plugin.InitializeState(cfg, state.Seats{HostID: rm.HostID, PlayerIDs: playerIDs}, now)
	if err != nil {
		return nil, o.contractFailure(rm, models.PhaseSetup, err)
	}
	current, total, err := plugin.Rounds(blob)
	if err != nil {
		return nil, o.contractFailure(rm, models.PhaseSetup, err)
	}

	gs := &models.GameState{
		RoomID:        roomID,
		Phase:         models.PhasePlaying,
		CurrentRound:  current,
		TotalRounds:   total,
		StateData:     blob,
		PhaseDeadline: deadlineFor(plugin, models.PhasePlaying, cfg, now),
		PhaseSeq:      1,
	}
	if err := o.open(ctx, roomID, seats, gs); err != nil {
		return nil, err
	}

	o.arm(gs)
	o.observer.IncActiveGames()
	o.observer.IncPhaseTransition(rm.GameSlug, string(models.PhasePlaying))
	logger.Log.Infow("game started",
		"room_id", roomID,
		"game", rm.GameSlug,
		"players", len(playerIDs),
		"total_rounds", total,
	)
	o.publish(ctx, events.Event{Kind: events.GameStarted, RoomID: roomID, Phase: gs.Phase, Round: gs.CurrentRound})
	o.publish(ctx, events.Event{Kind: events.StateChanged, RoomID: roomID, Phase: gs.Phase, Round: gs.CurrentRound})
	return gs, nil
}

// open marks the room and its seats playing and creates the game row last.
// On failure it puts the room and seats back as they were.
func (o *Orchestrator) open(ctx context.Context, roomID string, seats []*models.Player, gs *models.GameState) error {
	if err := o.store.UpdateRoomStatus(ctx, roomID, models.RoomPlaying); err != nil {
		return fmt.Errorf("mark room playing: %w", err)
	}
	err := o.players.MarkPlaying(ctx, seats)
	if err == nil {
		if err = o.store.CreateGameState(ctx, gs); err != nil {
			err = fmt.Errorf("create game state: %w", err)
		}
	}
	if err == nil {
		return nil
	}

	undo := context.WithoutCancel(ctx)
	if rerr := o.players.RestoreStatuses(undo, seats); rerr != nil {
		logger.Log.Errorw("restore player statuses failed", "room_id", roomID, "error", rerr)
	}
	if rerr := o.store.UpdateRoomStatus(undo, roomID, models.RoomWaiting); rerr != nil {
		logger.Log.Errorw("reopen room failed", "room_id", roomID, "error", rerr)
	}
	return err
}

// gamePlayerIDs returns the user ids that take part in the game, in join
// order. A host who only runs the screen is left out.
func gamePlayerIDs(rm *models.Room, info state.Info, seats []*models.Player) (ids []string, hostSeated bool) {
	for _, p := range seats {
		if p.Status == models.PlayerLeft {
			continue
		}
		if p.UserID == rm.HostID {
			hostSeated = true
			if !info.HostPlays {
				continue
			}
		}
		ids = append(ids, p.UserID)
	}
	return ids, hostSeated
}

// SubmitAction validates and applies one player action, then resolves the
// phase if the action completed it. A rejected action comes back as an
// INVALID_GAME_ACTION error and changes nothing.
func (o *Orchestrator) SubmitAction(ctx context.Context, roomID string, action state.Action) (err error) {
	ctx, span := tracing.Tracer().Start(ctx, "Orchestrator.SubmitAction",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.String("action.type", action.Type),
		))
	defer func() { endSpan(span, err) }()

	started := time.Now()
	game := "unknown"
	finished := false
	err = o.runner.Do(ctx, roomID, func(ctx context.Context) error {
		var err error
		finished, err = o.submitAction(ctx, roomID, action, &game)
		return err
	})
	if finished {
		o.runner.RemoveRoom(roomID)
	}

	outcome := "applied"
	switch {
	case err == nil:
	case apperr.CodeOf(err) == apperr.CodeInvalidGameAction:
		outcome = "rejected"
	default:
		outcome = "error"
	}
	o.observer.ObserveAction(game, outcome, time.Since(started))
	return err
}

// submitAction reports whether the action finished the game.
func (o *Orchestrator) submitAction(ctx context.Context, roomID string, action state.Action, game *string) (bool, error) {
	rm, err := o.loadRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	*game = rm.GameSlug
	if rm.Status != models.RoomPlaying {
		return false, apperr.RoomNotPlaying()
	}
	gs, err := o.loadGameState(ctx, roomID)
	if err != nil {
		return false, err
	}
	plugin, err := o.plugin(rm.GameSlug)
	if err != nil {
		return false, err
	}

	player, err := o.store.FindPlayer(ctx, roomID, action.PlayerID)
	if errors.Is(err, persistence.ErrRecordNotFound) || (err == nil && player.Status == models.PlayerLeft) {
		return false, apperr.PlayerNotInRoom()
	}
	if err != nil {
		return false, fmt.Errorf("load player: %w", err)
	}
	if plugin.Info().IsHostAction(action.Type) && action.PlayerID != rm.HostID {
		return false, apperr.NotHost()
	}

	v, err := plugin.ValidateAction(gs.StateData, action)
	if err != nil {
		return false, o.contractFailure(rm, gs.Phase, err)
	}
	if !v.Valid {
		logger.Log.Debugw("action rejected",
			"room_id", roomID,
			"player_id", action.PlayerID,
			"type", action.Type,
			"reason", v.Error,
		)
		return false, apperr.InvalidGameAction(v.Error)
	}

	now := o.now()
	blob, err := plugin.ApplyAction(gs.StateData, action, now)
	if err != nil {
		return false, o.contractFailure(rm, gs.Phase, err)
	}
	round := gs.CurrentRound
	gs.StateData = blob

	st, err := o.advance(rm, plugin, gs, false, now)
	if err != nil {
		return false, err
	}
	if err := o.commit(ctx, rm, gs, st); err != nil {
		return false, err
	}

	o.recordAction(ctx, &models.GameAction{
		RoomID:     roomID,
		PlayerID:   action.PlayerID,
		ActionType: action.Type,
		ActionData: action.Data,
		Round:      round,
	})
	o.publish(ctx, events.Event{
		Kind:     events.GameAction,
		RoomID:   roomID,
		PlayerID: action.PlayerID,
		Phase:    st.from,
		Round:    round,
		Payload:  map[string]any{"type": action.Type},
	})
	o.settle(ctx, rm, gs, st)
	return st.finished, nil
}

// HandlePhaseTimeout resolves the current phase when its deadline passes.
// seq is the phase stamp the timer was armed with; a timer whose phase has
// already ended, or whose room is gone or no longer playing, does nothing.
func (o *Orchestrator) HandlePhaseTimeout(ctx context.Context, roomID string, seq int64) (err error) {
	ctx, span := tracing.Tracer().Start(ctx, "Orchestrator.HandlePhaseTimeout",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.Int64("phase.seq", seq),
		))
	defer func() { endSpan(span, err) }()

	finished := false
	err = o.runner.Do(ctx, roomID, func(ctx context.Context) error {
		var err error
		finished, err = o.handlePhaseTimeout(ctx, roomID, seq)
		if err != nil && retryable(err) {
			// the phase did not move, so this stamp is still current
			o.schedule(roomID, seq, o.now().Add(timeoutRetryDelay))
		}
		return err
	})
	if finished {
		o.runner.RemoveRoom(roomID)
	}
	return err
}

// retryable reports whether err came from the store rather than from a
// rule or a plugin defect, which would fail the same way again.
func retryable(err error) bool {
	var e *apperr.Error
	return !errors.As(err, &e)
}

func (o *Orchestrator) handlePhaseTimeout(ctx context.Context, roomID string, seq int64) (bool, error) {
	rm, err := o.store.FindRoom(ctx, roomID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		o.observer.IncPhaseTimeout("stale")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load room %s: %w", roomID, err)
	}
	if rm.Status != models.RoomPlaying {
		o.observer.IncPhaseTimeout("stale")
		return false, nil
	}

	gs, err := o.store.FindGameState(ctx, roomID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		o.observer.IncPhaseTimeout("stale")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load game state %s: %w", roomID, err)
	}
	if gs.PhaseSeq != seq || (gs.Phase != models.PhasePlaying && gs.Phase != models.PhaseRoundEnd) {
		logger.Log.Debugw("stale phase timer",
			"room_id", roomID,
			"armed_seq", seq,
			"current_seq", gs.PhaseSeq,
			"phase", gs.Phase,
		)
		o.observer.IncPhaseTimeout("stale")
		return false, nil
	}

	plugin, err := o.plugin(rm.GameSlug)
	if err != nil {
		return false, err
	}
	st, err := o.advance(rm, plugin, gs, true, o.now())
	if err != nil {
		return false, err
	}
	if err := o.commit(ctx, rm, gs, st); err != nil {
		return false, err
	}
	o.observer.IncPhaseTimeout("resolved")
	o.settle(ctx, rm, gs, st)
	return st.finished, nil
}

// advance resolves gs's phase when it is complete, or unconditionally when
// force is set, and moves gs to the following phase. It only touches gs in
// memory; the caller persists.
func (o *Orchestrator) advance(rm *models.Room, plugin state.Plugin, gs *models.GameState, force bool, now time.Time) (step, error) {
	st := step{from: gs.Phase, to: gs.Phase}
	if !force {
		done, err := plugin.IsPhaseComplete(gs.StateData, gs.Phase)
		if err != nil {
			return st, o.contractFailure(rm, gs.Phase, err)
		}
		if !done {
			return st, nil
		}
	}

	blob, err := plugin.ResolvePhase(gs.StateData, gs.Phase, now)
	if err != nil {
		return st, o.contractFailure(rm, gs.Phase, err)
	}
	over, err := plugin.IsGameOver(blob)
	if err != nil {
		return st, o.contractFailure(rm, gs.Phase, err)
	}
	next := models.PhaseFinished
	if !over {
		if next, err = plugin.NextPhase(gs.Phase, blob); err != nil {
			return st, o.contractFailure(rm, gs.Phase, err)
		}
	}
	if err := o.machine.Check(gs.Phase, next); err != nil {
		return st, o.contractFailure(rm, gs.Phase, err)
	}
	_, total, err := plugin.Rounds(blob)
	if err != nil {
		return st, o.contractFailure(rm, gs.Phase, err)
	}

	// 只有 round_end → playing 才算进入新的一轮
	if gs.Phase == models.PhaseRoundEnd && next == models.PhasePlaying {
		gs.CurrentRound++
	}
	gs.TotalRounds = total
	gs.StateData = blob
	gs.Phase = next
	gs.PhaseSeq++
	gs.PhaseDeadline = nil
	if next != models.PhaseFinished {
		gs.PhaseDeadline = deadlineFor(plugin, next, rm.Config, now)
	}

	st.to, st.moved = next, true
	if next == models.PhaseFinished {
		st.finished = true
		if st.results, err = plugin.CalculateResults(blob); err != nil {
			return st, o.contractFailure(rm, next, err)
		}
	}
	return st, nil
}

// commit writes a resolved step. A finishing step writes the final scores
// and closes the room before the game row, so the row reads finished only
// when the rest has landed. If the row write then fails the room is reopened
// and the step can run again; the scores are rewritten with it.
func (o *Orchestrator) commit(ctx context.Context, rm *models.Room, gs *models.GameState, st step) error {
	if st.finished {
		if err := o.players.ApplyFinalScores(ctx, rm.ID, st.results.Rankings); err != nil {
			return err
		}
		if err := o.store.UpdateRoomStatus(ctx, rm.ID, models.RoomFinished); err != nil {
			return fmt.Errorf("mark room %s finished: %w", rm.ID, err)
		}
	}
	err := o.persist(ctx, gs)
	if err != nil && st.finished {
		if rerr := o.store.UpdateRoomStatus(context.WithoutCancel(ctx), rm.ID, models.RoomPlaying); rerr != nil {
			logger.Log.Errorw("reopen room failed", "room_id", rm.ID, "error", rerr)
		}
	}
	return err
}

func (o *Orchestrator) persist(ctx context.Context, gs *models.GameState) error {
	if err := o.store.UpdateGameState(ctx, gs); err != nil {
		if errors.Is(err, persistence.ErrVersionConflict) {
			return apperr.Wrap(apperr.CodeVersionConflict, "Game state was changed by another request", err)
		}
		return fmt.Errorf("update game state %s: %w", gs.RoomID, err)
	}
	return nil
}

// settle runs the effects of a committed step: timers, metrics and
// notifications.
func (o *Orchestrator) settle(ctx context.Context, rm *models.Room, gs *models.GameState, st step) {
	if !st.moved {
		o.publish(ctx, events.Event{Kind: events.StateChanged, RoomID: rm.ID, Phase: gs.Phase, Round: gs.CurrentRound})
		return
	}

	o.observer.IncPhaseTransition(rm.GameSlug, string(st.to))
	logger.Log.Infow("phase changed",
		"room_id", rm.ID,
		"game", rm.GameSlug,
		"from", st.from,
		"to", st.to,
		"round", gs.CurrentRound,
	)

	if st.finished {
		o.finish(ctx, rm, gs, st.results)
		return
	}

	o.arm(gs)
	o.publish(ctx, events.Event{Kind: events.PhaseChanged, RoomID: rm.ID, Phase: gs.Phase, Round: gs.CurrentRound})
	o.publish(ctx, events.Event{Kind: events.StateChanged, RoomID: rm.ID, Phase: gs.Phase, Round: gs.CurrentRound})
}

// finish announces a committed game end. It runs once per game: the
// finished row it follows was written with a version check.
func (o *Orchestrator) finish(ctx context.Context, rm *models.Room, gs *models.GameState, results state.Results) {
	o.scheduler.Cancel(rm.ID)
	o.observer.DecActiveGames()

	logger.Log.Infow("game finished",
		"room_id", rm.ID,
		"game", rm.GameSlug,
		"rounds", gs.TotalRounds,
		"players", len(results.Rankings),
	)
	o.publish(ctx, events.Event{
		Kind:    events.GameFinished,
		RoomID:  rm.ID,
		Phase:   models.PhaseFinished,
		Round:   gs.CurrentRound,
		Payload: map[string]any{"rankings": results.Rankings},
	})
	o.publish(ctx, events.Event{Kind: events.StateChanged, RoomID: rm.ID, Phase: models.PhaseFinished, Round: gs.CurrentRound})
}

// arm schedules the timeout for gs's current phase, or cancels the room's
// timer when the phase has no deadline.
func (o *Orchestrator) arm(gs *models.GameState) {
	if gs.PhaseDeadline == nil {
		o.scheduler.Cancel(gs.RoomID)
		return
	}
	o.schedule(gs.RoomID, gs.PhaseSeq, *gs.PhaseDeadline)
}

// schedule arms roomID's timer to resolve the phase stamped seq at at.
func (o *Orchestrator) schedule(roomID string, seq int64, at time.Time) {
	o.scheduler.Schedule(roomID, at, func() {
		if err := o.HandlePhaseTimeout(context.Background(), roomID, seq); err != nil {
			logger.Log.Errorw("phase timeout failed",
				"room_id", roomID,
				"phase_seq", seq,
				"error", err,
			)
		}
	})
}

// PlayerView returns the game as playerID may see it, with the seconds left
// in the current phase.
func (o *Orchestrator) PlayerView(ctx context.Context, roomID, playerID string) (view state.PlayerView, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "Orchestrator.PlayerView",
		trace.WithAttributes(attribute.String("room.id", roomID)))
	defer func() { endSpan(span, err) }()

	rm, err := o.loadRoom(ctx, roomID)
	if err != nil {
		return state.PlayerView{}, err
	}
	gs, err := o.loadGameState(ctx, roomID)
	if err != nil {
		return state.PlayerView{}, err
	}
	if _, err := o.store.FindPlayer(ctx, roomID, playerID); err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return state.PlayerView{}, apperr.PlayerNotInRoom()
		}
		return state.PlayerView{}, fmt.Errorf("load player: %w", err)
	}
	plugin, err := o.plugin(rm.GameSlug)
	if err != nil {
		return state.PlayerView{}, err
	}

	now := o.now()
	view, err = plugin.PlayerView(gs.StateData, playerID, gs.Phase, now)
	if err != nil {
		return state.PlayerView{}, o.contractFailure(rm, gs.Phase, err)
	}
	view.TimeRemaining = secondsUntil(gs.PhaseDeadline, now)
	return view, nil
}

// Results returns the final rankings of a finished game, with display names.
func (o *Orchestrator) Results(ctx context.Context, roomID string) (state.Results, error) {
	rm, err := o.loadRoom(ctx, roomID)
	if err != nil {
		return state.Results{}, err
	}
	gs, err := o.loadGameState(ctx, roomID)
	if err != nil {
		return state.Results{}, err
	}
	if gs.Phase != models.PhaseFinished {
		return state.Results{}, apperr.InvalidPhase(string(models.PhaseFinished), string(gs.Phase))
	}
	plugin, err := o.plugin(rm.GameSlug)
	if err != nil {
		return state.Results{}, err
	}
	results, err := plugin.CalculateResults(gs.StateData)
	if err != nil {
		return state.Results{}, o.contractFailure(rm, gs.Phase, err)
	}

	names, err := o.players.DisplayNames(ctx, roomID)
	if err != nil {
		return state.Results{}, fmt.Errorf("load players of room %s: %w", roomID, err)
	}
	for i := range results.Rankings {
		results.Rankings[i].DisplayName = names[results.Rankings[i].PlayerID]
	}
	return results, nil
}

// RestoreTimers re-arms the deadlines of unfinished games after a restart.
// Deadlines already in the past fire on the next timer tick.
func (o *Orchestrator) RestoreTimers(ctx context.Context) (int, error) {
	active, err := o.store.ListActiveGameStates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active games: %w", err)
	}
	armed := 0
	for _, gs := range active {
		o.observer.IncActiveGames()
		if gs.PhaseDeadline == nil {
			continue
		}
		o.arm(gs)
		armed++
	}
	logger.Log.Infow("restored phase timers", "active_games", len(active), "armed", armed)
	return armed, nil
}

func (o *Orchestrator) loadRoom(ctx context.Context, roomID string) (*models.Room, error) {
	rm, err := o.store.FindRoom(ctx, roomID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, apperr.RoomNotFound(roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	return rm, nil
}

func (o *Orchestrator) loadGameState(ctx context.Context, roomID string) (*models.GameState, error) {
	gs, err := o.store.FindGameState(ctx, roomID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, apperr.GameStateNotFound(roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("load game state %s: %w", roomID, err)
	}
	return gs, nil
}

func (o *Orchestrator) plugin(slug string) (state.Plugin, error) {
	p, ok := o.registry.Get(slug)
	if !ok {
		return nil, apperr.GameNotFound(slug)
	}
	return p, nil
}

func (o *Orchestrator) recordAction(ctx context.Context, action *models.GameAction) {
	if err := o.store.RecordAction(ctx, action); err != nil {
		logger.Log.Errorw("record game action failed",
			"room_id", action.RoomID,
			"player_id", action.PlayerID,
			"type", action.ActionType,
			"error", err,
		)
	}
}

func (o *Orchestrator) publish(ctx context.Context, e events.Event) {
	e.At = o.now()
	o.publisher.Publish(ctx, e)
}

// contractFailure logs a plugin defect with its room context and hides the
// details from the caller. The cause stays in the chain.
func (o *Orchestrator) contractFailure(rm *models.Room, phase models.Phase, err error) error {
	logger.Log.Errorw("game plugin contract violation",
		"room_id", rm.ID,
		"game", rm.GameSlug,
		"phase", phase,
		"error", err,
	)
	return apperr.Wrap(apperr.CodeInternal, "Game state is invalid", err)
}

func deadlineFor(plugin state.Plugin, phase models.Phase, cfg models.GameConfig, now time.Time) *time.Time {
	d, ok := plugin.PhaseDuration(phase, cfg)
	if !ok || d <= 0 {
		return nil
	}
	at := now.Add(d)
	return &at
}

func secondsUntil(deadline *time.Time, now time.Time) *int {
	if deadline == nil {
		return nil
	}
	secs := int(math.Ceil(deadline.Sub(now).Seconds()))
	if secs < 0 {
		secs = 0
	}
	return &secs
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	span.End()
}
