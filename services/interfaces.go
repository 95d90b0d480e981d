package services

import (
	"time"
)

// Scheduler arms at most one phase deadline per room.
type Scheduler interface {
	Schedule(roomID string, at time.Time, fn func())
	Cancel(roomID string)
}

// Observer receives the orchestrator's counters. *monitor.Monitor implements it.
type Observer interface {
	ObserveAction(game, outcome string, duration time.Duration)
	IncPhaseTransition(game, phase string)
	IncPhaseTimeout(result string)
	IncActiveGames()
	DecActiveGames()
}

type nopObserver struct{}

func (nopObserver) ObserveAction(string, string, time.Duration) {}
func (nopObserver) IncPhaseTransition(string, string)           {}
func (nopObserver) IncPhaseTimeout(string)                      {}
func (nopObserver) IncActiveGames()                             {}
func (nopObserver) DecActiveGames()                             {}
