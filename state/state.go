package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/wfunc/partygame/models"
)

// ErrTransitionNotAllowed is returned when a phase transition is not in the table.
var ErrTransitionNotAllowed = errors.New("phase transition not allowed")

// PhaseMachine is the table of legal phase transitions. It is filled at
// startup and read concurrently afterwards.
type PhaseMachine struct {
	transitions map[models.Phase]map[models.Phase]bool
	mutex       sync.RWMutex
}

func NewPhaseMachine() *PhaseMachine {
	return &PhaseMachine{
		transitions: make(map[models.Phase]map[models.Phase]bool),
	}
}

// DefaultPhaseMachine allows the round loop shared by every game:
// setup → playing → round_end → playing … → finished. A game may also finish
// straight out of playing when its last round resolves or the host ends it.
func DefaultPhaseMachine() *PhaseMachine {
	m := NewPhaseMachine()
	m.AddTransition(models.PhaseSetup, models.PhasePlaying)
	m.AddTransition(models.PhasePlaying, models.PhaseRoundEnd)
	m.AddTransition(models.PhasePlaying, models.PhaseFinished)
	m.AddTransition(models.PhaseRoundEnd, models.PhasePlaying)
	m.AddTransition(models.PhaseRoundEnd, models.PhaseFinished)
	return m
}

func (m *PhaseMachine) AddTransition(from, to models.Phase) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.transitions[from]; !exists {
		m.transitions[from] = make(map[models.Phase]bool)
	}
	m.transitions[from][to] = true
}

// Check returns nil if from → to is allowed.
func (m *PhaseMachine) Check(from, to models.Phase) error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.transitions[from][to] {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from, to)
}
