package state

import (
	"errors"
	"fmt"

	"github.com/wfunc/partygame/models"
)

var (
	ErrUnknownPhase = errors.New("unknown phase")
	ErrCorruptState = errors.New("corrupt state")
)

// ContractError marks a defect: a plugin was driven outside its contract or
// its stored state no longer decodes. It must never be turned into a default.
type ContractError struct {
	Plugin string
	Op     string
	Phase  models.Phase
	Err    error
}

func (e *ContractError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("%s: %s in phase %q: %v", e.Plugin, e.Op, e.Phase, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Plugin, e.Op, e.Err)
}

func (e *ContractError) Unwrap() error { return e.Err }

func Violation(plugin, op string, phase models.Phase, err error) error {
	return &ContractError{Plugin: plugin, Op: op, Phase: phase, Err: err}
}

// IsContractViolation reports whether err came from a plugin contract breach.
func IsContractViolation(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}
