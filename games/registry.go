// Package games wires the built-in game types into a registry.
package games

import (
	"github.com/wfunc/partygame/games/numberguesser"
	"github.com/wfunc/partygame/games/threecrumbs"
	"github.com/wfunc/partygame/state"
)

// NewRegistry returns a registry holding every built-in game.
func NewRegistry() (*state.Registry, error) {
	return state.NewRegistry(
		numberguesser.New(),
		threecrumbs.New(),
	)
}
