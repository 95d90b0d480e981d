package threecrumbs

import (
	"math"
	"time"
)

// ActiveClue returns which clue (1..3) is showing after elapsed of a round
// lasting duration. Each clue owns one third of the round.
func ActiveClue(elapsed, duration time.Duration) int {
	third := duration / 3
	switch {
	case elapsed < third:
		return 1
	case elapsed < 2*third:
		return 2
	}
	return 3
}

// BasePoints is the reward for solving while clue is active.
func BasePoints(clue int) int {
	switch clue {
	case 1:
		return 300
	case 2:
		return 200
	}
	return 100
}

func ComputeScore(clue int, timeRemaining float64) int {
	return BasePoints(clue) + int(math.Floor(timeRemaining*10))
}
