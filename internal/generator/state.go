package generator

import (
	"fmt"
	"strings"
)

// State is the stage a generator is in during a growth step.
type State int

const (
	StateIdle State = iota
	StateExpandingFrontier
	StateScoringCandidates
	StateCommitting
	StateStalled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExpandingFrontier:
		return "expanding_frontier"
	case StateScoringCandidates:
		return "scoring_candidates"
	case StateCommitting:
		return "committing"
	case StateStalled:
		return "stalled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Selection decides how the winning candidate is picked from the scored
// set.
type Selection int

const (
	// SelectBest always takes the highest score.
	SelectBest Selection = iota
	// SelectQuantile draws biased toward the top quantile of scores.
	SelectQuantile
)

func (s Selection) String() string {
	if s == SelectQuantile {
		return "quantile"
	}
	return "best"
}

// ParseSelection reads "best" or "quantile". The empty string is best.
func ParseSelection(s string) (Selection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "best":
		return SelectBest, nil
	case "quantile":
		return SelectQuantile, nil
	}
	return SelectBest, fmt.Errorf("generator: unknown selection mode %q", s)
}

// collisionFlag records which collision policies a candidate already failed.
type collisionFlag uint8

const (
	collidesOptional collisionFlag = 1 << iota
	collidesNoOptional
)

func collisionMask(testOptional bool) collisionFlag {
	if testOptional {
		return collidesOptional
	}
	return collidesNoOptional
}
