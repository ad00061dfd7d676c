package engine

import "errors"

var ErrUnknownVariant = errors.New("unknown variant")
var ErrInvalidHit = errors.New("invalid hit")

// Board constants. Bull is reported as section 25; a miss as section 0.
const (
	SectionMiss = 0
	SectionBull = 25
	MaxSection  = 20
)

type Outcome string

const (
	OutcomeContinue Outcome = "continue"
	OutcomeBust     Outcome = "bust"
	OutcomeWin      Outcome = "win"
)

// Hit is a resolved dart landing: the capture layer has already turned pixels
// into a section and ring multiplier before it reaches the engine.
type Hit struct {
	Section    int `json:"section"`
	Multiplier int `json:"multiplier"`
}

// ValidateHit checks a hit against the board model: sections 1-20 take
// multipliers 1-3, bull (25) takes 1 (outer, 25 points) or 2 (inner, 50),
// a miss (section 0) is always multiplier 1. There is no triple bull.
func ValidateHit(h Hit) error {
	switch {
	case h.Section == SectionMiss:
		if h.Multiplier != 1 {
			return ErrInvalidHit
		}
	case h.Section == SectionBull:
		if h.Multiplier != 1 && h.Multiplier != 2 {
			return ErrInvalidHit
		}
	case h.Section >= 1 && h.Section <= MaxSection:
		if h.Multiplier < 1 || h.Multiplier > 3 {
			return ErrInvalidHit
		}
	default:
		return ErrInvalidHit
	}
	return nil
}

// Points is the scoring value of a hit. Assumes ValidateHit passed.
func (h Hit) Points() int {
	return h.Section * h.Multiplier
}

// isFinish reports whether the hit qualifies as a finishing dart under
// double-out rules. The inner bull counts as a double on a real board.
func isFinish(h Hit) bool {
	return h.Multiplier == 2
}

// ScoreThrow applies a hit to a player's remaining score under the variant's
// rules. Pure: on bust the returned score is unchanged — the caller owns the
// turn-start rollback — and on win the caller owns the status transition.
func ScoreThrow(v Variant, score int, h Hit) (int, Outcome) {
	candidate := score - h.Points()

	switch {
	case candidate < 0:
		return score, OutcomeBust
	case candidate == 0 && v.DoubleOut && !isFinish(h):
		return score, OutcomeBust
	case candidate == 0:
		return 0, OutcomeWin
	case candidate == 1 && v.DoubleOut:
		// 1 is dead under double-out: no dart can finish from there.
		return score, OutcomeBust
	default:
		return candidate, OutcomeContinue
	}
}
