// Package analysis drives the engine session across a game tree and turns
// adjacent evaluations into per-move quality judgments.
package analysis

import (
	"fmt"

	"boardmaster/internal/uci"
)

// Label is the discrete quality class of a played move.
type Label int

const (
	LabelBest Label = iota
	LabelExcellent
	LabelGood
	LabelInaccuracy
	LabelMistake
	LabelBlunder
)

func (l Label) String() string {
	switch l {
	case LabelBest:
		return "best"
	case LabelExcellent:
		return "excellent"
	case LabelGood:
		return "good"
	case LabelInaccuracy:
		return "inaccuracy"
	case LabelMistake:
		return "mistake"
	case LabelBlunder:
		return "blunder"
	default:
		return "unknown"
	}
}

// MarshalText renders labels by name in JSON output, including as map keys.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Glyph returns the annotation symbol used in move lists.
func (l Label) Glyph() string {
	switch l {
	case LabelBest, LabelExcellent:
		return "✅"
	case LabelGood:
		return "👍"
	case LabelInaccuracy:
		return "⚠️"
	case LabelMistake:
		return "❌"
	case LabelBlunder:
		return "🔥"
	default:
		return ""
	}
}

// Thresholds are the centipawn-loss boundaries between labels, ascending,
// first match wins. They are policy defaults, not constants: callers may
// tune them per run.
type Thresholds struct {
	Excellent  int // loss <= Excellent  -> excellent (0 loss -> best)
	Good       int // loss <= Good       -> good
	Inaccuracy int // loss <= Inaccuracy -> inaccuracy
	Mistake    int // loss <= Mistake    -> mistake; beyond -> blunder
}

// DefaultThresholds returns the standard boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Excellent: 20, Good: 50, Inaccuracy: 100, Mistake: 300}
}

// Judgment attaches to a single played move once both the pre-move and
// post-move evaluations exist.
type Judgment struct {
	Label    Label  `json:"label"`
	LossCP   int    `json:"loss_cp"`
	BestMove string `json:"best_move"` // engine's suggestion in the pre-move position
}

// Classify derives the judgment for the move connecting two adjacent
// evaluations. pre is evaluated from the mover's perspective, post from the
// opponent's, so the post score is sign-flipped before comparison. Loss is
// floored at zero: search-depth asymmetry can otherwise yield small
// negatives. A move the engine itself ranked first is always Best, whatever
// the numbers say.
func Classify(pre, post *uci.EvaluationRecord, playedUCI string, th Thresholds) (Judgment, error) {
	if pre.Best() == nil || post.Best() == nil {
		return Judgment{}, fmt.Errorf("classify %q: evaluation record has no scored lines", playedUCI)
	}

	best := pre.Score().Normalized()
	played := post.Score().Negate().Normalized()

	loss := best - played
	if loss < 0 {
		loss = 0
	}

	j := Judgment{LossCP: loss, BestMove: pre.BestMove}

	if playedUCI != "" && playedUCI == pre.BestMove {
		j.Label = LabelBest
		return j, nil
	}

	switch {
	case loss == 0:
		j.Label = LabelBest
	case loss <= th.Excellent:
		j.Label = LabelExcellent
	case loss <= th.Good:
		j.Label = LabelGood
	case loss <= th.Inaccuracy:
		j.Label = LabelInaccuracy
	case loss <= th.Mistake:
		j.Label = LabelMistake
	default:
		j.Label = LabelBlunder
	}
	return j, nil
}
