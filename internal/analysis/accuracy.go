package analysis

import (
	"math"

	"boardmaster/internal/game"
)

// accuracyMaxLoss is the centipawn loss at which a move's accuracy reaches
// zero in an equal position. Scaled up in decided positions (a lost pawn
// matters less when already winning) and down in balanced ones.
const accuracyMaxLoss = 300.0

// moveAccuracy scores one move 0-100 from its centipawn loss and the
// evaluation of the position it was played in.
func moveAccuracy(lossCP, positionEvalCP int) float64 {
	maxLoss := accuracyMaxLoss
	abs := math.Abs(float64(positionEvalCP))
	switch {
	case abs > 200:
		maxLoss *= 1.5
	case abs < 50:
		maxLoss *= 0.8
	}

	loss := float64(lossCP)
	acc := 100 * (1 - math.Sqrt(loss/maxLoss))
	if loss > maxLoss*2 {
		acc *= 0.5
	}
	return math.Max(0, math.Min(100, acc))
}

// SideStats aggregates one side's judgments.
type SideStats struct {
	Accuracy   float64       `json:"accuracy"`
	ByLabel    map[Label]int `json:"by_label"`
	MovesRated int           `json:"moves_rated"`
}

// Summary is the per-side rollup rendered after a full-game analysis.
type Summary struct {
	White SideStats `json:"white"`
	Black SideStats `json:"black"`
}

// Summarize folds a report's mainline judgments into per-side accuracy and
// label counts. Variation nodes are excluded: accuracy describes the game as
// played.
func Summarize(tree *game.Tree, report *Report) Summary {
	s := Summary{
		White: SideStats{ByLabel: make(map[Label]int)},
		Black: SideStats{ByLabel: make(map[Label]int)},
	}
	var whiteAcc, blackAcc []float64

	for _, id := range tree.Mainline() {
		j, ok := report.Judgments[id]
		if !ok {
			continue
		}
		node, err := tree.Node(id)
		if err != nil {
			continue
		}

		posEval := 0
		if pre, ok := report.Evals[node.Parent]; ok {
			posEval = pre.Score().Normalized()
		}
		acc := moveAccuracy(j.LossCP, posEval)

		if node.WhiteMoved() {
			s.White.ByLabel[j.Label]++
			s.White.MovesRated++
			whiteAcc = append(whiteAcc, acc)
		} else {
			s.Black.ByLabel[j.Label]++
			s.Black.MovesRated++
			blackAcc = append(blackAcc, acc)
		}
	}

	s.White.Accuracy = round2(mean(whiteAcc))
	s.Black.Accuracy = round2(mean(blackAcc))
	return s
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
