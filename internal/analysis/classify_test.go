package analysis

import (
	"testing"

	"boardmaster/internal/uci"
)

// rec builds a minimal single-PV record.
func rec(score uci.Score, best string) *uci.EvaluationRecord {
	return &uci.EvaluationRecord{
		Depth:    12,
		BestMove: best,
		PVs: []uci.PrincipalVariation{
			{Rank: 1, Depth: 12, Score: score, Moves: []string{best}},
		},
	}
}

func TestClassifyThresholds(t *testing.T) {
	th := DefaultThresholds()

	// pre is from the mover's perspective, post from the opponent's. A post
	// score of -x means the mover kept +x.
	tests := []struct {
		name     string
		preCP    int
		postCP   int
		wantLoss int
		want     Label
	}{
		{"no loss", 30, -30, 0, LabelBest},
		{"tiny loss", 30, -15, 15, LabelExcellent},
		{"boundary excellent", 30, -10, 20, LabelExcellent},
		{"good", 30, 5, 35, LabelGood},
		{"boundary good", 50, 0, 50, LabelGood},
		{"inaccuracy", 40, 40, 80, LabelInaccuracy},
		{"mistake", 50, 100, 150, LabelMistake},
		{"boundary mistake", 0, 300, 300, LabelMistake},
		{"blunder", 30, 350, 380, LabelBlunder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pre := rec(uci.Score{CP: tt.preCP}, "e2e4")
			post := rec(uci.Score{CP: tt.postCP}, "e7e5")
			j, err := Classify(pre, post, "d2d4", th)
			if err != nil {
				t.Fatal(err)
			}
			if j.LossCP != tt.wantLoss {
				t.Errorf("loss = %d, want %d", j.LossCP, tt.wantLoss)
			}
			if j.Label != tt.want {
				t.Errorf("label = %s, want %s", j.Label, tt.want)
			}
		})
	}
}

func TestClassifyLossFlooredAtZero(t *testing.T) {
	// Deeper post-move search found the position better than the pre-move
	// estimate. Search-depth asymmetry, not a gain: loss floors at 0.
	pre := rec(uci.Score{CP: 20}, "e2e4")
	post := rec(uci.Score{CP: -45}, "e7e5")
	j, err := Classify(pre, post, "d2d4", DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	if j.LossCP != 0 {
		t.Errorf("loss = %d, want 0", j.LossCP)
	}
	if j.Label != LabelBest {
		t.Errorf("label = %s, want best", j.Label)
	}
}

func TestClassifyEngineChoiceAlwaysBest(t *testing.T) {
	// The engine's own top move classifies Best even when the numbers
	// disagree (floating noise between searches).
	pre := rec(uci.Score{CP: 100}, "e2e4")
	post := rec(uci.Score{CP: 40}, "e7e5") // implies 60cp loss
	j, err := Classify(pre, post, "e2e4", DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	if j.Label != LabelBest {
		t.Errorf("label = %s, want best", j.Label)
	}
	if j.LossCP != 60 {
		t.Errorf("loss = %d, want 60 (loss is reported, label overridden)", j.LossCP)
	}
}

func TestClassifyMissedMate(t *testing.T) {
	// Mate in 2 was available; the move played leaves a mere +2.
	pre := rec(uci.Score{Mate: 2}, "d1h5")
	post := rec(uci.Score{CP: -200}, "g8f6")
	j, err := Classify(pre, post, "a2a3", DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	if j.Label != LabelBlunder {
		t.Errorf("label = %s, want blunder", j.Label)
	}
	if j.LossCP <= 300 {
		t.Errorf("missed mate loss = %d, should dominate any threshold", j.LossCP)
	}
}

func TestClassifySlowerMateIsSmallLoss(t *testing.T) {
	// Mate in 2 available, played into mate in 3: still winning, small loss.
	pre := rec(uci.Score{Mate: 2}, "d1h5")
	post := rec(uci.Score{Mate: -2}, "g8f6") // opponent mated in 2 -> mover mates in 3
	j, err := Classify(pre, post, "h5f7", DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	if j.LossCP != 0 {
		t.Errorf("loss = %d, want 0 (19980 - 19980)", j.LossCP)
	}
}

func TestClassifyContractViolation(t *testing.T) {
	empty := &uci.EvaluationRecord{}
	good := rec(uci.Score{CP: 0}, "e2e4")
	if _, err := Classify(empty, good, "e2e4", DefaultThresholds()); err == nil {
		t.Error("classify accepted a record with no scored lines")
	}
	if _, err := Classify(good, empty, "e2e4", DefaultThresholds()); err == nil {
		t.Error("classify accepted a record with no scored lines")
	}
}

func TestClassifyBestMoveSuggestionCarried(t *testing.T) {
	pre := rec(uci.Score{CP: 80}, "g1f3")
	post := rec(uci.Score{CP: 320}, "d7d5")
	j, err := Classify(pre, post, "h2h4", DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	if j.BestMove != "g1f3" {
		t.Errorf("BestMove = %q, want the pre-move suggestion g1f3", j.BestMove)
	}
}
