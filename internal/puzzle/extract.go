// Package puzzle turns high-loss moments of a classified game into practice
// positions. Extraction is pure: it reads the analysis report and never
// touches the engine, so it can be re-run at any time with new settings.
package puzzle

import (
	"boardmaster/internal/analysis"
	"boardmaster/internal/game"
	"boardmaster/internal/uci"
)

// Side selects whose mistakes become puzzles.
type Side int

const (
	SideBoth Side = iota
	SideWhite
	SideBlack
)

// Config controls extraction.
type Config struct {
	MinLossCP         int  // judgment loss that qualifies a node
	ContinuationPlies int  // how far to follow the best line; 0 means one move
	Side              Side // side whose blunders are harvested
}

// DefaultConfig extracts both sides' mistakes-and-worse with a short
// refutation line.
func DefaultConfig() Config {
	return Config{MinLossCP: 100, ContinuationPlies: 3, Side: SideBoth}
}

// Candidate is one practice position: the position before the losing move,
// the engine's continuation, and the loss that selected it. Derived data,
// regenerable from the report at any time.
type Candidate struct {
	NodeID       game.NodeID `json:"node_id"`
	FEN          string      `json:"fen"` // position before the losing move
	Ply          int         `json:"ply"` // ply of the move that was played
	PlayedUCI    string      `json:"played"`
	LossCP       int         `json:"loss_cp"`
	Label        string      `json:"label"`
	Continuation []string    `json:"continuation"` // best line, UCI moves
}

// Extract scans the tree in analysis order and emits a candidate for every
// judgment whose loss meets the threshold and whose mover matches the side
// filter. The continuation is the pre-move record's top principal variation
// truncated to the configured depth. Output order follows ascending move
// index, so extraction is deterministic and idempotent.
func Extract(tree *game.Tree, report *analysis.Report, cfg Config) []Candidate {
	plies := cfg.ContinuationPlies
	if plies < 1 {
		plies = 1
	}

	var out []Candidate
	for _, id := range tree.Walk(false) {
		j, ok := report.Judgments[id]
		if !ok || j.LossCP < cfg.MinLossCP {
			continue
		}
		node, err := tree.Node(id)
		if err != nil || node.IsRoot() {
			continue
		}
		if cfg.Side == SideWhite && !node.WhiteMoved() {
			continue
		}
		if cfg.Side == SideBlack && node.WhiteMoved() {
			continue
		}

		pre, ok := report.Evals[node.Parent]
		if !ok {
			continue
		}
		parent, err := tree.Node(node.Parent)
		if err != nil {
			continue
		}

		line := continuation(pre, plies)
		if len(line) == 0 {
			continue
		}

		out = append(out, Candidate{
			NodeID:       id,
			FEN:          parent.FEN,
			Ply:          node.Ply,
			PlayedUCI:    node.MoveUCI,
			LossCP:       j.LossCP,
			Label:        j.Label.String(),
			Continuation: line,
		})
	}
	return out
}

// continuation follows the record's top principal variation for up to plies
// moves. A shorter line (forced mate) is returned as-is.
func continuation(rec *uci.EvaluationRecord, plies int) []string {
	pv := rec.Best()
	if pv == nil || len(pv.Moves) == 0 {
		if rec.BestMove != "" {
			return []string{rec.BestMove}
		}
		return nil
	}
	moves := pv.Moves
	if len(moves) > plies {
		moves = moves[:plies]
	}
	line := make([]string, len(moves))
	copy(line, moves)
	return line
}
