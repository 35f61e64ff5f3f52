package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/notnil/chess"
	"github.com/spf13/cobra"

	"boardmaster/internal/analysis"
	"boardmaster/internal/game"
	"boardmaster/internal/store"
	"boardmaster/internal/uci"
)

var (
	reviewDepth      int
	reviewMoveTimeMS int
	reviewLines      int
	reviewThreads    int
	reviewHashMB     int
	reviewVariations bool
	reviewNoCache    bool
	reviewThresholds string
	reviewJSON       bool
)

var reviewCmd = &cobra.Command{
	Use:   "review <game.pgn>",
	Short: "Analyze every move of a game and annotate it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := loadTree(args[0])
		if err != nil {
			return err
		}

		th, err := parseThresholds(reviewThresholds)
		if err != nil {
			return err
		}

		report, runErr := analyzeTree(tree, th)
		if runErr != nil && len(report.Evals) == 0 {
			return runErr
		}
		if runErr != nil {
			// Completed analysis stays visible; never discard prior results.
			fmt.Fprintf(os.Stderr, "[review] Analysis incomplete: %v\n", runErr)
		}

		summary := analysis.Summarize(tree, report)

		if reviewJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(reviewOutput(tree, report, summary))
		}

		printMoveList(tree, report)
		printSummary(summary)
		return nil
	},
}

// addAnalysisFlags registers the engine/search flags shared by every command
// that runs the pipeline.
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&reviewDepth, "depth", 18, "Max search depth per position")
	cmd.Flags().IntVar(&reviewMoveTimeMS, "movetime", 0, "Time per position in ms (0 = depth-bounded only)")
	cmd.Flags().IntVar(&reviewLines, "lines", 3, "Principal variations per position")
	cmd.Flags().IntVar(&reviewThreads, "threads", 0, "Engine thread count (0 = engine default)")
	cmd.Flags().IntVar(&reviewHashMB, "hash", 0, "Engine hash table MB (0 = engine default)")
	cmd.Flags().BoolVar(&reviewVariations, "variations", false, "Analyze side variations too")
	cmd.Flags().BoolVar(&reviewNoCache, "no-cache", false, "Skip the evaluation cache")
	cmd.Flags().StringVar(&reviewThresholds, "thresholds", "20,50,100,300",
		"Label boundaries in centipawn loss: excellent,good,inaccuracy,mistake")
}

func init() {
	addAnalysisFlags(reviewCmd)
	reviewCmd.Flags().BoolVar(&reviewJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(reviewCmd)
}

// loadTree reads and decodes a PGN file into a game tree.
func loadTree(path string) (*game.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening game file: %w", err)
	}
	defer f.Close()

	pgn, err := chess.PGN(f)
	if err != nil {
		return nil, fmt.Errorf("parsing PGN %s: %w", path, err)
	}
	return game.FromGame(chess.NewGame(pgn))
}

// parseThresholds parses "20,50,100,300" into classifier boundaries.
func parseThresholds(s string) (analysis.Thresholds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return analysis.Thresholds{}, fmt.Errorf("--thresholds wants 4 values, got %q", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return analysis.Thresholds{}, fmt.Errorf("--thresholds value %q: want a non-negative integer", p)
		}
		vals[i] = n
	}
	return analysis.Thresholds{
		Excellent:  vals[0],
		Good:       vals[1],
		Inaccuracy: vals[2],
		Mistake:    vals[3],
	}, nil
}

// analyzeTree runs the full pipeline over the tree: engine discovery, session
// setup, cached resume, progress reporting, and run bookkeeping. Ctrl-C
// cancels cooperatively; the processed prefix is kept and recorded.
func analyzeTree(tree *game.Tree, th analysis.Thresholds) (*analysis.Report, error) {
	report := analysis.NewReport()

	path, err := FindEngine()
	if err != nil {
		return report, err
	}

	session, err := uci.NewSession(path, uci.DefaultVocabulary())
	if err != nil {
		return report, err
	}
	defer session.Close()

	if err := session.Configure(uci.Options{
		SearchDepth: reviewDepth,
		MultiPV:     reviewLines,
		Threads:     reviewThreads,
		HashMB:      reviewHashMB,
	}); err != nil {
		return report, fmt.Errorf("configuring engine: %w", err)
	}
	if err := session.NewGame(); err != nil {
		return report, fmt.Errorf("resetting engine: %w", err)
	}

	var cache *store.DB
	if !reviewNoCache {
		cache, err = OpenCache()
		if err != nil {
			fmt.Fprintf(os.Stderr, "[review] Cache unavailable: %v\n", err)
		}
		if cache != nil {
			defer cache.Close()
		}
	}

	cfg := analysis.Config{
		Limits: uci.Limits{
			Depth:    reviewDepth,
			MoveTime: time.Duration(reviewMoveTimeMS) * time.Millisecond,
		},
		MultiPV:      reviewLines,
		MainlineOnly: !reviewVariations,
		Thresholds:   th,
		Logger:       newLogger(),
		Progress: func(done, total int) {
			fmt.Fprintf(os.Stderr, "\r[review] Analyzing %d/%d", done, total)
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		},
	}
	if cache != nil {
		cfg.Cache = cache
	}

	var runID string
	if cache != nil {
		runID, _ = cache.BeginRun("review", session.EngineID(), len(tree.Walk(cfg.MainlineOnly)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runErr := analysis.Run(ctx, session, tree, report, cfg)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		fmt.Fprintln(os.Stderr)
	}

	if cache != nil && runID != "" {
		status := "complete"
		switch {
		case errors.Is(runErr, context.Canceled):
			status = "cancelled"
		case runErr != nil:
			status = "failed"
		}
		_ = cache.FinishRun(runID, status, len(report.Evals))
	}

	if errors.Is(runErr, context.Canceled) {
		// A cancelled run is a consistent prefix, not a failure.
		fmt.Fprintf(os.Stderr, "\n[review] Cancelled after %d positions\n", len(report.Evals))
		return report, nil
	}
	return report, runErr
}

// moveNumber renders "1." / "1..." for a node's ply.
func moveNumber(n *game.Node) string {
	num := (n.Ply + 1) / 2
	if n.WhiteMoved() {
		return fmt.Sprintf("%d.", num)
	}
	return fmt.Sprintf("%d...", num)
}

func printMoveList(tree *game.Tree, report *analysis.Report) {
	for _, id := range tree.Mainline() {
		node, _ := tree.Node(id)
		if node.IsRoot() {
			continue
		}

		line := fmt.Sprintf("  %-6s %-8s", moveNumber(node), node.MoveSAN)

		if j, ok := report.Judgments[id]; ok {
			line += fmt.Sprintf(" %s %-10s loss %-4d", j.Label.Glyph(), j.Label, j.LossCP)
			if j.Label != analysis.LabelBest && j.BestMove != "" {
				parent, _ := tree.Node(node.Parent)
				if san, err := game.SANLine(parent.FEN, []string{j.BestMove}); err == nil && len(san) > 0 {
					line += fmt.Sprintf("  (best %s)", san[0])
				}
			}
		}
		if rec, ok := report.Evals[id]; ok {
			// The record scores the post-move position from the side to
			// move; flip after White's moves so the column reads from
			// White's perspective throughout.
			score := rec.Score()
			if node.WhiteMoved() {
				score = score.Negate()
			}
			line += "  " + score.String()
		}

		fmt.Println(line)
	}
}

func printSummary(s analysis.Summary) {
	fmt.Println("\n  SUMMARY")
	fmt.Println("  ────────────────────────────────────────")
	printSide := func(name string, st analysis.SideStats) {
		fmt.Printf("  %-5s accuracy %.2f  ", name, st.Accuracy)
		for _, l := range []analysis.Label{
			analysis.LabelBest, analysis.LabelExcellent, analysis.LabelGood,
			analysis.LabelInaccuracy, analysis.LabelMistake, analysis.LabelBlunder,
		} {
			if n := st.ByLabel[l]; n > 0 {
				fmt.Printf("%s:%d ", l, n)
			}
		}
		fmt.Println()
	}
	printSide("White", s.White)
	printSide("Black", s.Black)
}

// reviewJSONMove is one annotated ply in JSON output.
type reviewJSONMove struct {
	Ply    int    `json:"ply"`
	SAN    string `json:"san"`
	UCI    string `json:"uci"`
	Label  string `json:"label,omitempty"`
	LossCP *int   `json:"loss_cp,omitempty"`
	Best   string `json:"best,omitempty"`
	Score  string `json:"score,omitempty"`
	Depth  int    `json:"depth,omitempty"`
}

func reviewOutput(tree *game.Tree, report *analysis.Report, summary analysis.Summary) any {
	var moves []reviewJSONMove
	for _, id := range tree.Mainline() {
		node, _ := tree.Node(id)
		if node.IsRoot() {
			continue
		}
		m := reviewJSONMove{Ply: node.Ply, SAN: node.MoveSAN, UCI: node.MoveUCI}
		if j, ok := report.Judgments[id]; ok {
			m.Label = j.Label.String()
			loss := j.LossCP
			m.LossCP = &loss
			m.Best = j.BestMove
		}
		if rec, ok := report.Evals[id]; ok {
			m.Score = rec.Score().String()
			m.Depth = rec.Depth
		}
		moves = append(moves, m)
	}
	return struct {
		Moves   []reviewJSONMove `json:"moves"`
		Summary analysis.Summary `json:"summary"`
	}{moves, summary}
}
