package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"boardmaster/internal/game"
	"boardmaster/internal/puzzle"
)

var (
	puzzleMinLoss int
	puzzlePlies   int
	puzzleSide    string
	puzzleJSON    bool
)

var puzzlesCmd = &cobra.Command{
	Use:   "puzzles <game.pgn>",
	Short: "Extract practice puzzles from a game's blunders",
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

		side, err := parseSide(puzzleSide)
		if err != nil {
			return err
		}

		report, runErr := analyzeTree(tree, th)
		if runErr != nil && len(report.Evals) == 0 {
			return runErr
		}
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "[puzzles] Analysis incomplete: %v\n", runErr)
		}

		candidates := puzzle.Extract(tree, report, puzzle.Config{
			MinLossCP:         puzzleMinLoss,
			ContinuationPlies: puzzlePlies,
			Side:              side,
		})

		if puzzleJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(candidates)
		}

		if len(candidates) == 0 {
			fmt.Printf("No puzzles: no move lost %d+ centipawns.\n", puzzleMinLoss)
			return nil
		}
		for i, c := range candidates {
			line := strings.Join(c.Continuation, " ")
			if san, err := game.SANLine(c.FEN, c.Continuation); err == nil && len(san) > 0 {
				line = strings.Join(san, " ")
			}
			fmt.Printf("  %d. ply %d (%s, loss %d)\n     %s\n     find: %s\n",
				i+1, c.Ply, c.Label, c.LossCP, c.FEN, line)
		}
		return nil
	},
}

func init() {
	addAnalysisFlags(puzzlesCmd)
	puzzlesCmd.Flags().IntVar(&puzzleMinLoss, "min-loss", 100, "Minimum centipawn loss to qualify")
	puzzlesCmd.Flags().IntVar(&puzzlePlies, "plies", 3, "Continuation length in plies")
	puzzlesCmd.Flags().StringVar(&puzzleSide, "side", "both", "Whose mistakes to harvest: white, black, both")
	puzzlesCmd.Flags().BoolVar(&puzzleJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(puzzlesCmd)
}

func parseSide(s string) (puzzle.Side, error) {
	switch strings.ToLower(s) {
	case "white", "w":
		return puzzle.SideWhite, nil
	case "black", "b":
		return puzzle.SideBlack, nil
	case "both", "":
		return puzzle.SideBoth, nil
	default:
		return puzzle.SideBoth, fmt.Errorf("--side %q: want white, black, or both", s)
	}
}
