package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"boardmaster/internal/game"
	"boardmaster/internal/uci"
)

// Evaluator is the session surface the pipeline drives. Satisfied by
// *uci.Session; tests substitute scripted implementations.
type Evaluator interface {
	Evaluate(ctx context.Context, fen string, limits uci.Limits) (*uci.EvaluationRecord, error)
	EngineID() string
}

// Cache is an optional store of earlier evaluations, keyed on the request
// parameters. Hits are trusted and never recomputed, which is what makes an
// aborted run resumable.
type Cache interface {
	Lookup(fen string, depth, multipv int, engine string) (*uci.EvaluationRecord, bool)
	Put(rec *uci.EvaluationRecord, depth, multipv int) error
}

// Progress receives (done, total) after each node.
type Progress func(done, total int)

// Config controls one pipeline run.
type Config struct {
	Limits       uci.Limits
	MultiPV      int // recorded with cached entries; shortfalls are fine
	MainlineOnly bool
	Thresholds   Thresholds
	Cache        Cache          // nil disables caching
	Progress     Progress       // nil disables reporting
	Logger       zerolog.Logger // zerolog.Nop() for silence
}

// Report accumulates the run's output: one evaluation per visited node and a
// judgment for every move with both endpoints evaluated. Entries are never
// recomputed, so a Report carried across runs resumes where it stopped.
type Report struct {
	Evals     map[game.NodeID]*uci.EvaluationRecord
	Judgments map[game.NodeID]Judgment
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{
		Evals:     make(map[game.NodeID]*uci.EvaluationRecord),
		Judgments: make(map[game.NodeID]Judgment),
	}
}

// Run walks the tree in analysis order, evaluating every position and
// classifying every move whose parent is evaluated too. Cancellation is
// observed between nodes: the in-flight evaluation is accepted as a partial
// result and the processed prefix stays intact — a cancelled run is a
// consistent prefix, not a rollback. Engine crashes and timeouts abort the
// remaining nodes the same way; the caller owns restart-and-resume policy.
func Run(ctx context.Context, ev Evaluator, tree *game.Tree, report *Report, cfg Config) error {
	order := tree.Walk(cfg.MainlineOnly)
	total := len(order)

	log := cfg.Logger
	log.Info().
		Int("nodes", total).
		Bool("mainline_only", cfg.MainlineOnly).
		Str("engine", ev.EngineID()).
		Msg("analysis started")

	for i, id := range order {
		if err := ctx.Err(); err != nil {
			log.Info().Int("done", i).Int("total", total).Msg("analysis cancelled")
			return err
		}

		node, err := tree.Node(id)
		if err != nil {
			return err
		}

		if _, ok := report.Evals[id]; !ok {
			rec, err := evaluateOnce(ctx, ev, node.FEN, cfg)
			if err != nil {
				log.Error().Err(err).Int("node", int(id)).Str("fen", node.FEN).
					Msg("analysis aborted")
				return fmt.Errorf("node %d (%s): %w", id, node.MoveSAN, err)
			}
			report.Evals[id] = rec
			if cfg.Cache != nil && !rec.Partial {
				if err := cfg.Cache.Put(rec, cfg.Limits.Depth, cfg.MultiPV); err != nil {
					log.Warn().Err(err).Msg("evaluation cache write failed")
				}
			}
			log.Debug().
				Int("node", int(id)).
				Str("move", node.MoveSAN).
				Str("score", rec.Score().String()).
				Int("depth", rec.Depth).
				Msg("position evaluated")
		}

		if !node.IsRoot() {
			if pre, ok := report.Evals[node.Parent]; ok {
				if _, done := report.Judgments[id]; !done {
					j, err := Classify(pre, report.Evals[id], node.MoveUCI, cfg.Thresholds)
					if err != nil {
						return err
					}
					report.Judgments[id] = j
				}
			}
		}

		if cfg.Progress != nil {
			cfg.Progress(i+1, total)
		}
	}

	log.Info().Int("nodes", total).Msg("analysis complete")
	return nil
}

// evaluateOnce resolves one position: cache first, then the engine, with a
// single retry on a protocol hiccup. A second consecutive protocol failure
// escalates; transport failures escalate immediately.
func evaluateOnce(ctx context.Context, ev Evaluator, fen string, cfg Config) (*uci.EvaluationRecord, error) {
	depth := cfg.Limits.Depth
	if cfg.Cache != nil {
		if rec, ok := cfg.Cache.Lookup(fen, depth, cfg.MultiPV, ev.EngineID()); ok {
			return rec, nil
		}
	}

	rec, err := ev.Evaluate(ctx, fen, cfg.Limits)
	if errors.Is(err, uci.ErrProtocol) {
		cfg.Logger.Warn().Err(err).Str("fen", fen).Msg("protocol error, retrying once")
		rec, err = ev.Evaluate(ctx, fen, cfg.Limits)
	}
	return rec, err
}
