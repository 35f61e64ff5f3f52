package uci

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Vocabulary is the engine's sentinel-token set. The defaults speak UCI, but
// the tokens are configuration so a nonstandard engine can be plugged in
// without touching the session.
type Vocabulary struct {
	Init       string // handshake request
	InitOK     string // handshake terminal line
	Ready      string // readiness probe
	ReadyOK    string // readiness terminal line
	SetOption  string // option-setting command prefix
	NewGame    string // new-game notification
	Position   string // position-load command prefix
	Search     string // search-start command prefix
	StopSearch string // search-stop command
	Quit       string // polite shutdown command
	Info       string // search-progress line prefix
	BestMove   string // search-complete line prefix
	IDName     string // identity line prefix in the handshake
}

// DefaultVocabulary returns the standard UCI token set.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Init:       "uci",
		InitOK:     "uciok",
		Ready:      "isready",
		ReadyOK:    "readyok",
		SetOption:  "setoption",
		NewGame:    "ucinewgame",
		Position:   "position",
		Search:     "go",
		StopSearch: "stop",
		Quit:       "quit",
		Info:       "info",
		BestMove:   "bestmove",
		IDName:     "id name",
	}
}

// Options are the engine configuration knobs. Zero values are left at the
// engine's defaults. Ranges beyond non-negativity are the engine's concern.
type Options struct {
	SearchDepth int // default max ply per evaluation when Limits.Depth is 0
	MultiPV     int // number of principal variations requested
	Threads     int // worker count hint
	HashMB      int // hash-table size hint
}

// Limits bounds a single evaluation.
type Limits struct {
	Depth    int
	MoveTime time.Duration
}

// PrincipalVariation is one candidate line with its own score.
type PrincipalVariation struct {
	Rank  int      `json:"rank"`
	Depth int      `json:"depth"`
	Score Score    `json:"score"`
	Moves []string `json:"moves"`
}

// EvaluationRecord is the result of evaluating one position. Immutable after
// creation; produced once per position per analysis run.
type EvaluationRecord struct {
	FEN      string               `json:"fen"`
	Depth    int                  `json:"depth"`
	PVs      []PrincipalVariation `json:"pvs"`
	BestMove string               `json:"best_move"`
	Engine   string               `json:"engine"`
	Partial  bool                 `json:"partial,omitempty"` // cancelled mid-search
}

// Best returns the top-ranked principal variation, or nil if none.
func (r *EvaluationRecord) Best() *PrincipalVariation {
	if r == nil || len(r.PVs) == 0 {
		return nil
	}
	return &r.PVs[0]
}

// Score returns the top-ranked score from the side to move's perspective.
func (r *EvaluationRecord) Score() Score {
	if pv := r.Best(); pv != nil {
		return pv.Score
	}
	return Score{}
}

// transport is the handle surface the session needs. Satisfied by *Handle;
// tests substitute a scripted implementation.
type transport interface {
	Send(line string) error
	ReadUntil(ctx context.Context, cancelCmd string, pred func(string) bool, ceiling time.Duration) ([]string, bool, error)
	Stop(polite string, grace time.Duration)
}

const (
	// defaultReadCeiling bounds depth-limited searches, which carry no time
	// hint of their own.
	defaultReadCeiling = 2 * time.Minute

	// readMargin is added on top of a movetime bound: the engine owes a
	// terminal line shortly after its own clock expires.
	readMargin = 5 * time.Second

	// stopGrace is how long Close waits after the polite quit before killing.
	stopGrace = 3 * time.Second

	// handshakeCeiling bounds the init/ready exchange at startup.
	handshakeCeiling = 10 * time.Second
)

// Session drives one engine subprocess through its line protocol. Exactly one
// session owns one handle; concurrent Evaluate calls are not supported and
// must be serialized by the caller.
type Session struct {
	tr       transport
	vocab    Vocabulary
	opts     Options
	engineID string
}

// NewSession starts the engine at path and performs the protocol handshake.
// The subprocess is torn down again if the handshake fails.
func NewSession(path string, vocab Vocabulary) (*Session, error) {
	h := NewHandle()
	if err := h.Start(path); err != nil {
		return nil, err
	}
	s := &Session{tr: h, vocab: vocab}
	if err := s.handshake(); err != nil {
		h.Stop(vocab.Quit, stopGrace)
		return nil, err
	}
	return s, nil
}

// newSessionTransport wires a session over an existing transport. Test seam.
func newSessionTransport(tr transport, vocab Vocabulary) *Session {
	return &Session{tr: tr, vocab: vocab}
}

func (s *Session) handshake() error {
	if err := s.tr.Send(s.vocab.Init); err != nil {
		return err
	}
	lines, _, err := s.tr.ReadUntil(context.Background(), "", prefixPredicate(s.vocab.InitOK), handshakeCeiling)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if strings.HasPrefix(line, s.vocab.IDName) {
			s.engineID = strings.TrimSpace(strings.TrimPrefix(line, s.vocab.IDName))
		}
	}
	return s.sync()
}

// sync sends the readiness probe and waits for its terminal line.
func (s *Session) sync() error {
	if err := s.tr.Send(s.vocab.Ready); err != nil {
		return err
	}
	_, _, err := s.tr.ReadUntil(context.Background(), "", prefixPredicate(s.vocab.ReadyOK), handshakeCeiling)
	return err
}

// EngineID returns the identity string captured during the handshake.
func (s *Session) EngineID() string { return s.engineID }

// Configure sends one option command per non-zero field. Negative values are
// rejected here; anything else out of range is the engine's concern.
func (s *Session) Configure(opts Options) error {
	if opts.SearchDepth < 0 || opts.MultiPV < 0 || opts.Threads < 0 || opts.HashMB < 0 {
		return fmt.Errorf("%w: negative option value %+v", ErrProtocol, opts)
	}

	type opt struct {
		name  string
		value int
	}
	for _, o := range []opt{
		{"MultiPV", opts.MultiPV},
		{"Threads", opts.Threads},
		{"Hash", opts.HashMB},
	} {
		if o.value == 0 {
			continue
		}
		cmd := fmt.Sprintf("%s name %s value %d", s.vocab.SetOption, o.name, o.value)
		if err := s.tr.Send(cmd); err != nil {
			return err
		}
	}
	// SearchDepth is not an engine option; it becomes the default search
	// bound for evaluations issued without explicit limits.
	s.opts = opts

	return s.sync()
}

// NewGame tells the engine a fresh game follows. Called once per analysis run
// so per-game engine state (hash entries, history) doesn't bleed across runs.
func (s *Session) NewGame() error {
	if err := s.tr.Send(s.vocab.NewGame); err != nil {
		return err
	}
	return s.sync()
}

// Evaluate runs one bounded search on the given position and returns the
// record built from the final (deepest) result line per multipv rank before
// the search-complete sentinel. Cancelling ctx sends the stop command and
// returns the best partial record obtained so far with Partial set — a
// degraded success, not an error.
func (s *Session) Evaluate(ctx context.Context, fen string, limits Limits) (*EvaluationRecord, error) {
	if err := s.tr.Send(s.vocab.Position + " fen " + fen); err != nil {
		return nil, err
	}

	depth := limits.Depth
	if depth == 0 {
		depth = s.opts.SearchDepth
	}
	search := s.vocab.Search
	if depth > 0 {
		search += fmt.Sprintf(" depth %d", depth)
	}
	if limits.MoveTime > 0 {
		search += fmt.Sprintf(" movetime %d", limits.MoveTime.Milliseconds())
	}
	if err := s.tr.Send(search); err != nil {
		return nil, err
	}

	ceiling := defaultReadCeiling
	if limits.MoveTime > 0 {
		ceiling = limits.MoveTime + readMargin
	}

	// The transport forwards a cancellation as the stop command; the engine
	// then finishes promptly with its best-so-far terminal line. A record is
	// partial only when the stop went out before that line was consumed: a
	// search whose result arrived first stays complete whatever the context
	// does afterwards.
	lines, interrupted, err := s.tr.ReadUntil(ctx, s.vocab.StopSearch, prefixPredicate(s.vocab.BestMove), ceiling)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", fen, err)
	}

	rec, err := s.buildRecord(fen, lines)
	if err != nil {
		return nil, err
	}
	// A cancelled evaluation is a degraded success, not an error.
	rec.Partial = interrupted
	return rec, nil
}

// buildRecord folds the raw output lines into an EvaluationRecord, keeping
// the deepest info line seen for each multipv rank (later lines win ties).
// Tied scores keep the engine's own reported rank order; no secondary sort.
func (s *Session) buildRecord(fen string, lines []string) (*EvaluationRecord, error) {
	byRank := make(map[int]infoLine)
	var bestMove string

	for _, line := range lines {
		if info, ok := parseInfo(line, s.vocab); ok {
			if prev, seen := byRank[info.rank]; !seen || info.depth >= prev.depth {
				byRank[info.rank] = info
			}
			continue
		}
		if strings.HasPrefix(line, s.vocab.BestMove) {
			bestMove = parseBestMove(line, s.vocab)
		}
	}

	if len(byRank) == 0 {
		return nil, fmt.Errorf("no scored lines in %d output lines for %q: %w",
			len(lines), fen, ErrProtocol)
	}

	ranks := make([]int, 0, len(byRank))
	for r := range byRank {
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)

	rec := &EvaluationRecord{
		FEN:      fen,
		BestMove: bestMove,
		Engine:   s.engineID,
	}
	for _, r := range ranks {
		info := byRank[r]
		rec.PVs = append(rec.PVs, PrincipalVariation{
			Rank:  r,
			Depth: info.depth,
			Score: info.score,
			Moves: info.moves,
		})
		if info.depth > rec.Depth {
			rec.Depth = info.depth
		}
	}
	if rec.BestMove == "" && len(rec.PVs[0].Moves) > 0 {
		rec.BestMove = rec.PVs[0].Moves[0]
	}
	return rec, nil
}

// Cancel sends the search-stop command to the in-flight search. The blocked
// Evaluate call then returns its partial record.
func (s *Session) Cancel() error {
	return s.tr.Send(s.vocab.StopSearch)
}

// Close shuts the engine down: polite quit, grace period, then force kill.
// Idempotent; must run on every exit path to avoid leaking the subprocess.
func (s *Session) Close() {
	s.tr.Stop(s.vocab.Quit, stopGrace)
}
