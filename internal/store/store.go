// Package store persists evaluation records between runs. A cache hit means
// the pipeline never re-asks the engine, which is what makes an aborted
// analysis resumable across process restarts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"boardmaster/internal/uci"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
	Path string
}

// Open opens (creating if needed) the database with WAL mode enabled and the
// schema migrated.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL so a reader (another review of the same game) doesn't block writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn, Path: path}, nil
}

func migrate(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS evaluations (
			fen        TEXT NOT NULL,
			depth      INTEGER NOT NULL,
			multipv    INTEGER NOT NULL,
			engine     TEXT NOT NULL,
			best_move  TEXT,
			pvs        TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (fen, depth, multipv, engine)
		);
		CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			tag         TEXT,
			engine      TEXT,
			nodes_total INTEGER NOT NULL DEFAULT 0,
			nodes_done  INTEGER NOT NULL DEFAULT 0,
			status      TEXT NOT NULL DEFAULT 'running',
			started_at  INTEGER NOT NULL,
			finished_at INTEGER
		);
	`)
	if err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// Close closes the connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Lookup returns the cached record for the exact request parameters.
// Partial records are never stored, so hits are always complete.
func (d *DB) Lookup(fen string, depth, multipv int, engine string) (*uci.EvaluationRecord, bool) {
	row := d.conn.QueryRow(`
		SELECT best_move, pvs FROM evaluations
		WHERE fen = ? AND depth = ? AND multipv = ? AND engine = ?`,
		fen, depth, multipv, engine)

	var bestMove string
	var pvsJSON string
	if err := row.Scan(&bestMove, &pvsJSON); err != nil {
		return nil, false
	}

	var pvs []uci.PrincipalVariation
	if err := json.Unmarshal([]byte(pvsJSON), &pvs); err != nil {
		return nil, false
	}

	rec := &uci.EvaluationRecord{
		FEN:      fen,
		BestMove: bestMove,
		Engine:   engine,
		PVs:      pvs,
	}
	for _, pv := range pvs {
		if pv.Depth > rec.Depth {
			rec.Depth = pv.Depth
		}
	}
	return rec, true
}

// Put stores a completed record keyed on its request parameters. The record's
// reached depth may differ from the requested depth (time-bounded searches),
// so the key depth is passed explicitly.
func (d *DB) Put(rec *uci.EvaluationRecord, depth, multipv int) error {
	pvsJSON, err := json.Marshal(rec.PVs)
	if err != nil {
		return fmt.Errorf("serializing record for %q: %w", rec.FEN, err)
	}
	_, err = d.conn.Exec(`
		INSERT OR REPLACE INTO evaluations (fen, depth, multipv, engine, best_move, pvs, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.FEN, depth, multipv, rec.Engine, rec.BestMove, string(pvsJSON),
		time.Now().Unix())
	if err != nil {
		return fmt.Errorf("storing evaluation for %q: %w", rec.FEN, err)
	}
	return nil
}

// BeginRun records the start of an analysis run and returns its ID.
func (d *DB) BeginRun(tag, engine string, nodesTotal int) (string, error) {
	id := uuid.New().String()
	_, err := d.conn.Exec(`
		INSERT INTO runs (id, tag, engine, nodes_total, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, tag, engine, nodesTotal, time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("recording run start: %w", err)
	}
	return id, nil
}

// FinishRun records a run's outcome. Status is one of "complete",
// "cancelled", "failed".
func (d *DB) FinishRun(id, status string, nodesDone int) error {
	_, err := d.conn.Exec(`
		UPDATE runs SET status = ?, nodes_done = ?, finished_at = ? WHERE id = ?`,
		status, nodesDone, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	return nil
}

// EvaluationCount returns the number of cached evaluations.
func (d *DB) EvaluationCount() (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM evaluations`).Scan(&n)
	return n, err
}
