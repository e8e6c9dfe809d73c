// Package store archives mapping runs in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at_unix_ms INTEGER NOT NULL,
	dfg TEXT NOT NULL,
	arch TEXT NOT NULL,
	strategy TEXT NOT NULL,
	elastic INTEGER NOT NULL,
	start_ii INTEGER NOT NULL,
	nodes INTEGER NOT NULL,
	ok INTEGER NOT NULL DEFAULT 0,
	ii INTEGER
);

CREATE TABLE IF NOT EXISTS attempts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id),
	strategy TEXT NOT NULL,
	ii INTEGER NOT NULL,
	placed INTEGER NOT NULL DEFAULT 0,
	backtracks INTEGER NOT NULL DEFAULT 0,
	ok INTEGER
);
CREATE INDEX IF NOT EXISTS idx_attempts_run ON attempts(run_id);

CREATE TABLE IF NOT EXISTS placements (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	node_id INTEGER NOT NULL,
	opcode TEXT NOT NULL,
	tile INTEGER NOT NULL,
	x INTEGER NOT NULL,
	y INTEGER NOT NULL,
	cycle INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_placements_run ON placements(run_id);

CREATE TABLE IF NOT EXISTS routes (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	producer INTEGER NOT NULL,
	consumer INTEGER NOT NULL,
	backedge INTEGER NOT NULL,
	latency INTEGER NOT NULL,
	path TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_routes_run ON routes(run_id);
`

// Store is a mapping archive.
type Store struct {
	db *sql.DB
}

// Open opens or creates the archive at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) init() error {
	pragmas := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA foreign_keys=ON;`,
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma failed (%s): %w", p, err)
		}
	}

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create store schema: %w", err)
	}

	return nil
}

// Close closes the archive.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// RunInfo describes the inputs of a run.
type RunInfo struct {
	DFG      string
	Arch     string
	Strategy string
	Elastic  bool
	StartII  int
	Nodes    int
}

// Run is an archived run.
type Run struct {
	ID        int64
	CreatedAt time.Time
	RunInfo
	OK bool
	// II is zero when no mapping was found.
	II int
}

// Attempt is one II tried by a strategy.
type Attempt struct {
	ID         int64
	RunID      int64
	Strategy   string
	II         int
	Placed     int
	Backtracks int
	OK         bool
}

// PlacementRow is an archived placement.
type PlacementRow struct {
	NodeID int
	Opcode string
	Tile   int
	X, Y   int
	Cycle  int
}

// RouteRow is an archived route.
type RouteRow struct {
	Producer, Consumer int
	Backedge           bool
	Latency            int
	Path               string
}

func (s *Store) insertRun(ctx context.Context, info RunInfo) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO runs(
		created_at_unix_ms, dfg, arch, strategy, elastic, start_ii, nodes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UnixMilli(), info.DFG, info.Arch, info.Strategy,
		info.Elastic, info.StartII, info.Nodes)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	return id, nil
}

// Runs lists the archived runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, created_at_unix_ms, dfg, arch, strategy, elastic, start_ii, nodes,
		ok, COALESCE(ii, 0)
		FROM runs ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			createdAt int64
		)

		err := rows.Scan(&r.ID, &createdAt, &r.DFG, &r.Arch, &r.Strategy,
			&r.Elastic, &r.StartII, &r.Nodes, &r.OK, &r.II)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		r.CreatedAt = time.UnixMilli(createdAt)
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	return runs, nil
}

// Attempts lists the attempts of a run in the order they were made.
func (s *Store) Attempts(ctx context.Context, runID int64) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, run_id, strategy, ii, placed, backtracks, COALESCE(ok, 0)
		FROM attempts WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		err := rows.Scan(&a.ID, &a.RunID, &a.Strategy, &a.II,
			&a.Placed, &a.Backtracks, &a.OK)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}

		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}

	return attempts, nil
}

// Placements lists the placements of a run by node ID.
func (s *Store) Placements(ctx context.Context, runID int64) ([]PlacementRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		node_id, opcode, tile, x, y, cycle
		FROM placements WHERE run_id = ? ORDER BY node_id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query placements: %w", err)
	}
	defer rows.Close()

	var placements []PlacementRow
	for rows.Next() {
		var p PlacementRow
		if err := rows.Scan(&p.NodeID, &p.Opcode, &p.Tile, &p.X, &p.Y, &p.Cycle); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}

		placements = append(placements, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query placements: %w", err)
	}

	return placements, nil
}

// Routes lists the routes of a run in commit order.
func (s *Store) Routes(ctx context.Context, runID int64) ([]RouteRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		producer, consumer, backedge, latency, path
		FROM routes WHERE run_id = ? ORDER BY rowid ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()

	var routes []RouteRow
	for rows.Next() {
		var r RouteRow
		if err := rows.Scan(&r.Producer, &r.Consumer, &r.Backedge, &r.Latency, &r.Path); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}

		routes = append(routes, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}

	return routes, nil
}
