package store

import (
	"context"
	"fmt"

	"github.com/sarchlab/cgramap/cost"
	"github.com/sarchlab/cgramap/dfg"
	"github.com/sarchlab/cgramap/mapper"
)

var _ mapper.Observer = (*Recorder)(nil)

// Recorder archives the progress of one run. It implements mapper.Observer.
// Observer callbacks cannot fail, so the first error is kept and returned by
// Err and Finish.
type Recorder struct {
	store *Store
	ctx   context.Context
	runID int64

	attemptID  int64
	placed     int
	backtracks int

	err error
}

// BeginRun archives the inputs of a run and returns its recorder.
func (s *Store) BeginRun(ctx context.Context, info RunInfo) (*Recorder, error) {
	id, err := s.insertRun(ctx, info)
	if err != nil {
		return nil, err
	}

	return &Recorder{store: s, ctx: ctx, runID: id}, nil
}

// RunID returns the ID of the run.
func (r *Recorder) RunID() int64 {
	return r.runID
}

// Err returns the first error met while recording.
func (r *Recorder) Err() error {
	return r.err
}

func (r *Recorder) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// AttemptStarted archives a new attempt.
func (r *Recorder) AttemptStarted(s mapper.Strategy, ii int) {
	if r.err != nil {
		return
	}

	res, err := r.store.db.ExecContext(r.ctx,
		`INSERT INTO attempts(run_id, strategy, ii) VALUES (?, ?, ?)`,
		r.runID, string(s), ii)
	if err != nil {
		r.fail(fmt.Errorf("insert attempt: %w", err))
		return
	}

	r.attemptID, err = res.LastInsertId()
	if err != nil {
		r.fail(fmt.Errorf("insert attempt: %w", err))
		return
	}

	r.placed = 0
	r.backtracks = 0
}

// NodePlaced counts a placement of the current attempt.
func (r *Recorder) NodePlaced(*dfg.Node, cost.Candidate) {
	r.placed++
}

// Backtracked counts a backtrack of the current attempt.
func (r *Recorder) Backtracked(*dfg.Node) {
	r.backtracks++
}

// AttemptFinished archives the outcome of the current attempt.
func (r *Recorder) AttemptFinished(_ mapper.Strategy, _ int, ok bool) {
	if r.err != nil {
		return
	}

	_, err := r.store.db.ExecContext(r.ctx,
		`UPDATE attempts SET placed = ?, backtracks = ?, ok = ? WHERE id = ?`,
		r.placed, r.backtracks, ok, r.attemptID)
	if err != nil {
		r.fail(fmt.Errorf("update attempt: %w", err))
	}
}

// Finish archives the outcome of the run. A nil result marks the run as
// failed.
func (r *Recorder) Finish(res *mapper.Result) error {
	if r.err != nil {
		return r.err
	}

	tx, err := r.store.db.BeginTx(r.ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if res == nil {
		_, err = tx.ExecContext(r.ctx,
			`UPDATE runs SET ok = 0 WHERE id = ?`, r.runID)
		if err != nil {
			return fmt.Errorf("update run: %w", err)
		}

		return tx.Commit()
	}

	_, err = tx.ExecContext(r.ctx,
		`UPDATE runs SET ok = 1, ii = ? WHERE id = ?`, res.II, r.runID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	placeStmt, err := tx.PrepareContext(r.ctx, `INSERT INTO placements(
		run_id, node_id, opcode, tile, x, y, cycle) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare placement insert: %w", err)
	}
	defer placeStmt.Close()

	for _, p := range res.Placements {
		t := res.Grid.Tile(p.Tile)

		_, err := placeStmt.ExecContext(r.ctx, r.runID,
			p.Node.ID, p.Node.Opcode, int(p.Tile), t.X, t.Y, p.Cycle)
		if err != nil {
			return fmt.Errorf("insert placement: %w", err)
		}
	}

	routeStmt, err := tx.PrepareContext(r.ctx, `INSERT INTO routes(
		run_id, producer, consumer, backedge, latency, path) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare route insert: %w", err)
	}
	defer routeStmt.Close()

	for _, rt := range res.Routes {
		_, err := routeStmt.ExecContext(r.ctx, r.runID,
			rt.Producer.ID, rt.Consumer.ID, rt.Backedge,
			rt.Path.Latency(), rt.Path.String())
		if err != nil {
			return fmt.Errorf("insert route: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}

	return nil
}
