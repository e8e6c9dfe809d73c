package mapper

import (
	"log/slog"

	"github.com/sarchlab/cgramap/dfg"
)

// Exhaustive searches placements depth first in DFS order and backtracks
// over every ranked candidate. It tries each II from the start II up to the
// cap and reports failure when no II admits a mapping.
func (m *Mapper) Exhaustive(startII int) (*Result, bool) {
	first := m.StartII(startII)
	last := max(first, m.maxII)
	order := m.dfg.DFSOrder()

	for ii := first; ii <= last; ii++ {
		ctx := NewMappingContext(m.dfg, m.grid, ii, m.elastic)
		m.observer.AttemptStarted(StrategyExhaustive, ii)

		ok := m.search(ctx, order)

		m.observer.AttemptFinished(StrategyExhaustive, ii, ok)
		Trace("Attempt", "Strategy", StrategyExhaustive, "II", ii, "OK", ok)

		if ok {
			return m.result(ctx, StrategyExhaustive), true
		}
	}

	slog.Info("Exhaustive mapping failed", "FirstII", first, "LastII", last)

	return nil, false
}

// search places order[len(decisions)] and everything after it. The tables
// are rebuilt from the decision stack before every try.
func (m *Mapper) search(ctx *MappingContext, order []*dfg.Node) bool {
	m.restore(ctx)

	depth := len(ctx.Decisions())
	if depth == len(order) {
		return true
	}

	n := order[depth]
	for _, c := range m.rank(ctx, n) {
		if ctx.schedule(n, c) {
			ctx.push(n, c)
			m.placed(n, c)

			if m.search(ctx, order) {
				return true
			}

			ctx.pop()
		}

		m.restore(ctx)
	}

	m.observer.Backtracked(n)
	slog.Debug("Backtrack", "Node", n, "Depth", depth, "II", ctx.II())

	return false
}

func (m *Mapper) restore(ctx *MappingContext) {
	ctx.Rebuild(ctx.II())
	ctx.replay()
}
