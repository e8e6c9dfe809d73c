// Package mapper places the operations of a dataflow graph onto a CGRA and
// routes their dependences under a modulo schedule.
package mapper

import (
	"log/slog"
	"math"

	"github.com/sarchlab/cgramap/cgra"
	"github.com/sarchlab/cgramap/cost"
	"github.com/sarchlab/cgramap/dfg"
	"github.com/sarchlab/cgramap/mrrg"
)

// Builder can build mappers.
type Builder struct {
	elastic     bool
	maxII       int
	recMIIDelay float64
	weights     cost.Weights
	observer    Observer
}

// MakeBuilder creates a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		recMIIDelay: 1,
		weights:     cost.DefaultWeights(),
		observer:    nopObserver{},
	}
}

// WithElastic targets a static-elastic CGRA instead of a modulo-scheduled
// one.
func (b Builder) WithElastic(elastic bool) Builder {
	b.elastic = elastic
	return b
}

// WithMaxII caps the II that the strategies may try. Zero removes the cap of
// the heuristic strategy and limits the exhaustive one to its first II.
func (b Builder) WithMaxII(maxII int) Builder {
	b.maxII = maxII
	return b
}

// WithRecMIIDelay sets the delay of a dependence when computing RecMII.
func (b Builder) WithRecMIIDelay(delay float64) Builder {
	b.recMIIDelay = delay
	return b
}

// WithWeights sets the weights of the cost model.
func (b Builder) WithWeights(w cost.Weights) Builder {
	b.weights = w
	return b
}

// WithObserver sets the observer to notify about the mapping progress.
func (b Builder) WithObserver(o Observer) Builder {
	b.observer = o
	return b
}

// Build creates a mapper for the DFG and the grid.
func (b Builder) Build(d *dfg.Graph, grid *cgra.Grid) *Mapper {
	return &Mapper{
		dfg:         d,
		grid:        grid,
		elastic:     b.elastic,
		maxII:       b.maxII,
		recMIIDelay: b.recMIIDelay,
		model:       cost.NewModel(b.weights),
		observer:    b.observer,
	}
}

// Mapper maps a DFG onto a CGRA. A Mapper is not safe for concurrent use.
type Mapper struct {
	dfg         *dfg.Graph
	grid        *cgra.Grid
	elastic     bool
	maxII       int
	recMIIDelay float64
	model       cost.Model
	observer    Observer
}

// Placement tells where and when a node runs.
type Placement struct {
	Node  *dfg.Node
	Tile  cgra.TileID
	Cycle int
}

// Result is a complete mapping.
type Result struct {
	II       int
	Elastic  bool
	Strategy Strategy

	DFG        *dfg.Graph
	Grid       *cgra.Grid
	Placements []Placement
	Routes     []Route

	// Graph holds the occupancy tables of the mapping.
	Graph *mrrg.Graph
}

// Placement returns the placement of the node.
func (r *Result) Placement(n *dfg.Node) (Placement, bool) {
	for _, p := range r.Placements {
		if p.Node == n {
			return p, true
		}
	}

	return Placement{}, false
}

// ResMII is the smallest II that gives every node a functional unit slot.
func (m *Mapper) ResMII() int {
	fus := m.grid.FUCount()
	return (m.dfg.NodeCount() + fus - 1) / fus
}

// RecMII is the smallest II that fits the longest dependence cycle.
func (m *Mapper) RecMII() int {
	recMII := 0.0
	for _, c := range m.dfg.Cycles() {
		recMII = math.Max(recMII, float64(len(c))*m.recMIIDelay)
	}

	return int(math.Ceil(recMII))
}

// StartII returns the first II that a strategy tries.
func (m *Mapper) StartII(ii int) int {
	return max(ii, m.ResMII(), m.RecMII(), 1)
}

// Heuristic places the nodes greedily in DFG order. When a node cannot be
// placed, the attempt is thrown away and restarted with the next II.
// Elastic targets only try the first II.
func (m *Mapper) Heuristic(startII int) (*Result, bool) {
	ii := m.StartII(startII)
	ctx := NewMappingContext(m.dfg, m.grid, ii, m.elastic)

	for {
		if m.maxII > 0 && ii > m.maxII {
			slog.Info("Heuristic mapping failed", "MaxII", m.maxII)
			return nil, false
		}

		ctx.Rebuild(ii)
		m.observer.AttemptStarted(StrategyHeuristic, ii)

		ok := m.greedy(ctx)

		m.observer.AttemptFinished(StrategyHeuristic, ii, ok)
		Trace("Attempt", "Strategy", StrategyHeuristic, "II", ii, "OK", ok)

		if ok {
			return m.result(ctx, StrategyHeuristic), true
		}

		if m.elastic {
			return nil, false
		}

		ii++
	}
}

func (m *Mapper) greedy(ctx *MappingContext) bool {
	for _, n := range m.dfg.Nodes() {
		ranked := m.rank(ctx, n)
		if len(ranked) == 0 {
			slog.Debug("No candidate", "Node", n, "II", ctx.II())
			return false
		}

		if !ctx.schedule(n, ranked[0]) {
			return false
		}

		m.placed(n, ranked[0])
	}

	return true
}

func (m *Mapper) rank(ctx *MappingContext, n *dfg.Node) []cost.Candidate {
	return m.model.Rank(ctx, n, ctx.candidates(n))
}

func (m *Mapper) placed(n *dfg.Node, c cost.Candidate) {
	m.observer.NodePlaced(n, c)
	Trace("Place",
		"Node", n,
		"Tile", c.Tile,
		"Cycle", c.Cycle(),
		"Cost", c.Cost,
	)
}

func (m *Mapper) result(ctx *MappingContext, s Strategy) *Result {
	r := &Result{
		II:       ctx.II(),
		Elastic:  ctx.Elastic(),
		Strategy: s,
		DFG:      m.dfg,
		Grid:     m.grid,
		Routes:   append([]Route(nil), ctx.Routes()...),
		Graph:    ctx.MRRG(),
	}

	for _, n := range m.dfg.Nodes() {
		t, _ := ctx.TileOf(n)
		c, _ := ctx.CycleOf(n)
		r.Placements = append(r.Placements, Placement{Node: n, Tile: t, Cycle: c})
	}

	return r
}
