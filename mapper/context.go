package mapper

import (
	"github.com/sarchlab/cgramap/cgra"
	"github.com/sarchlab/cgramap/cost"
	"github.com/sarchlab/cgramap/dfg"
	"github.com/sarchlab/cgramap/mrrg"
	"github.com/sarchlab/cgramap/route"
)

// Route is a committed data dependence.
type Route struct {
	Producer *dfg.Node
	Consumer *dfg.Node
	Path     route.Path
	// Backedge marks a value fed to a consumer that was placed before its
	// producer, i.e. a dependence carried to the next iteration.
	Backedge bool
}

// Decision is a committed placement kept by the exhaustive search.
type Decision struct {
	Node      *dfg.Node
	Candidate cost.Candidate
}

// MappingContext is the state of one mapping attempt: the occupancy tables,
// where and when every mapped node runs, the committed routes and the
// decisions of the exhaustive search.
type MappingContext struct {
	dfg     *dfg.Graph
	grid    *cgra.Grid
	mrrg    *mrrg.Graph
	elastic bool

	placement map[*dfg.Node]cgra.TileID
	timing    map[*dfg.Node]int
	routes    []Route

	decisions []Decision
}

// NewMappingContext creates an empty mapping of the DFG onto the grid.
func NewMappingContext(
	d *dfg.Graph,
	grid *cgra.Grid,
	ii int,
	elastic bool,
) *MappingContext {
	ctx := &MappingContext{
		dfg:     d,
		grid:    grid,
		mrrg:    mrrg.New(grid, ii),
		elastic: elastic,
	}
	ctx.mrrg.SetElastic(elastic)
	ctx.clear()

	return ctx
}

func (ctx *MappingContext) clear() {
	ctx.placement = make(map[*dfg.Node]cgra.TileID)
	ctx.timing = make(map[*dfg.Node]int)
	ctx.routes = nil
}

// Rebuild drops every placement and route and rebuilds the occupancy tables
// for the II. The decision stack is kept so that it can be replayed.
func (ctx *MappingContext) Rebuild(ii int) {
	ctx.mrrg.Reset(ii)
	ctx.clear()
}

// II returns the initiation interval of the attempt.
func (ctx *MappingContext) II() int {
	return ctx.mrrg.II()
}

// Elastic tells if the target is a static-elastic CGRA.
func (ctx *MappingContext) Elastic() bool {
	return ctx.elastic
}

// MRRG returns the occupancy tables.
func (ctx *MappingContext) MRRG() *mrrg.Graph {
	return ctx.mrrg
}

// IsMapped tells if the node has been placed.
func (ctx *MappingContext) IsMapped(n *dfg.Node) bool {
	_, found := ctx.placement[n]
	return found
}

// TileOf returns the tile of a mapped node.
func (ctx *MappingContext) TileOf(n *dfg.Node) (cgra.TileID, bool) {
	t, found := ctx.placement[n]
	return t, found
}

// CycleOf returns the cycle of a mapped node.
func (ctx *MappingContext) CycleOf(n *dfg.Node) (int, bool) {
	c, found := ctx.timing[n]
	return c, found
}

// NodesOn lists the nodes mapped on the tile in DFG order.
func (ctx *MappingContext) NodesOn(t cgra.TileID) []*dfg.Node {
	var nodes []*dfg.Node

	for _, n := range ctx.dfg.Nodes() {
		if at, found := ctx.placement[n]; found && at == t {
			nodes = append(nodes, n)
		}
	}

	return nodes
}

// Routes returns the committed routes in commit order.
func (ctx *MappingContext) Routes() []Route {
	return ctx.routes
}

// Decisions returns the decision stack, oldest first.
func (ctx *MappingContext) Decisions() []Decision {
	return ctx.decisions
}

func (ctx *MappingContext) push(n *dfg.Node, c cost.Candidate) {
	ctx.decisions = append(ctx.decisions, Decision{Node: n, Candidate: c})
}

func (ctx *MappingContext) pop() Decision {
	last := ctx.decisions[len(ctx.decisions)-1]
	ctx.decisions = ctx.decisions[:len(ctx.decisions)-1]

	return last
}

// replay schedules the decision stack again after a rebuild. The decisions
// were valid under the same tables, so a failure is a bookkeeping bug.
func (ctx *MappingContext) replay() {
	for _, d := range ctx.decisions {
		if !ctx.schedule(d.Node, d.Candidate) {
			panic("replaying the placement of " + d.Node.String() + " failed")
		}
	}
}
