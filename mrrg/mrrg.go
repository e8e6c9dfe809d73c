// Package mrrg implements the modulo routing resource graph, the
// time-expanded occupancy of every tile and link of a CGRA for a given
// initiation interval.
package mrrg

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/sarchlab/cgramap/cgra"
	"github.com/sarchlab/cgramap/dfg"
)

type tileState struct {
	busy     *bitset.BitSet
	nodes    []*dfg.Node
	ctrlMem  int
	regsUsed int
}

type linkState struct {
	busy   *bitset.BitSet
	bypass *bitset.BitSet
	reused *bitset.BitSet
	data   []*dfg.Node
}

// Graph holds the occupancy tables. Cycles range over [0, Boundary()).
type Graph struct {
	grid     *cgra.Grid
	ii       int
	boundary int
	elastic  bool

	tiles []tileState
	links []linkState
}

// New creates the occupancy tables of the grid for the given II.
func New(grid *cgra.Grid, ii int) *Graph {
	g := &Graph{grid: grid}
	g.Reset(ii)

	return g
}

// Reset rebuilds every table for a new II. The cycle boundary becomes
// tileCount * II * II.
func (g *Graph) Reset(ii int) {
	if ii < 1 {
		panic(fmt.Sprintf("invalid II %d", ii))
	}

	g.ii = ii
	g.boundary = g.grid.TileCount() * ii * ii

	n := uint(g.boundary)

	g.tiles = make([]tileState, g.grid.TileCount())
	for i := range g.tiles {
		g.tiles[i] = tileState{
			busy:  bitset.New(n),
			nodes: make([]*dfg.Node, g.boundary),
		}
	}

	g.links = make([]linkState, len(g.grid.Links))
	for i := range g.links {
		g.links[i] = linkState{
			busy:   bitset.New(n),
			bypass: bitset.New(n),
			reused: bitset.New(n),
			data:   make([]*dfg.Node, g.boundary),
		}
	}
}

// SetElastic makes the occupancy checks look at every cycle instead of
// every II-th cycle, matching what elastic commits claim. It survives Reset.
func (g *Graph) SetElastic(elastic bool) {
	g.elastic = elastic
}

// step is the distance between two checked slots.
func (g *Graph) step() int {
	if g.elastic {
		return 1
	}

	return g.ii
}

// Grid returns the grid that the tables describe.
func (g *Graph) Grid() *cgra.Grid {
	return g.grid
}

// II returns the current initiation interval.
func (g *Graph) II() int {
	return g.ii
}

// Boundary returns the scheduling horizon.
func (g *Graph) Boundary() int {
	return g.boundary
}

func (g *Graph) inRange(cycle int) bool {
	return cycle >= 0 && cycle < g.boundary
}

func (g *Graph) mustBeInRange(cycle int) {
	if !g.inRange(cycle) {
		panic(fmt.Sprintf("cycle %d is outside of [0, %d)", cycle, g.boundary))
	}
}

// CanOccupyTile tells if the tile has room for one more operation and is
// free at every cycle of {cycle, cycle+II, ...} below the boundary.
// Elastic tables check every cycle from the given one.
func (g *Graph) CanOccupyTile(t cgra.TileID, cycle int) bool {
	ts := &g.tiles[t]
	if ts.ctrlMem+1 > g.grid.Tile(t).CtrlMemSize {
		return false
	}

	for c := cycle; c < g.boundary; c += g.step() {
		if ts.busy.Test(uint(c)) {
			return false
		}
	}

	return true
}

// CanSupport tells if the tile provides the memory capability the node
// needs.
func (g *Graph) CanSupport(t cgra.TileID, n *dfg.Node) bool {
	tile := g.grid.Tile(t)

	if n.IsLoad && !tile.CanLoad {
		return false
	}

	if n.IsStore && !tile.CanStore {
		return false
	}

	return true
}

// CanHost combines CanSupport and CanOccupyTile.
func (g *Graph) CanHost(t cgra.TileID, n *dfg.Node, cycle int) bool {
	return g.CanSupport(t, n) && g.CanOccupyTile(t, cycle)
}

// MinIdleCycle returns the earliest cycle not before the given one at which
// the tile can be occupied, or the boundary if there is none.
func (g *Graph) MinIdleCycle(t cgra.TileID, cycle int) int {
	for c := max(cycle, 0); c < g.boundary; c++ {
		if g.CanOccupyTile(t, c) {
			return c
		}
	}

	return g.boundary
}

// CommitTile maps the node onto the tile. It occupies every II-th cycle from
// the given one, or every cycle when elastic.
func (g *Graph) CommitTile(t cgra.TileID, n *dfg.Node, cycle int, elastic bool) {
	g.mustBeInRange(cycle)

	ts := &g.tiles[t]
	for c := cycle; c < g.boundary; c += g.period(elastic) {
		if ts.busy.Test(uint(c)) {
			panic(fmt.Sprintf("%s is already occupied by %s at cycle %d",
				g.grid.Tile(t), ts.nodes[c], c))
		}

		ts.busy.Set(uint(c))
		ts.nodes[c] = n
	}

	ts.ctrlMem++
}

func (g *Graph) period(elastic bool) int {
	if elastic {
		return 1
	}

	return g.ii
}

// NodeAt returns the node occupying the tile at the cycle, or nil.
func (g *Graph) NodeAt(t cgra.TileID, cycle int) *dfg.Node {
	if !g.inRange(cycle) {
		return nil
	}

	return g.tiles[t].nodes[cycle]
}

// TileOccupied tells if the functional unit of the tile is busy at the
// cycle.
func (g *Graph) TileOccupied(t cgra.TileID, cycle int) bool {
	return g.inRange(cycle) && g.tiles[t].busy.Test(uint(cycle))
}

// CtrlMemItems returns the number of operations mapped onto the tile.
func (g *Graph) CtrlMemItems(t cgra.TileID) int {
	return g.tiles[t].ctrlMem
}

// HoldRegister records a value that waits in the register file of the tile.
func (g *Graph) HoldRegister(t cgra.TileID) {
	g.tiles[t].regsUsed++
}

// RegistersInUse returns how many values wait in the register file.
func (g *Graph) RegistersInUse(t cgra.TileID) int {
	return g.tiles[t].regsUsed
}

// AvailableRegisters returns the free register count of the tile. It is
// negative when more values wait than the file can hold.
func (g *Graph) AvailableRegisters(t cgra.TileID) int {
	return g.grid.Tile(t).RegisterCount - g.tiles[t].regsUsed
}
