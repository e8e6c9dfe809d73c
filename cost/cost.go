// Package cost ranks the candidate placements of a DFG node.
package cost

import (
	"cmp"
	"slices"

	"github.com/sarchlab/cgramap/cgra"
	"github.com/sarchlab/cgramap/dfg"
	"github.com/sarchlab/cgramap/mrrg"
	"github.com/sarchlab/cgramap/route"
)

// View is the part of the mapping state that the cost model reads.
type View interface {
	MRRG() *mrrg.Graph
	TileOf(n *dfg.Node) (cgra.TileID, bool)
	NodesOn(t cgra.TileID) []*dfg.Node
}

// Candidate is a way to place a node: the node runs on Tile at the terminal
// cycle of Path. Path starts at the tile of Producer, or is a single
// waypoint when no producer of the node is mapped yet.
type Candidate struct {
	Tile     cgra.TileID
	Path     route.Path
	Producer *dfg.Node
	Cost     float64
}

// Cycle returns the cycle at which the node would run.
func (c Candidate) Cycle() int {
	return c.Path.Target().Cycle
}

// Weights scale the terms of the cost function.
type Weights struct {
	// Distance multiplies the arrival cycle plus one.
	Distance float64 `yaml:"distance"`
	// CtrlMem multiplies the operations already on the tile.
	CtrlMem float64 `yaml:"ctrl_mem"`
	// FanOut penalizes edge and poorly connected tiles for nodes with more
	// than one consumer.
	FanOut float64 `yaml:"fan_out"`
	// SharedProducer rewards joining a mapped producer with fan-out above 2.
	SharedProducer float64 `yaml:"shared_producer"`
	// Multicast rewards every hop on a link that already carries the value.
	Multicast float64 `yaml:"multicast"`
	// Reserved penalizes taking a memory tile without needing it.
	Reserved float64 `yaml:"reserved"`
	// FreeLink rewards free in and out links at the arrival cycle.
	FreeLink float64 `yaml:"free_link"`
	// Crowding penalizes sitting next to a mapped node with fan-out above 2.
	Crowding float64 `yaml:"crowding"`
}

// DefaultWeights returns the weights the mapper uses unless told otherwise.
func DefaultWeights() Weights {
	return Weights{
		Distance:       1,
		CtrlMem:        0.5,
		FanOut:         1,
		SharedProducer: 0.5,
		Multicast:      0.5,
		Reserved:       2,
		FreeLink:       0.3,
		Crowding:       0.4,
	}
}

// Model computes the cost of candidates.
type Model struct {
	Weights Weights
}

// NewModel creates a model with the given weights.
func NewModel(w Weights) Model {
	return Model{Weights: w}
}

// Rank drops the candidates that arrive beyond the horizon and orders the
// others by ascending cost. Equal costs keep their input order.
func (m Model) Rank(v View, n *dfg.Node, cands []Candidate) []Candidate {
	boundary := v.MRRG().Boundary()

	ranked := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if len(c.Path) == 0 || c.Cycle() >= boundary {
			continue
		}

		c.Cost = m.Cost(v, n, c)
		ranked = append(ranked, c)
	}

	slices.SortStableFunc(ranked, func(a, b Candidate) int {
		return cmp.Compare(a.Cost, b.Cost)
	})

	return ranked
}

// Cost evaluates a single candidate.
func (m Model) Cost(v View, n *dfg.Node, c Candidate) float64 {
	g := v.MRRG()
	grid := g.Grid()
	tile := grid.Tile(c.Tile)
	w := m.Weights

	cost := w.Distance * float64(c.Cycle()+1)
	cost += w.CtrlMem * float64(g.CtrlMemItems(c.Tile))

	if n.FanOut() > 1 {
		cx, cy := grid.Center()
		spread := 4 - len(tile.OutLinks) + abs(cx-tile.X) + abs(cy-tile.Y)
		cost += w.FanOut * float64(spread)
	}

	for _, p := range n.Preds() {
		if p.FanOut() <= 2 {
			continue
		}

		if t, mapped := v.TileOf(p); mapped && t == c.Tile {
			cost -= w.SharedProducer
		}
	}

	for _, nb := range grid.Neighbors(c.Tile) {
		for _, other := range v.NodesOn(nb) {
			if other.FanOut() > 2 {
				cost += w.Crowding
			}
		}
	}

	if (!n.IsLoad && tile.CanLoad) || (!n.IsStore && tile.CanStore) {
		cost += w.Reserved
	}

	cost -= w.Multicast * float64(reusedHops(g, c))

	free := g.FreeInLinks(c.Tile, c.Cycle()) + g.FreeOutLinks(c.Tile, c.Cycle())
	cost -= w.FreeLink * float64(free)

	return cost
}

func reusedHops(g *mrrg.Graph, c Candidate) int {
	count := 0

	for _, h := range c.Path.Links() {
		l, ok := g.Grid().OutLink(h.Src, h.Dst)
		if ok && g.Carries(l, c.Producer, h.Cycle) {
			count++
		}
	}

	return count
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
