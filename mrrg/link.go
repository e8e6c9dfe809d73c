package mrrg

import (
	"fmt"

	"github.com/sarchlab/cgramap/cgra"
	"github.com/sarchlab/cgramap/dfg"
)

// CanOccupyLink tells if the link can deliver data at every II-th cycle from
// the given one. A slot that already carries the same data can be shared.
func (g *Graph) CanOccupyLink(l cgra.LinkID, data *dfg.Node, cycle int) bool {
	if !g.inRange(cycle) {
		return false
	}

	ls := &g.links[l]
	for c := cycle; c < g.boundary; c += g.step() {
		if ls.busy.Test(uint(c)) && ls.data[c] != data {
			return false
		}
	}

	return true
}

// LinkFree tells if no slot of {cycle, cycle+II, ...} is taken.
func (g *Graph) LinkFree(l cgra.LinkID, cycle int) bool {
	if !g.inRange(cycle) {
		return false
	}

	ls := &g.links[l]
	for c := cycle; c < g.boundary; c += g.step() {
		if ls.busy.Test(uint(c)) {
			return false
		}
	}

	return true
}

// CommitLink claims the link for data. Slots that already carry the same
// data are marked as reused. A slot stays a bypass only as long as every
// route through it bypasses the destination tile.
func (g *Graph) CommitLink(
	l cgra.LinkID,
	data *dfg.Node,
	cycle int,
	bypass, elastic bool,
) {
	g.mustBeInRange(cycle)

	ls := &g.links[l]
	for c := cycle; c < g.boundary; c += g.period(elastic) {
		slot := uint(c)

		if !ls.busy.Test(slot) {
			ls.busy.Set(slot)
			ls.data[c] = data
			ls.bypass.SetTo(slot, bypass)

			continue
		}

		if ls.data[c] != data {
			panic(fmt.Sprintf("link %d carries %s at cycle %d, cannot carry %s",
				l, ls.data[c], c, data))
		}

		ls.reused.Set(slot)
		if !bypass {
			ls.bypass.Clear(slot)
		}
	}
}

// LinkOccupant returns the data carried by the link at the cycle, or nil.
func (g *Graph) LinkOccupant(l cgra.LinkID, cycle int) *dfg.Node {
	if !g.inRange(cycle) {
		return nil
	}

	return g.links[l].data[cycle]
}

// IsBypass tells if the data on the link at the cycle only passes through
// the destination tile.
func (g *Graph) IsBypass(l cgra.LinkID, cycle int) bool {
	return g.inRange(cycle) && g.links[l].bypass.Test(uint(cycle))
}

// IsReused tells if more than one route shares the slot.
func (g *Graph) IsReused(l cgra.LinkID, cycle int) bool {
	return g.inRange(cycle) && g.links[l].reused.Test(uint(cycle))
}

// Carries tells if some slot of {cycle, cycle+II, ...} already carries data.
func (g *Graph) Carries(l cgra.LinkID, data *dfg.Node, cycle int) bool {
	if !g.inRange(cycle) {
		return false
	}

	ls := &g.links[l]
	for c := cycle; c < g.boundary; c += g.step() {
		if ls.busy.Test(uint(c)) && ls.data[c] == data {
			return true
		}
	}

	return false
}

// FirstLinkUse returns the first cycle at which the link is taken.
func (g *Graph) FirstLinkUse(l cgra.LinkID) (int, bool) {
	c, found := g.links[l].busy.NextSet(0)
	if !found {
		return 0, false
	}

	return int(c), true
}

// LinkSlotsUsed returns the number of taken slots of the link.
func (g *Graph) LinkSlotsUsed(l cgra.LinkID) int {
	return int(g.links[l].busy.Count())
}

// FreeInLinks counts the in links of the tile that are free at the cycle.
func (g *Graph) FreeInLinks(t cgra.TileID, cycle int) int {
	count := 0
	for _, l := range g.grid.Tile(t).InLinks {
		if g.LinkFree(l, cycle) {
			count++
		}
	}

	return count
}

// FreeOutLinks counts the out links of the tile that are free at the cycle.
func (g *Graph) FreeOutLinks(t cgra.TileID, cycle int) int {
	count := 0
	for _, l := range g.grid.Tile(t).OutLinks {
		if g.LinkFree(l, cycle) {
			count++
		}
	}

	return count
}
