package mapper

import (
	"log/slog"

	"github.com/sarchlab/cgramap/cgra"
	"github.com/sarchlab/cgramap/cost"
	"github.com/sarchlab/cgramap/dfg"
	"github.com/sarchlab/cgramap/route"
)

// candidates lists the feasible placements of the node, one per tile at
// most, in row-major tile order.
func (ctx *MappingContext) candidates(n *dfg.Node) []cost.Candidate {
	var cands []cost.Candidate

	for _, t := range ctx.grid.Tiles {
		c, ok := ctx.candidateOn(n, t.ID)
		if !ok {
			continue
		}

		cands = append(cands, c)
	}

	return cands
}

// candidateOn routes every mapped producer of the node to the tile and keeps
// the path that arrives last. A node without mapped producers takes the
// first cycle at which the tile can host it.
func (ctx *MappingContext) candidateOn(n *dfg.Node, t cgra.TileID) (cost.Candidate, bool) {
	g := ctx.mrrg
	if !g.CanSupport(t, n) {
		return cost.Candidate{}, false
	}

	var (
		best     cost.Candidate
		latest   = -1
		anyPreds bool
	)

	for _, p := range n.Preds() {
		src, mapped := ctx.placement[p]
		if !mapped {
			continue
		}

		anyPreds = true

		path, ok := route.Search(g, route.Request{
			Data:      p,
			Target:    n,
			Src:       src,
			Start:     ctx.timing[p],
			Dst:       t,
			HostCheck: true,
		})
		if !ok {
			return cost.Candidate{}, false
		}

		if path.Target().Cycle > latest {
			latest = path.Target().Cycle
			best = cost.Candidate{Tile: t, Path: path, Producer: p}
		}
	}

	if anyPreds {
		return best, true
	}

	for c := 0; c < g.Boundary(); c++ {
		if g.CanOccupyTile(t, c) {
			return cost.Candidate{
				Tile: t,
				Path: route.Path{{Tile: t, Cycle: c}},
			}, true
		}
	}

	return cost.Candidate{}, false
}

// schedule commits the node at the end of the candidate path, claims the
// links of the path, then routes the other mapped producers to the node and
// the node to its mapped consumers. It returns false if one of these routes
// cannot be found; the context must be rebuilt in that case.
func (ctx *MappingContext) schedule(n *dfg.Node, c cost.Candidate) bool {
	target := c.Path.Target()
	fu := target.Tile

	ctx.placement[n] = fu
	ctx.timing[n] = target.Cycle
	ctx.mrrg.CommitTile(fu, n, target.Cycle, ctx.elastic)

	if c.Producer != nil {
		ctx.occupy(c.Producer, c.Path)
		ctx.routes = append(ctx.routes, Route{
			Producer: c.Producer,
			Consumer: n,
			Path:     c.Path,
		})
	}

	for _, p := range n.Preds() {
		if p == c.Producer || p == n || !ctx.IsMapped(p) {
			continue
		}

		if !ctx.tryToRoute(p, n, false) {
			slog.Debug("Route failed",
				"Producer", p, "Consumer", n, "Tile", fu)
			return false
		}
	}

	for _, s := range n.Succs() {
		if !ctx.IsMapped(s) {
			continue
		}

		if !ctx.tryToRoute(n, s, true) {
			slog.Debug("Backedge failed",
				"Producer", n, "Consumer", s, "II", ctx.II())
			return false
		}
	}

	return true
}

// tryToRoute delivers the value of a mapped producer to a mapped consumer.
// In a modulo-scheduled CGRA, a backedge must arrive within one II.
func (ctx *MappingContext) tryToRoute(producer, consumer *dfg.Node, backedge bool) bool {
	path, ok := route.Search(ctx.mrrg, route.Request{
		Data:  producer,
		Src:   ctx.placement[producer],
		Start: ctx.timing[producer],
		Dst:   ctx.placement[consumer],
	})
	if !ok {
		return false
	}

	if !ctx.elastic && backedge && path.Latency() >= ctx.II() {
		return false
	}

	ctx.occupy(producer, path)

	if !backedge && path.Target().Cycle < ctx.timing[consumer] {
		ctx.mrrg.HoldRegister(path.Target().Tile)
	}

	ctx.routes = append(ctx.routes, Route{
		Producer: producer,
		Consumer: consumer,
		Path:     path,
		Backedge: backedge,
	})

	return true
}

// occupy claims the links of the path for the value. Hops that do not end
// at the destination of the path bypass their tile.
func (ctx *MappingContext) occupy(data *dfg.Node, p route.Path) {
	dst := p.Target().Tile

	for _, h := range p.Links() {
		l := ctx.grid.MustLink(h.Src, h.Dst)
		ctx.mrrg.CommitLink(l, data, h.Cycle, h.Dst != dst, ctx.elastic)
	}
}
