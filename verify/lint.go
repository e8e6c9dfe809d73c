package verify

import (
	"fmt"

	"github.com/sarchlab/cgramap/cgra"
	"github.com/sarchlab/cgramap/dfg"
	"github.com/sarchlab/cgramap/mapper"
)

// RunLint performs static checks on a committed mapping.
// It validates resources (STRUCT) and latencies (TIMING).
// Returns a list of issues found, or empty list if no issues.
func RunLint(r *mapper.Result, opts Options) []Issue {
	l := &linter{r: r, opts: opts}

	l.checkBounds()
	l.checkPlacements()
	l.checkRoutes()
	l.checkCoverage()

	return l.issues
}

type linter struct {
	r      *mapper.Result
	opts   Options
	issues []Issue
}

func (l *linter) report(
	t IssueType,
	tile *cgra.Tile,
	cycle int,
	n *dfg.Node,
	details map[string]interface{},
	format string,
	args ...interface{},
) {
	issue := Issue{
		Type:    t,
		TileX:   -1,
		TileY:   -1,
		Cycle:   cycle,
		NodeID:  -1,
		Message: fmt.Sprintf(format, args...),
		Details: details,
	}

	if tile != nil {
		issue.TileX, issue.TileY = tile.X, tile.Y
	}

	if n != nil {
		issue.NodeID = n.ID
	}

	l.issues = append(l.issues, issue)
}

// slot folds a cycle into the periodic reservation table. Elastic mappings
// hold a resource for the rest of the execution, so they have a single slot.
func (l *linter) slot(cycle int) int {
	if l.r.Elastic {
		return 0
	}

	return cycle % l.r.II
}

func (l *linter) checkBounds() {
	m := mapper.MakeBuilder().
		WithRecMIIDelay(l.opts.RecMIIDelay).
		Build(l.r.DFG, l.r.Grid)

	resMII, recMII := m.ResMII(), m.RecMII()
	if l.r.II < max(resMII, recMII) {
		l.report(IssueTiming, nil, -1, nil,
			map[string]interface{}{
				"ii":     l.r.II,
				"resMII": resMII,
				"recMII": recMII,
			},
			"II %d is below the lower bound max(ResMII %d, RecMII %d)",
			l.r.II, resMII, recMII)
	}
}

func (l *linter) checkPlacements() {
	g := l.r.Grid
	slots := make(map[[2]int]*dfg.Node)
	ops := make(map[cgra.TileID]int)

	for _, p := range l.r.Placements {
		tile := g.Tile(p.Tile)
		n := p.Node

		if n.IsLoad && !tile.CanLoad {
			l.report(IssueStruct, tile, p.Cycle, n, nil,
				"%s is a load but %s cannot load", n, tile)
		}

		if n.IsStore && !tile.CanStore {
			l.report(IssueStruct, tile, p.Cycle, n, nil,
				"%s is a store but %s cannot store", n, tile)
		}

		key := [2]int{int(p.Tile), l.slot(p.Cycle)}
		if other, taken := slots[key]; taken {
			l.report(IssueStruct, tile, p.Cycle, n,
				map[string]interface{}{"other": other.ID},
				"%s and %s share a slot of %s", other, n, tile)
		} else {
			slots[key] = n
		}

		ops[p.Tile]++
	}

	for _, tile := range g.Tiles {
		if ops[tile.ID] > tile.CtrlMemSize {
			l.report(IssueStruct, g.Tile(tile.ID), -1, nil,
				map[string]interface{}{
					"items":    ops[tile.ID],
					"capacity": tile.CtrlMemSize,
				},
				"%s holds %d operations but its control memory has %d entries",
				g.Tile(tile.ID), ops[tile.ID], tile.CtrlMemSize)
		}
	}
}

func (l *linter) checkRoutes() {
	g := l.r.Grid
	slots := make(map[[2]int]*dfg.Node)

	for _, rt := range l.r.Routes {
		if len(rt.Path) == 0 {
			l.report(IssueStruct, nil, -1, rt.Consumer, nil,
				"route %s->%s is empty", rt.Producer, rt.Consumer)
			continue
		}

		l.checkEndpoints(rt)

		for i := 1; i < len(rt.Path); i++ {
			from, to := rt.Path[i-1], rt.Path[i]

			if to.Cycle < from.Cycle+1 {
				l.report(IssueTiming, g.Tile(from.Tile), from.Cycle, rt.Producer,
					map[string]interface{}{
						"from_cycle": from.Cycle,
						"to_cycle":   to.Cycle,
					},
					"route %s->%s goes from cycle %d to cycle %d",
					rt.Producer, rt.Consumer, from.Cycle, to.Cycle)
			}
		}

		for _, h := range rt.Path.Links() {
			src := g.Tile(h.Src)

			link, ok := g.OutLink(h.Src, h.Dst)
			if !ok {
				l.report(IssueStruct, src, h.Cycle, rt.Producer, nil,
					"route %s->%s hops from %s to %s without a link",
					rt.Producer, rt.Consumer, src, g.Tile(h.Dst))
				continue
			}

			key := [2]int{int(link), l.slot(h.Cycle)}
			if other, taken := slots[key]; taken && other != rt.Producer {
				l.report(IssueStruct, src, h.Cycle, rt.Producer,
					map[string]interface{}{"link": int(link), "other": other.ID},
					"link %s->%s carries both %s and %s",
					src, g.Tile(h.Dst), other, rt.Producer)
			} else {
				slots[key] = rt.Producer
			}
		}

		if rt.Backedge && !l.r.Elastic && rt.Path.Latency() >= l.r.II {
			l.report(IssueTiming, g.Tile(rt.Path.Target().Tile),
				rt.Path.Target().Cycle, rt.Consumer,
				map[string]interface{}{
					"required_latency": l.r.II - 1,
					"actual_latency":   rt.Path.Latency(),
				},
				"backedge %s->%s takes %d cycles with II %d",
				rt.Producer, rt.Consumer, rt.Path.Latency(), l.r.II)
		}
	}
}

func (l *linter) checkEndpoints(rt mapper.Route) {
	g := l.r.Grid

	prod, okProd := l.r.Placement(rt.Producer)
	cons, okCons := l.r.Placement(rt.Consumer)
	if !okProd || !okCons {
		l.report(IssueStruct, nil, -1, rt.Consumer, nil,
			"route %s->%s connects an unplaced node", rt.Producer, rt.Consumer)
		return
	}

	src, dst := rt.Path.Source(), rt.Path.Target()

	if src.Tile != prod.Tile || src.Cycle != prod.Cycle {
		l.report(IssueStruct, g.Tile(src.Tile), src.Cycle, rt.Producer,
			map[string]interface{}{"producer_t": prod.Cycle},
			"route %s->%s does not start where %s runs",
			rt.Producer, rt.Consumer, rt.Producer)
	}

	if dst.Tile != cons.Tile {
		l.report(IssueStruct, g.Tile(dst.Tile), dst.Cycle, rt.Consumer,
			map[string]interface{}{"consumer_t": cons.Cycle},
			"route %s->%s does not end where %s runs",
			rt.Producer, rt.Consumer, rt.Consumer)
	}
}

func (l *linter) checkCoverage() {
	placed := make(map[*dfg.Node]bool)
	for _, p := range l.r.Placements {
		placed[p.Node] = true
	}

	for _, n := range l.r.DFG.Nodes() {
		if !placed[n] {
			l.report(IssueStruct, nil, -1, n, nil, "%s is not placed", n)
		}
	}

	routed := make(map[[2]*dfg.Node]bool)
	for _, rt := range l.r.Routes {
		routed[[2]*dfg.Node{rt.Producer, rt.Consumer}] = true
	}

	for _, e := range l.r.DFG.Edges() {
		if !routed[[2]*dfg.Node{e.From, e.To}] {
			l.report(IssueStruct, nil, -1, e.To, nil,
				"dependence %s is not routed", e)
		}
	}
}
