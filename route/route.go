// Package route finds paths for values through the time-expanded CGRA
// interconnect.
package route

import (
	"fmt"
	"strings"

	"github.com/sarchlab/cgramap/cgra"
	"github.com/sarchlab/cgramap/dfg"
	"github.com/sarchlab/cgramap/mrrg"
)

// Waypoint is a tile visited by a value at a cycle.
type Waypoint struct {
	Tile  cgra.TileID
	Cycle int
}

// Path is ordered from the producer tile to the consumer tile. Cycles
// strictly increase along the path. Two consecutive waypoints on different
// tiles cross the link between them in the cycle before the second one;
// two on the same tile mean the value waits there.
type Path []Waypoint

// Hop is a link crossing of a path.
type Hop struct {
	Src, Dst cgra.TileID
	Cycle    int
}

// Source returns the first waypoint.
func (p Path) Source() Waypoint {
	return p[0]
}

// Target returns the last waypoint.
func (p Path) Target() Waypoint {
	return p[len(p)-1]
}

// Latency is the number of cycles between the source and the target.
func (p Path) Latency() int {
	return p.Target().Cycle - p.Source().Cycle
}

// Hops returns the number of links the path uses.
func (p Path) Hops() int {
	return len(p.Links())
}

// Links lists the link crossings of the path in order.
func (p Path) Links() []Hop {
	var hops []Hop

	for i := 1; i < len(p); i++ {
		from, to := p[i-1], p[i]
		if from.Tile == to.Tile {
			continue
		}

		hops = append(hops, Hop{Src: from.Tile, Dst: to.Tile, Cycle: to.Cycle - 1})
	}

	return hops
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, w := range p {
		parts[i] = fmt.Sprintf("%d@%d", w.Tile, w.Cycle)
	}

	return strings.Join(parts, " -> ")
}

// Request describes a value to move.
type Request struct {
	// Data is the producer whose value travels on the links.
	Data *dfg.Node
	// Target is the consumer. It is only used when HostCheck is set.
	Target *dfg.Node

	Src   cgra.TileID
	Start int
	Dst   cgra.TileID

	// HostCheck asks for an arrival cycle at which the destination tile can
	// also host Target.
	HostCheck bool
}

// Search runs a label-setting shortest path search over the tiles. Moving
// through a link costs one plus the number of cycles spent waiting for the
// link to become free. It returns false if no path exists within the
// horizon of the graph.
func Search(g *mrrg.Graph, req Request) (Path, bool) {
	s := newSearch(g, req)
	s.run()

	return s.path()
}

type search struct {
	g   *mrrg.Graph
	req Request

	dist   []int
	timing []int
	prev   []cgra.TileID
	done   []bool

	// host is the cycle at which the destination runs the target, once
	// the destination is reached with HostCheck.
	host int
}

func newSearch(g *mrrg.Graph, req Request) *search {
	n := g.Grid().TileCount()
	s := &search{
		g:      g,
		req:    req,
		dist:   make([]int, n),
		timing: make([]int, n),
		prev:   make([]cgra.TileID, n),
		done:   make([]bool, n),
	}

	for i := 0; i < n; i++ {
		s.dist[i] = g.Boundary()
		s.timing[i] = req.Start
		s.prev[i] = -1
	}

	s.dist[req.Src] = 0

	return s
}

func (s *search) run() {
	for {
		u, found := s.closest()
		if !found {
			return
		}

		s.done[u] = true

		if u == s.req.Dst {
			if s.req.HostCheck {
				earliest := s.timing[u]
				if u == s.req.Src {
					earliest++
				}
				s.host = s.g.MinIdleCycle(u, earliest)
			}
			return
		}

		s.relax(u)
	}
}

// closest returns the reachable unfinished tile with the lowest cost. Ties go
// to the tile that comes first in row-major order.
func (s *search) closest() (cgra.TileID, bool) {
	best := cgra.TileID(-1)
	bestCost := s.g.Boundary()

	for i, d := range s.dist {
		if !s.done[i] && d < bestCost {
			best = cgra.TileID(i)
			bestCost = d
		}
	}

	return best, best >= 0
}

func (s *search) relax(u cgra.TileID) {
	grid := s.g.Grid()

	for _, l := range grid.Tile(u).OutLinks {
		v := grid.Link(l).Dst
		if s.done[v] {
			continue
		}

		for c := s.timing[u]; c < s.g.Boundary(); c++ {
			if !s.g.CanOccupyLink(l, s.req.Data, c) {
				continue
			}

			cost := s.dist[u] + (c - s.timing[u]) + 1
			if cost < s.dist[v] {
				s.dist[v] = cost
				s.timing[v] = c + 1
				s.prev[v] = u
			}

			break
		}
	}
}

func (s *search) path() (Path, bool) {
	dst := s.req.Dst
	if !s.done[dst] || (dst != s.req.Src && s.prev[dst] < 0) {
		return nil, false
	}

	arrival := s.timing[dst]
	if s.req.HostCheck {
		if s.host >= s.g.Boundary() ||
			!s.g.CanHost(dst, s.req.Target, s.host) {
			return nil, false
		}
	} else if arrival > s.g.Boundary() {
		return nil, false
	}

	var p Path
	for u := dst; u >= 0; u = s.prev[u] {
		p = append(p, Waypoint{Tile: u, Cycle: s.timing[u]})
	}

	for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
		p[i], p[j] = p[j], p[i]
	}

	if s.req.HostCheck && s.host > arrival {
		p = append(p, Waypoint{Tile: dst, Cycle: s.host})
	}

	for i := 1; i < len(p); i++ {
		if p[i].Cycle <= p[i-1].Cycle {
			panic(fmt.Sprintf("path %s does not move forward in time", p))
		}
	}

	return p, true
}
