// Package cgra defines the commonly used data structure for CGRAs.
package cgra

import (
	"fmt"
	"strings"
)

// Side defines the side of a tile.
type Side int

const (
	North Side = iota
	East
	South
	West
)

// Name returns the name of the side.
func (s Side) Name() string {
	switch s {
	case North:
		return "North"
	case West:
		return "West"
	case South:
		return "South"
	case East:
		return "East"
	default:
		panic("invalid side")
	}
}

// Port returns the port name used in tile configuration records.
func (s Side) Port() string {
	return strings.ToLower(s.Name())
}

// Opposite returns the side facing s.
func (s Side) Opposite() Side {
	switch s {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	default:
		panic("invalid side")
	}
}

// TileID indexes a tile in Grid.Tiles.
type TileID int

// LinkID indexes a link in Grid.Links.
type LinkID int

// Tile is a functional unit of the CGRA together with its switch.
type Tile struct {
	ID   TileID
	X, Y int

	CtrlMemSize   int
	RegisterCount int
	CanLoad       bool
	CanStore      bool

	InLinks  []LinkID
	OutLinks []LinkID
}

func (t *Tile) String() string {
	return fmt.Sprintf("Tile(%d, %d)", t.X, t.Y)
}

// Link is a directed connection between two tiles.
type Link struct {
	ID  LinkID
	Src TileID
	Dst TileID
}

// Grid is a CGRA. Tiles are stored row by row starting at the bottom-left
// corner (0, 0); y increases to the north and x to the east.
type Grid struct {
	Rows, Columns int

	Tiles []Tile
	Links []Link

	linkIndex map[[2]TileID]LinkID
}

// NewGrid creates a grid of rows x columns tiles without any link.
func NewGrid(rows, columns int) *Grid {
	if rows <= 0 || columns <= 0 {
		panic(fmt.Sprintf("invalid grid size %dx%d", columns, rows))
	}

	g := &Grid{
		Rows:      rows,
		Columns:   columns,
		Tiles:     make([]Tile, rows*columns),
		linkIndex: make(map[[2]TileID]LinkID),
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < columns; x++ {
			id := TileID(y*columns + x)
			g.Tiles[id] = Tile{ID: id, X: x, Y: y}
		}
	}

	return g
}

// Connect adds a directed link from src to dst. Adding an existing link
// returns the existing one.
func (g *Grid) Connect(src, dst TileID) LinkID {
	if src == dst {
		panic("a link cannot loop on a tile")
	}

	if id, found := g.linkIndex[[2]TileID{src, dst}]; found {
		return id
	}

	id := LinkID(len(g.Links))
	g.Links = append(g.Links, Link{ID: id, Src: src, Dst: dst})
	g.linkIndex[[2]TileID{src, dst}] = id
	g.Tiles[src].OutLinks = append(g.Tiles[src].OutLinks, id)
	g.Tiles[dst].InLinks = append(g.Tiles[dst].InLinks, id)

	return id
}

// TileCount returns the number of tiles.
func (g *Grid) TileCount() int {
	return len(g.Tiles)
}

// FUCount returns the number of functional units. Each tile has one.
func (g *Grid) FUCount() int {
	return len(g.Tiles)
}

// Tile returns the tile with the given ID.
func (g *Grid) Tile(id TileID) *Tile {
	return &g.Tiles[id]
}

// TileAt returns the tile at the given coordinate.
func (g *Grid) TileAt(x, y int) (*Tile, bool) {
	if x < 0 || x >= g.Columns || y < 0 || y >= g.Rows {
		return nil, false
	}

	return &g.Tiles[y*g.Columns+x], true
}

// Link returns the link with the given ID.
func (g *Grid) Link(id LinkID) *Link {
	return &g.Links[id]
}

// OutLink returns the link from src to dst, if any.
func (g *Grid) OutLink(src, dst TileID) (LinkID, bool) {
	id, found := g.linkIndex[[2]TileID{src, dst}]
	return id, found
}

// MustLink returns the link from src to dst. The link must exist.
func (g *Grid) MustLink(src, dst TileID) LinkID {
	id, found := g.OutLink(src, dst)
	if !found {
		panic(fmt.Sprintf("no link from %s to %s",
			g.Tile(src), g.Tile(dst)))
	}

	return id
}

// Neighbors returns the tiles reachable through the out links of t, in link
// order.
func (g *Grid) Neighbors(t TileID) []TileID {
	out := g.Tiles[t].OutLinks
	neighbors := make([]TileID, len(out))
	for i, l := range out {
		neighbors[i] = g.Links[l].Dst
	}

	return neighbors
}

// SideOf returns the side of tile t that the link is attached to. The tile
// must be one of the link's endpoints.
func (g *Grid) SideOf(l LinkID, t TileID) Side {
	link := g.Links[l]

	var other TileID
	switch t {
	case link.Src:
		other = link.Dst
	case link.Dst:
		other = link.Src
	default:
		panic(fmt.Sprintf("link %d is not attached to %s", l, g.Tile(t)))
	}

	dx := g.Tiles[other].X - g.Tiles[t].X
	dy := g.Tiles[other].Y - g.Tiles[t].Y

	if abs(dx) >= abs(dy) {
		if dx > 0 {
			return East
		}
		return West
	}

	if dy > 0 {
		return North
	}
	return South
}

// Center returns the coordinate of the center of the grid.
func (g *Grid) Center() (x, y int) {
	return g.Columns / 2, g.Rows / 2
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
