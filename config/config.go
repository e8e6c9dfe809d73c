// Package config provides a default configuration for the CGRA grid.
package config

import (
	"fmt"

	"github.com/sarchlab/cgramap/cgra"
)

// Coord is an (x, y) tile coordinate.
type Coord [2]int

// A LinkSpec is a custom directed link between two coordinates.
type LinkSpec struct {
	From, To Coord
}

// GridBuilder can build CGRA grids.
type GridBuilder struct {
	width, height int
	ctrlMemSize   int
	registerCount int

	loadTiles, storeTiles []Coord
	loadStoreEverywhere   bool
	explicitMemTiles      bool

	noMesh bool
	links  []LinkSpec
}

// MakeGridBuilder creates a GridBuilder with default parameters.
func MakeGridBuilder() GridBuilder {
	return GridBuilder{
		width:         4,
		height:        4,
		ctrlMemSize:   8,
		registerCount: 4,
	}
}

// WithWidth sets the number of columns of the grid.
func (b GridBuilder) WithWidth(width int) GridBuilder {
	b.width = width
	return b
}

// WithHeight sets the number of rows of the grid.
func (b GridBuilder) WithHeight(height int) GridBuilder {
	b.height = height
	return b
}

// WithCtrlMemSize sets how many distinct operations each tile may hold.
func (b GridBuilder) WithCtrlMemSize(size int) GridBuilder {
	b.ctrlMemSize = size
	return b
}

// WithRegisterCount sets the register file capacity of each tile.
func (b GridBuilder) WithRegisterCount(count int) GridBuilder {
	b.registerCount = count
	return b
}

// WithLoadTiles sets the tiles that can issue loads. Setting either load or
// store tiles replaces the default edge-column assignment.
func (b GridBuilder) WithLoadTiles(tiles ...Coord) GridBuilder {
	b.loadTiles = append([]Coord(nil), tiles...)
	b.explicitMemTiles = true
	return b
}

// WithStoreTiles sets the tiles that can issue stores.
func (b GridBuilder) WithStoreTiles(tiles ...Coord) GridBuilder {
	b.storeTiles = append([]Coord(nil), tiles...)
	b.explicitMemTiles = true
	return b
}

// WithLoadStoreOnAllTiles gives every tile both memory capabilities.
func (b GridBuilder) WithLoadStoreOnAllTiles() GridBuilder {
	b.loadStoreEverywhere = true
	return b
}

// WithLink adds a directed link that is not part of the mesh.
func (b GridBuilder) WithLink(from, to Coord) GridBuilder {
	b.links = append(append([]LinkSpec(nil), b.links...),
		LinkSpec{From: from, To: to})
	return b
}

// WithoutMesh disables the default 4-neighbour mesh. Only links added with
// WithLink are created.
func (b GridBuilder) WithoutMesh() GridBuilder {
	b.noMesh = true
	return b
}

// Build creates a CGRA grid.
func (b GridBuilder) Build() *cgra.Grid {
	g := cgra.NewGrid(b.height, b.width)

	for i := range g.Tiles {
		t := &g.Tiles[i]
		t.CtrlMemSize = b.ctrlMemSize
		t.RegisterCount = b.registerCount
	}

	b.assignMemoryCapability(g)

	if !b.noMesh {
		b.connectMesh(g)
	}

	for _, l := range b.links {
		g.Connect(mustTile(g, l.From), mustTile(g, l.To))
	}

	return g
}

func (b GridBuilder) assignMemoryCapability(g *cgra.Grid) {
	switch {
	case b.loadStoreEverywhere:
		for i := range g.Tiles {
			g.Tiles[i].CanLoad = true
			g.Tiles[i].CanStore = true
		}
	case b.explicitMemTiles:
		for _, c := range b.loadTiles {
			g.Tile(mustTile(g, c)).CanLoad = true
		}
		for _, c := range b.storeTiles {
			g.Tile(mustTile(g, c)).CanStore = true
		}
	default:
		for y := 0; y < b.height; y++ {
			west, _ := g.TileAt(0, y)
			west.CanLoad = true
			east, _ := g.TileAt(b.width-1, y)
			east.CanStore = true
		}
	}
}

// connectMesh links every tile with its east and north neighbours in both
// directions.
func (b GridBuilder) connectMesh(g *cgra.Grid) {
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			t, _ := g.TileAt(x, y)

			if east, ok := g.TileAt(x+1, y); ok {
				g.Connect(t.ID, east.ID)
				g.Connect(east.ID, t.ID)
			}

			if north, ok := g.TileAt(x, y+1); ok {
				g.Connect(t.ID, north.ID)
				g.Connect(north.ID, t.ID)
			}
		}
	}
}

func mustTile(g *cgra.Grid, c Coord) cgra.TileID {
	t, ok := g.TileAt(c[0], c[1])
	if !ok {
		panic(fmt.Sprintf("tile (%d, %d) is outside of the %dx%d grid",
			c[0], c[1], g.Columns, g.Rows))
	}

	return t.ID
}
