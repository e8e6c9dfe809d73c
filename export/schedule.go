// Package export renders committed mappings.
package export

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sarchlab/cgramap/cgra"
	"github.com/sarchlab/cgramap/mapper"
)

// Options control the text rendering of a schedule.
type Options struct {
	// ASCII draws link arrows with plain characters.
	ASCII bool
}

type arrows struct {
	right, left, up, down, horizontal, vertical string

	// bypass follows the arrow when a value crosses the link without being
	// consumed by the tile it reaches.
	bypass string
}

var (
	unicodeArrows = arrows{"→", "←", "↑", "↓", "⇄", "⇅", "◦"}
	asciiArrows   = arrows{">", "<", "^", "v", "=", "|", "*"}
)

// Schedule writes one grid per cycle showing the node running on every tile
// and the links in use. The north row comes first.
func Schedule(w io.Writer, r *mapper.Result, opts Options) error {
	a := unicodeArrows
	if opts.ASCII {
		a = asciiArrows
	}

	last := r.Grid.TileCount()
	if r.Elastic {
		last = r.DFG.NodeCount()
	}

	for c := 0; c <= last; c++ {
		if _, err := fmt.Fprintln(w, renderCycle(r, c, a)); err != nil {
			return fmt.Errorf("write schedule: %w", err)
		}
	}

	if _, err := fmt.Fprintf(w, "II: %d\n", r.II); err != nil {
		return fmt.Errorf("write schedule: %w", err)
	}

	return nil
}

func renderCycle(r *mapper.Result, cycle int, a arrows) string {
	g := r.Grid
	cols := 2*g.Columns - 1

	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("cycle: %d", cycle))

	style := table.StyleDefault
	style.Options.DrawBorder = false
	style.Options.SeparateColumns = false
	style.Options.SeparateHeader = false
	style.Options.SeparateRows = false
	style.Options.SeparateFooter = false
	t.SetStyle(style)

	configs := make([]table.ColumnConfig, cols)
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignCenter}
	}
	t.SetColumnConfigs(configs)

	for y := g.Rows - 1; y >= 0; y-- {
		tiles := make(table.Row, cols)
		for x := 0; x < g.Columns; x++ {
			tile, _ := g.TileAt(x, y)
			tiles[2*x] = tileCell(r, tile.ID, cycle)

			if x+1 < g.Columns {
				east, _ := g.TileAt(x+1, y)
				tiles[2*x+1] = linkCell(r, tile.ID, east.ID, cycle,
					a.right, a.left, a.horizontal, a.bypass)
			}
		}
		t.AppendRow(tiles)

		if y == 0 {
			continue
		}

		links := make(table.Row, cols)
		for x := 0; x < g.Columns; x++ {
			tile, _ := g.TileAt(x, y)
			south, _ := g.TileAt(x, y-1)
			links[2*x] = linkCell(r, tile.ID, south.ID, cycle,
				a.down, a.up, a.vertical, a.bypass)
		}
		t.AppendRow(links)
	}

	return t.Render()
}

func tileCell(r *mapper.Result, t cgra.TileID, cycle int) string {
	period := r.II
	if r.Elastic {
		period = 1
	}

	for _, p := range r.Placements {
		if p.Tile == t && cycle >= p.Cycle && (cycle-p.Cycle)%period == 0 {
			return fmt.Sprintf("[ %2d ]", p.Node.ID)
		}
	}

	return "[    ]"
}

// linkCell draws the pair of links between a and b. forward is the arrow of
// a->b, backward of b->a. The bypass mark follows when one of them bypasses
// its destination.
func linkCell(
	r *mapper.Result,
	a, b cgra.TileID,
	cycle int,
	forward, backward, both, bypass string,
) string {
	fw, fwBypass := linkBusy(r, a, b, cycle)
	bw, bwBypass := linkBusy(r, b, a, cycle)

	var arrow string
	switch {
	case fw && bw:
		arrow = both
	case fw:
		arrow = forward
	case bw:
		arrow = backward
	default:
		return ""
	}

	if fwBypass || bwBypass {
		arrow += bypass
	}

	return arrow
}

// linkBusy tells if the link carries a value at the cycle and if that value
// bypasses the destination. Cycles past the horizon are folded back into
// it, one period at a time.
func linkBusy(r *mapper.Result, src, dst cgra.TileID, cycle int) (busy, bypass bool) {
	l, ok := r.Grid.OutLink(src, dst)
	if !ok {
		return false, false
	}

	period := r.II
	if r.Elastic {
		period = 1
	}

	for cycle >= r.Graph.Boundary() {
		cycle -= period
	}

	if r.Graph.LinkOccupant(l, cycle) == nil {
		return false, false
	}

	return true, r.Graph.IsBypass(l, cycle)
}

// Summary writes a table of the resources used on every tile.
func Summary(w io.Writer, r *mapper.Result) error {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s mapping, II %d", r.Strategy, r.II))
	t.AppendHeader(table.Row{
		"X", "Y", "Nodes", "Ctrl Mem", "Registers", "Out Link Slots",
	})

	for _, tile := range r.Grid.Tiles {
		nodes := ""
		for _, p := range r.Placements {
			if p.Tile != tile.ID {
				continue
			}
			if nodes != "" {
				nodes += " "
			}
			nodes += fmt.Sprintf("%s@%d", p.Node, p.Cycle)
		}

		slots := 0
		for _, l := range tile.OutLinks {
			slots += r.Graph.LinkSlotsUsed(l)
		}

		t.AppendRow(table.Row{
			tile.X,
			tile.Y,
			nodes,
			fmt.Sprintf("%d/%d", r.Graph.CtrlMemItems(tile.ID), tile.CtrlMemSize),
			fmt.Sprintf("%d/%d", r.Graph.RegistersInUse(tile.ID), tile.RegisterCount),
			slots,
		})
	}

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}
