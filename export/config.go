package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/segmentio/encoding/json"

	"github.com/sarchlab/cgramap/cgra"
	"github.com/sarchlab/cgramap/dfg"
	"github.com/sarchlab/cgramap/mapper"
	"github.com/sarchlab/cgramap/mrrg"
)

// ErrUnsupported is returned when configuring a modulo-scheduled mapping.
// Only static-elastic mappings have a per-tile configuration.
var ErrUnsupported = errors.New("config export is only supported for elastic mappings")

// SelfPort marks an unused port.
const SelfPort = "self"

const maxDestinations = 4

// Bypass forwards the data arriving on one port to other ports without
// consuming it.
type Bypass struct {
	Src string
	Dst []string
}

// TileConfig is the configuration of one tile of a static-elastic CGRA.
type TileConfig struct {
	X, Y int
	Op   string

	// Branch tiles read a data and a condition operand and steer the data to
	// DstFalse or back to the tile.
	Branch bool

	// SrcA and SrcB are the operand ports. For branches they are the data
	// and the condition ports.
	SrcA, SrcB string
	Dst        []string

	Bypasses []Bypass
	DVFS     string
}

// Config derives the configuration of the tiles that run a node or move a
// value, in row-major order.
func Config(r *mapper.Result) ([]TileConfig, error) {
	if !r.Elastic {
		return nil, ErrUnsupported
	}

	configs := make([]TileConfig, 0, r.Grid.TileCount())
	for i := range r.Grid.Tiles {
		t := &r.Grid.Tiles[i]
		if !hasWork(r, t) {
			continue
		}

		tc, err := tileConfig(r, t)
		if err != nil {
			return nil, err
		}

		configs = append(configs, tc)
	}

	return configs, nil
}

// hasWork tells if the tile hosts a node or has a link in use.
func hasWork(r *mapper.Result, t *cgra.Tile) bool {
	for _, p := range r.Placements {
		if p.Tile == t.ID {
			return true
		}
	}

	for _, links := range [][]cgra.LinkID{t.InLinks, t.OutLinks} {
		for _, l := range links {
			if useOf(r.Graph, l).inUse {
				return true
			}
		}
	}

	return false
}

// linkUse is what a link carries during the whole execution.
type linkUse struct {
	inUse  bool
	data   *dfg.Node
	bypass bool
}

func useOf(g *mrrg.Graph, l cgra.LinkID) linkUse {
	c, ok := g.FirstLinkUse(l)
	if !ok {
		return linkUse{}
	}

	return linkUse{
		inUse:  true,
		data:   g.LinkOccupant(l, c),
		bypass: g.IsBypass(l, c),
	}
}

func tileConfig(r *mapper.Result, t *cgra.Tile) (TileConfig, error) {
	g := r.Grid
	tc := TileConfig{
		X:    t.X,
		Y:    t.Y,
		Op:   "none",
		SrcA: SelfPort,
		SrcB: SelfPort,
		Dst:  []string{},
		DVFS: "nominal",
	}

	var node *dfg.Node
	for _, p := range r.Placements {
		if p.Tile == t.ID {
			node = p.Node
			break
		}
	}

	if node != nil {
		tc.Op = node.Opcode
		tc.Branch = node.IsBranch
		setSources(r, t, node, &tc)
	}

	for _, l := range t.OutLinks {
		u := useOf(r.Graph, l)
		if u.inUse && node != nil && u.data == node {
			tc.Dst = append(tc.Dst, g.SideOf(l, t.ID).Port())
		}
	}

	if len(tc.Dst) > maxDestinations {
		return TileConfig{}, fmt.Errorf("%s drives %d ports, at most %d are supported",
			t, len(tc.Dst), maxDestinations)
	}

	tc.Bypasses = bypasses(r, t)

	return tc, nil
}

func setSources(r *mapper.Result, t *cgra.Tile, node *dfg.Node, tc *TileConfig) {
	srcs := []*string{&tc.SrcA, &tc.SrcB}
	next := 0

	for _, l := range t.InLinks {
		u := useOf(r.Graph, l)
		if !u.inUse || (u.bypass && !u.data.IsPredecessorOf(node)) {
			continue
		}

		port := r.Grid.SideOf(l, t.ID).Port()

		if node.IsBranch {
			if u.data.IsCompare {
				tc.SrcB = port
			} else {
				tc.SrcA = port
			}

			continue
		}

		*srcs[next] = port
		next++

		if next == len(srcs) {
			return
		}
	}
}

func bypasses(r *mapper.Result, t *cgra.Tile) []Bypass {
	var bps []Bypass

	for _, in := range t.InLinks {
		u := useOf(r.Graph, in)
		if !u.inUse || !u.bypass {
			continue
		}

		bp := Bypass{Src: r.Grid.SideOf(in, t.ID).Port()}
		for _, out := range t.OutLinks {
			o := useOf(r.Graph, out)
			if o.inUse && o.data == u.data {
				bp.Dst = append(bp.Dst, r.Grid.SideOf(out, t.ID).Port())
			}
		}

		bps = append(bps, bp)
	}

	slices.SortStableFunc(bps, func(a, b Bypass) int {
		return strings.Compare(a.Src, b.Src)
	})

	return bps
}

// MarshalJSON writes the fields in a fixed order.
func (tc TileConfig) MarshalJSON() ([]byte, error) {
	var fields []field

	fields = append(fields,
		field{"x", tc.X},
		field{"y", tc.Y},
		field{"op", tc.Op},
	)

	if tc.Branch {
		fields = append(fields,
			field{"src_data", tc.SrcA},
			field{"src_bool", tc.SrcB},
			field{"dst_false", tc.Dst},
			field{"dst_true", SelfPort},
		)
	} else {
		fields = append(fields,
			field{"src_a", tc.SrcA},
			field{"src_b", tc.SrcB},
			field{"dst", tc.Dst},
		)
	}

	for i, bp := range tc.Bypasses {
		dst := bp.Dst
		if dst == nil {
			dst = []string{}
		}

		fields = append(fields,
			field{"bps_src" + strconv.Itoa(i), bp.Src},
			field{"bps_dst" + strconv.Itoa(i), dst},
		)
	}

	fields = append(fields, field{"dvfs", tc.DVFS})

	return marshalFields(fields)
}

type field struct {
	key   string
	value any
}

func marshalFields(fields []field) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// WriteConfig writes the tile configurations as an indented JSON array.
func WriteConfig(w io.Writer, r *mapper.Result) error {
	configs, err := Config(r)
	if err != nil {
		return err
	}

	return EncodeConfig(w, configs)
}

// EncodeConfig writes configurations computed by Config.
func EncodeConfig(w io.Writer, configs []TileConfig) error {
	data, err := json.MarshalIndent(configs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}
