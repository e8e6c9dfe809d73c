package export

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/segmentio/encoding/json"

	"github.com/sarchlab/cgramap/cgra"
	"github.com/sarchlab/cgramap/config"
	"github.com/sarchlab/cgramap/dfg"
	"github.com/sarchlab/cgramap/mapper"
	"github.com/sarchlab/cgramap/mrrg"
)

type hop struct {
	from, to cgra.TileID
	data     int
	cycle    int
	bypass   bool
}

type fixture struct {
	d          *dfg.Graph
	grid       *cgra.Grid
	g          *mrrg.Graph
	placements []mapper.Placement
}

func newFixture(d *dfg.Graph, grid *cgra.Grid, ii int, elastic bool) *fixture {
	g := mrrg.New(grid, ii)
	g.SetElastic(elastic)

	return &fixture{d: d, grid: grid, g: g}
}

func (f *fixture) place(id int, t cgra.TileID, cycle int, elastic bool) {
	n, _ := f.d.Node(id)
	f.g.CommitTile(t, n, cycle, elastic)
	f.placements = append(f.placements, mapper.Placement{Node: n, Tile: t, Cycle: cycle})
}

func (f *fixture) route(hops []hop, elastic bool) {
	for _, h := range hops {
		n, _ := f.d.Node(h.data)
		f.g.CommitLink(f.grid.MustLink(h.from, h.to), n, h.cycle, h.bypass, elastic)
	}
}

func (f *fixture) result(elastic bool) *mapper.Result {
	return &mapper.Result{
		II:         f.g.II(),
		Elastic:    elastic,
		Strategy:   mapper.StrategyHeuristic,
		DFG:        f.d,
		Grid:       f.grid,
		Placements: f.placements,
		Graph:      f.g,
	}
}

// diamondResult maps a load and a constant into an add on the 2x2 grid and
// sends the sum around tile 0 to a store.
//
//	2: STORE   3: CONST
//	0: LOAD    1: ADD
func diamondResult() *mapper.Result {
	d := dfg.NewGraph()
	d.AddNode(0, "LOAD").IsLoad = true
	d.AddNode(1, "CONST")
	d.AddNode(2, "ADD")
	d.AddNode(3, "STORE").IsStore = true
	d.Connect(0, 2)
	d.Connect(1, 2)
	d.Connect(2, 3)

	grid := config.MakeGridBuilder().
		WithWidth(2).
		WithHeight(2).
		WithLoadStoreOnAllTiles().
		Build()

	f := newFixture(d, grid, 1, true)
	f.place(0, 0, 0, true)
	f.place(1, 3, 0, true)
	f.place(2, 1, 1, true)
	f.place(3, 2, 3, true)
	f.route([]hop{
		{from: 0, to: 1, data: 0, cycle: 0},
		{from: 3, to: 1, data: 1, cycle: 0},
		{from: 1, to: 0, data: 2, cycle: 1, bypass: true},
		{from: 0, to: 2, data: 2, cycle: 2},
	}, true)

	return f.result(true)
}

// branchResult steers a value from the east with a condition from the west.
func branchResult() *mapper.Result {
	d := dfg.NewGraph()
	d.AddNode(0, "CMP").IsCompare = true
	d.AddNode(1, "PHI")
	d.AddNode(2, "BR").IsBranch = true
	d.Connect(0, 2)
	d.Connect(1, 2)

	grid := config.MakeGridBuilder().
		WithWidth(3).
		WithHeight(1).
		WithLoadStoreOnAllTiles().
		Build()

	f := newFixture(d, grid, 1, true)
	f.place(0, 0, 0, true)
	f.place(1, 2, 0, true)
	f.place(2, 1, 1, true)
	f.route([]hop{
		{from: 0, to: 1, data: 0, cycle: 0},
		{from: 2, to: 1, data: 1, cycle: 0},
	}, true)

	return f.result(true)
}

var _ = Describe("Config", func() {
	It("should configure every tile in row-major order", func() {
		configs, err := Config(diamondResult())

		Expect(err).NotTo(HaveOccurred())
		Expect(configs).To(Equal([]TileConfig{
			{
				X: 0, Y: 0, Op: "LOAD",
				SrcA: "self", SrcB: "self",
				Dst:      []string{"east"},
				Bypasses: []Bypass{{Src: "east", Dst: []string{"north"}}},
				DVFS:     "nominal",
			},
			{
				X: 1, Y: 0, Op: "ADD",
				SrcA: "west", SrcB: "north",
				Dst:  []string{"west"},
				DVFS: "nominal",
			},
			{
				X: 0, Y: 1, Op: "STORE",
				SrcA: "south", SrcB: "self",
				Dst:  []string{},
				DVFS: "nominal",
			},
			{
				X: 1, Y: 1, Op: "CONST",
				SrcA: "self", SrcB: "self",
				Dst:  []string{"south"},
				DVFS: "nominal",
			},
		}))
	})

	It("should leave idle tiles unconfigured", func() {
		d := dfg.NewGraph()
		d.AddNode(0, "CONST")
		grid := config.MakeGridBuilder().WithWidth(2).WithHeight(1).Build()

		f := newFixture(d, grid, 1, true)
		f.place(0, 0, 0, true)

		configs, err := Config(f.result(true))

		Expect(err).NotTo(HaveOccurred())
		Expect(configs).To(HaveLen(1))
		Expect(configs[0].Op).To(Equal("CONST"))
	})

	It("should configure a tile that only forwards a value", func() {
		d := dfg.NewGraph()
		d.AddNode(0, "A")
		d.AddNode(1, "B")
		d.Connect(0, 1)
		grid := config.MakeGridBuilder().
			WithWidth(3).
			WithHeight(1).
			WithLoadStoreOnAllTiles().
			Build()

		f := newFixture(d, grid, 1, true)
		f.place(0, 0, 0, true)
		f.place(1, 2, 2, true)
		f.route([]hop{
			{from: 0, to: 1, data: 0, cycle: 0, bypass: true},
			{from: 1, to: 2, data: 0, cycle: 1},
		}, true)

		configs, err := Config(f.result(true))

		Expect(err).NotTo(HaveOccurred())
		Expect(configs).To(HaveLen(3))
		Expect(configs[1]).To(Equal(TileConfig{
			X: 1, Y: 0, Op: "none",
			SrcA: "self", SrcB: "self",
			Dst:      []string{},
			Bypasses: []Bypass{{Src: "west", Dst: []string{"east"}}},
			DVFS:     "nominal",
		}))
	})

	It("should feed the compare result to the condition port", func() {
		configs, err := Config(branchResult())

		Expect(err).NotTo(HaveOccurred())
		Expect(configs[1].Branch).To(BeTrue())
		Expect(configs[1].SrcA).To(Equal("east"))
		Expect(configs[1].SrcB).To(Equal("west"))
	})

	It("should refuse modulo-scheduled mappings", func() {
		r := diamondResult()
		r.Elastic = false

		_, err := Config(r)

		Expect(err).To(MatchError(ErrUnsupported))
	})

	It("should configure a mapped chain", func() {
		d := dfg.NewGraph()
		d.AddNode(0, "A")
		d.AddNode(1, "B")
		d.AddNode(2, "C")
		d.Connect(0, 1)
		d.Connect(1, 2)

		grid := config.MakeGridBuilder().
			WithWidth(2).
			WithHeight(2).
			WithLoadStoreOnAllTiles().
			Build()

		r, ok := mapper.MakeBuilder().WithElastic(true).Build(d, grid).Heuristic(1)
		Expect(ok).To(BeTrue())

		configs, err := Config(r)

		Expect(err).NotTo(HaveOccurred())
		Expect(configs).To(HaveLen(3))

		ops := make([]string, len(configs))
		for i, c := range configs {
			ops[i] = c.Op
		}
		Expect(ops).To(Equal([]string{"A", "B", "C"}))
		Expect(configs[1].SrcA).To(Equal("west"))
		Expect(configs[2].SrcA).To(Equal("south"))
	})
})

var _ = Describe("TileConfig", func() {
	It("should keep the field order", func() {
		tc := TileConfig{
			X: 1, Y: 2, Op: "ADD",
			SrcA: "west", SrcB: "self",
			Dst: []string{"north"},
			Bypasses: []Bypass{
				{Src: "east", Dst: []string{"west"}},
				{Src: "south", Dst: []string{"north", "west"}},
			},
			DVFS: "nominal",
		}

		data, err := json.Marshal(tc)

		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"x":1,"y":2,"op":"ADD",` +
			`"src_a":"west","src_b":"self","dst":["north"],` +
			`"bps_src0":"east","bps_dst0":["west"],` +
			`"bps_src1":"south","bps_dst1":["north","west"],` +
			`"dvfs":"nominal"}`))
	})

	It("should name the branch ports", func() {
		tc := TileConfig{
			X: 0, Y: 0, Op: "BR", Branch: true,
			SrcA: "east", SrcB: "west",
			Dst:  []string{},
			DVFS: "nominal",
		}

		data, err := json.Marshal(tc)

		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"x":0,"y":0,"op":"BR",` +
			`"src_data":"east","src_bool":"west",` +
			`"dst_false":[],"dst_true":"self","dvfs":"nominal"}`))
	})

	It("should write a JSON array", func() {
		var buf bytes.Buffer

		Expect(WriteConfig(&buf, diamondResult())).To(Succeed())

		var tiles []map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &tiles)).To(Succeed())
		Expect(tiles).To(HaveLen(4))
		Expect(tiles[0]).To(HaveKeyWithValue("bps_src0", "east"))
		Expect(tiles[2]).To(HaveKeyWithValue("op", "STORE"))
	})
})

var _ = Describe("Schedule", func() {
	It("should draw every cycle up to the node count", func() {
		var buf bytes.Buffer

		Expect(Schedule(&buf, diamondResult(), Options{})).To(Succeed())

		out := buf.String()
		Expect(strings.Count(strings.ToLower(out), "cycle: ")).To(Equal(5))
		Expect(out).To(ContainSubstring("[  0 ]"))
		Expect(out).To(ContainSubstring("[  3 ]"))
		Expect(out).To(ContainSubstring("⇄◦"))
		Expect(out).To(ContainSubstring("↑"))
		Expect(out).To(ContainSubstring("↓"))
		Expect(out).To(HaveSuffix("II: 1\n"))
	})

	It("should draw plain arrows", func() {
		var buf bytes.Buffer

		Expect(Schedule(&buf, diamondResult(), Options{ASCII: true})).
			To(Succeed())

		out := buf.String()
		Expect(out).To(ContainSubstring("=*"))
		Expect(out).To(ContainSubstring("^"))
		for _, arrow := range []string{"→", "←", "↑", "↓", "⇄", "⇅"} {
			Expect(out).NotTo(ContainSubstring(arrow))
		}
	})

	It("should mark links that bypass their destination", func() {
		r := diamondResult()

		Expect(linkCell(r, 0, 1, 0, ">", "<", "=", "*")).To(Equal(">"))
		Expect(linkCell(r, 0, 1, 1, ">", "<", "=", "*")).To(Equal("=*"))
		Expect(linkCell(r, 2, 0, 2, "v", "^", "|", "*")).To(Equal("^"))
		Expect(linkCell(r, 2, 3, 2, ">", "<", "=", "*")).To(BeEmpty())
	})

	It("should only show a node at its periodic slots", func() {
		d := dfg.NewGraph()
		d.AddNode(7, "A")
		grid := config.MakeGridBuilder().WithWidth(1).WithHeight(1).Build()

		f := newFixture(d, grid, 2, false)
		f.place(7, 0, 1, false)
		r := f.result(false)

		Expect(tileCell(r, 0, 0)).To(Equal("[    ]"))
		Expect(tileCell(r, 0, 1)).To(Equal("[  7 ]"))
		Expect(tileCell(r, 0, 2)).To(Equal("[    ]"))
		Expect(tileCell(r, 0, 3)).To(Equal("[  7 ]"))
	})

	It("should summarize the resources of every tile", func() {
		var buf bytes.Buffer

		Expect(Summary(&buf, diamondResult())).To(Succeed())

		out := strings.ToLower(buf.String())
		Expect(out).To(ContainSubstring("add(2)@1"))
		Expect(out).To(ContainSubstring("ctrl mem"))
		Expect(out).To(ContainSubstring("1/8"))
	})
})
