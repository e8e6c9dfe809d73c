package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cgramap/cgra"
	"github.com/sarchlab/cgramap/config"
)

var _ = Describe("GridBuilder", func() {
	It("should build a bidirectional mesh", func() {
		g := config.MakeGridBuilder().
			WithWidth(3).
			WithHeight(2).
			Build()

		Expect(g.TileCount()).To(Equal(6))
		// 2 rows * 2 horizontal pairs + 3 vertical pairs, both directions.
		Expect(g.Links).To(HaveLen(14))

		center, _ := g.TileAt(1, 0)
		Expect(center.OutLinks).To(HaveLen(3))
		Expect(center.InLinks).To(HaveLen(3))
	})

	It("should reserve the edge columns for memory by default", func() {
		g := config.MakeGridBuilder().WithWidth(3).WithHeight(2).Build()

		for _, t := range g.Tiles {
			Expect(t.CanLoad).To(Equal(t.X == 0))
			Expect(t.CanStore).To(Equal(t.X == 2))
			Expect(t.CtrlMemSize).To(Equal(8))
			Expect(t.RegisterCount).To(Equal(4))
		}
	})

	It("should place memory capabilities explicitly", func() {
		g := config.MakeGridBuilder().
			WithWidth(2).
			WithHeight(2).
			WithLoadTiles(config.Coord{1, 1}).
			Build()

		t, _ := g.TileAt(1, 1)
		Expect(t.CanLoad).To(BeTrue())
		for _, t := range g.Tiles {
			Expect(t.CanStore).To(BeFalse())
		}
	})

	It("should build custom topologies", func() {
		g := config.MakeGridBuilder().
			WithWidth(2).
			WithHeight(1).
			WithoutMesh().
			WithLink(config.Coord{0, 0}, config.Coord{1, 0}).
			Build()

		Expect(g.Links).To(HaveLen(1))
		Expect(g.Neighbors(0)).To(Equal([]cgra.TileID{1}))
		Expect(g.Neighbors(1)).To(BeEmpty())
	})

	It("should not share link slices between builders", func() {
		base := config.MakeGridBuilder().WithWidth(2).WithHeight(1).WithoutMesh()
		a := base.WithLink(config.Coord{0, 0}, config.Coord{1, 0})
		b := base.WithLink(config.Coord{1, 0}, config.Coord{0, 0})

		Expect(a.Build().Neighbors(0)).To(HaveLen(1))
		Expect(b.Build().Neighbors(0)).To(BeEmpty())
	})

	It("should panic on tiles outside of the grid", func() {
		b := config.MakeGridBuilder().
			WithWidth(2).
			WithHeight(2).
			WithStoreTiles(config.Coord{2, 0})
		Expect(func() { b.Build() }).To(Panic())
	})
})

var _ = Describe("ParseArch", func() {
	It("should read an architecture", func() {
		spec, err := config.ParseArch([]byte(`
rows: 2
columns: 3
ctrl_mem_items: 2
registers: 1
load_tiles: [[0, 0]]
store_tiles: [[2, 1]]
links: [[0, 0, 1, 1]]
`))
		Expect(err).NotTo(HaveOccurred())

		g := spec.Build()
		Expect(g.Rows).To(Equal(2))
		Expect(g.Columns).To(Equal(3))
		Expect(g.Tile(0).CtrlMemSize).To(Equal(2))
		Expect(g.Tile(0).CanLoad).To(BeTrue())
		Expect(g.Tile(1).CanLoad).To(BeFalse())
		Expect(g.Tile(5).CanStore).To(BeTrue())

		_, ok := g.OutLink(0, 4)
		Expect(ok).To(BeTrue())
	})

	It("should fill in defaults", func() {
		spec, err := config.ParseArch([]byte(`columns: 2`))
		Expect(err).NotTo(HaveOccurred())
		Expect(spec.Rows).To(Equal(4))
		Expect(spec.CtrlMemItems).To(Equal(8))
		Expect(spec.Topology).To(Equal("mesh"))
	})

	DescribeTable("should reject invalid descriptions",
		func(doc string, msg string) {
			_, err := config.ParseArch([]byte(doc))
			Expect(err).To(MatchError(ContainSubstring(msg)))
		},
		Entry("size", "rows: 0", "invalid grid size"),
		Entry("ctrl mem", "ctrl_mem_items: 0", "ctrl_mem_items"),
		Entry("topology", "topology: torus", "unknown topology"),
		Entry("memory tile", "load_tiles: [[9, 9]]", "outside of the grid"),
		Entry("self link", "links: [[1, 1, 1, 1]]", "loops on a tile"),
	)
})
