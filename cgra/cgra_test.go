package cgra_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cgramap/cgra"
)

var _ = Describe("Side", func() {
	It("should name ports in lower case", func() {
		Expect(cgra.North.Port()).To(Equal("north"))
		Expect(cgra.West.Port()).To(Equal("west"))
	})

	It("should find the opposite side", func() {
		Expect(cgra.East.Opposite()).To(Equal(cgra.West))
		Expect(cgra.South.Opposite()).To(Equal(cgra.North))
	})
})

var _ = Describe("Grid", func() {
	var g *cgra.Grid

	BeforeEach(func() {
		g = cgra.NewGrid(2, 3)
	})

	It("should store tiles row by row from the bottom-left corner", func() {
		Expect(g.TileCount()).To(Equal(6))

		t, ok := g.TileAt(2, 1)
		Expect(ok).To(BeTrue())
		Expect(t.ID).To(Equal(cgra.TileID(5)))
		Expect(t.String()).To(Equal("Tile(2, 1)"))

		_, ok = g.TileAt(3, 0)
		Expect(ok).To(BeFalse())
	})

	It("should connect tiles with directed links", func() {
		l := g.Connect(0, 1)
		Expect(g.Connect(0, 1)).To(Equal(l))
		Expect(g.Links).To(HaveLen(1))

		_, ok := g.OutLink(1, 0)
		Expect(ok).To(BeFalse())
		Expect(g.MustLink(0, 1)).To(Equal(l))
		Expect(func() { g.MustLink(1, 0) }).To(Panic())

		Expect(g.Neighbors(0)).To(Equal([]cgra.TileID{1}))
		Expect(g.Tile(1).InLinks).To(Equal([]cgra.LinkID{l}))
	})

	It("should tell which side a link is attached to", func() {
		east := g.Connect(0, 1)
		north := g.Connect(0, 3)

		Expect(g.SideOf(east, 0)).To(Equal(cgra.East))
		Expect(g.SideOf(east, 1)).To(Equal(cgra.West))
		Expect(g.SideOf(north, 0)).To(Equal(cgra.North))
		Expect(g.SideOf(north, 3)).To(Equal(cgra.South))
		Expect(func() { g.SideOf(north, 5) }).To(Panic())
	})

	It("should reject links looping on a tile", func() {
		Expect(func() { g.Connect(2, 2) }).To(Panic())
	})
})
