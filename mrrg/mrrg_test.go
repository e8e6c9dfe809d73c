package mrrg_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cgramap/cgra"
	"github.com/sarchlab/cgramap/config"
	"github.com/sarchlab/cgramap/dfg"
	"github.com/sarchlab/cgramap/mrrg"
)

var _ = Describe("Graph", func() {
	var (
		grid       *cgra.Grid
		g          *mrrg.Graph
		a, b, load *dfg.Node
	)

	BeforeEach(func() {
		grid = config.MakeGridBuilder().
			WithWidth(2).
			WithHeight(2).
			WithCtrlMemSize(2).
			Build()
		g = mrrg.New(grid, 2)

		d := dfg.NewGraph()
		a = d.AddNode(0, "add")
		b = d.AddNode(1, "mul")
		load = d.AddNode(2, "load")
		load.IsLoad = true
	})

	It("should size the horizon to tiles * II * II", func() {
		Expect(g.Boundary()).To(Equal(16))
		g.Reset(3)
		Expect(g.Boundary()).To(Equal(36))
		Expect(g.II()).To(Equal(3))
	})

	It("should reject a non-positive II", func() {
		Expect(func() { g.Reset(0) }).To(Panic())
	})

	Context("tiles", func() {
		It("should occupy every II-th cycle", func() {
			g.CommitTile(0, a, 1, false)

			Expect(g.NodeAt(0, 1)).To(Equal(a))
			Expect(g.NodeAt(0, 5)).To(Equal(a))
			Expect(g.NodeAt(0, 2)).To(BeNil())
			Expect(g.NodeAt(0, 0)).To(BeNil())
			Expect(g.CtrlMemItems(0)).To(Equal(1))

			Expect(g.CanOccupyTile(0, 3)).To(BeFalse())
			Expect(g.CanOccupyTile(0, 0)).To(BeTrue())
			Expect(g.MinIdleCycle(0, 1)).To(Equal(2))
		})

		It("should occupy every cycle when elastic", func() {
			g.CommitTile(0, a, 3, true)

			Expect(g.TileOccupied(0, 2)).To(BeFalse())
			Expect(g.TileOccupied(0, 3)).To(BeTrue())
			Expect(g.TileOccupied(0, 4)).To(BeTrue())
			Expect(g.MinIdleCycle(0, 0)).To(Equal(g.Boundary()))
		})

		It("should check every cycle of an elastic table", func() {
			g.CommitTile(0, a, 3, false)
			Expect(g.CanOccupyTile(0, 2)).To(BeTrue())

			g.SetElastic(true)
			Expect(g.CanOccupyTile(0, 2)).To(BeFalse())

			g.Reset(2)
			Expect(g.CanOccupyTile(0, 2)).To(BeTrue())
			g.CommitTile(0, a, 3, true)
			Expect(g.CanOccupyTile(0, 2)).To(BeFalse())
		})

		It("should enforce the control memory budget", func() {
			g.CommitTile(1, a, 0, false)
			g.CommitTile(1, b, 1, false)

			Expect(g.CanOccupyTile(1, 2)).To(BeFalse())
			Expect(g.MinIdleCycle(1, 0)).To(Equal(g.Boundary()))
		})

		It("should panic on a double booking", func() {
			g.CommitTile(0, a, 0, false)
			Expect(func() { g.CommitTile(0, b, 2, false) }).To(Panic())
		})

		It("should panic outside of the horizon", func() {
			Expect(func() { g.CommitTile(0, a, 16, false) }).To(Panic())
		})

		It("should check memory capabilities", func() {
			west, _ := grid.TileAt(0, 1)
			east, _ := grid.TileAt(1, 1)

			Expect(g.CanSupport(west.ID, load)).To(BeTrue())
			Expect(g.CanSupport(east.ID, load)).To(BeFalse())
			Expect(g.CanHost(east.ID, a, 0)).To(BeTrue())
		})

		It("should track register usage", func() {
			g.HoldRegister(2)
			Expect(g.RegistersInUse(2)).To(Equal(1))
			Expect(g.AvailableRegisters(2)).To(Equal(3))
		})
	})

	Context("links", func() {
		var l cgra.LinkID

		BeforeEach(func() {
			l = grid.MustLink(0, 1)
		})

		It("should let the same data share a slot", func() {
			g.CommitLink(l, a, 0, true, false)

			Expect(g.CanOccupyLink(l, a, 0)).To(BeTrue())
			Expect(g.CanOccupyLink(l, b, 0)).To(BeFalse())
			Expect(g.CanOccupyLink(l, b, 2)).To(BeFalse())
			Expect(g.CanOccupyLink(l, b, 1)).To(BeTrue())
			Expect(g.IsBypass(l, 0)).To(BeTrue())
			Expect(g.IsReused(l, 0)).To(BeFalse())

			g.CommitLink(l, a, 0, false, false)
			Expect(g.IsReused(l, 0)).To(BeTrue())
			Expect(g.IsBypass(l, 0)).To(BeFalse())
			Expect(g.LinkOccupant(l, 4)).To(Equal(a))
		})

		It("should panic when a slot carries other data", func() {
			g.CommitLink(l, a, 1, false, false)
			Expect(func() { g.CommitLink(l, b, 3, false, false) }).To(Panic())
		})

		It("should answer occupancy queries", func() {
			Expect(g.FreeOutLinks(0, 0)).To(Equal(2))
			_, used := g.FirstLinkUse(l)
			Expect(used).To(BeFalse())

			g.CommitLink(l, a, 3, false, false)

			Expect(g.FreeOutLinks(0, 1)).To(Equal(1))
			Expect(g.FreeOutLinks(0, 0)).To(Equal(2))
			Expect(g.FreeInLinks(1, 1)).To(Equal(1))
			Expect(g.Carries(l, a, 1)).To(BeTrue())
			Expect(g.Carries(l, b, 1)).To(BeFalse())
			Expect(g.LinkSlotsUsed(l)).To(Equal(7))

			first, used := g.FirstLinkUse(l)
			Expect(used).To(BeTrue())
			Expect(first).To(Equal(3))
		})

		It("should forget everything on reset", func() {
			g.CommitTile(0, a, 0, false)
			g.CommitLink(l, a, 0, false, false)
			g.Reset(2)

			Expect(g.CtrlMemItems(0)).To(Equal(0))
			Expect(g.LinkOccupant(l, 0)).To(BeNil())
		})
	})
})
