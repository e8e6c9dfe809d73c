package store_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cgramap/config"
	"github.com/sarchlab/cgramap/dfg"
	"github.com/sarchlab/cgramap/mapper"
	"github.com/sarchlab/cgramap/store"
)

var _ = Describe("Store", func() {
	var (
		ctx  context.Context
		path string
		s    *store.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		path = filepath.Join(GinkgoT().TempDir(), "runs.db")

		var err error
		s, err = store.Open(path)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	It("should refuse an empty path", func() {
		_, err := store.Open("")
		Expect(err).To(HaveOccurred())
	})

	It("should start empty", func() {
		runs, err := s.Runs(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(BeEmpty())
	})

	It("should archive the attempts and the mapping of a run", func() {
		d := dfg.NewGraph()
		d.AddNode(0, "phi").IsLoad = true
		d.AddNode(1, "add").IsStore = true
		d.Connect(0, 1)
		d.Connect(1, 0)

		grid := config.MakeGridBuilder().
			WithWidth(2).
			WithHeight(1).
			WithLoadTiles(config.Coord{0, 0}).
			WithStoreTiles(config.Coord{1, 0}).
			Build()

		rec, err := s.BeginRun(ctx, store.RunInfo{
			DFG:      "loop.yaml",
			Arch:     "2x1",
			Strategy: string(mapper.StrategyHeuristic),
			StartII:  1,
			Nodes:    d.NodeCount(),
		})
		Expect(err).NotTo(HaveOccurred())

		res, ok := mapper.MakeBuilder().
			WithRecMIIDelay(0).
			WithObserver(rec).
			Build(d, grid).
			Heuristic(1)
		Expect(ok).To(BeTrue())
		Expect(rec.Err()).NotTo(HaveOccurred())
		Expect(rec.Finish(res)).To(Succeed())

		runs, err := s.Runs(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].ID).To(Equal(rec.RunID()))
		Expect(runs[0].DFG).To(Equal("loop.yaml"))
		Expect(runs[0].OK).To(BeTrue())
		Expect(runs[0].II).To(Equal(2))
		Expect(runs[0].Nodes).To(Equal(2))

		attempts, err := s.Attempts(ctx, rec.RunID())
		Expect(err).NotTo(HaveOccurred())
		Expect(attempts).To(HaveLen(2))
		Expect(attempts[0].II).To(Equal(1))
		Expect(attempts[0].Placed).To(Equal(1))
		Expect(attempts[0].OK).To(BeFalse())
		Expect(attempts[1].II).To(Equal(2))
		Expect(attempts[1].Placed).To(Equal(2))
		Expect(attempts[1].OK).To(BeTrue())

		placements, err := s.Placements(ctx, rec.RunID())
		Expect(err).NotTo(HaveOccurred())
		Expect(placements).To(Equal([]store.PlacementRow{
			{NodeID: 0, Opcode: "phi", Tile: 0, X: 0, Y: 0, Cycle: 0},
			{NodeID: 1, Opcode: "add", Tile: 1, X: 1, Y: 0, Cycle: 1},
		}))

		routes, err := s.Routes(ctx, rec.RunID())
		Expect(err).NotTo(HaveOccurred())
		Expect(routes).To(Equal([]store.RouteRow{
			{Producer: 0, Consumer: 1, Latency: 1, Path: "0@0 -> 1@1"},
			{Producer: 1, Consumer: 0, Backedge: true, Latency: 1, Path: "1@1 -> 0@2"},
		}))
	})

	It("should count backtracks and archive failures", func() {
		d := dfg.NewGraph()
		d.AddNode(0, "a")
		d.AddNode(1, "b")
		d.AddNode(2, "c")
		d.Connect(0, 2)
		d.Connect(1, 2)

		grid := config.MakeGridBuilder().
			WithWidth(2).
			WithHeight(1).
			WithCtrlMemSize(1).
			WithLoadStoreOnAllTiles().
			Build()

		rec, err := s.BeginRun(ctx, store.RunInfo{
			Strategy: string(mapper.StrategyExhaustive),
			StartII:  1,
			Nodes:    d.NodeCount(),
		})
		Expect(err).NotTo(HaveOccurred())

		_, ok := mapper.MakeBuilder().WithObserver(rec).Build(d, grid).Exhaustive(1)
		Expect(ok).To(BeFalse())
		Expect(rec.Finish(nil)).To(Succeed())

		attempts, err := s.Attempts(ctx, rec.RunID())
		Expect(err).NotTo(HaveOccurred())
		Expect(attempts).To(ConsistOf(store.Attempt{
			ID:         attempts[0].ID,
			RunID:      rec.RunID(),
			Strategy:   "exhaustive",
			II:         2,
			Placed:     4,
			Backtracks: 5,
		}))

		runs, err := s.Runs(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(runs[0].OK).To(BeFalse())
		Expect(runs[0].II).To(BeZero())
	})

	It("should keep the runs across sessions", func() {
		_, err := s.BeginRun(ctx, store.RunInfo{DFG: "a.yaml"})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Close()).To(Succeed())

		s, err = store.Open(path)
		Expect(err).NotTo(HaveOccurred())

		runs, err := s.Runs(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].DFG).To(Equal("a.yaml"))
	})
})
