package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cgramap/cgra"
	"github.com/sarchlab/cgramap/config"
	"github.com/sarchlab/cgramap/cost"
	"github.com/sarchlab/cgramap/dfg"
	"github.com/sarchlab/cgramap/mapper"
)

// Get an expected flag, or exit if an error arises.
func getFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		atexit.Exit(2)
	}

	return r
}

func getString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		atexit.Exit(2)
	}

	return r
}

func getInt(cmd *cobra.Command, flag string) int {
	r, err := cmd.Flags().GetInt(flag)
	if err != nil {
		fmt.Println(err)
		atexit.Exit(2)
	}

	return r
}

func getFloat(cmd *cobra.Command, flag string) float64 {
	r, err := cmd.Flags().GetFloat64(flag)
	if err != nil {
		fmt.Println(err)
		atexit.Exit(2)
	}

	return r
}

// configureLogging sets the level of the user messages and routes the
// structured mapper log to stderr or to a file.
func configureLogging(cmd *cobra.Command) {
	level := slog.LevelWarn

	if getFlag(cmd, "trace") {
		level = slog.LevelInfo
	}

	if getFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	if path := getString(cmd, "log"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			log.Fatalf("cannot create log file: %v", err)
		}

		atexit.Register(func() {
			_ = f.Sync()
			_ = f.Close()
		})

		out = f
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// addMappingFlags registers the flags shared by the commands that map.
func addMappingFlags(cmd *cobra.Command) {
	cmd.Flags().String("dfg", "", "dataflow graph file (YAML)")
	cmd.Flags().String("arch", "", "CGRA description file (YAML); a 4x4 mesh if omitted")
	cmd.Flags().String("weights", "", "cost weights file (YAML)")
	cmd.Flags().String("strategy", string(mapper.StrategyHeuristic), "heuristic or exhaustive")
	cmd.Flags().Int("ii", 1, "first initiation interval to try")
	cmd.Flags().Int("max-ii", 32, "largest initiation interval to try (0 for no limit)")
	cmd.Flags().Float64("recmii-delay", 1, "delay of a dependence when computing RecMII")
	cmd.Flags().Bool("elastic", false, "target a static-elastic CGRA")

	//nolint:errcheck
	cmd.MarkFlagRequired("dfg")
}

// job is a fully loaded mapping request.
type job struct {
	dfgPath  string
	archPath string
	d        *dfg.Graph
	grid     *cgra.Grid

	strategy    mapper.Strategy
	startII     int
	maxII       int
	recMIIDelay float64
	elastic     bool
	weights     cost.Weights
}

func loadJob(cmd *cobra.Command) job {
	j := job{
		dfgPath:     getString(cmd, "dfg"),
		archPath:    getString(cmd, "arch"),
		strategy:    mapper.Strategy(getString(cmd, "strategy")),
		startII:     getInt(cmd, "ii"),
		maxII:       getInt(cmd, "max-ii"),
		recMIIDelay: getFloat(cmd, "recmii-delay"),
		elastic:     getFlag(cmd, "elastic"),
		weights:     cost.DefaultWeights(),
	}

	switch j.strategy {
	case mapper.StrategyHeuristic, mapper.StrategyExhaustive:
	default:
		log.Errorf("unknown strategy %q", j.strategy)
		atexit.Exit(2)
	}

	d, err := dfg.Load(j.dfgPath)
	if err != nil {
		log.Errorf("cannot load dfg: %v", err)
		atexit.Exit(2)
	}
	j.d = d

	if j.archPath == "" {
		j.grid = config.MakeGridBuilder().Build()
	} else {
		spec, err := config.LoadArch(j.archPath)
		if err != nil {
			log.Errorf("cannot load arch: %v", err)
			atexit.Exit(2)
		}
		j.grid = spec.Build()
	}

	if path := getString(cmd, "weights"); path != "" {
		w, err := cost.LoadWeights(path)
		if err != nil {
			log.Errorf("cannot load weights: %v", err)
			atexit.Exit(2)
		}
		j.weights = w
	}

	log.Debugf("loaded %d nodes and a %dx%d grid",
		j.d.NodeCount(), j.grid.Columns, j.grid.Rows)

	return j
}

func (j job) archName() string {
	if j.archPath == "" {
		return fmt.Sprintf("default %dx%d", j.grid.Columns, j.grid.Rows)
	}

	return j.archPath
}

// run maps the graph with the requested strategy.
func (j job) run(o mapper.Observer) (*mapper.Result, bool) {
	b := mapper.MakeBuilder().
		WithElastic(j.elastic).
		WithMaxII(j.maxII).
		WithRecMIIDelay(j.recMIIDelay).
		WithWeights(j.weights)
	if o != nil {
		b = b.WithObserver(o)
	}

	m := b.Build(j.d, j.grid)
	log.Infof("ResMII %d, RecMII %d, starting at II %d",
		m.ResMII(), m.RecMII(), m.StartII(j.startII))

	if j.strategy == mapper.StrategyExhaustive {
		return m.Exhaustive(j.startII)
	}

	return m.Heuristic(j.startII)
}
