package main

import (
	"context"
	"errors"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"golang.org/x/term"

	"github.com/sarchlab/cgramap/export"
	"github.com/sarchlab/cgramap/mapper"
	"github.com/sarchlab/cgramap/store"
	"github.com/sarchlab/cgramap/verify"
)

var mapCmd = &cobra.Command{
	Use:   "map [flags]",
	Short: "map a dataflow graph onto a CGRA.",
	Long: `Map a dataflow graph onto a CGRA and print the cycle-by-cycle
schedule. Elastic mappings can also be written as per-tile configurations.`,
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging(cmd)
		j := loadJob(cmd)

		rec := beginRecording(cmd, j)

		var o mapper.Observer
		if rec != nil {
			o = rec
		}

		res, ok := j.run(o)
		finishRecording(rec, res)

		if !ok {
			log.Errorf("no mapping found for %s", j.dfgPath)
			atexit.Exit(1)
		}

		log.Infof("mapped %d nodes at II %d", len(res.Placements), res.II)

		writeSchedule(cmd, res)

		if path := getString(cmd, "config"); path != "" {
			writeConfig(path, res)
		}

		if getFlag(cmd, "verify") {
			report := verify.GenerateReport(res,
				verify.Options{RecMIIDelay: j.recMIIDelay})
			report.WriteReport(os.Stdout)

			if !report.Passed() {
				atexit.Exit(1)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(mapCmd)
	addMappingFlags(mapCmd)
	mapCmd.Flags().StringP("output", "o", "", "write the schedule to a file instead of stdout")
	mapCmd.Flags().Bool("ascii", false, "draw the links with plain characters")
	mapCmd.Flags().Bool("summary", true, "print the resources used on every tile")
	mapCmd.Flags().String("config", "", "write the per-tile configuration (elastic only) as JSON")
	mapCmd.Flags().String("db", "", "archive the run in a SQLite database")
	mapCmd.Flags().Bool("verify", false, "check the mapping and print a report")
}

func beginRecording(cmd *cobra.Command, j job) *store.Recorder {
	path := getString(cmd, "db")
	if path == "" {
		return nil
	}

	s, err := store.Open(path)
	if err != nil {
		log.Errorf("cannot open the archive: %v", err)
		atexit.Exit(2)
	}

	atexit.Register(func() {
		if err := s.Close(); err != nil {
			log.Warnf("closing the archive: %v", err)
		}
	})

	rec, err := s.BeginRun(context.Background(), store.RunInfo{
		DFG:      j.dfgPath,
		Arch:     j.archName(),
		Strategy: string(j.strategy),
		Elastic:  j.elastic,
		StartII:  j.startII,
		Nodes:    j.d.NodeCount(),
	})
	if err != nil {
		log.Errorf("cannot archive the run: %v", err)
		atexit.Exit(2)
	}

	return rec
}

func finishRecording(rec *store.Recorder, res *mapper.Result) {
	if rec == nil {
		return
	}

	if err := rec.Finish(res); err != nil {
		log.Warnf("the run was not fully archived: %v", err)
		return
	}

	log.Debugf("archived run %d", rec.RunID())
}

func writeSchedule(cmd *cobra.Command, res *mapper.Result) {
	var (
		w     io.Writer = os.Stdout
		ascii           = getFlag(cmd, "ascii")
	)

	if path := getString(cmd, "output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			log.Errorf("cannot create %s: %v", path, err)
			atexit.Exit(2)
		}
		defer f.Close()

		w = f
	} else if !term.IsTerminal(int(os.Stdout.Fd())) {
		ascii = true
	}

	if err := export.Schedule(w, res, export.Options{ASCII: ascii}); err != nil {
		log.Errorf("%v", err)
		atexit.Exit(2)
	}

	if getFlag(cmd, "summary") {
		if err := export.Summary(w, res); err != nil {
			log.Errorf("%v", err)
			atexit.Exit(2)
		}
	}
}

func writeConfig(path string, res *mapper.Result) {
	configs, err := export.Config(res)
	if errors.Is(err, export.ErrUnsupported) {
		log.Warnf("skipping %s: %v", path, err)
		return
	}

	if err != nil {
		log.Errorf("%v", err)
		atexit.Exit(2)
	}

	f, err := os.Create(path)
	if err != nil {
		log.Errorf("cannot create %s: %v", path, err)
		atexit.Exit(2)
	}
	defer f.Close()

	if err := export.EncodeConfig(f, configs); err != nil {
		log.Errorf("%v", err)
		atexit.Exit(2)
	}

	log.Infof("wrote the tile configuration to %s", path)
}
