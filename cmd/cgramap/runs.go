package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cgramap/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs [flags] database",
	Short: "list the runs archived in a database.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging(cmd)

		s, err := store.Open(args[0])
		if err != nil {
			log.Errorf("cannot open the archive: %v", err)
			atexit.Exit(2)
		}
		defer s.Close()

		ctx := context.Background()

		runs, err := s.Runs(ctx)
		if err != nil {
			log.Errorf("%v", err)
			atexit.Exit(2)
		}

		t := table.NewWriter()
		t.AppendHeader(table.Row{
			"Run", "Created", "DFG", "Arch", "Strategy", "Elastic", "Attempts", "II",
		})

		for _, r := range runs {
			attempts, err := s.Attempts(ctx, r.ID)
			if err != nil {
				log.Errorf("%v", err)
				atexit.Exit(2)
			}

			ii := "-"
			if r.OK {
				ii = fmt.Sprint(r.II)
			}

			t.AppendRow(table.Row{
				r.ID,
				r.CreatedAt.Format("2006-01-02 15:04:05"),
				r.DFG,
				r.Arch,
				r.Strategy,
				r.Elastic,
				len(attempts),
				ii,
			})
		}

		fmt.Println(t.Render())
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}
