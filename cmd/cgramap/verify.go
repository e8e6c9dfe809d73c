package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cgramap/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [flags]",
	Short: "map a dataflow graph and check the mapping.",
	Long: `Map a dataflow graph, then recheck the placements and routes against
the CGRA: slot exclusivity, memory capability, control memory, route timing,
backedge latency and the II lower bound. Exits with status 1 on any issue.`,
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging(cmd)
		j := loadJob(cmd)

		res, ok := j.run(nil)
		if !ok {
			log.Errorf("no mapping found for %s", j.dfgPath)
			atexit.Exit(1)
		}

		report := verify.GenerateReport(res,
			verify.Options{RecMIIDelay: j.recMIIDelay})

		if path := getString(cmd, "report"); path != "" {
			if err := report.SaveReportToFile(path); err != nil {
				log.Errorf("%v", err)
				atexit.Exit(2)
			}
		} else {
			report.WriteReport(os.Stdout)
		}

		if !report.Passed() {
			log.Errorf("%d issues found", len(report.Issues))
			atexit.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	addMappingFlags(verifyCmd)
	verifyCmd.Flags().String("report", "", "write the report to a file instead of stdout")
}
