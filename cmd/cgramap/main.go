// Command cgramap maps dataflow graphs onto CGRAs.
package main

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var rootCmd = &cobra.Command{
	Use:   "cgramap",
	Short: "A placer, router and modulo scheduler for CGRAs.",
	Long: `Map the operations of a dataflow graph onto the tiles of a CGRA,
route their dependences over the interconnect and schedule them under an
initiation interval.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
	rootCmd.PersistentFlags().Bool("trace", false, "log every attempt and placement")
	rootCmd.PersistentFlags().String("log", "", "write the mapper log to a file instead of stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
