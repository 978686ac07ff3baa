package commands

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape the configured years, cache the result and write the Firefly III csv files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := pipelineOptions()
		opts.SaveCache = true

		report, err := runScrape(cmd.Context(), opts)
		printReport(report)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
