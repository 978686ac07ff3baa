package commands

import (
	"github.com/spf13/cobra"
)

var saveCache bool

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape the configured years without writing csv files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := pipelineOptions()
		opts.SaveCache = saveCache
		opts.SkipProcess = true

		report, err := runScrape(cmd.Context(), opts)
		printReport(report)
		return err
	},
}

func init() {
	scrapeCmd.Flags().BoolVar(&saveCache, "save-cache", true, "store the scraped orders in the cache")
	rootCmd.AddCommand(scrapeCmd)
}
