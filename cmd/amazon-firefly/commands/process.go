package commands

import (
	"amazon-firefly/internal/cache"
	"amazon-firefly/internal/pipeline"

	"github.com/spf13/cobra"
)

var processCache string

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Write the Firefly III csv files from a cache instance.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		opts := pipelineOptions()
		opts.FromCache = processCache

		report, err := pipeline.New(nil, store).Run(cmd.Context(), opts)
		printReport(report)
		return err
	},
}

func init() {
	processCmd.Flags().StringVar(&processCache, "cache", cache.Latest, "name of the cache instance to process")
	rootCmd.AddCommand(processCmd)
}
