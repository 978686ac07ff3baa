package commands

import (
	"context"
	"fmt"
	"log/slog"

	"amazon-firefly/internal/config"
	"amazon-firefly/internal/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath    string
	debug         bool
	startYear     int
	endYear       int
	maxOrders     int
	outputDir     string
	noSessionSave bool
)

// cfg is loaded before any subcommand runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "amazon-firefly",
	Short: "amazon-firefly scrapes your amazon.it order history into Firefly III csv files.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(debug)

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("start-year") {
			loaded.StartYear = startYear
		}
		if flags.Changed("end-year") {
			loaded.EndYear = endYear
		}
		if flags.Changed("max-orders") {
			loaded.MaxOrders = &maxOrders
		}
		if flags.Changed("output") {
			loaded.OutputDir = outputDir
		}

		for _, warning := range loaded.Validate() {
			slog.Warn("config", "warning", warning)
		}
		cfg = loaded
		return nil
	},
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "config/config.json5", "path to the json5 config file")
	flags.BoolVar(&debug, "debug", false, "log debug messages and dump fetched pages to .dev/pages")
	flags.IntVar(&startYear, "start-year", 0, "first year to scrape, defaults to the current year")
	flags.IntVar(&endYear, "end-year", 0, "last year to scrape, defaults to the current year")
	flags.IntVar(&maxOrders, "max-orders", -1, "stop after this many accepted orders, negative for no limit")
	flags.StringVar(&outputDir, "output", "", "directory the csv files are written to")
	flags.BoolVar(&noSessionSave, "no-session-save", false, "do not save the browser session when done")
}

func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		return fmt.Errorf("amazon-firefly: %w", err)
	}
	return nil
}
