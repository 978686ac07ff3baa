package commands

import (
	"os"
	"time"

	"amazon-firefly/internal/cache"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect cached scrape results.",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every cache instance, oldest first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		infos, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		printInfos(infos...)
		return nil
	},
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info [name]",
	Short: "Show a cache instance, the latest one when no name is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := cache.Latest
		if len(args) > 0 {
			name = args[0]
		}

		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		info, err := store.Info(cmd.Context(), name)
		if err != nil {
			return err
		}
		printInfos(info)
		return nil
	},
}

func printInfos(infos ...cache.Info) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Name", "Created", "Orders", "Products"})
	for _, info := range infos {
		t.AppendRow(table.Row{
			info.Name,
			info.CreatedAt.Local().Format(time.DateTime),
			info.Orders,
			info.Products,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	rootCmd.AddCommand(cacheCmd)
}
