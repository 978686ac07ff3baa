package commands

import (
	"fmt"

	"amazon-firefly/internal/ledger"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <orders.csv>",
	Short: "Check that an orders csv file can be imported by Firefly III.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := ledger.ValidateOrdersCSV(args[0], cfg.DateFormat)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "valid:", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
