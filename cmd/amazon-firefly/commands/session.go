package commands

import (
	"fmt"

	"amazon-firefly/internal/browser"
	"amazon-firefly/lib/serviceutil"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the saved browser session.",
}

var sessionImportCmd = &cobra.Command{
	Use:   "import <cookies.json>",
	Short: "Import cookies exported from a signed in browser into the session file.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		session, err := browser.ImportCookies(args[0], cfg.SessionFile)
		if err != nil {
			serviceutil.Fatal("failed to import cookies", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d cookies into %s\n", len(session.Cookies), cfg.SessionFile)
	},
}

var sessionCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether the saved session is signed in.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newBrowser()
		if err != nil {
			return err
		}
		restored, err := client.RestoreSession(cfg.SessionFile)
		if err != nil {
			return err
		}
		if !restored {
			return fmt.Errorf("no session saved at %s", cfg.SessionFile)
		}

		err = client.Navigate(cmd.Context(), cfg.BaseUrl)
		if err != nil {
			return err
		}
		if !client.LoggedIn(cfg.LoginMarker) {
			return fmt.Errorf("session in %s is not signed in", cfg.SessionFile)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "signed in")
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionImportCmd)
	sessionCmd.AddCommand(sessionCheckCmd)
	rootCmd.AddCommand(sessionCmd)
}
