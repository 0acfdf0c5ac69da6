package cmd

import (
	"trellis/internal/credstore"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke and clear stored authentication tokens",
	Long: `Revoke the stored OAuth tokens at the provider and clear them locally.

Revocation is best-effort: local credentials are cleared even when the
provider cannot be reached. After logout you must re-authenticate with
'trellis auth login' before using protected commands.`,
	RunE: runAuthLogout,
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	if rec, _ := app.store.Get(); rec == nil {
		authPrintln("No stored credentials to clear.")
		return nil
	}

	fullyCleared := app.manager.Logout(cmd.Context())
	if !fullyCleared {
		authPrintln(text.FgYellow.Sprint("Logged out, but some credentials could not be removed."))
		authPrint("If %s is set in your environment, unset it to finish logging out.\n", credstore.EnvAccessToken)
		return nil
	}

	authPrintln("Logged out.")
	return nil
}
