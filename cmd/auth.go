package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication for trellis",
	Long: `Manage authentication for trellis CLI commands.

The auth command group provides subcommands to login, logout, check status,
and refresh the OAuth tokens used for talking to the trellis workspace API.

Examples:
  trellis auth login                   # Login via browser
  trellis auth login --manual          # Also offer a paste-the-URL fallback
  trellis auth status                  # Show authentication status
  trellis auth logout                  # Revoke and clear stored tokens
  trellis auth refresh                 # Force token refresh
  trellis auth whoami                  # Show current identity`,
}

// authPrint prints output only if the --quiet flag is not set.
// Use this for progress messages and non-essential output.
func authPrint(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf(format, args...)
	}
}

// authPrintln prints a line only if the --quiet flag is not set.
// Use this for progress messages and non-essential output.
func authPrintln(a ...interface{}) {
	if !quiet {
		fmt.Println(a...)
	}
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRefreshCmd)
	authCmd.AddCommand(authWhoamiCmd)
}
