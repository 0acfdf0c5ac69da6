package cmd

import (
	"trellis/internal/auth"
	"trellis/internal/credstore"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long: `Show the current authentication status.

This command displays whether you are authenticated, where the
credentials are stored, when the access token expires and which scopes
were granted. Token values themselves are never printed.`,
	RunE: runAuthStatus,
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	authPrintln("Trellis Workspace")
	authPrint("  Endpoint:  %s\n", app.cfg.API.BaseURL)

	rec, source := app.manager.CurrentRecord()
	if rec == nil {
		authPrint("  Status:    %s\n", text.FgYellow.Sprint("Not authenticated"))
		authPrint("             Run: trellis auth login\n")
		return nil
	}

	switch app.manager.State() {
	case auth.StateExpired:
		authPrint("  Status:    %s\n", text.FgYellow.Sprint("Expired (will refresh on next use)"))
	default:
		authPrint("  Status:    %s\n", text.FgGreen.Sprint("Authenticated"))
	}

	authPrint("  Storage:   %s\n", formatSource(source))
	authPrint("  Expires:   %s\n", formatExpiryWithDirection(rec.ExpiryTime()))
	if len(rec.Scope) > 0 {
		authPrint("  Scopes:    %s\n", rec.ScopeString())
	}
	if rec.RefreshToken != "" {
		authPrint("  Refresh:   %s\n", text.FgGreen.Sprint("Available"))
	} else {
		authPrint("  Refresh:   %s\n", text.FgYellow.Sprint("Not available (re-auth required on expiry)"))
	}

	if source == credstore.SourceFile {
		authPrintln()
		authPrintln(text.FgYellow.Sprint("  Warning: credentials are stored in a plaintext file because the"))
		authPrintln(text.FgYellow.Sprint("  OS keyring is unavailable."))
	}

	return nil
}

// formatSource renders a credential source for status output.
func formatSource(source credstore.Source) string {
	switch source {
	case credstore.SourceEnvironment:
		return "environment variables (read-only)"
	case credstore.SourceKeyring:
		return "OS keyring"
	case credstore.SourceFile:
		return text.FgYellow.Sprint("fallback file (keyring unavailable)")
	case credstore.SourceMemory:
		return "process memory"
	default:
		return "none"
	}
}
