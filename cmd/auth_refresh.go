package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// authRefreshCmd represents the auth refresh command
var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force token refresh",
	Long: `Force a refresh of the access token.

The access token is normally refreshed automatically shortly before it
expires. This command forces a refresh immediately, which can be useful
if you're experiencing authentication issues.`,
	RunE: runAuthRefresh,
}

func runAuthRefresh(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	authPrintln("Refreshing token...")
	rec, err := app.manager.ForceRefresh(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	authPrint("Token refreshed successfully. Expires %s.\n", formatExpiryWithDirection(rec.ExpiryTime()))
	return nil
}
