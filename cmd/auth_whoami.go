package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// authWhoamiCmd represents the auth whoami command
var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show current authenticated identity",
	Long: `Show the identity the workspace API associates with your session.

This command makes an authenticated request to the workspace API, so it
also verifies that the stored token is actually accepted server-side.`,
	RunE: runAuthWhoami,
}

func runAuthWhoami(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	viewer, err := app.workspaceClient(cmd.Context()).Viewer(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Identity:  %s\n", viewer.Email)
	if viewer.Name != "" {
		fmt.Printf("Name:      %s\n", viewer.Name)
	}
	fmt.Printf("Endpoint:  %s\n", app.cfg.API.BaseURL)

	if rec, _ := app.manager.CurrentRecord(); rec != nil {
		fmt.Printf("Expires:   %s\n", formatExpiryWithDirection(rec.ExpiryTime()))
	}
	return nil
}
