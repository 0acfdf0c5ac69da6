package cmd

import (
	"fmt"
	"time"

	"trellis/internal/auth"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// Login-specific flags
var (
	loginManual    bool
	loginNoBrowser bool
)

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate to the trellis workspace",
	Long: `Authenticate to the trellis workspace using OAuth.

This command opens your browser for an OAuth authorization flow and
listens on a loopback port for the redirect. The resulting tokens are
stored in your OS keyring.

Examples:
  trellis auth login                   # Browser flow
  trellis auth login --manual          # Also accept a pasted redirect URL
  trellis auth login --no-browser      # Print the URL instead of opening it`,
	RunE: runAuthLogin,
}

func init() {
	authLoginCmd.Flags().BoolVar(&loginManual, "manual", false, "Offer a paste-the-redirect-URL prompt alongside the browser flow (for SSH sessions)")
	authLoginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "Do not open a browser; print the authorization URL only")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := buildApp()
	if err != nil {
		return err
	}

	// The spinner would fight the manual paste prompt for the terminal,
	// so it only runs for the pure browser flow.
	var s *spinner.Spinner

	mgrCfg := baseManagerConfig(app.cfg)
	mgrCfg.ManualFallback = loginManual
	mgrCfg.OnAuthURL = func(authURL string) {
		authPrintln("Open the following URL in your browser to authenticate:")
		fmt.Printf("\n  %s\n\n", authURL)
		if !quiet && !loginManual {
			s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			s.Suffix = " Waiting for authorization..."
			s.Start()
		}
	}
	if loginNoBrowser {
		mgrCfg.OpenBrowser = func(string) error { return nil }
	}

	manager := auth.NewManager(mgrCfg, app.store, newExchanger(app.cfg))

	err = manager.Login(ctx)
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return &authFlowError{err: err}
	}

	authPrintln(text.FgGreen.Sprint("Authentication successful."))
	return nil
}
