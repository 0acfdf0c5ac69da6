package cmd

import (
	"context"
	"fmt"
	"time"

	"trellis/internal/auth"
	"trellis/internal/config"
	"trellis/internal/credstore"
	"trellis/internal/workspace"

	"github.com/jedib0t/go-pretty/v6/text"
)

// appContext bundles the wired-up collaborators a command needs. Built
// fresh per invocation; nothing here is a singleton.
type appContext struct {
	cfg     config.TrellisConfig
	store   *credstore.Store
	manager *auth.Manager
}

// buildApp loads configuration and wires the credential store, token
// exchanger and auth manager together.
func buildApp() (*appContext, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	store, err := credstore.New(credstore.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential storage: %w", err)
	}

	manager := auth.NewManager(baseManagerConfig(cfg), store, newExchanger(cfg))

	return &appContext{cfg: cfg, store: store, manager: manager}, nil
}

// baseManagerConfig maps the file configuration onto the auth manager.
func baseManagerConfig(cfg config.TrellisConfig) auth.ManagerConfig {
	return auth.ManagerConfig{
		ClientID:        cfg.OAuth.ClientID,
		AuthorizeURL:    cfg.OAuth.AuthorizeURL,
		Scopes:          cfg.OAuth.Scopes,
		CallbackPorts:   cfg.OAuth.CallbackPorts,
		CallbackTimeout: time.Duration(cfg.OAuth.CallbackTimeoutSeconds) * time.Second,
		ExpiryBuffer:    time.Duration(cfg.OAuth.ExpiryBufferSeconds) * time.Second,
	}
}

func newExchanger(cfg config.TrellisConfig) *auth.Exchanger {
	return auth.NewExchanger(auth.ExchangerConfig{
		ClientID:  cfg.OAuth.ClientID,
		TokenURL:  cfg.OAuth.TokenURL,
		RevokeURL: cfg.OAuth.RevokeURL,
	})
}

// workspaceClient returns an authenticated workspace API client.
func (a *appContext) workspaceClient(ctx context.Context) *workspace.Client {
	return workspace.NewClient(ctx, a.cfg.API.BaseURL, a.manager)
}

// formatDuration renders a duration in the largest sensible unit.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		seconds := int(d.Seconds())
		if seconds == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", seconds)
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// formatExpiryWithDirection formats a time as "in X" or "expired X ago".
func formatExpiryWithDirection(expiresAt time.Time) string {
	remaining := time.Until(expiresAt)
	if remaining > 0 {
		return "in " + formatDuration(remaining)
	}
	// Token is expired
	expiredAgo := -remaining
	return text.FgYellow.Sprintf("expired %s ago", formatDuration(expiredAgo))
}
