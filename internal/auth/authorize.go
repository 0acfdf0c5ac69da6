package auth

import (
	"fmt"
	"net/url"
	"strings"
)

// AuthorizeParams are the inputs to BuildAuthorizationURL.
type AuthorizeParams struct {
	// Endpoint is the provider's authorization endpoint.
	Endpoint string

	// ClientID is the public client identifier. Public clients have no
	// secret; PKCE provides the binding instead.
	ClientID string

	// RedirectURI is the loopback callback URL for this attempt.
	RedirectURI string

	// Scopes are joined with spaces into the scope parameter, in order.
	Scopes []string

	// CodeChallenge is the S256 PKCE challenge.
	CodeChallenge string

	// State is the CSRF state parameter for this attempt.
	State string
}

// BuildAuthorizationURL constructs the provider authorization URL. Pure
// string building, no I/O.
//
// prompt=consent is always sent: it is the only mechanism that forces the
// provider to re-run workspace selection on re-authentication. Without it
// a login after switching workspaces silently reuses the previously
// authorized workspace.
func BuildAuthorizationURL(p AuthorizeParams) (string, error) {
	authURL, err := url.Parse(p.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid authorization endpoint: %w", err)
	}

	query := authURL.Query()
	query.Set("client_id", p.ClientID)
	query.Set("redirect_uri", p.RedirectURI)
	query.Set("response_type", "code")
	query.Set("scope", strings.Join(p.Scopes, " "))
	query.Set("code_challenge", p.CodeChallenge)
	query.Set("code_challenge_method", "S256")
	query.Set("state", p.State)
	query.Set("prompt", "consent")

	authURL.RawQuery = query.Encode()
	return authURL.String(), nil
}
