package credstore

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTokenType is used when a provider response omits token_type.
const DefaultTokenType = "Bearer"

// Record is a complete set of OAuth credentials for the workspace API.
// Records are replaced whole; no partial field updates exist anywhere in
// the codebase. A record is created on a successful code exchange or
// refresh and destroyed on logout or a dead refresh token.
type Record struct {
	// AccessToken is the bearer token used for API authorization.
	AccessToken string `json:"access_token"`

	// RefreshToken is used to obtain new access tokens. The provider
	// rotates it on every refresh.
	RefreshToken string `json:"refresh_token"`

	// ExpiresAt is the access token expiry in Unix epoch milliseconds.
	ExpiresAt int64 `json:"expires_at"`

	// Scope is the set of granted scopes.
	Scope []string `json:"scope,omitempty"`

	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`
}

// Valid reports whether the record is structurally complete. Any record
// failing this check is treated as corrupt and purged wherever it is found.
func (r *Record) Valid() bool {
	if r == nil {
		return false
	}
	return r.AccessToken != "" && r.RefreshToken != "" && r.ExpiresAt > 0
}

// ExpiryTime returns the access token expiry as a time.Time.
func (r *Record) ExpiryTime() time.Time {
	return time.UnixMilli(r.ExpiresAt)
}

// Expired reports whether the access token is expired or will expire
// within the given buffer.
func (r *Record) Expired(buffer time.Duration) bool {
	return !time.Now().Add(buffer).Before(r.ExpiryTime())
}

// ScopeString returns the granted scopes as a space-joined string,
// matching the OAuth wire format.
func (r *Record) ScopeString() string {
	return strings.Join(r.Scope, " ")
}

// ToOAuth2Token converts the record to an oauth2.Token for use with
// golang.org/x/oauth2 HTTP clients.
func (r *Record) ToOAuth2Token() *oauth2.Token {
	tokenType := r.TokenType
	if tokenType == "" {
		tokenType = DefaultTokenType
	}
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    tokenType,
		Expiry:       r.ExpiryTime(),
	}
}
