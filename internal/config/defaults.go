package config

const (
	// DefaultClientID is the public client identifier trellis ships with.
	DefaultClientID = "trellis-cli"

	// DefaultAuthorizeURL is the default authorization endpoint.
	DefaultAuthorizeURL = "https://auth.trellis.dev/oauth/authorize"

	// DefaultTokenURL is the default token endpoint.
	DefaultTokenURL = "https://auth.trellis.dev/oauth/token"

	// DefaultRevokeURL is the default token revocation endpoint.
	DefaultRevokeURL = "https://auth.trellis.dev/oauth/revoke"

	// DefaultAPIBaseURL is the default workspace API endpoint.
	DefaultAPIBaseURL = "https://api.trellis.dev"

	// DefaultCallbackTimeoutSeconds bounds how long login waits for the
	// authorization redirect.
	DefaultCallbackTimeoutSeconds = 300

	// DefaultExpiryBufferSeconds is how early tokens are refreshed before
	// their recorded expiry.
	DefaultExpiryBufferSeconds = 60
)

// DefaultCallbackPorts are the loopback ports registered as redirect URIs
// with the provider. Order matters: login binds the first free one.
var DefaultCallbackPorts = []int{49172, 49173, 49174}

// DefaultScopes are requested during login.
var DefaultScopes = []string{"read", "issues:create"}

// GetDefaultConfig returns the built-in configuration.
func GetDefaultConfig() TrellisConfig {
	return TrellisConfig{
		OAuth: OAuthConfig{
			ClientID:               DefaultClientID,
			AuthorizeURL:           DefaultAuthorizeURL,
			TokenURL:               DefaultTokenURL,
			RevokeURL:              DefaultRevokeURL,
			Scopes:                 append([]string(nil), DefaultScopes...),
			CallbackPorts:          append([]int(nil), DefaultCallbackPorts...),
			CallbackTimeoutSeconds: DefaultCallbackTimeoutSeconds,
			ExpiryBufferSeconds:    DefaultExpiryBufferSeconds,
		},
		API: APIConfig{
			BaseURL: DefaultAPIBaseURL,
		},
		LogLevel: "info",
	}
}
