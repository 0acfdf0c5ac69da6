package config

// TrellisConfig is the top-level configuration structure for trellis.
type TrellisConfig struct {
	OAuth OAuthConfig `yaml:"oauth"`
	API   APIConfig   `yaml:"api"`

	// LogLevel selects the minimum level written to stderr
	// (debug, info, warn, error).
	LogLevel string `yaml:"logLevel,omitempty"`
}

// OAuthConfig defines the authorization flow settings.
type OAuthConfig struct {
	// ClientID is the public client identifier registered with the provider.
	ClientID string `yaml:"clientId,omitempty"`

	// AuthorizeURL is the provider's authorization endpoint.
	AuthorizeURL string `yaml:"authorizeUrl,omitempty"`

	// TokenURL is the provider's token endpoint.
	TokenURL string `yaml:"tokenUrl,omitempty"`

	// RevokeURL is the provider's token revocation endpoint. Optional;
	// logout skips revocation when empty.
	RevokeURL string `yaml:"revokeUrl,omitempty"`

	// Scopes are requested during login.
	Scopes []string `yaml:"scopes,omitempty"`

	// CallbackPorts is the ordered list of loopback ports registered as
	// redirect URIs with the provider. Tried in order at login.
	CallbackPorts []int `yaml:"callbackPorts,omitempty"`

	// CallbackTimeoutSeconds bounds how long login waits for the redirect.
	CallbackTimeoutSeconds int `yaml:"callbackTimeoutSeconds,omitempty"`

	// ExpiryBufferSeconds is how early tokens are refreshed before their
	// recorded expiry.
	ExpiryBufferSeconds int `yaml:"expiryBufferSeconds,omitempty"`
}

// APIConfig defines the workspace API settings.
type APIConfig struct {
	// BaseURL is the workspace API endpoint.
	BaseURL string `yaml:"baseUrl,omitempty"`
}
