package credstore

import (
	"os"
	"strconv"

	"trellis/pkg/logging"
)

// Environment variable names for the headless credential bootstrap.
// All three must be set to form a complete record; partial sets are
// treated as corrupt and ignored.
const (
	EnvAccessToken  = "TRELLIS_ACCESS_TOKEN"
	EnvRefreshToken = "TRELLIS_REFRESH_TOKEN"
	EnvExpiresAt    = "TRELLIS_TOKEN_EXPIRES_AT"
)

// envBackend reads credentials from process environment variables.
// It exists for CI and SSH contexts where neither a keyring nor a
// browser is available. The backend is strictly read-only: refreshed
// tokens cannot be written back into the environment, and Clear cannot
// unset the caller's variables.
type envBackend struct {
	getenv func(string) string
}

func newEnvBackend(getenv func(string) string) *envBackend {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &envBackend{getenv: getenv}
}

// present reports whether any of the bootstrap variables is set at all,
// valid or not. Used by Clear to report that env credentials remain.
func (b *envBackend) present() bool {
	return b.getenv(EnvAccessToken) != "" || b.getenv(EnvRefreshToken) != ""
}

// load returns the record assembled from the environment, or nil when
// the variables are absent or structurally incomplete.
func (b *envBackend) load() *Record {
	access := b.getenv(EnvAccessToken)
	refresh := b.getenv(EnvRefreshToken)
	if access == "" && refresh == "" {
		return nil
	}

	expiresAt, err := strconv.ParseInt(b.getenv(EnvExpiresAt), 10, 64)
	if err != nil {
		logging.Warn("CredStore", "%s is not a valid epoch-milliseconds integer, ignoring environment credentials", EnvExpiresAt)
		return nil
	}

	rec := &Record{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		TokenType:    DefaultTokenType,
	}
	if !rec.Valid() {
		logging.Warn("CredStore", "environment credentials are incomplete, ignoring")
		return nil
	}
	return rec
}
