package auth

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoCredentials is returned by GetValidAccessToken when no credential
// record exists anywhere in the store. It signals "not logged in", not a
// failure.
var ErrNoCredentials = errors.New("no stored credentials")

// ErrReauthenticationRequired is returned when the stored refresh token can
// never succeed again and the user must run login.
var ErrReauthenticationRequired = errors.New("re-authentication required")

// ValidationError indicates malformed local input, such as a callback
// without an authorization code or an unparseable pasted redirect URL.
// It is never retryable.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// ProtocolError indicates a provider-side OAuth failure: an error parameter
// on the callback, a state mismatch (possible CSRF), or a structurally
// malformed token response. It is never retryable.
type ProtocolError struct {
	// Code is the OAuth error code where the provider supplied one,
	// or a local identifier such as "state_mismatch".
	Code string

	// Description is the provider's error_description, if any.
	Description string
}

func (e *ProtocolError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization failed: %s - %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization failed: %s", e.Code)
}

// InvalidGrantError indicates the refresh token is permanently dead:
// rotation means it was already consumed, or the provider revoked it.
// The caller must purge all stored credentials and re-authenticate;
// retrying can never succeed.
type InvalidGrantError struct {
	Description string
}

func (e *InvalidGrantError) Error() string {
	if e.Description != "" {
		return "refresh token rejected (invalid_grant): " + e.Description
	}
	return "refresh token rejected (invalid_grant)"
}

// NetworkError indicates a transport failure or a non-2xx token endpoint
// response. It is retryable by the caller's normal backoff policy; this
// package never retries internally.
type NetworkError struct {
	// StatusCode is the HTTP status, or 0 for transport failures.
	StatusCode int

	// Body is the raw response body for diagnostics.
	Body string

	// OAuthCode and OAuthDescription are parsed from the response body
	// when it is a standard OAuth error document.
	OAuthCode        string
	OAuthDescription string

	// Cause is the underlying transport error, if any.
	Cause error
}

func (e *NetworkError) Error() string {
	if e.Cause != nil {
		return "token request failed: " + e.Cause.Error()
	}
	return fmt.Sprintf("token request failed with status %d: %s", e.StatusCode, e.Body)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// TimeoutError indicates that no callback arrived within the configured
// wall-clock window. The attempt is over; the caller may start a new login.
type TimeoutError struct {
	Waited time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for the authorization callback", e.Waited)
}
