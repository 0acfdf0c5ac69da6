// Package auth implements OAuth 2.0 Authorization Code + PKCE authentication
// for the trellis CLI.
//
// The CLI is a public client: it holds no client secret, binds authorization
// codes to itself with PKCE, and persists rotated refresh tokens through the
// layered credential store in internal/credstore.
//
// # Architecture
//
//   - PKCE generation and authorization URL construction (pkce.go, authorize.go)
//   - A loopback callback server that captures the provider redirect, raced
//     against a manual paste prompt for headless/SSH use (callback_server.go,
//     manual.go)
//   - A stateless token-endpoint client for code exchange, refresh and
//     best-effort revocation (exchange.go)
//   - A single-flight refresh coordinator (refresher.go)
//   - The Manager, which composes the above into Login, GetValidAccessToken
//     and Logout -- the only surface the rest of the application calls
//     (manager.go)
//
// # Refresh token rotation
//
// The provider invalidates a refresh token the moment it is used. Two
// parallel refresh attempts with the same stale token therefore guarantee
// that the second one fails with invalid_grant, which would falsely look
// like a dead session. The Refresher serializes refreshes so that at most
// one network call is in flight per process and every concurrent caller
// observes the same resulting record.
//
// # Known limitation
//
// Refreshes are not synchronized across OS processes. Two CLI invocations
// running simultaneously can both observe an expiring token, race the
// refresh, and the loser will be logged out by the resulting invalid_grant.
// A cross-process advisory lock around the refresh path would close this
// gap but is not implemented.
package auth
