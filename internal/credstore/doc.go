// Package credstore provides layered credential storage for the trellis CLI.
//
// A single credential record is resolved through four backends with fixed
// read precedence:
//
//  1. In-memory cache (fastest, process lifetime only)
//  2. Environment variables (read-only, for CI/SSH bootstrap)
//  3. OS keyring (macOS Keychain, Windows Credential Manager, Secret Service)
//  4. Fallback file (~/.config/trellis/credentials.json, owner-only permissions)
//
// Writes always update the in-memory cache, then attempt the keyring, and
// degrade to the fallback file when the keyring is unavailable. Degradation
// reduces credential-at-rest protection, so it is logged as a warning rather
// than treated as silent success.
//
// Environment-sourced credentials cannot be cleared: a process cannot unset
// its caller's environment. Clear reports this via its return value instead
// of claiming a full purge.
//
// SECURITY: token values are never logged by this package. Only the source,
// expiry, and scope metadata appear in log output.
package credstore
