// Package logging provides structured logging helpers for the trellis CLI.
//
// It wraps log/slog with a small subsystem-tagged API so callers don't need
// to thread logger instances through every component. Credentials are never
// passed to this package; callers log token metadata (source, expiry) only.
package logging
