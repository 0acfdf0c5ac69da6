// Package workspace is the authenticated client for the trellis workspace
// API.
//
// Every request carries a bearer token obtained through the auth manager,
// so tokens are refreshed transparently before they expire. A 401 from the
// API after a successful refresh means the session is dead server-side and
// surfaces as a re-authentication error.
package workspace
