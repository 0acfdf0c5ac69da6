package credstore

// Source identifies which backend a credential record was resolved from.
// The ordering of the constants is the read precedence.
type Source int

const (
	// SourceNone means no backend held a valid record.
	SourceNone Source = iota

	// SourceMemory is the in-process cache.
	SourceMemory

	// SourceEnvironment is the TRELLIS_* environment variables.
	// This source is read-only and can never be written back or cleared.
	SourceEnvironment

	// SourceKeyring is the OS secret store.
	SourceKeyring

	// SourceFile is the owner-only JSON fallback file.
	SourceFile
)

// String returns the human-readable name of the source.
func (s Source) String() string {
	switch s {
	case SourceMemory:
		return "memory"
	case SourceEnvironment:
		return "environment"
	case SourceKeyring:
		return "keyring"
	case SourceFile:
		return "file"
	default:
		return "none"
	}
}
