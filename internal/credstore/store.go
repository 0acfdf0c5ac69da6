package credstore

import (
	"sync"

	"trellis/pkg/logging"
)

// Store is the layered credential store. Reads probe the backends in
// precedence order (memory, environment, keyring, file) and return the
// first structurally valid record. Writes go to memory and the keyring,
// degrading to the fallback file when the keyring is unavailable.
//
// The store is safe for concurrent use. Set and Clear are atomic with
// respect to each other: a reader never observes a half-applied update
// across backends for longer than one operation.
type Store struct {
	mu      sync.Mutex
	memory  *Record
	env     *envBackend
	keyring *KeyringStore
	file    *FileStore
}

// Options configures the store. Zero-value fields select the platform
// defaults.
type Options struct {
	// Keyring overrides the OS secret store backend (used in tests).
	Keyring *KeyringStore

	// File overrides the fallback file backend (used in tests).
	File *FileStore

	// Getenv overrides environment lookup (used in tests).
	Getenv func(string) string
}

// New creates a layered store. The store instance is owned by the auth
// manager and handed to collaborators by reference; it is never a
// process-wide singleton.
func New(opts Options) (*Store, error) {
	file := opts.File
	if file == nil {
		var err error
		file, err = NewFileStore("")
		if err != nil {
			return nil, err
		}
	}

	kr := opts.Keyring
	if kr == nil {
		kr = NewKeyringStore()
	}

	return &Store{
		env:     newEnvBackend(opts.Getenv),
		keyring: kr,
		file:    file,
	}, nil
}

// Get returns the first structurally valid record found in precedence
// order, together with the source it came from. Backends that yield a
// corrupt record are purged (where writable) and probing continues.
// Returns (nil, SourceNone) when no backend holds a valid record.
func (s *Store) Get() (*Record, Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked()
}

func (s *Store) getLocked() (*Record, Source) {
	if s.memory != nil {
		if s.memory.Valid() {
			return s.memory, SourceMemory
		}
		s.memory = nil
	}

	// envBackend.load validates internally; the environment cannot be purged.
	if rec := s.env.load(); rec != nil {
		return rec, SourceEnvironment
	}

	if rec := s.loadAndPurgeCorrupt(s.keyring.Load, s.keyring.Delete, SourceKeyring); rec != nil {
		return rec, SourceKeyring
	}

	if rec := s.loadAndPurgeCorrupt(s.file.Load, s.file.Delete, SourceFile); rec != nil {
		return rec, SourceFile
	}

	return nil, SourceNone
}

// loadAndPurgeCorrupt reads one backend, discarding and purging corrupt
// records so they never propagate. Backend failures degrade to the next
// layer and are logged, never returned.
func (s *Store) loadAndPurgeCorrupt(load func() (*Record, error), purge func() error, src Source) *Record {
	rec, err := load()
	if err != nil {
		logging.Warn("CredStore", "%s backend read failed, continuing with next layer: %v", src, err)
		return nil
	}
	if rec == nil {
		return nil
	}
	if !rec.Valid() {
		logging.Warn("CredStore", "discarding corrupt credential record from %s backend", src)
		if err := purge(); err != nil {
			logging.Warn("CredStore", "failed to purge corrupt record from %s backend: %v", src, err)
		}
		return nil
	}
	return rec
}

// Set replaces the stored record in all writable layers. The in-memory
// cache is always updated; persistence prefers the keyring and falls back
// to the owner-only file, with the degradation logged as a warning since
// it reduces credential-at-rest protection.
//
// A non-nil error means the record could not be persisted anywhere beyond
// process memory. The in-memory copy is still in place.
func (s *Store) Set(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.memory = &cp

	if s.keyring.Available() {
		if err := s.keyring.Save(rec); err == nil {
			// Keyring is authoritative now; drop any stale fallback file.
			if err := s.file.Delete(); err != nil {
				logging.Warn("CredStore", "failed to remove stale fallback file: %v", err)
			}
			return nil
		} else {
			logging.Warn("CredStore", "keyring write failed, falling back to file storage: %v", err)
		}
	} else {
		logging.Warn("CredStore", "OS keyring unavailable, storing credentials in fallback file %s", s.file.Path())
	}

	if err := s.file.Save(rec); err != nil {
		logging.Error("CredStore", err, "failed to persist credentials; they will be lost when this process exits")
		return err
	}
	return nil
}

// Clear purges the in-memory cache unconditionally and best-effort purges
// the keyring and fallback file. It never fails.
//
// The returned boolean reports whether credentials are fully gone: it is
// false when environment variables still supply a record (a process cannot
// unset its caller's environment) or when a persistent backend purge failed.
func (s *Store) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.memory = nil
	fullyCleared := true

	if s.keyring.Available() {
		if err := s.keyring.Delete(); err != nil {
			logging.Warn("CredStore", "failed to clear keyring credentials: %v", err)
			fullyCleared = false
		}
	}

	if err := s.file.Delete(); err != nil {
		logging.Warn("CredStore", "failed to clear credential file: %v", err)
		fullyCleared = false
	}

	if s.env.present() {
		logging.Warn("CredStore", "environment credentials (%s) remain set and cannot be cleared by this process", EnvAccessToken)
		fullyCleared = false
	}

	return fullyCleared
}
