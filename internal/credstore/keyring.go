package credstore

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/99designs/keyring"

	"trellis/pkg/logging"
)

const (
	// keyringService is the service identifier under which the record is
	// stored in the OS secret store.
	keyringService = "trellis"

	// keyringKey is the fixed account/item key for the single credential
	// record. One active credential set per user is supported.
	keyringKey = "oauth-credentials"
)

// KeyringStore persists the credential record in the OS secret store.
//
// Availability of a native backend (Keychain, Credential Manager, Secret
// Service) is probed once on first use and cached; there is no dynamic
// re-probing. When no backend is available the layered store degrades to
// the fallback file.
type KeyringStore struct {
	openOnce sync.Once
	ring     keyring.Keyring
	openErr  error
}

// NewKeyringStore creates a keyring store backed by the platform secret store.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

// NewKeyringStoreWithRing creates a keyring store over an explicit keyring,
// bypassing the availability probe. Used in tests with keyring.NewArrayKeyring.
func NewKeyringStoreWithRing(ring keyring.Keyring) *KeyringStore {
	s := &KeyringStore{ring: ring}
	s.openOnce.Do(func() {})
	return s
}

// open performs the one-time backend probe.
func (s *KeyringStore) open() {
	s.openOnce.Do(func() {
		s.ring, s.openErr = keyring.Open(keyring.Config{
			ServiceName: keyringService,
			// The file backend is handled by our own FileStore layer with
			// explicit degradation logging, so it is excluded here.
			AllowedBackends: []keyring.BackendType{
				keyring.KeychainBackend,
				keyring.WinCredBackend,
				keyring.SecretServiceBackend,
				keyring.KWalletBackend,
				keyring.PassBackend,
			},
		})
		if s.openErr != nil {
			logging.Warn("CredStore", "no OS keyring backend available: %v", s.openErr)
		}
	})
}

// Available reports whether an OS secret store backend could be opened.
// The probe runs once; the result is cached for the process lifetime.
func (s *KeyringStore) Available() bool {
	s.open()
	return s.openErr == nil
}

// Load reads the stored record. Returns (nil, nil) when no record exists.
func (s *KeyringStore) Load() (*Record, error) {
	s.open()
	if s.openErr != nil {
		return nil, newStorageError("load", SourceKeyring, s.openErr)
	}

	item, err := s.ring.Get(keyringKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, newStorageError("load", SourceKeyring, err)
	}

	var rec Record
	if err := json.Unmarshal(item.Data, &rec); err != nil {
		return nil, newStorageError("load", SourceKeyring, err)
	}
	return &rec, nil
}

// Save writes the record as one opaque JSON blob.
func (s *KeyringStore) Save(rec *Record) error {
	s.open()
	if s.openErr != nil {
		return newStorageError("save", SourceKeyring, s.openErr)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return newStorageError("save", SourceKeyring, err)
	}

	err = s.ring.Set(keyring.Item{
		Key:         keyringKey,
		Data:        data,
		Label:       "Trellis CLI credentials",
		Description: "OAuth tokens for the Trellis workspace API",
	})
	if err != nil {
		return newStorageError("save", SourceKeyring, err)
	}
	return nil
}

// Delete removes the stored record. Deleting an absent record is not an error.
func (s *KeyringStore) Delete() error {
	s.open()
	if s.openErr != nil {
		return newStorageError("delete", SourceKeyring, s.openErr)
	}

	err := s.ring.Remove(keyringKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return newStorageError("delete", SourceKeyring, err)
	}
	return nil
}
