package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultCredentialsPath is the fallback credential file location,
// relative to the user's home directory.
const DefaultCredentialsPath = ".config/trellis/credentials.json"

// FileStore persists the credential record as a JSON file with owner-only
// permissions. It is the last layer of the store, used when no OS keyring
// backend is available.
type FileStore struct {
	path string
}

// NewFileStore creates a file store at the given path. An empty path
// selects the default location under the user's home directory.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, DefaultCredentialsPath)
	}
	return &FileStore{path: path}, nil
}

// Path returns the credential file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the stored record. Returns (nil, nil) when the file does not exist.
func (s *FileStore) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, newStorageError("load", SourceFile, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, newStorageError("load", SourceFile, err)
	}
	return &rec, nil
}

// Save writes the record with restricted permissions (0600 file, 0700 dir).
func (s *FileStore) Save(rec *Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return newStorageError("save", SourceFile, err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return newStorageError("save", SourceFile, err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return newStorageError("save", SourceFile, err)
	}
	return nil
}

// Delete removes the credential file. Deleting an absent file is not an error.
func (s *FileStore) Delete() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return newStorageError("delete", SourceFile, err)
	}
	return nil
}
