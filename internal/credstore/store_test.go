package credstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(access string) *Record {
	return &Record{
		AccessToken:  access,
		RefreshToken: "refresh-" + access,
		ExpiresAt:    1700000000000,
		Scope:        []string{"read", "issues:create"},
		TokenType:    "Bearer",
	}
}

func emptyEnv(string) string { return "" }

// newTestStore builds a store over an in-memory keyring and a temp-dir file
// backend, with no environment credentials.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(Options{
		Keyring: NewKeyringStoreWithRing(keyring.NewArrayKeyring(nil)),
		File:    mustFileStore(t),
		Getenv:  emptyEnv,
	})
	require.NoError(t, err)
	return store
}

func mustFileStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
	require.NoError(t, err)
	return fs
}

// unavailableKeyring simulates a host with no native secret store backend.
func unavailableKeyring() *KeyringStore {
	s := &KeyringStore{}
	s.openOnce.Do(func() {
		s.openErr = errors.New("no keyring backend available")
	})
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	rec := testRecord("access-1")
	require.NoError(t, store.Set(rec))

	got, source := store.Get()
	require.NotNil(t, got)
	assert.Equal(t, SourceMemory, source)
	assert.Equal(t, rec.AccessToken, got.AccessToken)
	assert.Equal(t, rec.RefreshToken, got.RefreshToken)
	assert.Equal(t, rec.ExpiresAt, got.ExpiresAt)
	assert.Equal(t, rec.Scope, got.Scope)
	assert.Equal(t, rec.TokenType, got.TokenType)
}

func TestStore_GetReturnsNilWhenEmpty(t *testing.T) {
	store := newTestStore(t)

	rec, source := store.Get()
	assert.Nil(t, rec)
	assert.Equal(t, SourceNone, source)
}

func TestStore_EnvironmentPrecedesKeyring(t *testing.T) {
	kr := NewKeyringStoreWithRing(keyring.NewArrayKeyring(nil))
	require.NoError(t, kr.Save(testRecord("from-keyring")))

	env := map[string]string{
		EnvAccessToken:  "from-env",
		EnvRefreshToken: "env-refresh",
		EnvExpiresAt:    "1700000000000",
	}
	store, err := New(Options{
		Keyring: kr,
		File:    mustFileStore(t),
		Getenv:  func(k string) string { return env[k] },
	})
	require.NoError(t, err)

	rec, source := store.Get()
	require.NotNil(t, rec)
	assert.Equal(t, SourceEnvironment, source)
	assert.Equal(t, "from-env", rec.AccessToken)
}

func TestStore_MalformedEnvExpiryIgnored(t *testing.T) {
	env := map[string]string{
		EnvAccessToken:  "from-env",
		EnvRefreshToken: "env-refresh",
		EnvExpiresAt:    "not-a-number",
	}
	store, err := New(Options{
		Keyring: NewKeyringStoreWithRing(keyring.NewArrayKeyring(nil)),
		File:    mustFileStore(t),
		Getenv:  func(k string) string { return env[k] },
	})
	require.NoError(t, err)

	rec, source := store.Get()
	assert.Nil(t, rec)
	assert.Equal(t, SourceNone, source)
}

func TestStore_KeyringUnavailableFallsBackToFile(t *testing.T) {
	fs := mustFileStore(t)
	store, err := New(Options{
		Keyring: unavailableKeyring(),
		File:    fs,
		Getenv:  emptyEnv,
	})
	require.NoError(t, err)

	require.NoError(t, store.Set(testRecord("fallback")))

	// The record must have landed in the fallback file.
	onDisk, err := fs.Load()
	require.NoError(t, err)
	require.NotNil(t, onDisk)
	assert.Equal(t, "fallback", onDisk.AccessToken)

	// A fresh store over the same file resolves it from the file layer.
	store2, err := New(Options{
		Keyring: unavailableKeyring(),
		File:    fs,
		Getenv:  emptyEnv,
	})
	require.NoError(t, err)

	rec, source := store2.Get()
	require.NotNil(t, rec)
	assert.Equal(t, SourceFile, source)
	assert.Equal(t, "fallback", rec.AccessToken)
}

func TestStore_CorruptFileRecordPurgedAndProbingContinues(t *testing.T) {
	fs := mustFileStore(t)

	// A record missing its refresh token is structurally invalid.
	require.NoError(t, fs.Save(&Record{AccessToken: "only-access", ExpiresAt: 1}))

	kr := NewKeyringStoreWithRing(keyring.NewArrayKeyring(nil))
	store, err := New(Options{Keyring: kr, File: fs, Getenv: emptyEnv})
	require.NoError(t, err)

	rec, source := store.Get()
	assert.Nil(t, rec)
	assert.Equal(t, SourceNone, source)

	// The corrupt record must have been purged from disk.
	_, statErr := os.Stat(fs.Path())
	assert.True(t, os.IsNotExist(statErr), "corrupt credential file should have been removed")
}

func TestStore_CorruptKeyringRecordDoesNotShadowFile(t *testing.T) {
	kr := NewKeyringStoreWithRing(keyring.NewArrayKeyring(nil))
	require.NoError(t, kr.Save(&Record{AccessToken: "corrupt"}))

	fs := mustFileStore(t)
	require.NoError(t, fs.Save(testRecord("from-file")))

	store, err := New(Options{Keyring: kr, File: fs, Getenv: emptyEnv})
	require.NoError(t, err)

	rec, source := store.Get()
	require.NotNil(t, rec)
	assert.Equal(t, SourceFile, source)
	assert.Equal(t, "from-file", rec.AccessToken)
}

func TestStore_ClearPurgesAllWritableBackends(t *testing.T) {
	kr := NewKeyringStoreWithRing(keyring.NewArrayKeyring(nil))
	fs := mustFileStore(t)
	store, err := New(Options{Keyring: kr, File: fs, Getenv: emptyEnv})
	require.NoError(t, err)

	require.NoError(t, store.Set(testRecord("doomed")))
	require.NoError(t, fs.Save(testRecord("doomed")))

	assert.True(t, store.Clear())

	rec, source := store.Get()
	assert.Nil(t, rec)
	assert.Equal(t, SourceNone, source)

	fromKeyring, err := kr.Load()
	require.NoError(t, err)
	assert.Nil(t, fromKeyring)

	fromFile, err := fs.Load()
	require.NoError(t, err)
	assert.Nil(t, fromFile)
}

func TestStore_ClearReportsEnvironmentLimitation(t *testing.T) {
	env := map[string]string{
		EnvAccessToken:  "from-env",
		EnvRefreshToken: "env-refresh",
		EnvExpiresAt:    "1700000000000",
	}
	store, err := New(Options{
		Keyring: NewKeyringStoreWithRing(keyring.NewArrayKeyring(nil)),
		File:    mustFileStore(t),
		Getenv:  func(k string) string { return env[k] },
	})
	require.NoError(t, err)

	// Environment variables cannot be unset, so Clear must not claim success.
	assert.False(t, store.Clear())

	// The environment record is still readable afterwards.
	rec, source := store.Get()
	require.NotNil(t, rec)
	assert.Equal(t, SourceEnvironment, source)
}

func TestRecord_Valid(t *testing.T) {
	cases := []struct {
		name string
		rec  *Record
		want bool
	}{
		{"nil record", nil, false},
		{"complete", testRecord("a"), true},
		{"missing access token", &Record{RefreshToken: "r", ExpiresAt: 1}, false},
		{"missing refresh token", &Record{AccessToken: "a", ExpiresAt: 1}, false},
		{"zero expiry", &Record{AccessToken: "a", RefreshToken: "r"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.rec.Valid())
		})
	}
}

func TestRecord_ToOAuth2Token(t *testing.T) {
	rec := testRecord("a")
	tok := rec.ToOAuth2Token()
	assert.Equal(t, rec.AccessToken, tok.AccessToken)
	assert.Equal(t, rec.RefreshToken, tok.RefreshToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, rec.ExpiryTime(), tok.Expiry)

	// token_type defaults when the provider omitted it.
	rec.TokenType = ""
	assert.Equal(t, "Bearer", rec.ToOAuth2Token().TokenType)
}
