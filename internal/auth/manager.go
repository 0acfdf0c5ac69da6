package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"trellis/internal/credstore"
	"trellis/pkg/logging"
)

// State represents the manager's authentication state.
type State int

const (
	// StateUnauthenticated means no credentials exist.
	StateUnauthenticated State = iota

	// StateAuthorizing means a login attempt is in flight.
	StateAuthorizing

	// StateAuthenticated means a valid, unexpired record exists.
	StateAuthenticated

	// StateExpired means a record exists but its access token is past the
	// expiry buffer. The next GetValidAccessToken refreshes it lazily.
	StateExpired
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateAuthorizing:
		return "authorizing"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	default:
		return "unauthenticated"
	}
}

// ManagerConfig configures the auth manager.
type ManagerConfig struct {
	// ClientID is the public client identifier registered with the provider.
	ClientID string

	// AuthorizeURL is the provider's authorization endpoint.
	AuthorizeURL string

	// Scopes are requested in order during login.
	Scopes []string

	// CallbackPorts is the ordered list of loopback ports registered with
	// the provider.
	CallbackPorts []int

	// CallbackTimeout bounds how long login waits for the redirect.
	// Zero selects DefaultCallbackTimeout.
	CallbackTimeout time.Duration

	// ExpiryBuffer is how early tokens are refreshed before their recorded
	// expiry. Zero selects DefaultExpiryBuffer.
	ExpiryBuffer time.Duration

	// ManualFallback races a terminal paste prompt against the loopback
	// listener, for SSH and other browserless environments.
	ManualFallback bool

	// OnAuthURL is invoked with the authorization URL once login starts,
	// so the command layer can print it.
	OnAuthURL func(authURL string)

	// OpenBrowser overrides browser launching. Nil selects OpenBrowser.
	OpenBrowser func(url string) error

	// PromptManual overrides the manual paste prompt. Nil selects
	// PromptManualInput.
	PromptManual func(ctx context.Context) (*ManualResult, error)
}

// Manager composes PKCE generation, the callback race, token exchange, the
// refresh coordinator and the credential store into the three operations
// the rest of the application uses: Login, GetValidAccessToken and Logout.
//
// The manager owns its store instance; collaborators receive the manager
// by reference, never a process-wide singleton.
type Manager struct {
	mu          sync.Mutex
	cfg         ManagerConfig
	store       *credstore.Store
	exchanger   *Exchanger
	refresher   *Refresher
	authorizing bool
}

// NewManager creates an auth manager over the given store and exchanger.
func NewManager(cfg ManagerConfig, store *credstore.Store, exchanger *Exchanger) *Manager {
	if cfg.OpenBrowser == nil {
		cfg.OpenBrowser = OpenBrowser
	}
	if cfg.PromptManual == nil {
		cfg.PromptManual = PromptManualInput
	}
	if cfg.CallbackTimeout <= 0 {
		cfg.CallbackTimeout = DefaultCallbackTimeout
	}

	return &Manager{
		cfg:       cfg,
		store:     store,
		exchanger: exchanger,
		refresher: NewRefresher(store, exchanger, cfg.ExpiryBuffer),
	}
}

// raceOutcome is the result of one branch of the listener/manual race.
type raceOutcome struct {
	result *CallbackResult
	err    error
}

// Login runs the full authorization flow: generate a PKCE session, bind a
// callback port, hand the authorization URL to the user, race the loopback
// listener against the manual paste prompt, exchange the winning code, and
// store the record.
//
// Any failure (timeout, CSRF mismatch, provider error, cancellation)
// discards the ephemeral PKCE session and leaves the manager
// unauthenticated. The session is never persisted.
func (m *Manager) Login(ctx context.Context) error {
	m.mu.Lock()
	if m.authorizing {
		m.mu.Unlock()
		return errors.New("a login attempt is already in progress")
	}
	m.authorizing = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.authorizing = false
		m.mu.Unlock()
	}()

	pkce, err := GeneratePKCE()
	if err != nil {
		return err
	}
	state, err := GenerateState()
	if err != nil {
		return err
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	server := NewCallbackServer(m.cfg.CallbackPorts, state)
	redirectURI, err := server.Start(raceCtx)
	if err != nil {
		return err
	}
	defer server.Stop()

	authURL, err := BuildAuthorizationURL(AuthorizeParams{
		Endpoint:      m.cfg.AuthorizeURL,
		ClientID:      m.cfg.ClientID,
		RedirectURI:   redirectURI,
		Scopes:        m.cfg.Scopes,
		CodeChallenge: pkce.CodeChallenge,
		State:         state,
	})
	if err != nil {
		return err
	}

	if m.cfg.OnAuthURL != nil {
		m.cfg.OnAuthURL(authURL)
	}
	if err := m.cfg.OpenBrowser(authURL); err != nil {
		logging.Debug("Auth", "could not open browser, user must follow the printed URL: %v", err)
	}

	result, err := m.awaitCallback(raceCtx, server, state, cancel)
	if err != nil {
		return err
	}

	rec, err := m.exchanger.ExchangeCode(ctx, result.Code, pkce.CodeVerifier, redirectURI)
	if err != nil {
		return err
	}

	// The record lives in memory even if persistence degrades or fails;
	// the store has already logged the details.
	if err := m.store.Set(rec); err != nil {
		logging.Warn("Auth", "login succeeded but credentials could not be persisted: %v", err)
	}

	logging.Info("Auth", "authentication successful (scopes: %s)", rec.ScopeString())
	return nil
}

// awaitCallback races the loopback listener against the manual paste
// prompt. Whichever branch completes first wins; the loser is cancelled
// and its cancellation artifact discarded, never surfaced to the user.
func (m *Manager) awaitCallback(ctx context.Context, server *CallbackServer, state string, cancel context.CancelFunc) (*CallbackResult, error) {
	outcomes := make(chan raceOutcome, 2)

	go func() {
		result, err := server.Wait(ctx, m.cfg.CallbackTimeout)
		outcomes <- raceOutcome{result: result, err: err}
	}()

	branches := 1
	if m.cfg.ManualFallback {
		branches = 2
		go func() {
			manual, err := m.cfg.PromptManual(ctx)
			if err != nil {
				outcomes <- raceOutcome{err: err}
				return
			}
			if !manual.StateImplicit && subtle.ConstantTimeCompare([]byte(manual.State), []byte(state)) != 1 {
				outcomes <- raceOutcome{err: &ProtocolError{
					Code:        "state_mismatch",
					Description: "pasted redirect URL does not belong to this login attempt",
				}}
				return
			}
			outcomes <- raceOutcome{result: &CallbackResult{Code: manual.Code, State: manual.State}}
		}()
	}

	for i := 0; i < branches; i++ {
		outcome := <-outcomes
		if outcome.err != nil && errors.Is(outcome.err, context.Canceled) && ctx.Err() == nil {
			// A branch aborted for a local reason (closed prompt) while the
			// race is still live; keep waiting for the other branch.
			continue
		}
		cancel()
		return outcome.result, outcome.err
	}

	return nil, context.Canceled
}

// GetValidAccessToken returns an access token that is valid for at least
// the configured expiry buffer.
//
// With no stored credentials it returns ErrNoCredentials. With a fresh
// token the path is purely read-only: no locking beyond the store's own,
// no network. Otherwise the refresh coordinator runs, and a dead refresh
// token surfaces as ErrReauthenticationRequired.
func (m *Manager) GetValidAccessToken(ctx context.Context) (string, error) {
	rec, _ := m.store.Get()
	if rec == nil {
		return "", ErrNoCredentials
	}

	buffer := m.cfg.ExpiryBuffer
	if buffer <= 0 {
		buffer = DefaultExpiryBuffer
	}
	if !rec.Expired(buffer) {
		return rec.AccessToken, nil
	}

	refreshed, err := m.refresher.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// Logout revokes the stored tokens best-effort and clears the credential
// store, forcing the unauthenticated state from anywhere.
//
// The returned boolean mirrors credstore.Store.Clear: false means
// credentials remain somewhere this process cannot purge (environment
// variables, or a failed backend delete).
func (m *Manager) Logout(ctx context.Context) bool {
	if rec, _ := m.store.Get(); rec != nil {
		// Revoking the refresh token invalidates the grant; the access
		// token revocation is belt-and-braces for its remaining lifetime.
		m.exchanger.Revoke(ctx, rec.RefreshToken, "refresh_token")
		m.exchanger.Revoke(ctx, rec.AccessToken, "access_token")
	}

	return m.store.Clear()
}

// Reauthenticate is Logout followed by Login.
func (m *Manager) Reauthenticate(ctx context.Context) error {
	m.Logout(ctx)
	return m.Login(ctx)
}

// State derives the current authentication state. Expiry is lazy: a record
// past its buffer reports StateExpired until the next GetValidAccessToken
// refreshes or discards it.
func (m *Manager) State() State {
	m.mu.Lock()
	authorizing := m.authorizing
	m.mu.Unlock()

	if authorizing {
		return StateAuthorizing
	}

	rec, _ := m.store.Get()
	if rec == nil {
		return StateUnauthenticated
	}

	buffer := m.cfg.ExpiryBuffer
	if buffer <= 0 {
		buffer = DefaultExpiryBuffer
	}
	if rec.Expired(buffer) {
		return StateExpired
	}
	return StateAuthenticated
}

// CurrentRecord exposes the stored record and its source for status
// display. Callers must not log token values.
func (m *Manager) CurrentRecord() (*credstore.Record, credstore.Source) {
	return m.store.Get()
}

// ForceRefresh runs the refresh coordinator regardless of expiry state.
func (m *Manager) ForceRefresh(ctx context.Context) (*credstore.Record, error) {
	if rec, _ := m.store.Get(); rec == nil {
		return nil, ErrNoCredentials
	}
	return m.refresher.refreshNow(ctx)
}
