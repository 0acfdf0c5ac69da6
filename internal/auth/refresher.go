package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"trellis/internal/credstore"
	"trellis/pkg/logging"
)

// DefaultExpiryBuffer is how long before the recorded expiry a token is
// treated as expired, covering clock skew and in-flight request time.
const DefaultExpiryBuffer = 60 * time.Second

// refreshExchanger is the slice of Exchanger the Refresher needs.
type refreshExchanger interface {
	Refresh(ctx context.Context, refreshToken string) (*credstore.Record, error)
}

// Refresher serializes token refreshes. At most one refresh network call is
// in flight per process; every concurrent caller awaits that same call and
// observes the same resulting record.
//
// This is a correctness requirement, not an optimization: the provider
// rotates refresh tokens, so a second parallel refresh with the same stale
// token is guaranteed to fail with invalid_grant and would falsely log the
// user out.
//
// Refreshes are NOT serialized across separate OS processes.
type Refresher struct {
	store     *credstore.Store
	exchanger refreshExchanger
	buffer    time.Duration

	// group guards the single in-flight refresh. Callers either start the
	// flight or attach to the pending one; the group's bookkeeping releases
	// the slot on every outcome, success or failure.
	group singleflight.Group
}

// refreshKey is the single singleflight key: one credential set per
// process means one flight slot.
const refreshKey = "refresh"

// NewRefresher creates a refresh coordinator over the given store and
// exchanger. A non-positive buffer selects DefaultExpiryBuffer.
func NewRefresher(store *credstore.Store, exchanger refreshExchanger, buffer time.Duration) *Refresher {
	if buffer <= 0 {
		buffer = DefaultExpiryBuffer
	}
	return &Refresher{
		store:     store,
		exchanger: exchanger,
		buffer:    buffer,
	}
}

// Refresh exchanges the stored refresh token for a new record. The new
// record is written to the store inside the flight, before any waiter
// resolves, so no caller can observe a stale-but-replaced token after a
// refresh completes.
//
// On invalid_grant the store is purged across all backends and every waiter
// receives ErrReauthenticationRequired.
func (r *Refresher) Refresh(ctx context.Context) (*credstore.Record, error) {
	return r.refresh(ctx, false)
}

// refreshNow forces a refresh even while the stored record is still fresh.
// Used by the auth refresh command.
func (r *Refresher) refreshNow(ctx context.Context) (*credstore.Record, error) {
	return r.refresh(ctx, true)
}

func (r *Refresher) refresh(ctx context.Context, force bool) (*credstore.Record, error) {
	v, err, shared := r.group.Do(refreshKey, func() (interface{}, error) {
		return r.doRefresh(ctx, force)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logging.Debug("Refresh", "joined in-flight refresh instead of starting a second one")
	}
	return v.(*credstore.Record), nil
}

func (r *Refresher) doRefresh(ctx context.Context, force bool) (*credstore.Record, error) {
	rec, source := r.store.Get()
	if rec == nil {
		return nil, ErrNoCredentials
	}

	// A caller that raced in just after a completed flight sees the fresh
	// record here and skips the network entirely.
	if !force && !rec.Expired(r.buffer) {
		return rec, nil
	}

	// Environment-sourced credentials cannot be rotated: the refreshed
	// record could not be written back, and the stale environment copy
	// would keep shadowing it on every read.
	if source == credstore.SourceEnvironment {
		return nil, fmt.Errorf("environment-supplied token expired and cannot be refreshed in place: %w", ErrReauthenticationRequired)
	}

	start := time.Now()
	newRec, err := r.exchanger.Refresh(ctx, rec.RefreshToken)
	if err != nil {
		var invalidGrant *InvalidGrantError
		if errors.As(err, &invalidGrant) {
			// The stored refresh token can never succeed again. Purge
			// everything so no later call retries a dead credential.
			logging.Warn("Refresh", "refresh token rejected by provider, clearing stored credentials")
			r.store.Clear()
			return nil, fmt.Errorf("%w: %w", ErrReauthenticationRequired, err)
		}
		logging.Debug("Refresh", "token refresh failed: %v", err)
		return nil, err
	}

	// Persist before returning: waiters must never resolve while the store
	// still holds the consumed refresh token.
	if err := r.store.Set(newRec); err != nil {
		logging.Warn("Refresh", "refreshed token could not be persisted beyond process memory: %v", err)
	}

	logging.Debug("Refresh", "token refreshed in %s", time.Since(start).Round(time.Millisecond))
	return newRec, nil
}
