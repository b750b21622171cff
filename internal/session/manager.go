package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Manager issues, validates and revokes opaque session tokens.
type Manager struct {
	logger *zap.Logger
	store  Store
	ttl    time.Duration

	// now is swappable for expiry tests
	now func() time.Time
}

// NewManager creates a session manager over the given store.
func NewManager(logger *zap.Logger, store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		logger: logger.Named("session.manager"),
		store:  store,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a new session for the identity, displacing any previous live
// session for the same (user_id, user_type) pair. A non-nil snapshot is
// stored with the record; pass nil for platform users.
func (m *Manager) Issue(ctx context.Context, ident Identity, snap *Snapshot) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}

	now := m.now().UTC()
	rec := &Record{
		Token:     token,
		UserType:  ident.UserType,
		UserID:    ident.UserID,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
		Snapshot:  snap,
	}
	if err := m.store.Put(ctx, rec); err != nil {
		return "", err
	}

	m.logger.Info("session issued",
		zap.String("user_type", string(ident.UserType)),
		zap.Uint("user_id", ident.UserID))
	return token, nil
}

// Lookup resolves a token to its live record, including any stored
// permission snapshot. Absent, revoked and expired sessions all fail with
// ErrInvalidSession; expiry is checked here, not swept in the store.
func (m *Manager) Lookup(ctx context.Context, token string) (*Record, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	rec, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if !rec.Live(m.now().UTC()) {
		return nil, ErrInvalidSession
	}
	return rec, nil
}

// Validate resolves a token to its identity.
func (m *Manager) Validate(ctx context.Context, token string) (*Identity, error) {
	rec, err := m.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	ident := rec.Identity()
	return &ident, nil
}

// Revoke invalidates a token. Logout is not an error-prone operation from
// the caller's perspective: unknown and already-revoked tokens succeed.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.store.Revoke(ctx, token)
}
