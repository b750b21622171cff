package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/quarrydirect/portal/internal/common/cnst"
)

// ErrInvalidSession is the uniform failure for absent, revoked and expired
// sessions. Callers must not be able to tell the three apart.
var ErrInvalidSession = errors.New("invalid or expired session")

// Identity names a user in one of the two user tables. Token resolution
// always requires both fields together; a bare user ID is ambiguous.
type Identity struct {
	UserType cnst.UserType `json:"user_type"`
	UserID   uint          `json:"user_id"`
}

// Snapshot freezes a customer user's effective permissions at issue time.
// It is read back when the server is configured to skip per-request
// resolution; platform sessions carry none.
type Snapshot struct {
	Permissions map[string]bool `json:"permissions,omitempty"`
	DepotAccess []string        `json:"depot_access,omitempty"`
}

// Record is a stored session. At most one live (non-revoked, non-expired)
// record exists per identity.
type Record struct {
	Token     string        `json:"token"`
	UserType  cnst.UserType `json:"user_type"`
	UserID    uint          `json:"user_id"`
	IssuedAt  time.Time     `json:"issued_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	Revoked   bool          `json:"revoked"`
	Snapshot  *Snapshot     `json:"snapshot,omitempty"`
}

// Identity returns the identity the record belongs to.
func (r *Record) Identity() Identity {
	return Identity{UserType: r.UserType, UserID: r.UserID}
}

// Live reports whether the record is usable at the given instant.
func (r *Record) Live(now time.Time) bool {
	return !r.Revoked && now.Before(r.ExpiresAt)
}

// Store persists session records. Put must atomically displace any previous
// live session for the record's identity, so two concurrent issues still
// leave exactly one live session.
type Store interface {
	// Put stores the record and revokes the identity's previous session.
	Put(ctx context.Context, rec *Record) error

	// Get retrieves a record by token. Returns ErrInvalidSession when absent.
	Get(ctx context.Context, token string) (*Record, error)

	// Revoke marks the token revoked. Idempotent; unknown tokens are not an
	// error.
	Revoke(ctx context.Context, token string) error
}

// NewToken returns a cryptographically random opaque token.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
