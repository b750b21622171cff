package otp

import (
	"context"
	"errors"
	"time"
)

// ErrNoChallenge is returned when no unconsumed challenge exists for a phone.
var ErrNoChallenge = errors.New("no challenge for phone")

// Challenge is a stored one-time code. Codes are stored hashed; the
// plaintext only exists in the SMS.
type Challenge struct {
	Phone     string    `json:"phone"`
	CodeHash  string    `json:"code_hash"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// Store persists OTP challenges and the send-rate windows. Attempt and
// window increments must be atomic per phone so concurrent verifies cannot
// bypass the limits.
type Store interface {
	// PutChallenge stores a challenge, displacing any existing one for the
	// phone.
	PutChallenge(ctx context.Context, ch *Challenge) error

	// GetChallenge retrieves the phone's current challenge, or ErrNoChallenge.
	GetChallenge(ctx context.Context, phone string) (*Challenge, error)

	// IncrementAttempts atomically bumps the challenge's attempt counter and
	// returns the new value.
	IncrementAttempts(ctx context.Context, phone string) (int, error)

	// DeleteChallenge removes the phone's challenge. Used on successful
	// verification; a consumed challenge can never succeed again.
	DeleteChallenge(ctx context.Context, phone string) error

	// IncrSendWindow atomically bumps the phone's send counter for the
	// trailing window and returns the new value. The counter expires with
	// the window.
	IncrSendWindow(ctx context.Context, phone string, window time.Duration) (int64, error)
}
