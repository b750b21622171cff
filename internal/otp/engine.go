package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/quarrydirect/portal/internal/common/config"
	"github.com/quarrydirect/portal/internal/common/errorx"
	"github.com/quarrydirect/portal/internal/sms"

	"go.uber.org/zap"
)

// IdentityLookup reports whether a phone belongs to a user who may receive
// an OTP. Implemented by the authenticator over the credential store.
type IdentityLookup interface {
	// LookupPhone returns nil when an eligible owner exists, or an APIError
	// (USER_NOT_FOUND, USER_NOT_APPROVED, CUSTOMER_NOT_ACTIVE) otherwise.
	LookupPhone(ctx context.Context, phone string) error
}

// Engine generates, rate-limits and verifies one-time codes.
type Engine struct {
	logger *zap.Logger
	store  Store
	sender sms.Sender
	lookup IdentityLookup
	cfg    config.OTPConfig

	// swappable for tests
	now     func() time.Time
	newCode func() (string, error)
}

// NewEngine creates an OTP engine.
func NewEngine(logger *zap.Logger, store Store, sender sms.Sender, lookup IdentityLookup, cfg config.OTPConfig) *Engine {
	return &Engine{
		logger:  logger.Named("otp.engine"),
		store:   store,
		sender:  sender,
		lookup:  lookup,
		cfg:     cfg,
		now:     time.Now,
		newCode: newCode,
	}
}

// SetCodeGenerator replaces the code source; used by tests that need
// deterministic codes.
func (e *Engine) SetCodeGenerator(fn func() (string, error)) {
	e.newCode = fn
}

// Send issues a fresh challenge for the phone and dispatches it via SMS.
// Any prior unconsumed challenge is displaced. Returns the expiry window in
// seconds.
func (e *Engine) Send(ctx context.Context, phone string) (int, error) {
	if err := e.lookup.LookupPhone(ctx, phone); err != nil {
		return 0, err
	}

	count, err := e.store.IncrSendWindow(ctx, phone, e.cfg.SendWindow)
	if err != nil {
		e.logger.Error("send window increment failed", zap.Error(err))
		return 0, errorx.ErrInternal
	}
	if count > int64(e.cfg.SendLimit) {
		e.logger.Warn("otp send rate limited",
			zap.String("phone", phone),
			zap.Int64("count", count))
		return 0, errorx.ErrRateLimited
	}

	code, err := e.newCode()
	if err != nil {
		return 0, errorx.ErrInternal
	}

	now := e.now().UTC()
	ch := &Challenge{
		Phone:     phone,
		CodeHash:  hashCode(code),
		CreatedAt: now,
		ExpiresAt: now.Add(e.cfg.TTL),
	}
	if err := e.store.PutChallenge(ctx, ch); err != nil {
		e.logger.Error("failed to store challenge", zap.Error(err))
		return 0, errorx.ErrInternal
	}

	// Delivery is fire-and-forget; the response does not wait on the SMS
	// gateway and a gateway failure does not fail the request.
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		message := fmt.Sprintf("Your verification code is: %s\nThis code expires in %d minutes.",
			code, int(e.cfg.TTL.Minutes()))
		if err := e.sender.Send(sendCtx, phone, message); err != nil {
			e.logger.Warn("otp delivery failed", zap.String("phone", phone), zap.Error(err))
		}
	}()

	e.logger.Info("otp challenge issued", zap.String("phone", phone))
	return int(e.cfg.TTL.Seconds()), nil
}

// Verify checks a code against the phone's current challenge. Verification
// is single-use: a consumed or expired challenge can never succeed again.
func (e *Engine) Verify(ctx context.Context, phone, code string) error {
	ch, err := e.store.GetChallenge(ctx, phone)
	if err == ErrNoChallenge {
		return errorx.ErrOTPExpired
	}
	if err != nil {
		e.logger.Error("failed to load challenge", zap.Error(err))
		return errorx.ErrInternal
	}

	if e.now().UTC().After(ch.ExpiresAt) {
		return errorx.ErrOTPExpired
	}
	if ch.Attempts >= e.cfg.MaxAttempts {
		return errorx.ErrTooManyAttempts
	}

	if hashCode(code) != ch.CodeHash {
		if _, err := e.store.IncrementAttempts(ctx, phone); err != nil && err != ErrNoChallenge {
			e.logger.Error("failed to record attempt", zap.Error(err))
		}
		return errorx.ErrInvalidOTP
	}

	if err := e.store.DeleteChallenge(ctx, phone); err != nil {
		e.logger.Error("failed to consume challenge", zap.Error(err))
		return errorx.ErrInternal
	}
	return nil
}

// newCode returns a uniformly random 6-digit code.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
