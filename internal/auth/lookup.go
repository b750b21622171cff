package auth

import (
	"context"

	"github.com/quarrydirect/portal/internal/approval"
	"github.com/quarrydirect/portal/internal/common/errorx"
	"github.com/quarrydirect/portal/internal/database"
)

// PhoneLookup resolves a phone to an eligible account before an OTP is
// issued, so codes are never sent to phones that could not log in anyway.
type PhoneLookup struct {
	db database.Database
}

// NewPhoneLookup creates a lookup over both user tables.
func NewPhoneLookup(db database.Database) *PhoneLookup {
	return &PhoneLookup{db: db}
}

// LookupPhone checks customer users first, then platform users. Customer
// users must pass the approval gate; a pending or suspended account gets its
// gate error rather than an OTP.
func (l *PhoneLookup) LookupPhone(ctx context.Context, phone string) error {
	user, err := l.db.GetCustomerUserByPhone(ctx, phone)
	if err == nil {
		return approval.CanAuthenticate(user)
	}
	if err != database.ErrNotFound {
		return errorx.ErrInternal
	}

	if _, err := l.db.GetPlatformUserByPhone(ctx, phone); err == nil {
		return nil
	} else if err != database.ErrNotFound {
		return errorx.ErrInternal
	}
	return errorx.ErrUserNotFound
}
