package dto

import (
	"time"

	"github.com/quarrydirect/portal/internal/common/cnst"
)

// RegisterRequest is the body for POST /api/auth/register
type RegisterRequest struct {
	CustomerCode string `json:"customer_code"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Password     string `json:"password"`
	Role         string `json:"role"`
}

// LoginRequest is the body for POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SendOTPRequest is the body for POST /api/auth/otp/send
type SendOTPRequest struct {
	Phone string `json:"phone"`
}

// VerifyOTPRequest is the body for POST /api/auth/otp/verify
type VerifyOTPRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

// LogoutRequest carries an explicit token for POST /api/auth/logout; the
// bearer header is used when the body is empty.
type LogoutRequest struct {
	SessionToken string `json:"session_token"`
}

// UserPayload is the profile block embedded in auth responses. CustomerID
// and CustomerName are only set for customer users.
type UserPayload struct {
	ID           uint       `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	Role         string     `json:"role"`
	Status       string     `json:"status,omitempty"`
	CustomerID   uint       `json:"customer_id,omitempty"`
	CustomerName string     `json:"customer_name,omitempty"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// LoginResponse is returned by both login paths.
type LoginResponse struct {
	SessionToken string          `json:"session_token"`
	UserType     cnst.UserType   `json:"user_type"`
	User         *UserPayload    `json:"user"`
	Permissions  map[string]bool `json:"permissions,omitempty"`
	DepotAccess  []string        `json:"depot_access,omitempty"`
}

// RegisterResponse is returned by registration; the account is always
// pending at this point.
type RegisterResponse struct {
	Message string       `json:"message"`
	User    *UserPayload `json:"user"`
}

// SendOTPResponse reports the challenge expiry window in seconds.
type SendOTPResponse struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
}

// SessionResponse is returned by GET /api/auth/session
type SessionResponse struct {
	Valid    bool          `json:"valid"`
	UserType cnst.UserType `json:"user_type,omitempty"`
	User     *UserPayload  `json:"user,omitempty"`
}
