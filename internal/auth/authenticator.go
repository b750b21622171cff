package auth

import (
	"context"
	"strings"
	"time"

	"github.com/quarrydirect/portal/internal/approval"
	"github.com/quarrydirect/portal/internal/common/cnst"
	"github.com/quarrydirect/portal/internal/common/dto"
	"github.com/quarrydirect/portal/internal/common/errorx"
	"github.com/quarrydirect/portal/internal/database"
	"github.com/quarrydirect/portal/internal/otp"
	"github.com/quarrydirect/portal/internal/permission"
	"github.com/quarrydirect/portal/internal/session"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Service authenticates identities across both user tables and issues
// sessions for the ones that pass the approval gate.
type Service struct {
	logger   *zap.Logger
	db       database.Database
	sessions *session.Manager
	resolver *permission.Resolver
	engine   *otp.Engine
}

// NewService creates the authenticator.
func NewService(logger *zap.Logger, db database.Database, sessions *session.Manager, resolver *permission.Resolver, engine *otp.Engine) *Service {
	return &Service{
		logger:   logger.Named("auth"),
		db:       db,
		sessions: sessions,
		resolver: resolver,
		engine:   engine,
	}
}

// Register creates a pending customer user attached to an existing customer
// matched by code. Input is validated before any store is touched.
func (s *Service) Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.Phone)
	customerCode := strings.TrimSpace(req.CustomerCode)
	role := strings.TrimSpace(req.Role)

	if name == "" || email == "" || phone == "" || req.Password == "" || customerCode == "" {
		return nil, errorx.ErrMissingFields
	}
	if !ValidEmail(email) {
		return nil, errorx.ErrInvalidEmail
	}
	if !ValidPhone(phone) {
		return nil, errorx.ErrInvalidPhone
	}
	if len(req.Password) < minPasswordLength {
		return nil, errorx.ErrWeakPassword
	}
	if role == "" {
		role = string(database.RoleViewer)
	}
	if !database.ValidCustomerUserRole(role) {
		return nil, errorx.ErrInvalidRole
	}

	customer, err := s.db.GetCustomerByCode(ctx, customerCode)
	if err == database.ErrNotFound {
		return nil, errorx.ErrInvalidCustomerCode
	}
	if err != nil {
		s.logger.Error("customer lookup failed", zap.Error(err))
		return nil, errorx.ErrInternal
	}
	if customer.Status != database.CustomerApproved {
		return nil, errorx.ErrCustomerNotActive
	}

	if _, err := s.db.GetCustomerUserByEmail(ctx, email); err == nil {
		return nil, errorx.ErrEmailExists
	} else if err != database.ErrNotFound {
		s.logger.Error("email uniqueness check failed", zap.Error(err))
		return nil, errorx.ErrInternal
	}
	if _, err := s.db.GetCustomerUserByPhone(ctx, phone); err == nil {
		return nil, errorx.ErrPhoneExists
	} else if err != database.ErrNotFound {
		s.logger.Error("phone uniqueness check failed", zap.Error(err))
		return nil, errorx.ErrInternal
	}

	// Only one owner may come out of self-registration; further owners are
	// an administrative action.
	if database.CustomerUserRole(role) == database.RoleOwner {
		owners, err := s.db.CountOwners(ctx, customer.ID)
		if err != nil {
			s.logger.Error("owner count failed", zap.Error(err))
			return nil, errorx.ErrInternal
		}
		if owners > 0 {
			return nil, errorx.ErrOwnerExists
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errorx.ErrInternal
	}

	user := &database.CustomerUser{
		CustomerID:   customer.ID,
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hash),
		Role:         database.CustomerUserRole(role),
		Status:       database.UserPending,
		DepotAccess:  database.StringList{},
	}

	// A role-matched permission template is attached up front so approval
	// without an explicit code still yields sensible defaults.
	if pc, err := s.db.GetPermissionCodeForRole(ctx, user.Role); err == nil {
		user.PermissionCode = pc.Code
	} else if err != database.ErrNotFound {
		s.logger.Error("permission code lookup failed", zap.Error(err))
		return nil, errorx.ErrInternal
	}

	if err := s.db.CreateCustomerUser(ctx, user); err != nil {
		s.logger.Error("failed to create customer user", zap.Error(err))
		return nil, errorx.ErrInternal
	}

	user.Customer = customer
	s.logger.Info("customer user registered",
		zap.String("email", user.Email),
		zap.String("customer_code", customer.Code),
		zap.String("role", string(user.Role)))

	return &dto.RegisterResponse{
		Message: "Registration successful. Your account is pending approval.",
		User:    customerUserPayload(user),
	}, nil
}

// LoginWithPassword authenticates by email and password. Unknown email and
// wrong password produce the identical error so accounts cannot be
// enumerated.
func (s *Service) LoginWithPassword(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errorx.ErrMissingFields
	}

	if user, err := s.db.GetCustomerUserByEmail(ctx, email); err == nil {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			return nil, errorx.ErrInvalidCredentials
		}
		if err := approval.CanAuthenticate(user); err != nil {
			return nil, err
		}
		return s.loginCustomerUser(ctx, user)
	} else if err != database.ErrNotFound {
		s.logger.Error("customer user lookup failed", zap.Error(err))
		return nil, errorx.ErrInternal
	}

	platformUser, err := s.db.GetPlatformUserByEmail(ctx, email)
	if err == database.ErrNotFound {
		return nil, errorx.ErrInvalidCredentials
	}
	if err != nil {
		s.logger.Error("platform user lookup failed", zap.Error(err))
		return nil, errorx.ErrInternal
	}
	if bcrypt.CompareHashAndPassword([]byte(platformUser.PasswordHash), []byte(password)) != nil {
		return nil, errorx.ErrInvalidCredentials
	}
	return s.loginPlatformUser(ctx, platformUser)
}

// SendOTP issues a one-time code to the phone via the engine.
func (s *Service) SendOTP(ctx context.Context, phone string) (*dto.SendOTPResponse, error) {
	phone = strings.TrimSpace(phone)
	if !ValidPhone(phone) {
		return nil, errorx.ErrInvalidPhone
	}
	expiresIn, err := s.engine.Send(ctx, phone)
	if err != nil {
		return nil, err
	}
	return &dto.SendOTPResponse{
		Message:   "OTP sent",
		ExpiresIn: expiresIn,
	}, nil
}

// LoginWithOTP verifies a one-time code and authenticates its owner,
// applying the same approval gate as the password path.
func (s *Service) LoginWithOTP(ctx context.Context, phone, code string) (*dto.LoginResponse, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || code == "" {
		return nil, errorx.ErrMissingFields
	}

	if err := s.engine.Verify(ctx, phone, code); err != nil {
		return nil, err
	}

	if user, err := s.db.GetCustomerUserByPhone(ctx, phone); err == nil {
		if err := approval.CanAuthenticate(user); err != nil {
			return nil, err
		}
		return s.loginCustomerUser(ctx, user)
	} else if err != database.ErrNotFound {
		s.logger.Error("customer user lookup failed", zap.Error(err))
		return nil, errorx.ErrInternal
	}

	platformUser, err := s.db.GetPlatformUserByPhone(ctx, phone)
	if err == database.ErrNotFound {
		return nil, errorx.ErrUserNotFound
	}
	if err != nil {
		s.logger.Error("platform user lookup failed", zap.Error(err))
		return nil, errorx.ErrInternal
	}
	return s.loginPlatformUser(ctx, platformUser)
}

// ValidateSession resolves a token to its user. Customer users are re-gated
// so a mid-session suspension takes effect on the next request.
func (s *Service) ValidateSession(ctx context.Context, token string) (*dto.SessionResponse, error) {
	ident, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return nil, errorx.ErrTokenInvalid
	}

	switch ident.UserType {
	case cnst.UserTypeCustomer:
		user, err := s.db.GetCustomerUserByID(ctx, ident.UserID)
		if err != nil {
			return nil, errorx.ErrTokenInvalid
		}
		if err := approval.CanAuthenticate(user); err != nil {
			return nil, err
		}
		return &dto.SessionResponse{
			Valid:    true,
			UserType: cnst.UserTypeCustomer,
			User:     customerUserPayload(user),
		}, nil
	case cnst.UserTypePlatform:
		user, err := s.db.GetPlatformUserByID(ctx, ident.UserID)
		if err != nil {
			return nil, errorx.ErrTokenInvalid
		}
		return &dto.SessionResponse{
			Valid:    true,
			UserType: cnst.UserTypePlatform,
			User:     platformUserPayload(user),
		}, nil
	default:
		return nil, errorx.ErrTokenInvalid
	}
}

// Logout revokes a session. Unknown tokens succeed, so repeated calls are
// harmless.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		s.logger.Error("logout failed", zap.Error(err))
		return errorx.ErrInternal
	}
	return nil
}

func (s *Service) loginCustomerUser(ctx context.Context, user *database.CustomerUser) (*dto.LoginResponse, error) {
	effective, err := s.resolver.Resolve(ctx, user)
	if err != nil {
		s.logger.Error("permission resolution failed", zap.Error(err))
		return nil, errorx.ErrInternal
	}

	token, err := s.sessions.Issue(ctx, session.Identity{
		UserType: cnst.UserTypeCustomer,
		UserID:   user.ID,
	}, &session.Snapshot{
		Permissions: effective.Permissions,
		DepotAccess: effective.DepotAccess,
	})
	if err != nil {
		s.logger.Error("session issue failed", zap.Error(err))
		return nil, errorx.ErrInternal
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	if err := s.db.UpdateCustomerUser(ctx, user); err != nil {
		s.logger.Warn("failed to record last login", zap.Error(err))
	}

	s.logger.Info("customer user authenticated",
		zap.String("email", user.Email),
		zap.Uint("user_id", user.ID))

	return &dto.LoginResponse{
		SessionToken: token,
		UserType:     cnst.UserTypeCustomer,
		User:         customerUserPayload(user),
		Permissions:  effective.Permissions,
		DepotAccess:  effective.DepotAccess,
	}, nil
}

func (s *Service) loginPlatformUser(ctx context.Context, user *database.PlatformUser) (*dto.LoginResponse, error) {
	token, err := s.sessions.Issue(ctx, session.Identity{
		UserType: cnst.UserTypePlatform,
		UserID:   user.ID,
	}, nil)
	if err != nil {
		s.logger.Error("session issue failed", zap.Error(err))
		return nil, errorx.ErrInternal
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	if err := s.db.UpdatePlatformUser(ctx, user); err != nil {
		s.logger.Warn("failed to record last login", zap.Error(err))
	}

	s.logger.Info("platform user authenticated",
		zap.String("email", user.Email),
		zap.Uint("user_id", user.ID))

	return &dto.LoginResponse{
		SessionToken: token,
		UserType:     cnst.UserTypePlatform,
		User:         platformUserPayload(user),
	}, nil
}

func customerUserPayload(user *database.CustomerUser) *dto.UserPayload {
	p := &dto.UserPayload{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Phone:      user.Phone,
		Role:       string(user.Role),
		Status:     string(user.Status),
		CustomerID: user.CustomerID,
		LastLogin:  user.LastLogin,
		CreatedAt:  user.CreatedAt,
	}
	if user.Customer != nil {
		p.CustomerName = user.Customer.Name
	}
	return p
}

func platformUserPayload(user *database.PlatformUser) *dto.UserPayload {
	return &dto.UserPayload{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      string(user.Role),
		LastLogin: user.LastLogin,
		CreatedAt: user.CreatedAt,
	}
}
