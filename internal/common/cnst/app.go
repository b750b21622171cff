package cnst

// Gin context keys populated by the authentication middleware.
const (
	// CtxIdentity holds the resolved *session.Identity for the request
	CtxIdentity = "identity"
	// CtxUser holds the loaded user record (customer or platform)
	CtxUser = "current_user"
	// CtxPermissions holds the effective permission map for customer users
	CtxPermissions = "effective_permissions"
	// CtxSessionToken holds the raw bearer token for the request
	CtxSessionToken = "session_token"
)

// UserType discriminates the two user tables a session token may reference.
type UserType string

const (
	UserTypeCustomer UserType = "customer_user"
	UserTypePlatform UserType = "platform_user"
)

// Header and query names for session token transport.
const (
	HeaderAuthorization = "Authorization"
	BearerPrefix        = "Bearer"
	QueryToken          = "token"
)
