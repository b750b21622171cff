package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quarrydirect/portal/internal/approval"
	"github.com/quarrydirect/portal/internal/common/cnst"
	"github.com/quarrydirect/portal/internal/common/config"
	"github.com/quarrydirect/portal/internal/common/errorx"
	"github.com/quarrydirect/portal/internal/database"
	"github.com/quarrydirect/portal/internal/permission"
	"github.com/quarrydirect/portal/internal/session"
)

// Auth validates the session token on every request and loads the caller
// into the gin context. Customer users are re-gated through the approval
// check and get their effective permissions resolved fresh, so an admin
// change takes effect on the very next request. With recompute disabled the
// login-time snapshot stored on the session record is used instead.
func Auth(logger *zap.Logger, sessions *session.Manager, db database.Database, resolver *permission.Resolver, cfg config.PermissionConfig) gin.HandlerFunc {
	log := logger.Named("middleware.auth")
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			errorx.AbortWith(c, errorx.ErrTokenMissing)
			return
		}

		rec, err := sessions.Lookup(c.Request.Context(), token)
		if err != nil {
			errorx.AbortWith(c, errorx.ErrTokenInvalid)
			return
		}
		ident := rec.Identity()

		c.Set(cnst.CtxSessionToken, token)
		c.Set(cnst.CtxIdentity, &ident)

		switch ident.UserType {
		case cnst.UserTypeCustomer:
			user, err := db.GetCustomerUserByID(c.Request.Context(), ident.UserID)
			if err != nil {
				errorx.AbortWith(c, errorx.ErrTokenInvalid)
				return
			}
			if err := approval.CanAuthenticate(user); err != nil {
				errorx.AbortWith(c, err)
				return
			}
			c.Set(cnst.CtxUser, user)
			if !cfg.Recompute() && rec.Snapshot != nil {
				c.Set(cnst.CtxPermissions, &permission.Effective{
					Permissions: rec.Snapshot.Permissions,
					DepotAccess: rec.Snapshot.DepotAccess,
				})
			} else {
				effective, err := resolver.Resolve(c.Request.Context(), user)
				if err != nil {
					log.Error("permission resolution failed",
						zap.Uint("user_id", user.ID), zap.Error(err))
					errorx.AbortWith(c, errorx.ErrInternal)
					return
				}
				c.Set(cnst.CtxPermissions, effective)
			}
		case cnst.UserTypePlatform:
			user, err := db.GetPlatformUserByID(c.Request.Context(), ident.UserID)
			if err != nil {
				errorx.AbortWith(c, errorx.ErrTokenInvalid)
				return
			}
			c.Set(cnst.CtxUser, user)
		default:
			errorx.AbortWith(c, errorx.ErrTokenInvalid)
			return
		}

		c.Next()
	}
}

// RequirePermission rejects customer users whose effective permission map
// does not grant the capability. Platform users pass, their access is
// structural rather than capability based.
func RequirePermission(capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := IdentityFrom(c)
		if ident == nil {
			errorx.AbortWith(c, errorx.ErrTokenInvalid)
			return
		}
		if ident.UserType == cnst.UserTypePlatform {
			c.Next()
			return
		}
		effective := PermissionsFrom(c)
		if effective == nil || !effective.Allowed(capability) {
			errorx.AbortWith(c, errorx.ErrPermissionDenied.WithDetail("required", capability))
			return
		}
		c.Next()
	}
}

// PlatformOnly restricts a route group to platform users.
func PlatformOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := IdentityFrom(c)
		if ident == nil {
			errorx.AbortWith(c, errorx.ErrTokenInvalid)
			return
		}
		if ident.UserType != cnst.UserTypePlatform {
			errorx.AbortWith(c, errorx.ErrPlatformOnly)
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the session identity set by Auth, or nil.
func IdentityFrom(c *gin.Context) *session.Identity {
	v, ok := c.Get(cnst.CtxIdentity)
	if !ok {
		return nil
	}
	ident, _ := v.(*session.Identity)
	return ident
}

// PermissionsFrom returns the effective permissions set by Auth, or nil for
// platform users and unauthenticated requests.
func PermissionsFrom(c *gin.Context) *permission.Effective {
	v, ok := c.Get(cnst.CtxPermissions)
	if !ok {
		return nil
	}
	effective, _ := v.(*permission.Effective)
	return effective
}

// CustomerUserFrom returns the loaded customer user, or nil when the caller
// is a platform user.
func CustomerUserFrom(c *gin.Context) *database.CustomerUser {
	v, ok := c.Get(cnst.CtxUser)
	if !ok {
		return nil
	}
	user, _ := v.(*database.CustomerUser)
	return user
}

// PlatformUserFrom returns the loaded platform user, or nil when the caller
// is a customer user.
func PlatformUserFrom(c *gin.Context) *database.PlatformUser {
	v, ok := c.Get(cnst.CtxUser)
	if !ok {
		return nil
	}
	user, _ := v.(*database.PlatformUser)
	return user
}

// ExtractToken pulls the session token from the Authorization header or,
// failing that, the token query parameter. Both transports resolve through
// the same store so there is no behavioral difference between them.
func ExtractToken(c *gin.Context) string {
	authHeader := c.GetHeader(cnst.HeaderAuthorization)
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == cnst.BearerPrefix {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query(cnst.QueryToken)
}
