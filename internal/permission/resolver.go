package permission

import (
	"context"

	"github.com/quarrydirect/portal/internal/database"

	"go.uber.org/zap"
)

// Capability names used across the portal. Downstream services check these
// against the resolved set; the list here only seeds the role defaults.
const (
	CapViewProducts    = "view_products"
	CapViewPricing     = "view_pricing"
	CapManageCart      = "manage_cart"
	CapPlaceOrders     = "place_orders"
	CapViewOrders      = "view_orders"
	CapManageUsers     = "manage_users"
	CapViewStatements  = "view_statements"
	CapRequestCredit   = "request_credit"
)

// roleDefaults is the static per-role capability baseline. Permission codes
// and per-user overrides are layered on top of this.
var roleDefaults = map[database.CustomerUserRole]map[string]bool{
	database.RoleOwner: {
		CapViewProducts:   true,
		CapViewPricing:    true,
		CapManageCart:     true,
		CapPlaceOrders:    true,
		CapViewOrders:     true,
		CapManageUsers:    true,
		CapViewStatements: true,
		CapRequestCredit:  true,
	},
	database.RoleAdmin: {
		CapViewProducts:   true,
		CapViewPricing:    true,
		CapManageCart:     true,
		CapPlaceOrders:    true,
		CapViewOrders:     true,
		CapManageUsers:    true,
		CapViewStatements: true,
		CapRequestCredit:  false,
	},
	database.RoleStaff: {
		CapViewProducts: true,
		CapViewPricing:  true,
		CapManageCart:   true,
		CapPlaceOrders:  true,
		CapViewOrders:   true,
	},
	database.RoleViewer: {
		CapViewProducts: true,
		CapViewOrders:   true,
	},
}

// RoleDefaults returns a copy of the baseline capability set for a role.
func RoleDefaults(role database.CustomerUserRole) map[string]bool {
	out := make(map[string]bool, len(roleDefaults[role]))
	for k, v := range roleDefaults[role] {
		out[k] = v
	}
	return out
}

// Effective is the resolved permission state for a customer user.
type Effective struct {
	// Permissions maps capability name to allowed.
	Permissions map[string]bool `json:"permissions"`
	// DepotAccess is the user's literal depot list. An empty list means no
	// location restriction; see RestrictedToDepots.
	DepotAccess []string `json:"depot_access"`
}

// Allowed reports whether a capability is granted.
func (e *Effective) Allowed(capability string) bool {
	return e.Permissions[capability]
}

// RestrictedToDepots reports whether depot filtering applies at all. By
// convention an empty depot list means the user sees every location, so
// callers must check this before filtering rather than comparing against
// the list directly.
func (e *Effective) RestrictedToDepots() bool {
	return len(e.DepotAccess) > 0
}

// CanAccessDepot reports whether the user may see the given depot.
func (e *Effective) CanAccessDepot(code string) bool {
	if !e.RestrictedToDepots() {
		return true
	}
	for _, d := range e.DepotAccess {
		if d == code {
			return true
		}
	}
	return false
}

// Resolver merges role defaults, permission-code templates and per-user
// overrides into an effective permission set.
type Resolver struct {
	logger *zap.Logger
	db     database.Database
}

// NewResolver creates a permission resolver over the credential store.
func NewResolver(logger *zap.Logger, db database.Database) *Resolver {
	return &Resolver{
		logger: logger.Named("permission.resolver"),
		db:     db,
	}
}

// Resolve computes the user's effective permissions. Merge order, later
// layers winning: role defaults, then the assigned permission code's
// defaults, then the user's custom overrides.
func (r *Resolver) Resolve(ctx context.Context, user *database.CustomerUser) (*Effective, error) {
	merged := RoleDefaults(user.Role)

	if user.PermissionCode != "" {
		pc, err := r.db.GetPermissionCode(ctx, user.PermissionCode)
		if err != nil && err != database.ErrNotFound {
			return nil, err
		}
		if err == database.ErrNotFound {
			// A dangling code assignment is an admin data problem, not a
			// login failure; fall through to role defaults.
			r.logger.Warn("customer user references unknown permission code",
				zap.Uint("user_id", user.ID),
				zap.String("permission_code", user.PermissionCode))
		} else {
			for k, v := range pc.DefaultPermissions {
				merged[k] = v
			}
		}
	}

	for k, v := range user.CustomPermissions {
		merged[k] = v
	}

	depots := make([]string, len(user.DepotAccess))
	copy(depots, user.DepotAccess)

	return &Effective{
		Permissions: merged,
		DepotAccess: depots,
	}, nil
}
