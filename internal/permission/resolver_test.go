package permission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quarrydirect/portal/internal/database"
)

// fakeDB serves permission codes from a map; everything else panics.
type fakeDB struct {
	database.Database
	codes map[string]*database.PermissionCode
}

func (f *fakeDB) GetPermissionCode(_ context.Context, code string) (*database.PermissionCode, error) {
	pc, ok := f.codes[code]
	if !ok {
		return nil, database.ErrNotFound
	}
	return pc, nil
}

func newTestResolver(codes map[string]*database.PermissionCode) *Resolver {
	return NewResolver(zap.NewNop(), &fakeDB{codes: codes})
}

func TestRoleDefaults(t *testing.T) {
	owner := RoleDefaults(database.RoleOwner)
	assert.True(t, owner[CapManageUsers])
	assert.True(t, owner[CapRequestCredit])

	admin := RoleDefaults(database.RoleAdmin)
	assert.True(t, admin[CapManageUsers])
	assert.False(t, admin[CapRequestCredit])

	staff := RoleDefaults(database.RoleStaff)
	assert.True(t, staff[CapPlaceOrders])
	assert.False(t, staff[CapManageUsers])

	viewer := RoleDefaults(database.RoleViewer)
	assert.True(t, viewer[CapViewProducts])
	assert.False(t, viewer[CapPlaceOrders])
}

func TestRoleDefaultsReturnsCopy(t *testing.T) {
	first := RoleDefaults(database.RoleViewer)
	first[CapPlaceOrders] = true
	second := RoleDefaults(database.RoleViewer)
	assert.False(t, second[CapPlaceOrders])
}

func TestResolveMergePrecedence(t *testing.T) {
	r := newTestResolver(map[string]*database.PermissionCode{
		"P2": {
			Code:               "P2",
			DefaultPermissions: database.PermissionMap{CapPlaceOrders: true, CapViewPricing: true},
		},
	})

	// code grants place_orders over viewer defaults, custom override takes
	// it away again: custom wins.
	user := &database.CustomerUser{
		Role:              database.RoleViewer,
		PermissionCode:    "P2",
		CustomPermissions: database.PermissionMap{CapPlaceOrders: false},
	}

	eff, err := r.Resolve(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, eff.Permissions[CapPlaceOrders])
	assert.True(t, eff.Permissions[CapViewPricing])
	assert.True(t, eff.Permissions[CapViewProducts]) // role default survives
}

func TestResolveCustomGrantWithoutCode(t *testing.T) {
	r := newTestResolver(nil)

	user := &database.CustomerUser{
		Role:              database.RoleViewer,
		CustomPermissions: database.PermissionMap{CapViewStatements: true},
	}

	eff, err := r.Resolve(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, eff.Allowed(CapViewStatements))
	assert.False(t, eff.Allowed(CapManageUsers))
}

func TestResolveDanglingPermissionCode(t *testing.T) {
	r := newTestResolver(nil)

	user := &database.CustomerUser{
		Role:           database.RoleStaff,
		PermissionCode: "GONE",
	}

	// an unknown code falls back to role defaults rather than failing
	eff, err := r.Resolve(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, eff.Permissions[CapPlaceOrders])
}

func TestEffectiveDepotAccess(t *testing.T) {
	unrestricted := &Effective{DepotAccess: nil}
	assert.False(t, unrestricted.RestrictedToDepots())
	assert.True(t, unrestricted.CanAccessDepot("JHB"))

	restricted := &Effective{DepotAccess: []string{"JHB", "CPT"}}
	assert.True(t, restricted.RestrictedToDepots())
	assert.True(t, restricted.CanAccessDepot("JHB"))
	assert.False(t, restricted.CanAccessDepot("DBN"))
}

func TestResolveCopiesDepotAccess(t *testing.T) {
	r := newTestResolver(nil)
	user := &database.CustomerUser{
		Role:        database.RoleViewer,
		DepotAccess: database.StringList{"JHB"},
	}

	eff, err := r.Resolve(context.Background(), user)
	require.NoError(t, err)
	eff.DepotAccess[0] = "CPT"
	assert.Equal(t, "JHB", user.DepotAccess[0])
}
