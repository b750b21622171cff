package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydirect/portal/internal/common/config"
)

func newTestDB(t *testing.T) Database {
	t.Helper()
	db, err := NewSQLite(&config.DatabaseConfig{Type: "sqlite", DBName: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedCustomer(t *testing.T, db Database, code string, status CustomerStatus) *Customer {
	t.Helper()
	customer := &Customer{
		Code:   code,
		Name:   "Acme Quarries",
		Type:   CustomerTypeCompany,
		Status: status,
	}
	require.NoError(t, db.CreateCustomer(context.Background(), customer))
	return customer
}

func TestCustomerRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created := seedCustomer(t, db, "CUST-100", CustomerApproved)
	require.NotZero(t, created.ID)

	byCode, err := db.GetCustomerByCode(ctx, "CUST-100")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byCode.ID)

	byID, err := db.GetCustomerByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Quarries", byID.Name)

	_, err = db.GetCustomerByCode(ctx, "NOPE")
	assert.Equal(t, ErrNotFound, err)
}

func TestListCustomersByStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seedCustomer(t, db, "CUST-1", CustomerApproved)
	seedCustomer(t, db, "CUST-2", CustomerPending)
	seedCustomer(t, db, "CUST-3", CustomerApproved)

	approved, err := db.ListCustomers(ctx, CustomerApproved)
	require.NoError(t, err)
	assert.Len(t, approved, 2)

	all, err := db.ListCustomers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCustomerUserEmailIsLowercased(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	customer := seedCustomer(t, db, "CUST-100", CustomerApproved)

	user := &CustomerUser{
		CustomerID: customer.ID,
		Name:       "Thandi Nkosi",
		Email:      "Thandi.Nkosi@Example.COM",
		Phone:      "0821234567",
		Role:       RoleOwner,
		Status:     UserPending,
	}
	require.NoError(t, db.CreateCustomerUser(ctx, user))

	got, err := db.GetCustomerUserByEmail(ctx, "THANDI.NKOSI@example.com")
	require.NoError(t, err)
	assert.Equal(t, "thandi.nkosi@example.com", got.Email)
	require.NotNil(t, got.Customer)
	assert.Equal(t, "CUST-100", got.Customer.Code)
}

func TestCustomerUserJSONColumns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	customer := seedCustomer(t, db, "CUST-100", CustomerApproved)

	user := &CustomerUser{
		CustomerID:        customer.ID,
		Name:              "Thandi Nkosi",
		Email:             "thandi@example.com",
		Phone:             "0821234567",
		Role:              RoleStaff,
		Status:            UserApproved,
		CustomPermissions: PermissionMap{"view_pricing": true, "place_orders": false},
		DepotAccess:       StringList{"JHB", "CPT"},
	}
	require.NoError(t, db.CreateCustomerUser(ctx, user))

	got, err := db.GetCustomerUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, PermissionMap{"view_pricing": true, "place_orders": false}, got.CustomPermissions)
	assert.Equal(t, StringList{"JHB", "CPT"}, got.DepotAccess)
}

func TestListCustomerUsersFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c1 := seedCustomer(t, db, "CUST-1", CustomerApproved)
	c2 := seedCustomer(t, db, "CUST-2", CustomerApproved)

	users := []*CustomerUser{
		{CustomerID: c1.ID, Name: "Sipho Dlamini", Email: "sipho@a.com", Phone: "0821111111", Role: RoleOwner, Status: UserApproved},
		{CustomerID: c1.ID, Name: "Thandi Nkosi", Email: "thandi@a.com", Phone: "0822222222", Role: RoleStaff, Status: UserPending},
		{CustomerID: c2.ID, Name: "Pieter Botha", Email: "pieter@b.com", Phone: "0823333333", Role: RoleViewer, Status: UserPending},
	}
	for _, u := range users {
		require.NoError(t, db.CreateCustomerUser(ctx, u))
	}

	pending, err := db.ListCustomerUsers(ctx, CustomerUserFilter{Status: UserPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	forC1, err := db.ListCustomerUsers(ctx, CustomerUserFilter{CustomerID: c1.ID})
	require.NoError(t, err)
	assert.Len(t, forC1, 2)

	owners, err := db.ListCustomerUsers(ctx, CustomerUserFilter{Role: RoleOwner})
	require.NoError(t, err)
	assert.Len(t, owners, 1)

	byName, err := db.ListCustomerUsers(ctx, CustomerUserFilter{Search: "thandi"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Thandi Nkosi", byName[0].Name)
}

func TestCountOwners(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	customer := seedCustomer(t, db, "CUST-1", CustomerApproved)

	n, err := db.CountOwners(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.NoError(t, db.CreateCustomerUser(ctx, &CustomerUser{
		CustomerID: customer.ID, Name: "Owner", Email: "owner@a.com", Phone: "0821111111",
		Role: RoleOwner, Status: UserApproved,
	}))

	n, err = db.CountOwners(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPlatformUserRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &PlatformUser{
		Name:  "Admin",
		Email: "admin@portal.example",
		Phone: "0829999999",
		Role:  PlatformAdmin,
	}
	require.NoError(t, db.CreatePlatformUser(ctx, user))

	byEmail, err := db.GetPlatformUserByEmail(ctx, "admin@portal.example")
	require.NoError(t, err)
	assert.True(t, byEmail.IsAdmin())

	byPhone, err := db.GetPlatformUserByPhone(ctx, "0829999999")
	require.NoError(t, err)
	assert.Equal(t, byEmail.ID, byPhone.ID)

	_, err = db.GetPlatformUserByPhone(ctx, "0820000000")
	assert.Equal(t, ErrNotFound, err)
}

func TestPermissionCodes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SavePermissionCode(ctx, &PermissionCode{
		Code: "P2", Name: "Buyer", Role: RoleStaff,
		DefaultPermissions: PermissionMap{"place_orders": true},
	}))

	pc, err := db.GetPermissionCode(ctx, "P2")
	require.NoError(t, err)
	assert.True(t, pc.DefaultPermissions["place_orders"])

	byRole, err := db.GetPermissionCodeForRole(ctx, RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, "P2", byRole.Code)

	_, err = db.GetPermissionCodeForRole(ctx, RoleViewer)
	assert.Equal(t, ErrNotFound, err)
}

func TestDepots(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, d := range []*Depot{
		{Code: "JHB", Name: "Johannesburg"},
		{Code: "CPT", Name: "Cape Town"},
		{Code: "DBN", Name: "Durban"},
	} {
		require.NoError(t, db.SaveDepot(ctx, d))
	}

	all, err := db.ListDepots(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := db.GetDepotsByCodes(ctx, []string{"JHB", "CPT", "XXX"})
	require.NoError(t, err)
	assert.Len(t, some, 2)
}

func TestGetStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c := seedCustomer(t, db, "CUST-1", CustomerApproved)
	seedCustomer(t, db, "CUST-2", CustomerPending)
	require.NoError(t, db.CreateCustomerUser(ctx, &CustomerUser{
		CustomerID: c.ID, Name: "U", Email: "u@a.com", Phone: "0821111111",
		Role: RoleViewer, Status: UserPending,
	}))
	require.NoError(t, db.CreatePlatformUser(ctx, &PlatformUser{
		Name: "Admin", Email: "admin@portal.example", Role: PlatformAdmin,
	}))

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.CustomersByStatus[CustomerApproved])
	assert.Equal(t, int64(1), stats.CustomersByStatus[CustomerPending])
	assert.Equal(t, int64(1), stats.UsersByStatus[UserPending])
	assert.Equal(t, int64(1), stats.PlatformUsers)
}
