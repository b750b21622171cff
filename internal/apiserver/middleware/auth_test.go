package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quarrydirect/portal/internal/common/cnst"
	"github.com/quarrydirect/portal/internal/common/config"
	"github.com/quarrydirect/portal/internal/database"
	"github.com/quarrydirect/portal/internal/permission"
	"github.com/quarrydirect/portal/internal/session"
)

// fakeDB resolves users from maps; unimplemented methods panic.
type fakeDB struct {
	database.Database
	customerUsers map[uint]*database.CustomerUser
	platformUsers map[uint]*database.PlatformUser
}

func (f *fakeDB) GetCustomerUserByID(_ context.Context, id uint) (*database.CustomerUser, error) {
	u, ok := f.customerUsers[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return u, nil
}

func (f *fakeDB) GetPlatformUserByID(_ context.Context, id uint) (*database.PlatformUser, error) {
	u, ok := f.platformUsers[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return u, nil
}

func (f *fakeDB) GetPermissionCode(_ context.Context, code string) (*database.PermissionCode, error) {
	return nil, database.ErrNotFound
}

type fixture struct {
	sessions *session.Manager
	db       *fakeDB
	router   *gin.Engine
}

func newFixture(t *testing.T, extra ...gin.HandlerFunc) *fixture {
	return newFixtureWithConfig(t, config.PermissionConfig{}, extra...)
}

func newFixtureWithConfig(t *testing.T, cfg config.PermissionConfig, extra ...gin.HandlerFunc) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	db := &fakeDB{
		customerUsers: make(map[uint]*database.CustomerUser),
		platformUsers: make(map[uint]*database.PlatformUser),
	}
	sessions := session.NewManager(logger, session.NewMemoryStore(logger), time.Hour)
	resolver := permission.NewResolver(logger, db)

	router := gin.New()
	chain := append([]gin.HandlerFunc{
		Auth(logger, sessions, db, resolver, cfg),
	}, extra...)
	group := router.Group("/p", chain...)
	group.GET("", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	return &fixture{sessions: sessions, db: db, router: router}
}

func (f *fixture) get(t *testing.T, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func approvedUser(id uint) *database.CustomerUser {
	return &database.CustomerUser{
		ID:       id,
		Role:     database.RoleViewer,
		Status:   database.UserApproved,
		Customer: &database.Customer{Status: database.CustomerApproved},
	}
}

func TestAuthMissingToken(t *testing.T) {
	f := newFixture(t)
	w := f.get(t, "/p", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_MISSING")
}

func TestAuthInvalidToken(t *testing.T) {
	f := newFixture(t)
	w := f.get(t, "/p", "not-a-session")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_INVALID")
}

func TestAuthCustomerUser(t *testing.T) {
	f := newFixture(t)
	f.db.customerUsers[1] = approvedUser(1)

	token, err := f.sessions.Issue(context.Background(), session.Identity{UserType: cnst.UserTypeCustomer, UserID: 1}, nil)
	require.NoError(t, err)

	w := f.get(t, "/p", token)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthRegatesSuspendedUser(t *testing.T) {
	f := newFixture(t)
	u := approvedUser(1)
	f.db.customerUsers[1] = u

	token, err := f.sessions.Issue(context.Background(), session.Identity{UserType: cnst.UserTypeCustomer, UserID: 1}, nil)
	require.NoError(t, err)

	u.Status = database.UserSuspended
	w := f.get(t, "/p", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "USER_NOT_APPROVED")
}

func TestAuthTokenViaQueryParameter(t *testing.T) {
	f := newFixture(t)
	f.db.platformUsers[2] = &database.PlatformUser{ID: 2, Role: database.PlatformAdmin}

	token, err := f.sessions.Issue(context.Background(), session.Identity{UserType: cnst.UserTypePlatform, UserID: 2}, nil)
	require.NoError(t, err)

	w := f.get(t, "/p?token="+token, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequirePermission(t *testing.T) {
	f := newFixture(t, RequirePermission(permission.CapManageUsers))
	f.db.customerUsers[1] = approvedUser(1) // viewer: no manage_users
	u := approvedUser(2)
	u.Role = database.RoleOwner
	f.db.customerUsers[2] = u
	f.db.platformUsers[3] = &database.PlatformUser{ID: 3, Role: database.PlatformSupport}

	viewerTok, err := f.sessions.Issue(context.Background(), session.Identity{UserType: cnst.UserTypeCustomer, UserID: 1}, nil)
	require.NoError(t, err)
	w := f.get(t, "/p", viewerTok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "PERMISSION_DENIED")

	ownerTok, err := f.sessions.Issue(context.Background(), session.Identity{UserType: cnst.UserTypeCustomer, UserID: 2}, nil)
	require.NoError(t, err)
	w = f.get(t, "/p", ownerTok)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// platform users bypass capability checks
	platformTok, err := f.sessions.Issue(context.Background(), session.Identity{UserType: cnst.UserTypePlatform, UserID: 3}, nil)
	require.NoError(t, err)
	w = f.get(t, "/p", platformTok)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequirePermissionFromSnapshot(t *testing.T) {
	off := false
	f := newFixtureWithConfig(t, config.PermissionConfig{RecomputePerRequest: &off},
		RequirePermission(permission.CapViewProducts))
	u := approvedUser(1)
	u.Role = database.RoleOwner
	f.db.customerUsers[1] = u

	token, err := f.sessions.Issue(context.Background(),
		session.Identity{UserType: cnst.UserTypeCustomer, UserID: 1},
		&session.Snapshot{Permissions: map[string]bool{permission.CapViewProducts: true}})
	require.NoError(t, err)

	w := f.get(t, "/p", token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// the snapshot is authoritative until re-login: a grant added after
	// issue is not visible
	denied, err := f.sessions.Issue(context.Background(),
		session.Identity{UserType: cnst.UserTypeCustomer, UserID: 1},
		&session.Snapshot{Permissions: map[string]bool{permission.CapViewProducts: false}})
	require.NoError(t, err)
	w = f.get(t, "/p", denied)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "PERMISSION_DENIED")
}

func TestRequirePermissionSnapshotAbsentResolvesLive(t *testing.T) {
	off := false
	f := newFixtureWithConfig(t, config.PermissionConfig{RecomputePerRequest: &off},
		RequirePermission(permission.CapViewProducts))
	f.db.customerUsers[1] = approvedUser(1) // viewer: view_products by role default

	token, err := f.sessions.Issue(context.Background(),
		session.Identity{UserType: cnst.UserTypeCustomer, UserID: 1}, nil)
	require.NoError(t, err)

	w := f.get(t, "/p", token)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestPlatformOnly(t *testing.T) {
	f := newFixture(t, PlatformOnly())
	f.db.customerUsers[1] = approvedUser(1)
	f.db.platformUsers[2] = &database.PlatformUser{ID: 2, Role: database.PlatformAdmin}

	customerTok, err := f.sessions.Issue(context.Background(), session.Identity{UserType: cnst.UserTypeCustomer, UserID: 1}, nil)
	require.NoError(t, err)
	w := f.get(t, "/p", customerTok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "PLATFORM_ONLY")

	platformTok, err := f.sessions.Issue(context.Background(), session.Identity{UserType: cnst.UserTypePlatform, UserID: 2}, nil)
	require.NoError(t, err)
	w = f.get(t, "/p", platformTok)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestExtractToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mk := func(header, query string) *gin.Context {
		target := "/p"
		if query != "" {
			target += "?token=" + query
		}
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = req
		return c
	}

	assert.Equal(t, "abc", ExtractToken(mk("Bearer abc", "")))
	assert.Equal(t, "", ExtractToken(mk("Token abc", "")))
	assert.Equal(t, "qry", ExtractToken(mk("", "qry")))
	assert.Equal(t, "", ExtractToken(mk("", "")))
}
