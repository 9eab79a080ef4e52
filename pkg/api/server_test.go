package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/config"
	"github.com/wardenhq/warden/pkg/endpoints"
	"github.com/wardenhq/warden/pkg/identity"
	"github.com/wardenhq/warden/pkg/mail"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/roles"
	"github.com/wardenhq/warden/pkg/token"
	"github.com/wardenhq/warden/pkg/users"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			surname TEXT NOT NULL DEFAULT '',
			photo_url TEXT,
			password_hash TEXT,
			security_stamp TEXT NOT NULL,
			refresh_token TEXT,
			refresh_token_expiration TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE user_logins (
			provider TEXT NOT NULL,
			provider_key TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (provider, provider_key)
		);

		CREATE TABLE roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE user_roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			role_id INTEGER NOT NULL,
			granted_at TIMESTAMP NOT NULL,
			UNIQUE(user_id, role_id)
		);

		CREATE TABLE routes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP NOT NULL
		);

		CREATE TABLE endpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL,
			route_id INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			UNIQUE(code, route_id)
		);

		CREATE TABLE role_endpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			role_id INTEGER NOT NULL,
			endpoint_id INTEGER NOT NULL,
			granted_at TIMESTAMP NOT NULL,
			UNIQUE(role_id, endpoint_id)
		);
	`)
	require.NoError(t, err)

	return db
}

type recordingMailer struct {
	bodies []string
}

func (m *recordingMailer) Send(_ context.Context, _, _, body string) error {
	m.bodies = append(m.bodies, body)
	return nil
}

type fakeVerifier struct {
	identity *auth.FederatedIdentity
}

func (v *fakeVerifier) Verify(_ context.Context, _ string) (*auth.FederatedIdentity, error) {
	if v.identity == nil {
		return nil, fmt.Errorf("no identity configured")
	}
	return v.identity, nil
}

var _ mail.Mailer = (*recordingMailer)(nil)

type serverFixture struct {
	server    *Server
	db        *sql.DB
	users     *users.Service
	roleStore *identity.RoleStore
	endpoints *endpoints.Store
	mailer    *recordingMailer
	verifier  *fakeVerifier
	logger    *observability.Logger
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	db := setupTestDB(t)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	issuer := token.NewIssuer(config.TokenConfig{
		Audience:    "warden-test",
		Issuer:      "warden-test",
		SecurityKey: "0123456789abcdef0123456789abcdef",
		AccessTTL:   10 * time.Minute,
		RefreshTTL:  60 * time.Minute,
	})

	userStore := identity.NewUserStore(db)
	roleStore := identity.NewRoleStore(db)
	endpointStore := endpoints.NewStore(db)
	resetTokens := identity.NewResetTokenGenerator("reset-key", 24*time.Hour)
	mailer := &recordingMailer{}
	verifier := &fakeVerifier{}

	userService := users.NewService(userStore, roleStore, endpointStore, resetTokens, logger)
	authService := auth.NewService(userStore, issuer, mailer, verifier, resetTokens, "http://localhost:4200", logger, metrics)
	roleService := roles.NewService(roleStore, logger)

	server := NewServer(Deps{
		DB:        db,
		Auth:      authService,
		Users:     userService,
		Roles:     roleService,
		Endpoints: endpointStore,
		Issuer:    issuer,
		Logger:    logger,
		Metrics:   metrics,
	})

	// Startup seeding: reconcile the declared actions into the catalog
	_, err := endpointStore.Reconcile(context.Background(), server.Registry().Menus(), logger)
	require.NoError(t, err)

	return &serverFixture{
		server:    server,
		db:        db,
		users:     userService,
		roleStore: roleStore,
		endpoints: endpointStore,
		mailer:    mailer,
		verifier:  verifier,
		logger:    logger,
	}
}

func (f *serverFixture) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

// registerAndLogin creates an account and returns its access token.
func (f *serverFixture) registerAndLogin(t *testing.T, username, email string) string {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"name":     "Test",
		"surname":  "User",
		"password": "s3cret!",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"usernameOrEmail": username,
		"password":        "s3cret!",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]interface{})
	tok := data["token"].(map[string]interface{})
	return tok["accessToken"].(string)
}

// grantAdmin gives the user the Admin role and grants Admin every declared
// endpoint, mirroring first-boot provisioning.
func (f *serverFixture) grantAdmin(t *testing.T, username string) {
	t.Helper()
	ctx := context.Background()

	if _, err := f.roleStore.Create(ctx, "Admin"); err != nil {
		require.ErrorIs(t, err, identity.ErrDuplicateRole)
	}
	require.NoError(t, f.users.AssignUserRoles(ctx, username, []string{"Admin"}))

	menus, err := f.endpoints.ListMenus(ctx)
	require.NoError(t, err)
	for _, menu := range menus {
		for _, code := range menu.Codes {
			require.NoError(t, f.endpoints.AssignRoles(ctx, code, menu.Route, []string{"Admin"}))
		}
	}
}

func TestServer_RegisterDuplicate(t *testing.T) {
	f := newServerFixture(t)
	f.registerAndLogin(t, "alice", "alice@example.com")

	rec := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "other",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope["isSuccessful"])
}

func TestServer_LoginFailures(t *testing.T) {
	f := newServerFixture(t)
	f.registerAndLogin(t, "alice", "alice@example.com")

	rec := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"usernameOrEmail": "alice",
		"password":        "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid user name or password")

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"usernameOrEmail": "ghost",
		"password":        "whatever",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_RefreshFlow(t *testing.T) {
	f := newServerFixture(t)
	f.registerAndLogin(t, "alice", "alice@example.com")

	rec := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"usernameOrEmail": "alice",
		"password":        "s3cret!",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	refresh := data["token"].(map[string]interface{})["refreshToken"].(string)

	rec = f.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refreshToken": refresh,
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The old token was rotated out
	rec = f.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refreshToken": refresh,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_GuardedRouteRequiresToken(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/role/get-roles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isSuccessful":false`)
}

func TestServer_GuardedRouteDeniesWithoutGrant(t *testing.T) {
	f := newServerFixture(t)
	tok := f.registerAndLogin(t, "bob", "bob@example.com")

	rec := f.do(t, http.MethodGet, "/api/role/get-roles", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unauthorized")
}

func TestServer_GuardedRouteAllowsGrantedRole(t *testing.T) {
	f := newServerFixture(t)
	tok := f.registerAndLogin(t, "alice", "alice@example.com")
	f.grantAdmin(t, "alice")

	rec := f.do(t, http.MethodGet, "/api/role/get-roles", tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestServer_RoleCRUD(t *testing.T) {
	f := newServerFixture(t)
	tok := f.registerAndLogin(t, "alice", "alice@example.com")
	f.grantAdmin(t, "alice")

	rec := f.do(t, http.MethodPost, "/api/role/create-role", tok, map[string]string{"name": "Editor"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	id := int64(created["id"].(float64))

	rec = f.do(t, http.MethodPatch, fmt.Sprintf("/api/role/update-role/%d", id), tok, map[string]string{"name": "Publisher"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/role/get-roles", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Publisher")

	rec = f.do(t, http.MethodDelete, fmt.Sprintf("/api/role/delete-role/%d", id), tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, fmt.Sprintf("/api/role/delete-role/%d", id), tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_AssignUserRoles(t *testing.T) {
	f := newServerFixture(t)
	tok := f.registerAndLogin(t, "alice", "alice@example.com")
	f.grantAdmin(t, "alice")
	f.registerAndLogin(t, "bob", "bob@example.com")

	rec := f.do(t, http.MethodPost, "/api/user/assign-user-roles", tok, map[string]interface{}{
		"userNameOrUserId": "bob",
		"roles":            []string{"Admin"},
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/user/get-user-roles/bob", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Admin")

	// Unknown role names fail the request whole
	rec = f.do(t, http.MethodPost, "/api/user/assign-user-roles", tok, map[string]interface{}{
		"userNameOrUserId": "bob",
		"roles":            []string{"Ghost"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ghost")
}

func TestServer_EndpointAuthorization(t *testing.T) {
	f := newServerFixture(t)
	tok := f.registerAndLogin(t, "alice", "alice@example.com")

	// Requires a token, but no endpoint grant
	rec := f.do(t, http.MethodPost, "/api/endpoint-authorization/get-roles-for-endpoint", "", map[string]string{
		"code": "GET.Read.GetRoles", "route": "Role",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/endpoint-authorization/get-roles-for-endpoint", tok, map[string]string{
		"code": "GET.Read.GetRoles", "route": "Role",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/endpoint-authorization/get-roles-for-endpoint", tok, map[string]string{
		"code": "GET.Read.Nope", "route": "Role",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_EndpointGrantTakesEffectImmediately(t *testing.T) {
	f := newServerFixture(t)
	tok := f.registerAndLogin(t, "alice", "alice@example.com")
	ctx := context.Background()

	_, err := f.roleStore.Create(ctx, "Viewer")
	require.NoError(t, err)
	require.NoError(t, f.users.AssignUserRoles(ctx, "alice", []string{"Viewer"}))

	// Denied, and the denial primes the enforcement cache
	rec := f.do(t, http.MethodGet, "/api/role/get-roles", tok, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/endpoint-authorization/assign-roles-to-endpoint", tok, map[string]interface{}{
		"code": "GET.Read.GetRoles", "route": "Role", "roles": []string{"Viewer"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The assignment bypasses the cache TTL
	rec = f.do(t, http.MethodGet, "/api/role/get-roles", tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestServer_AuthorizeDefinitionEndpoints(t *testing.T) {
	f := newServerFixture(t)
	tok := f.registerAndLogin(t, "alice", "alice@example.com")
	f.grantAdmin(t, "alice")

	rec := f.do(t, http.MethodGet, "/api/role/get-authorize-definition-endpoints", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "POST.Write.CreateRole")
	assert.Contains(t, body, "GET.Read.GetUserRoles")
	assert.Contains(t, body, `"route":"Role"`)
	assert.Contains(t, body, `"route":"User"`)
}

func TestServer_PasswordResetFlow(t *testing.T) {
	f := newServerFixture(t)
	f.registerAndLogin(t, "alice", "alice@example.com")

	// Unknown address gets exactly the same answer
	rec := f.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": "ghost@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email sent if the address exists.")
	assert.Empty(t, f.mailer.bodies)

	rec = f.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email sent if the address exists.")
	require.Len(t, f.mailer.bodies, 1)
}

func TestServer_Healthz(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isSuccessful":true`)
}
