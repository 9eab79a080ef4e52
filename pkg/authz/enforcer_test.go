package authz

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/wardenhq/warden/pkg/apperr"
	"github.com/wardenhq/warden/pkg/authn"
	"github.com/wardenhq/warden/pkg/contextkeys"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/registry"
)

type fakeUserRoles struct {
	roles map[string][]string
	err   error
}

func (f *fakeUserRoles) RoleNamesForUsername(_ context.Context, username string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.roles[username], nil
}

type fakeEndpointRoles struct {
	roles map[string][]string
	err   error
	calls int
}

func (f *fakeEndpointRoles) RoleNamesForEndpoint(_ context.Context, code, route string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.roles[route+"|"+code], nil
}

type enforcerFixture struct {
	router    *mux.Router
	userRoles *fakeUserRoles
	endpoints *fakeEndpointRoles
}

func newFixture(t *testing.T) *enforcerFixture {
	t.Helper()

	reg := registry.New()
	action := registry.Action{
		Method:     http.MethodPost,
		Kind:       registry.Write,
		Definition: "Create Role",
		Route:      "RoleController",
	}
	reg.Register("role.create", action)

	userRoles := &fakeUserRoles{roles: map[string][]string{
		"admin": {"Admin"},
		"bob":   {"Viewer"},
	}}
	endpoints := &fakeEndpointRoles{roles: map[string][]string{
		"Role|POST.Write.CreateRole": {"Admin"},
	}}

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	enforcer := NewEnforcer(reg, userRoles, endpoints, logger, metrics)

	router := mux.NewRouter()
	router.Use(enforcer.Middleware)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/api/role/create-role", ok).Methods(http.MethodPost).Name("role.create")
	router.Handle("/api/role/get-roles", ok).Methods(http.MethodGet).Name("role.list")

	return &enforcerFixture{router: router, userRoles: userRoles, endpoints: endpoints}
}

func doAs(f *enforcerFixture, username, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if username != "" {
		ctx := contextkeys.WithPrincipal(req.Context(), &authn.Principal{Username: username})
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestEnforcer_AllowsMatchingRole(t *testing.T) {
	f := newFixture(t)
	rec := doAs(f, "admin", http.MethodPost, "/api/role/create-role")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEnforcer_DeniesWithoutMatchingRole(t *testing.T) {
	f := newFixture(t)
	rec := doAs(f, "bob", http.MethodPost, "/api/role/create-role")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unauthorized")
}

func TestEnforcer_DeniesUserWithNoRoles(t *testing.T) {
	f := newFixture(t)
	rec := doAs(f, "nobody", http.MethodPost, "/api/role/create-role")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEnforcer_AnonymousPassesThrough(t *testing.T) {
	// Authentication requirements are the bearer middleware's concern; an
	// anonymous request reaching enforcement is not guarded here.
	f := newFixture(t)
	rec := doAs(f, "", http.MethodPost, "/api/role/create-role")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEnforcer_UnregisteredRoutePassesThrough(t *testing.T) {
	f := newFixture(t)
	rec := doAs(f, "bob", http.MethodGet, "/api/role/get-roles")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEnforcer_EndpointMissingFromCatalogDenies(t *testing.T) {
	f := newFixture(t)
	f.endpoints.err = apperr.ErrEndpointNotFound
	rec := doAs(f, "admin", http.MethodPost, "/api/role/create-role")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEnforcer_CachesPermittedRoles(t *testing.T) {
	f := newFixture(t)

	doAs(f, "admin", http.MethodPost, "/api/role/create-role")
	doAs(f, "admin", http.MethodPost, "/api/role/create-role")
	doAs(f, "bob", http.MethodPost, "/api/role/create-role")

	assert.Equal(t, 1, f.endpoints.calls)
}
