package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comanda-pos/comanda/internal/shared"
)

type headerTokens struct{}

func (headerTokens) TokenFromRequest(r *http.Request) string {
	return r.Header.Get("X-Token")
}

func newGatedServer(t *testing.T, engine *Engine, gate func(Middleware) func(http.Handler) http.Handler) http.Handler {
	t.Helper()
	mw := Middleware{Engine: engine, Sessions: headerTokens{}}
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := ResolutionFromContext(r.Context())
		require.True(t, ok, "resolution must be injected for allowed requests")
		w.Header().Set("X-Role", string(res.Identity.Role))
		w.WriteHeader(http.StatusOK)
	})
	return gate(mw)(handler)
}

func TestRequireAllowsGrantedCell(t *testing.T) {
	sid := testSessionIdentity("caixa@bar.example")
	engine := newTestEngine(sid, &fakeAssignments{}, &fakeDirectory{}, newFakeOverrideStore(), 0)
	srv := newGatedServer(t, engine, func(mw Middleware) func(http.Handler) http.Handler {
		return mw.Require(ModuleCashManagement, ActionView)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Token", "token")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(RoleCashier), w.Header().Get("X-Role"))
}

func TestRequireDeniesMissingCell(t *testing.T) {
	sid := testSessionIdentity("caixa@bar.example")
	engine := newTestEngine(sid, &fakeAssignments{}, &fakeDirectory{}, newFakeOverrideStore(), 0)
	srv := newGatedServer(t, engine, func(mw Middleware) func(http.Handler) http.Handler {
		return mw.Require(ModuleEmployeeAdmin, ActionEdit)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Token", "token")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireUnauthenticated(t *testing.T) {
	resolver := newTestResolver(ResolverConfig{}, &fakeSessions{err: shared.ErrAuthentication}, &fakeAssignments{}, &fakeDirectory{}, nil)
	engine := NewEngine(resolver, newFakeOverrideStore(), 0)
	srv := newGatedServer(t, engine, func(mw Middleware) func(http.Handler) http.Handler {
		return mw.Require(ModuleDashboard, ActionView)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireFailsClosedOnStoreOutage(t *testing.T) {
	sid := testSessionIdentity("maria@bar.example")
	store := newFakeOverrideStore()
	store.fetchErr = shared.ErrStoreUnavailable
	engine := newTestEngine(sid, &fakeAssignments{canonical: &Assignment{Role: RoleAdministrator, Active: true}}, &fakeDirectory{}, store, 0)
	srv := newGatedServer(t, engine, func(mw Middleware) func(http.Handler) http.Handler {
		return mw.Require(ModuleDashboard, ActionView)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Token", "token")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequireStaffManagerDeniesSuspendedManager(t *testing.T) {
	sid := testSessionIdentity("gerente@bar.example")
	directory := &fakeDirectory{profile: Profile{Deactivated: true}}
	engine := newTestEngine(sid, &fakeAssignments{canonical: &Assignment{Role: RoleManager, Active: true}}, directory, newFakeOverrideStore(), 0)
	srv := newGatedServer(t, engine, func(mw Middleware) func(http.Handler) http.Handler {
		return mw.RequireStaffManager()
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Token", "token")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAdministrator(t *testing.T) {
	t.Run("administrator allowed", func(t *testing.T) {
		sid := testSessionIdentity("maria@bar.example")
		engine := newTestEngine(sid, &fakeAssignments{canonical: &Assignment{Role: RoleAdministrator, Active: true}}, &fakeDirectory{}, newFakeOverrideStore(), 0)
		srv := newGatedServer(t, engine, func(mw Middleware) func(http.Handler) http.Handler {
			return mw.RequireAdministrator()
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Token", "token")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
	t.Run("manager denied", func(t *testing.T) {
		sid := testSessionIdentity("maria@bar.example")
		engine := newTestEngine(sid, &fakeAssignments{canonical: &Assignment{Role: RoleManager, Active: true}}, &fakeDirectory{}, newFakeOverrideStore(), 0)
		srv := newGatedServer(t, engine, func(mw Middleware) func(http.Handler) http.Handler {
			return mw.RequireAdministrator()
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Token", "token")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
