package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/session"
)

type pageRoutes struct {
	app    *fiber.App
	called map[string]int
}

func newPageRoutes(f *fixture) *pageRoutes {
	r := &pageRoutes{app: fiber.New(), called: map[string]int{}}

	handler := func(name string) fiber.Handler {
		return func(c *fiber.Ctx) error {
			r.called[name]++

			identity := IdentityFromContext(c)
			if identity == nil {
				return c.SendStatus(fiber.StatusTeapot)
			}

			return c.JSON(fiber.Map{"handler": name, "user": identity.Username})
		}
	}

	r.app.Get("/admin/pages", RequirePermission(f.resolver, f.guard, PermPagesRead), handler("list"))
	r.app.Put("/admin/pages/:id", RequirePermission(f.resolver, f.guard, PermPagesEdit), handler("edit"))
	r.app.Delete("/admin/pages/:id", RequirePermission(f.resolver, f.guard, PermPagesDelete), handler("delete"))
	r.app.Get("/account", RequireIdentity(f.resolver), handler("account"))

	return r
}

func (r *pageRoutes) do(t *testing.T, method, target string, mutate func(*http.Request)) (int, ErrorResponse) {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	if mutate != nil {
		mutate(req)
	}

	resp, err := r.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out ErrorResponse
	if resp.StatusCode >= fiber.StatusBadRequest {
		assert.Equal(t, fiber.MIMEApplicationJSON, resp.Header.Get(fiber.HeaderContentType))
		require.NoError(t, json.Unmarshal(body, &out))
	}

	return resp.StatusCode, out
}

func withCookie(id string) func(*http.Request) {
	return func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "session", Value: id})
	}
}

func withBearer(raw string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+raw)
	}
}

func TestRequirePermissionEditorScenario(t *testing.T) {
	f := newFixture(t)
	routes := newPageRoutes(f)

	editor := f.role(t, "Editor", PermPagesRead, PermPagesEdit)
	u := f.user(t, "eve", editor.ID)

	id, _, err := f.sessions.Create(u.ID)
	require.NoError(t, err)

	status, _ := routes.do(t, fiber.MethodPut, "/admin/pages/1", withCookie(id))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, routes.called["edit"])

	status, body := routes.do(t, fiber.MethodDelete, "/admin/pages/1", withCookie(id))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "forbidden", body.Error)
	assert.Zero(t, routes.called["delete"], "handler must not run on deny")

	// revoke edit while the session stays alive
	require.NoError(t, f.roles.SyncPermissionNames(f.ctx, editor.ID, []string{PermPagesRead}))

	status, body = routes.do(t, fiber.MethodPut, "/admin/pages/1", withCookie(id))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "forbidden", body.Error)
	assert.Equal(t, 1, routes.called["edit"])

	status, _ = routes.do(t, fiber.MethodGet, "/admin/pages", withCookie(id))
	assert.Equal(t, fiber.StatusOK, status)
}

func TestRequirePermissionUnauthenticated(t *testing.T) {
	f := newFixture(t)
	routes := newPageRoutes(f)

	u := f.user(t, "eve", f.role(t, "Editor", PermPagesRead).ID)

	expiredID, err := session.GenerateSessionID()
	require.NoError(t, err)
	require.NoError(t, f.sessions.Write(expiredID, &session.Data{UserID: u.ID, ExpiresAt: time.Now().Add(-time.Minute)}))

	tests := []struct {
		name   string
		mutate func(*http.Request)
		want   string
	}{
		{name: "no credential", want: "authentication required"},
		{name: "unknown session", mutate: withCookie("nope"), want: "invalid credentials"},
		{name: "expired session", mutate: withCookie(expiredID), want: "session expired"},
		{name: "malformed bearer", mutate: withBearer("x.y.z"), want: "invalid credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := routes.do(t, fiber.MethodGet, "/admin/pages", tt.mutate)
			assert.Equal(t, fiber.StatusUnauthorized, status)
			assert.Equal(t, tt.want, body.Error)
		})
	}

	assert.Zero(t, routes.called["list"])
}

func TestRequirePermissionBearer(t *testing.T) {
	f := newFixture(t)
	routes := newPageRoutes(f)

	u := f.user(t, "api", f.role(t, "Reader", PermPagesRead).ID)

	raw, _, err := f.tokens.Issue(u)
	require.NoError(t, err)

	status, _ := routes.do(t, fiber.MethodGet, "/admin/pages", withBearer(raw))
	assert.Equal(t, fiber.StatusOK, status)

	status, body := routes.do(t, fiber.MethodDelete, "/admin/pages/3", withBearer(raw))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "forbidden", body.Error)
}

func TestRequirePermissionDeactivatedUser(t *testing.T) {
	f := newFixture(t)
	routes := newPageRoutes(f)

	u := f.user(t, "eve", f.role(t, "Reader", PermPagesRead).ID)

	id, _, err := f.sessions.Create(u.ID)
	require.NoError(t, err)

	status, _ := routes.do(t, fiber.MethodGet, "/admin/pages", withCookie(id))
	require.Equal(t, fiber.StatusOK, status)

	require.NoError(t, NewLocalProvider(f.db).SetActive(f.ctx, u.ID, false))

	status, body := routes.do(t, fiber.MethodGet, "/admin/pages", withCookie(id))
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "invalid credentials", body.Error)
}

func TestRequirePermissionDatabaseFailure(t *testing.T) {
	f := newFixture(t)
	routes := newPageRoutes(f)

	u := f.user(t, "eve", f.role(t, "Reader", PermPagesRead).ID)

	id, _, err := f.sessions.Create(u.ID)
	require.NoError(t, err)

	// the user row resolves, then the permission lookup fails
	require.NoError(t, f.db.Exec("DROP TABLE role_permissions").Error)

	status, body := routes.do(t, fiber.MethodGet, "/admin/pages", withCookie(id))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body.Error)
	assert.Zero(t, routes.called["list"])
}

func TestRequireIdentity(t *testing.T) {
	f := newFixture(t)
	routes := newPageRoutes(f)

	// a role without any permission may still use self service routes
	u := f.user(t, "nobody", f.role(t, "Empty").ID)

	id, _, err := f.sessions.Create(u.ID)
	require.NoError(t, err)

	status, _ := routes.do(t, fiber.MethodGet, "/account", withCookie(id))
	assert.Equal(t, fiber.StatusOK, status)

	status, body := routes.do(t, fiber.MethodGet, "/account", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "authentication required", body.Error)
}

func TestRequirePermissionPanicsOnUnknownPermission(t *testing.T) {
	f := newFixture(t)

	assert.Panics(t, func() {
		RequirePermission(f.resolver, f.guard, "admin.pages.publish")
	})
}
