// Package handlertest builds a fully wired handler environment on an in-memory database.
package handlertest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/stretchr/testify/require"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/audit"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/config"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/dbtest"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/session"
)

// Password is the password of every user created by Env.User.
const Password = "correct horse battery"

// Env is a test application with all handler dependencies.
type Env struct {
	Ctx  context.Context
	App  *fiber.App
	Deps *handler.Deps
}

// New creates an environment. mutate may adjust the configuration before anything is built.
func New(t *testing.T, mutate ...func(*config.Config)) *Env {
	t.Helper()

	cfg := &config.Config{
		DevMode:   true,
		Title:     "test",
		Webserver: config.Webserver{Port: 8080, URL: "http://localhost:8080"},
		Session:   config.Session{ExpiryTime: time.Hour, CookieName: "session"},
		Auth: config.Auth{
			LocalDB: config.LocalDBAuth{Enabled: true},
			OIDC:    config.OIDCAuth{DefaultRole: "Customer Care", StateTTL: 5 * time.Minute},
			Token:   config.TokenAuth{Enabled: true, Secret: "test-secret", Issuer: "test", TTL: time.Hour},
			TOTP:    config.TOTPAuth{Issuer: "test"},
		},
	}

	for _, m := range mutate {
		m(cfg)
	}

	ctx := context.Background()
	db := dbtest.Open(t)
	require.NoError(t, auth.SeedPermissions(ctx, db))

	var tokens *auth.TokenIssuer
	if cfg.Auth.Token.Enabled {
		var err error
		tokens, err = auth.NewTokenIssuer(cfg.Auth.Token)
		require.NoError(t, err)
	}

	storage := memory.New()
	sessions := session.New(storage, cfg.Session.ExpiryTime)
	roles := auth.NewRoleStore(db)
	events := audit.New(db)

	t.Cleanup(events.Wait)

	return &Env{
		Ctx: ctx,
		App: fiber.New(),
		Deps: &handler.Deps{
			Cfg:      cfg,
			DB:       db,
			Sessions: sessions,
			Resolver: auth.NewResolver(db, sessions, tokens, cfg.Session.CookieName),
			Guard:    auth.NewGuard(db),
			Roles:    roles,
			Local:    auth.NewLocalProvider(db),
			Tokens:   tokens,
			TOTP:     auth.NewTOTP(db, cfg.Auth.TOTP.Issuer),
			Audit:    events,
			Storage:  storage,
		},
	}
}

// Role creates a role holding perms.
func (e *Env) Role(t *testing.T, name string, perms ...string) *models.Role {
	t.Helper()

	role, err := e.Deps.Roles.CreateRole(e.Ctx, name, "")
	require.NoError(t, err)
	require.NoError(t, e.Deps.Roles.SyncPermissionNames(e.Ctx, role.ID, perms))

	return role
}

// User creates an active local user with Password.
func (e *Env) User(t *testing.T, username string, roleID uint) *models.User {
	t.Helper()

	hash, err := models.HashPassword(Password)
	require.NoError(t, err)

	u := &models.User{
		Active:     true,
		Username:   username,
		Email:      username + "@example.com",
		Password:   hash,
		RoleID:     roleID,
		AuthSource: models.AuthSourceLocal,
	}
	require.NoError(t, e.Deps.DB.Omit("Role").Create(u).Error)

	return u
}

// Session starts a session for u and returns its id.
func (e *Env) Session(t *testing.T, u *models.User) string {
	t.Helper()

	id, _, err := e.Deps.Sessions.Create(u.ID)
	require.NoError(t, err)

	return id
}

// LoginAs creates a user whose role holds exactly perms and returns a session id.
func (e *Env) LoginAs(t *testing.T, username string, perms ...string) (*models.User, string) {
	t.Helper()

	u := e.User(t, username, e.Role(t, "role-"+username, perms...).ID)

	return u, e.Session(t, u)
}

// Response is a finished test request.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// JSON decodes the body into out.
func (r *Response) JSON(t *testing.T, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, out), "body: %s", r.Body)
}

// Error returns the error message of a JSON error body.
func (r *Response) Error(t *testing.T) string {
	t.Helper()

	var out auth.ErrorResponse
	r.JSON(t, &out)

	return out.Error
}

// Cookie returns the named cookie set by the response.
func (r *Response) Cookie(name string) *http.Cookie {
	for _, c := range (&http.Response{Header: r.Header}).Cookies() {
		if c.Name == name {
			return c
		}
	}

	return nil
}

// Do sends a request. body is encoded as JSON unless nil, sessionID is sent as cookie unless empty.
func (e *Env) Do(t *testing.T, method, target string, body any, sessionID string, headers ...string) *Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: e.Deps.Cfg.Session.CookieName, Value: sessionID})
	}

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := e.App.Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: out}
}

// Events returns the stored security events of a type after pending writes finished.
func (e *Env) Events(t *testing.T, typ string) []models.SecurityEvent {
	t.Helper()

	e.Deps.Audit.Wait()

	events, _, err := e.Deps.Audit.List(e.Ctx, audit.Filter{Type: typ})
	require.NoError(t, err)

	return events
}
