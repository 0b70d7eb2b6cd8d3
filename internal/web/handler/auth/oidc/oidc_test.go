package oidc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/controller/provider"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler/handlertest"
)

func newEnv(t *testing.T) *handlertest.Env {
	t.Helper()

	env := handlertest.New(t)

	s := &Service{}
	require.NoError(t, s.Init(env.App, env.Deps))

	return env
}

func newDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()

	var srv *httptest.Server

	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		_, _ = w.Write([]byte(`{"issuer":"` + srv.URL + `","authorization_endpoint":"` + srv.URL +
			`/authorize","token_endpoint":"` + srv.URL + `/token","jwks_uri":"` + srv.URL + `/keys"}`))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestLoginDisabled(t *testing.T) {
	env := newEnv(t)

	resp := env.Do(t, fiber.MethodGet, LoginPath, nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.Status)

	require.NoError(t, provider.Save(context.Background(), env.Deps.DB, &provider.Social{Enabled: false}))

	resp = env.Do(t, fiber.MethodGet, LoginPath, nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.Status)
}

func TestLoginRedirectsWithState(t *testing.T) {
	env := newEnv(t)
	srv := newDiscoveryServer(t)

	require.NoError(t, provider.Save(context.Background(), env.Deps.DB, &provider.Social{
		Enabled:      true,
		Issuer:       srv.URL,
		ClientID:     "storefront",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080" + CallbackPath,
	}))

	resp := env.Do(t, fiber.MethodGet, LoginPath, nil, "")
	require.Equal(t, fiber.StatusFound, resp.Status)

	location, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "/authorize", location.Path)

	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	stored, err := env.Deps.Storage.Get(stateKeyPrefix + state)
	require.NoError(t, err)
	assert.NotEmpty(t, stored)

	cookie := resp.Cookie(StateCookie)
	require.NotNil(t, cookie)
	assert.Equal(t, state, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, CallbackPath, cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func stateCookie(state string) []string {
	return []string{fiber.HeaderCookie, StateCookie + "=" + state}
}

func TestCallbackRejectsBadState(t *testing.T) {
	env := newEnv(t)

	require.NoError(t, env.Deps.Storage.Set(stateKeyPrefix+"issued", []byte{1}, 0))

	tests := []struct {
		name    string
		query   string
		headers []string
		want    string
	}{
		{name: "missing code", query: "?state=abc", want: "invalid callback parameters"},
		{name: "missing state", query: "?code=abc", want: "invalid callback parameters"},
		{name: "unknown state", query: "?code=abc&state=forged", headers: stateCookie("forged"), want: "invalid or expired state"},
		{name: "valid state without cookie", query: "?code=abc&state=issued", want: "invalid or expired state"},
		{name: "valid state from another browser", query: "?code=abc&state=issued", headers: stateCookie("other"), want: "invalid or expired state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.Do(t, fiber.MethodGet, CallbackPath+tt.query, nil, "", tt.headers...)
			assert.Equal(t, fiber.StatusBadRequest, resp.Status)
			assert.Equal(t, tt.want, resp.Error(t))
		})
	}

	// a rejected callback does not burn the state of the real browser
	stored, err := env.Deps.Storage.Get(stateKeyPrefix + "issued")
	require.NoError(t, err)
	assert.NotEmpty(t, stored)
}

func TestCallbackStateIsSingleUse(t *testing.T) {
	env := newEnv(t)

	require.NoError(t, env.Deps.Storage.Set(stateKeyPrefix+"once", []byte{1}, 0))

	// social login is not configured, but the state is consumed first
	resp := env.Do(t, fiber.MethodGet, CallbackPath+"?code=abc&state=once", nil, "", stateCookie("once")...)
	assert.Equal(t, fiber.StatusNotFound, resp.Status)

	resp = env.Do(t, fiber.MethodGet, CallbackPath+"?code=abc&state=once", nil, "", stateCookie("once")...)
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
}
