package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/controller/provider"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
)

// newDiscoveryServer serves a minimal OpenID discovery document.
func newDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()

	var srv *httptest.Server

	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		_, _ = w.Write([]byte(`{
			"issuer": "` + srv.URL + `",
			"authorization_endpoint": "` + srv.URL + `/authorize",
			"token_endpoint": "` + srv.URL + `/token",
			"jwks_uri": "` + srv.URL + `/keys",
			"id_token_signing_alg_values_supported": ["RS256"]
		}`))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestNewOIDCProviderDisabled(t *testing.T) {
	_, err := NewOIDCProvider(t.Context(), nil, nil, nil, "")
	require.ErrorIs(t, err, ErrOIDCDisabled)

	_, err = NewOIDCProvider(t.Context(), &provider.Social{Enabled: false}, nil, nil, "")
	require.ErrorIs(t, err, ErrOIDCDisabled)
}

func TestOIDCAuthURL(t *testing.T) {
	srv := newDiscoveryServer(t)

	p, err := NewOIDCProvider(t.Context(), &provider.Social{
		Enabled:      true,
		Issuer:       srv.URL,
		ClientID:     "storefront",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/auth/oidc/callback",
	}, nil, nil, "Customer Care")
	require.NoError(t, err)

	u, err := url.Parse(p.AuthURL("state-123"))
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/authorize", u.Scheme+"://"+u.Host+u.Path)
	assert.Equal(t, "state-123", u.Query().Get("state"))
	assert.Equal(t, "storefront", u.Query().Get("client_id"))
	assert.Equal(t, "openid profile email", u.Query().Get("scope"))
}

func TestUpsertOIDCUser(t *testing.T) {
	f := newFixture(t)

	care := f.role(t, "Customer Care", PermOrdersRead)
	p := &OIDCProvider{db: f.db, roles: f.roles, defaultRole: "Customer Care"}

	claims := oidcClaims{Sub: "sub-1", Email: "kim@example.com", GivenName: "Kim", FamilyName: "Lee"}

	created, err := p.upsertOIDCUser(f.ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, care.ID, created.RoleID)
	assert.Equal(t, "kim@example.com", created.Username)
	assert.Equal(t, models.AuthSourceOIDC, created.AuthSource)

	claims.GivenName = "Kimberly"
	updated, err := p.upsertOIDCUser(f.ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Kimberly", updated.FirstName)

	// another subject with a username that is already taken
	_, err = p.upsertOIDCUser(f.ctx, oidcClaims{Sub: "sub-2", Email: "kim@example.com"})
	require.ErrorIs(t, err, ErrUserNameOrEmailExists)

	require.NoError(t, NewLocalProvider(f.db).SetActive(f.ctx, created.ID, false))

	_, err = p.upsertOIDCUser(f.ctx, claims)
	require.ErrorIs(t, err, ErrUserAccountDisabled)
}
