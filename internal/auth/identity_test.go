package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/session"
)

func TestCredentialFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   Credential
	}{
		{name: "nothing", want: NoCredential{}},
		{name: "cookie", cookie: "abc", want: CookieSession{ID: "abc"}},
		{name: "bearer", header: "Bearer tok", want: BearerToken{Raw: "tok"}},
		{name: "bearer lower case", header: "bearer tok", want: BearerToken{Raw: "tok"}},
		{name: "bearer wins over cookie", header: "Bearer tok", cookie: "abc", want: BearerToken{Raw: "tok"}},
		{name: "basic auth is ignored", header: "Basic dXNlcjpwdw==", cookie: "abc", want: CookieSession{ID: "abc"}},
		{name: "short header", header: "Bear", want: NoCredential{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Credential

			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				got = CredentialFromRequest(c, "session")
				return nil
			})

			req := httptest.NewRequest(fiber.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}

			if tt.cookie != "" {
				req.Header.Set(fiber.HeaderCookie, "session="+tt.cookie)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Kind(), got.Kind())
		})
	}
}

func TestResolveCookieSession(t *testing.T) {
	f := newFixture(t)

	role := f.role(t, "Support", PermOrdersRead)
	u := f.user(t, "sam", role.ID)

	id, _, err := f.sessions.Create(u.ID)
	require.NoError(t, err)

	identity, state := f.resolver.Resolve(f.ctx, CookieSession{ID: id})
	require.Equal(t, StateAuthenticated, state)
	require.NotNil(t, identity)
	assert.Equal(t, u.ID, identity.UserID)
	assert.Equal(t, role.ID, identity.RoleID)
	assert.Equal(t, "sam", identity.Username)
	assert.Equal(t, CredentialCookie, identity.Source)
}

func TestResolveStates(t *testing.T) {
	f := newFixture(t)

	role := f.role(t, "Support", PermOrdersRead)
	active := f.user(t, "active", role.ID)
	inactive := f.user(t, "inactive", role.ID)
	deleted := f.user(t, "deleted", role.ID)

	require.NoError(t, NewLocalProvider(f.db).SetActive(f.ctx, inactive.ID, false))
	require.NoError(t, f.db.Delete(deleted).Error)

	sessionFor := func(t *testing.T, userID uint64) string {
		t.Helper()

		id, _, err := f.sessions.Create(userID)
		require.NoError(t, err)

		return id
	}

	expiredID, err := session.GenerateSessionID()
	require.NoError(t, err)
	require.NoError(t, f.sessions.Write(expiredID, &session.Data{
		UserID:    active.ID,
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	corruptID, err := session.GenerateSessionID()
	require.NoError(t, err)
	require.NoError(t, f.sessions.Write(corruptID, &session.Data{ExpiresAt: time.Now().Add(time.Hour)}))

	tests := []struct {
		name string
		cred Credential
		want ResolveState
	}{
		{name: "no credential", cred: NoCredential{}, want: StateUnauthenticated},
		{name: "nil credential", cred: nil, want: StateUnauthenticated},
		{name: "valid session", cred: CookieSession{ID: sessionFor(t, active.ID)}, want: StateAuthenticated},
		{name: "unknown session", cred: CookieSession{ID: "does-not-exist"}, want: StateInvalid},
		{name: "empty session id", cred: CookieSession{}, want: StateInvalid},
		{name: "corrupt session", cred: CookieSession{ID: corruptID}, want: StateInvalid},
		{name: "expired session", cred: CookieSession{ID: expiredID}, want: StateExpired},
		{name: "inactive user", cred: CookieSession{ID: sessionFor(t, inactive.ID)}, want: StateInvalid},
		{name: "deleted user", cred: CookieSession{ID: sessionFor(t, deleted.ID)}, want: StateInvalid},
		{name: "session of unknown user", cred: CookieSession{ID: sessionFor(t, 4711)}, want: StateInvalid},
		{name: "malformed bearer", cred: BearerToken{Raw: "not.a.jwt"}, want: StateInvalid},
		{name: "empty bearer", cred: BearerToken{}, want: StateInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, state := f.resolver.Resolve(f.ctx, tt.cred)
			assert.Equal(t, tt.want, state, "state %s", state)

			if tt.want == StateAuthenticated {
				assert.NotNil(t, identity)
			} else {
				assert.Nil(t, identity)
			}
		})
	}
}

func TestResolveExpiredSessionIsDeleted(t *testing.T) {
	f := newFixture(t)

	u := f.user(t, "sam", f.role(t, "Support").ID)

	id, err := session.GenerateSessionID()
	require.NoError(t, err)
	require.NoError(t, f.sessions.Write(id, &session.Data{UserID: u.ID, ExpiresAt: time.Now().Add(-time.Second)}))

	_, state := f.resolver.Resolve(f.ctx, CookieSession{ID: id})
	require.Equal(t, StateExpired, state)

	// the second attempt no longer finds the session at all
	_, state = f.resolver.Resolve(f.ctx, CookieSession{ID: id})
	assert.Equal(t, StateInvalid, state)
}

func TestResolveBearerToken(t *testing.T) {
	f := newFixture(t)

	role := f.role(t, "Support", PermOrdersRead)
	u := f.user(t, "api", role.ID)

	raw, _, err := f.tokens.Issue(u)
	require.NoError(t, err)

	identity, state := f.resolver.Resolve(f.ctx, BearerToken{Raw: raw})
	require.Equal(t, StateAuthenticated, state)
	assert.Equal(t, u.ID, identity.UserID)
	assert.Equal(t, CredentialBearer, identity.Source)

	f.tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := f.tokens.Issue(u)
	require.NoError(t, err)

	f.tokens.now = time.Now

	identity, state = f.resolver.Resolve(f.ctx, BearerToken{Raw: old})
	assert.Equal(t, StateExpired, state)
	assert.Nil(t, identity)
}

func TestResolveBearerWithoutTokens(t *testing.T) {
	f := newFixture(t)

	u := f.user(t, "api", f.role(t, "Support").ID)

	raw, _, err := f.tokens.Issue(u)
	require.NoError(t, err)

	resolver := NewResolver(f.db, f.sessions, nil, "session")

	identity, state := resolver.Resolve(f.ctx, BearerToken{Raw: raw})
	assert.Equal(t, StateInvalid, state)
	assert.Nil(t, identity)
}

func TestResolveStateString(t *testing.T) {
	assert.Equal(t, "unauthenticated", StateUnauthenticated.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "expired", StateExpired.String())
	assert.Equal(t, "invalid", StateInvalid.String())
}
