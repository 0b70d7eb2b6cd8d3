package logout

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/audit"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler/handlertest"
)

func TestLogout(t *testing.T) {
	env := handlertest.New(t)

	s := &Service{}
	require.NoError(t, s.Init(env.App, env.Deps))

	u, sessionID := env.LoginAs(t, "alice", auth.PermOrdersRead)

	resp := env.Do(t, fiber.MethodPost, Path, nil, sessionID)
	assert.Equal(t, fiber.StatusNoContent, resp.Status)

	cookie := resp.Cookie("session")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)

	_, state := env.Deps.Resolver.Resolve(env.Ctx, auth.CookieSession{ID: sessionID})
	assert.Equal(t, auth.StateInvalid, state)

	events := env.Events(t, audit.TypeLogout)
	require.Len(t, events, 1)
	assert.Equal(t, u.ID, *events[0].UserID)

	// without a session it still clears the cookie
	resp = env.Do(t, fiber.MethodPost, Path, nil, "")
	assert.Equal(t, fiber.StatusNoContent, resp.Status)
	assert.Len(t, env.Events(t, audit.TypeLogout), 1)
}
