package permission

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler/handlertest"
)

func TestList(t *testing.T) {
	env := handlertest.New(t)

	s := &Service{}
	require.NoError(t, s.Init(env.App, env.Deps))

	_, reader := env.LoginAs(t, "reader", auth.PermRolesRead)
	_, other := env.LoginAs(t, "other", auth.PermPagesRead)

	resp := env.Do(t, fiber.MethodGet, Path, nil, reader)
	require.Equal(t, fiber.StatusOK, resp.Status)

	var out Catalog
	resp.JSON(t, &out)
	assert.Equal(t, auth.CatalogVersion, out.Version)

	total := 0
	for _, g := range out.Groups {
		for _, p := range g.Permissions {
			assert.Equal(t, g.Category, auth.Category(p.Name))
		}

		total += len(g.Permissions)
	}

	assert.Len(t, auth.Catalog(), total)

	assert.Equal(t, fiber.StatusForbidden, env.Do(t, fiber.MethodGet, Path, nil, other).Status)
	assert.Equal(t, fiber.StatusUnauthorized, env.Do(t, fiber.MethodGet, Path, nil, "").Status)
}
