// Package permission lists the permission catalog for role editing.
package permission

import (
	"github.com/gofiber/fiber/v2"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler"
)

// Path is the permission catalog route.
const Path = handler.AdminPath + "/permissions"

// Catalog is the response of the catalog route.
type Catalog struct {
	Version int                    `json:"version"`
	Groups  []auth.PermissionGroup `json:"groups"`
}

// Service is the permission handler service.
type Service struct {
	deps *handler.Deps
}

// Handler is the permission handler.
var Handler = Service{}

// Init registers the route.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps.Check() != nil {
		return handler.ErrNilDeps
	}

	s.deps = deps

	app.Get(Path, deps.Require(auth.PermRolesRead), s.List)

	return nil
}

// List returns the seeded catalog permissions grouped by category.
func (s *Service) List(c *fiber.Ctx) error {
	groups, err := auth.ListPermissions(c.UserContext(), s.deps.DB)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(Catalog{Version: auth.CatalogVersion, Groups: groups})
}
