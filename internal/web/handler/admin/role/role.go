// Package role provides the role management routes of the admin area.
package role

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler"
)

// Path is the base path for role management.
const Path = handler.AdminPath + "/roles"

type (
	createInput struct {
		Name        string `json:"name"        validate:"required,max=100"`
		Description string `json:"description" validate:"max=255"`
	}

	// syncInput replaces the permission set, either by names or by ids.
	syncInput struct {
		Permissions   *[]string `json:"permissions"`
		PermissionIDs *[]uint   `json:"permission_ids"`
	}
)

// Service provides the role routes.
type Service struct {
	deps *handler.Deps
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps.Check() != nil {
		return handler.ErrNilDeps
	}

	s.deps = deps

	app.Get(Path, deps.Require(auth.PermRolesRead), s.List)
	app.Get(Path+"/:id", deps.Require(auth.PermRolesRead), s.Get)
	app.Post(Path, deps.Require(auth.PermRolesCreate), s.Create)
	app.Put(Path+"/:id/permissions", deps.Require(auth.PermRolesEdit), s.SyncPermissions)
	app.Delete(Path+"/:id", deps.Require(auth.PermRolesDelete), s.Delete)

	return nil
}

// List returns every role with its permission set.
func (s *Service) List(c *fiber.Ctx) error {
	roles, err := s.deps.Roles.ListRoles(c.UserContext())
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(roles)
}

// Get returns one role.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.ParamID(c)
	if err != nil {
		return handler.Fail(c, err)
	}

	role, err := s.deps.Roles.GetRole(c.UserContext(), uint(id))
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(role)
}

// Create creates an empty role.
func (s *Service) Create(c *fiber.Ctx) error {
	var in createInput
	if err := handler.Bind(c, &in); err != nil {
		return handler.Fail(c, err)
	}

	role, err := s.deps.Roles.CreateRole(c.UserContext(), in.Name, in.Description)
	if err != nil {
		return handler.Fail(c, err)
	}

	log.Info().Uint("role_id", role.ID).Str("name", role.Name).
		Uint64("by", auth.IdentityFromContext(c).UserID).Msg("role created")

	view, err := s.deps.Roles.GetRole(c.UserContext(), role.ID)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(view)
}

// SyncPermissions replaces the permission set of a role.
func (s *Service) SyncPermissions(c *fiber.Ctx) error {
	id, err := handler.ParamID(c)
	if err != nil {
		return handler.Fail(c, err)
	}

	var in syncInput
	if err = c.BodyParser(&in); err != nil {
		return handler.Fail(c, handler.ErrBadRequest)
	}

	ctx := c.UserContext()

	switch {
	case in.Permissions != nil && in.PermissionIDs == nil:
		err = s.deps.Roles.SyncPermissionNames(ctx, uint(id), *in.Permissions)
	case in.PermissionIDs != nil && in.Permissions == nil:
		err = s.deps.Roles.SyncPermissions(ctx, uint(id), *in.PermissionIDs)
	default:
		return handler.Error(c, fiber.StatusBadRequest, "exactly one of permissions or permission_ids is required")
	}

	if err != nil {
		return handler.Fail(c, err)
	}

	view, err := s.deps.Roles.GetRole(ctx, uint(id))
	if err != nil {
		return handler.Fail(c, err)
	}

	log.Info().Uint("role_id", view.ID).Strs("permissions", view.Permissions).
		Uint64("by", auth.IdentityFromContext(c).UserID).Msg("role permissions replaced")

	return c.JSON(view)
}

// Delete removes a role nobody holds.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParamID(c)
	if err != nil {
		return handler.Fail(c, err)
	}

	if err = s.deps.Roles.DeleteRole(c.UserContext(), uint(id)); err != nil {
		return handler.Fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
