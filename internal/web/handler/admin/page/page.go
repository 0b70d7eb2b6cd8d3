// Package page provides the CMS page routes of the admin area.
package page

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	controller "github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/controller/page"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler"
)

// Path is the base path for page management.
const Path = handler.AdminPath + "/pages"

// Service provides the page routes.
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

	app.Get(Path, deps.Require(auth.PermPagesRead), s.List)
	app.Get(Path+"/:id", deps.Require(auth.PermPagesRead), s.Get)
	app.Post(Path, deps.Require(auth.PermPagesCreate), s.Create)
	app.Put(Path+"/:id", deps.Require(auth.PermPagesEdit), s.Update)
	app.Delete(Path+"/:id", deps.Require(auth.PermPagesDelete), s.Delete)

	return nil
}

// List returns all pages.
func (s *Service) List(c *fiber.Ctx) error {
	pages, err := controller.List(c.UserContext(), s.deps.DB)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(pages)
}

// Get returns one page.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.ParamID(c)
	if err != nil {
		return handler.Fail(c, err)
	}

	p, err := controller.Get(c.UserContext(), s.deps.DB, uint(id))
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(p)
}

// Create stores a new page.
func (s *Service) Create(c *fiber.Ctx) error {
	var in controller.Input
	if err := handler.Bind(c, &in); err != nil {
		return handler.Fail(c, err)
	}

	p, err := controller.Create(c.UserContext(), s.deps.DB, in)
	if err != nil {
		return handler.Fail(c, err)
	}

	log.Info().Uint("page_id", p.ID).Str("slug", p.Slug).
		Uint64("by", auth.IdentityFromContext(c).UserID).Msg("page created")

	return c.Status(fiber.StatusCreated).JSON(p)
}

// Update replaces the editable fields of a page.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParamID(c)
	if err != nil {
		return handler.Fail(c, err)
	}

	var in controller.Input
	if err = handler.Bind(c, &in); err != nil {
		return handler.Fail(c, err)
	}

	p, err := controller.Update(c.UserContext(), s.deps.DB, uint(id), in)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(p)
}

// Delete removes a page.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParamID(c)
	if err != nil {
		return handler.Fail(c, err)
	}

	if err = controller.Delete(c.UserContext(), s.deps.DB, uint(id)); err != nil {
		return handler.Fail(c, err)
	}

	log.Info().Uint64("page_id", id).Uint64("by", auth.IdentityFromContext(c).UserID).Msg("page deleted")

	return c.SendStatus(fiber.StatusNoContent)
}
