// Package settings provides the integration settings routes of the admin area.
// Secrets are never returned in clear text.
package settings

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/controller/provider"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/controller/setting"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler"
)

// Path is the base path for integration settings.
const Path = handler.AdminPath + "/settings"

// View is the masked settings of one provider.
type View struct {
	Provider   string            `json:"provider"`
	Configured bool              `json:"configured"`
	Settings   provider.Settings `json:"settings"`
}

// Service provides the settings routes.
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

	app.Get(Path, deps.Require(auth.PermSettingsRead), s.List)
	app.Get(Path+"/:provider", deps.Require(auth.PermSettingsRead), s.Get)
	app.Put(Path+"/:provider", deps.Require(auth.PermSettingsEdit), s.Put)

	return nil
}

// load returns the stored settings of name, or empty settings and false if none are stored.
func (s *Service) load(c *fiber.Ctx, name string) (provider.Settings, bool, error) {
	p, err := provider.New(name)
	if err != nil {
		return nil, false, err //nolint:wrapcheck
	}

	err = provider.Load(c.UserContext(), s.deps.DB, p)
	switch {
	case errors.Is(err, setting.ErrSettingNotFound):
		return p, false, nil
	case err != nil:
		return nil, false, err //nolint:wrapcheck
	}

	return p, true, nil
}

// List returns the masked settings of every provider.
func (s *Service) List(c *fiber.Ctx) error {
	names := provider.Names()
	out := make([]View, 0, len(names))

	for _, name := range names {
		p, ok, err := s.load(c, name)
		if err != nil {
			return handler.Fail(c, err)
		}

		out = append(out, View{Provider: name, Configured: ok, Settings: p.Masked()})
	}

	return c.JSON(out)
}

// Get returns the masked settings of one provider.
func (s *Service) Get(c *fiber.Ctx) error {
	name := c.Params("provider")

	p, ok, err := s.load(c, name)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(View{Provider: name, Configured: ok, Settings: p.Masked()})
}

// Put replaces the settings of one provider. Secrets left empty or masked keep their stored value.
func (s *Service) Put(c *fiber.Ctx) error {
	name := c.Params("provider")

	prev, _, err := s.load(c, name)
	if err != nil {
		return handler.Fail(c, err)
	}

	next, _ := provider.New(name)
	if err = c.BodyParser(next); err != nil {
		return handler.Fail(c, handler.ErrBadRequest)
	}

	next.KeepSecrets(prev)

	if err = handler.Validate(next); err != nil {
		return handler.Fail(c, err)
	}

	if err = provider.Save(c.UserContext(), s.deps.DB, next); err != nil {
		return handler.Fail(c, err)
	}

	log.Info().Str("provider", name).Uint64("by", auth.IdentityFromContext(c).UserID).Msg("provider settings saved")

	return c.JSON(View{Provider: name, Configured: true, Settings: next.Masked()})
}
