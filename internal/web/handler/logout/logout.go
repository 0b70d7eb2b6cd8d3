// Package logout ends cookie sessions.
package logout

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/audit"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler/login"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/session"
)

// Path is the logout path.
const Path = handler.RootPath + "logout"

// Service is the logout handler service.
type Service struct {
	deps *handler.Deps
}

// Handler is the logout handler.
var Handler = Service{}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps.Check() != nil {
		return handler.ErrNilDeps
	}

	s.deps = deps

	app.Post(Path, s.Logout)

	return nil
}

// Logout deletes the session and clears the cookie. It succeeds without a session as well.
func (s *Service) Logout(c *fiber.Ctx) error {
	cookieName := s.deps.Resolver.CookieName()

	if sessionID := c.Cookies(cookieName); sessionID != "" {
		identity, _ := s.deps.Resolver.Resolve(c.UserContext(), auth.CookieSession{ID: sessionID})

		if err := s.deps.Sessions.Delete(sessionID); err != nil && !errors.Is(err, session.ErrEmptyID) {
			log.Error().Err(err).Msg("failed to delete session")
		}

		if identity != nil {
			login.Record(c, s.deps, audit.TypeLogout, &identity.UserID, identity.Username, nil)
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     cookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   !s.deps.Cfg.DevMode,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.SendStatus(fiber.StatusNoContent)
}
