package oidc

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/audit"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/controller/provider"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/controller/setting"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler/login"
)

const (
	// LoginPath is the path to initiate OIDC login.
	LoginPath = handler.RootPath + "auth/oidc/login"

	// CallbackPath is the path for OIDC callback.
	CallbackPath = handler.RootPath + "auth/oidc/callback"

	// AuthType is recorded in login events.
	AuthType = "oidc"

	// StateCookie binds a login attempt to the browser that started it.
	StateCookie = "oidc_state"

	stateKeyPrefix = "oidc_state_"
)

// Service is the OIDC handler service.
type Service struct {
	deps *handler.Deps
}

// Handler is the OIDC handler.
var Handler = Service{}

// Init initializes the OIDC handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps.Check() != nil || deps.Storage == nil {
		return handler.ErrNilDeps
	}

	s.deps = deps

	app.Get(LoginPath, s.Login)
	app.Get(CallbackPath, deps.RateLimit(), s.Callback)

	return nil
}

func (s *Service) provider(c *fiber.Ctx) (*auth.OIDCProvider, error) {
	settings, err := provider.LoadSocial(c.UserContext(), s.deps.DB)
	if errors.Is(err, setting.ErrSettingNotFound) {
		return nil, auth.ErrOIDCDisabled
	}

	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return auth.NewOIDCProvider(c.UserContext(), settings, s.deps.DB, s.deps.Roles, s.deps.Cfg.Auth.OIDC.DefaultRole) //nolint:wrapcheck
}

func (s *Service) unavailable(c *fiber.Ctx, err error) error {
	if errors.Is(err, auth.ErrOIDCDisabled) {
		return handler.Error(c, fiber.StatusNotFound, err.Error())
	}

	log.Error().Err(err).Msg("OIDC provider is not available")

	return handler.Error(c, fiber.StatusServiceUnavailable, "social login is not available")
}

// Login initiates the OIDC login flow.
func (s *Service) Login(c *fiber.Ctx) error {
	p, err := s.provider(c)
	if err != nil {
		return s.unavailable(c, err)
	}

	state := uuid.NewString()
	if err = s.deps.Storage.Set(stateKeyPrefix+state, []byte{1}, s.deps.Cfg.Auth.OIDC.StateTTL); err != nil {
		return handler.Fail(c, err)
	}

	s.stateCookie(c, state, time.Now().Add(s.deps.Cfg.Auth.OIDC.StateTTL))

	return c.Redirect(p.AuthURL(state))
}

// stateCookie sets the state cookie. Lax is required, the callback is a
// top level redirect from the identity provider.
func (s *Service) stateCookie(c *fiber.Ctx, state string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     CallbackPath,
		Expires:  expires,
		Secure:   !s.deps.Cfg.DevMode,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Callback verifies the state, exchanges the code and starts a session.
func (s *Service) Callback(c *fiber.Ctx) error {
	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		return handler.Error(c, fiber.StatusBadRequest, "invalid callback parameters")
	}

	// the state must come back to the browser it was issued to
	bound := c.Cookies(StateCookie)
	if subtle.ConstantTimeCompare([]byte(bound), []byte(state)) != 1 {
		return handler.Error(c, fiber.StatusBadRequest, "invalid or expired state")
	}

	s.stateCookie(c, "", time.Unix(0, 0))

	// a state is only good for one attempt
	stored, err := s.deps.Storage.Get(stateKeyPrefix + state)
	if err != nil {
		return handler.Fail(c, err)
	}

	if len(stored) == 0 {
		return handler.Error(c, fiber.StatusBadRequest, "invalid or expired state")
	}

	if err = s.deps.Storage.Delete(stateKeyPrefix + state); err != nil {
		log.Warn().Err(err).Msg("failed to delete OIDC state")
	}

	p, err := s.provider(c)
	if err != nil {
		return s.unavailable(c, err)
	}

	user, err := p.HandleCallback(c.UserContext(), code)

	switch {
	case errors.Is(err, auth.ErrUserAccountDisabled):
		login.Record(c, s.deps, audit.TypeLoginFailure, &user.ID, user.Username,
			map[string]any{"auth_type": AuthType, "reason": "account disabled"})

		return handler.Error(c, fiber.StatusForbidden, login.ErrAccountDisabled.Error())
	case errors.Is(err, auth.ErrUserNameOrEmailExists):
		return handler.Fail(c, err)
	case err != nil:
		log.Error().Err(err).Msg("OIDC authentication failed")
		login.Record(c, s.deps, audit.TypeLoginFailure, nil, "", map[string]any{"auth_type": AuthType, "reason": "callback failed"})

		return handler.Error(c, fiber.StatusUnauthorized, "authentication failed")
	}

	resp, err := login.Establish(c, s.deps, user, AuthType)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(resp)
}
