// Package handler holds what the HTTP handlers share: their dependencies,
// JSON error responses and request helpers.
package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/audit"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/config"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/session"
)

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, deps *Deps) error
}

// Deps are the collaborators every handler is built from.
type Deps struct {
	Cfg      *config.Config
	DB       *gorm.DB
	Sessions *session.Store
	Resolver *auth.Resolver
	Guard    *auth.Guard
	Roles    *auth.RoleStore
	Local    *auth.LocalProvider
	LDAP     *auth.LDAPProvider // nil when LDAP is disabled
	Tokens   *auth.TokenIssuer  // nil when bearer tokens are disabled
	TOTP     *auth.TOTP
	Audit    *audit.Log
	Storage  fiber.Storage // short lived state such as OIDC login attempts
}

// Check returns ErrNilDeps when a required collaborator is missing.
func (d *Deps) Check() error {
	if d == nil || d.Cfg == nil || d.DB == nil || d.Sessions == nil || d.Resolver == nil ||
		d.Guard == nil || d.Roles == nil || d.Local == nil || d.TOTP == nil || d.Audit == nil {
		return ErrNilDeps
	}

	return nil
}

// Require guards a route with a single permission.
func (d *Deps) Require(permission string) fiber.Handler {
	return auth.RequirePermission(d.Resolver, d.Guard, permission)
}

// Authenticated guards a self service route.
func (d *Deps) Authenticated() fiber.Handler {
	return auth.RequireIdentity(d.Resolver)
}

// RateLimit limits credential endpoints per client address. A limit of 0 disables it.
func (d *Deps) RateLimit() fiber.Handler {
	if d.Cfg.Webserver.LoginRateLimit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return limiter.New(limiter.Config{
		Max:        d.Cfg.Webserver.LoginRateLimit,
		Expiration: rateLimitWindow,
		LimitReached: func(c *fiber.Ctx) error {
			return Error(c, fiber.StatusTooManyRequests, "too many requests")
		},
	})
}
