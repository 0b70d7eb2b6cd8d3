package login

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/audit"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler"
)

const (
	// Path is the path of the session login.
	Path = handler.RootPath + "login"

	// AuthTypeLocal authenticates against the users table.
	AuthTypeLocal = "local"
	// AuthTypeLDAP authenticates against the staff directory.
	AuthTypeLDAP = "ldap"
)

// Credentials is the login form, accepted as form or JSON body.
type Credentials struct {
	Username string `json:"username"  form:"username"  validate:"required,max=100"`
	Password string `json:"password"  form:"password"  validate:"required"`
	OTP      string `json:"otp"       form:"otp"`
	AuthType string `json:"auth_type" form:"auth_type" validate:"omitempty,oneof=local ldap"`
}

// Response is returned after a successful login.
type Response struct {
	UserID    uint64    `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service is the login handler service.
type Service struct {
	deps *handler.Deps
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps.Check() != nil {
		return handler.ErrNilDeps
	}

	s.deps = deps

	app.Post(Path, deps.RateLimit(), s.Post)
	app.Post(TokenPath, deps.RateLimit(), s.Token)

	return nil
}

// Post handles the login submission and starts a cookie session.
func (s *Service) Post(c *fiber.Ctx) error {
	var in Credentials
	if err := handler.Bind(c, &in); err != nil {
		return handler.Fail(c, err)
	}

	user, err := s.Verify(c, in)
	if err != nil {
		return s.reject(c, err)
	}

	resp, err := Establish(c, s.deps, user, in.authType())
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(resp)
}

func (in Credentials) authType() string {
	if in.AuthType == "" {
		return AuthTypeLocal
	}

	return in.AuthType
}

// Verify checks username, password and second factor. Failures are recorded as security events.
func (s *Service) Verify(c *fiber.Ctx, in Credentials) (*models.User, error) {
	ctx := c.UserContext()

	user, err := s.authenticate(ctx, in)

	switch {
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrInvalidPassword):
		s.record(c, audit.TypeLoginFailure, nil, in.Username, map[string]any{"auth_type": in.authType(), "reason": "invalid credentials"})
		return nil, ErrInvalidCredentials
	case errors.Is(err, auth.ErrUserAccountDisabled):
		s.record(c, audit.TypeLoginFailure, userID(user), in.Username, map[string]any{"auth_type": in.authType(), "reason": "account disabled"})
		return nil, ErrAccountDisabled
	case err != nil:
		return nil, err
	}

	if err = s.deps.TOTP.Verify(user, in.OTP); err != nil {
		s.record(c, audit.TypeLoginOTPFailure, &user.ID, user.Username, map[string]any{"auth_type": in.authType()})
		return nil, ErrOTPRequired
	}

	return user, nil
}

func (s *Service) authenticate(ctx context.Context, in Credentials) (*models.User, error) {
	switch in.authType() {
	case AuthTypeLocal:
		if !s.deps.Cfg.Auth.LocalDB.Enabled {
			return nil, ErrLocalAuthDisabled
		}

		return s.deps.Local.Authenticate(ctx, in.Username, in.Password) //nolint:wrapcheck
	case AuthTypeLDAP:
		if s.deps.LDAP == nil {
			return nil, ErrLDAPAuthDisabled
		}

		return s.deps.LDAP.Authenticate(ctx, in.Username, in.Password) //nolint:wrapcheck
	default:
		return nil, ErrInvalidAuthMethod
	}
}

func (s *Service) reject(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrOTPRequired):
		return handler.Error(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrAccountDisabled):
		return handler.Error(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrLocalAuthDisabled), errors.Is(err, ErrLDAPAuthDisabled), errors.Is(err, ErrInvalidAuthMethod):
		return handler.Error(c, fiber.StatusBadRequest, err.Error())
	default:
		return handler.Fail(c, err)
	}
}

func (s *Service) record(c *fiber.Ctx, typ string, uid *uint64, username string, details map[string]any) {
	Record(c, s.deps, typ, uid, username, details)
}

// Record writes a security event with the client address and user agent of c.
func Record(c *fiber.Ctx, deps *handler.Deps, typ string, uid *uint64, username string, details map[string]any) {
	deps.Audit.Record(c.UserContext(), audit.Event{
		Type:      typ,
		UserID:    uid,
		Username:  username,
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Details:   details,
	})
}

func userID(u *models.User) *uint64 {
	if u == nil {
		return nil
	}

	return &u.ID
}

// Establish starts a session for an authenticated user, sets the session cookie
// and records the login. Shared by every interactive login flow.
func Establish(c *fiber.Ctx, deps *handler.Deps, user *models.User, authType string) (*Response, error) {
	ip := c.IP()

	previous, err := deps.Local.RecordLogin(c.UserContext(), user, ip)
	if err != nil {
		// bookkeeping only, the login itself is valid
		log.Warn().Err(err).Uint64("user_id", user.ID).Msg("failed to record login address")
	}

	if previous != "" && previous != ip {
		Record(c, deps, audit.TypeIPChanged, &user.ID, user.Username, map[string]any{"previous_ip": previous})
	}

	id, data, err := deps.Sessions.Create(user.ID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	c.Cookie(&fiber.Cookie{
		Name:     deps.Resolver.CookieName(),
		Value:    id,
		Expires:  data.ExpiresAt,
		MaxAge:   int(deps.Sessions.Expiry().Seconds()),
		Secure:   !deps.Cfg.DevMode,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	Record(c, deps, audit.TypeLoginSuccess, &user.ID, user.Username, map[string]any{"auth_type": authType})

	log.Info().Uint64("user_id", user.ID).Str("username", user.Username).Str("auth_type", authType).Msg("user logged in")

	return &Response{UserID: user.ID, Username: user.Username, ExpiresAt: data.ExpiresAt}, nil
}
