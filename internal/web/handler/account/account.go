// Package account serves the self service routes of a logged in user.
// They only need an authenticated identity, no permission.
package account

import (
	"github.com/gofiber/fiber/v2"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler"
)

// Path is the base path of the account routes.
const Path = handler.RootPath + "account"

// View is the current identity with its live permission set.
type View struct {
	UserID      uint64   `json:"user_id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	RoleID      uint     `json:"role_id"`
	Role        string   `json:"role"`
	AuthSource  string   `json:"auth_source"`
	TOTPEnabled bool     `json:"totp_enabled"`
	Permissions []string `json:"permissions"`
}

// Enrollment is returned when a second factor is enrolled.
type Enrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

type (
	codeRequest struct {
		Code string `json:"code" validate:"required,numeric,len=6"`
	}

	// enrollRequest carries a code of the current secret when a factor is enabled.
	enrollRequest struct {
		Code string `json:"code" validate:"omitempty,numeric,len=6"`
	}

	passwordRequest struct {
		OldPassword string `json:"old_password" validate:"required"`
		NewPassword string `json:"new_password" validate:"required,min=8,nefield=OldPassword"`
	}
)

// Service is the account handler service.
type Service struct {
	deps *handler.Deps
}

// Handler is the account handler.
var Handler = Service{}

// Init registers the account routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps.Check() != nil {
		return handler.ErrNilDeps
	}

	s.deps = deps

	app.Route(Path, func(router fiber.Router) {
		router.Use(deps.Authenticated())
		router.Get(handler.RouterRootPath, s.Get)
		router.Post("/totp", s.EnrollTOTP)
		router.Post("/totp/confirm", s.ConfirmTOTP)
		router.Post("/password", s.ChangePassword)
	})

	return nil
}

func (s *Service) currentUser(c *fiber.Ctx) (*auth.Identity, *models.User, error) {
	identity := auth.IdentityFromContext(c)

	user, err := s.deps.Local.GetUserByID(c.UserContext(), identity.UserID)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}

	return identity, user, nil
}

// Get returns the identity and its current permissions.
func (s *Service) Get(c *fiber.Ctx) error {
	identity, user, err := s.currentUser(c)
	if err != nil {
		return handler.Fail(c, err)
	}

	perms, err := s.deps.Guard.Permissions(c.UserContext(), identity)
	if err != nil {
		return handler.Fail(c, err)
	}

	role, err := s.deps.Roles.GetRole(c.UserContext(), identity.RoleID)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(View{
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		RoleID:      role.ID,
		Role:        role.Name,
		AuthSource:  string(user.AuthSource),
		TOTPEnabled: user.TOTPEnabled,
		Permissions: perms,
	})
}

// EnrollTOTP generates a new secret. It is enforced after ConfirmTOTP.
// Replacing an enabled factor needs a code of the current one.
func (s *Service) EnrollTOTP(c *fiber.Ctx) error {
	var in enrollRequest
	if len(c.Body()) > 0 {
		if err := handler.Bind(c, &in); err != nil {
			return handler.Fail(c, err)
		}
	}

	_, user, err := s.currentUser(c)
	if err != nil {
		return handler.Fail(c, err)
	}

	if user.AuthSource != models.AuthSourceLocal {
		return handler.Error(c, fiber.StatusBadRequest, "second factor is only available for local accounts")
	}

	key, err := s.deps.TOTP.Enroll(c.UserContext(), user, in.Code)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(Enrollment{Secret: key.Secret(), URL: key.URL()})
}

// ConfirmTOTP enables the second factor.
func (s *Service) ConfirmTOTP(c *fiber.Ctx) error {
	var in codeRequest
	if err := handler.Bind(c, &in); err != nil {
		return handler.Fail(c, err)
	}

	_, user, err := s.currentUser(c)
	if err != nil {
		return handler.Fail(c, err)
	}

	if err = s.deps.TOTP.Confirm(c.UserContext(), user, in.Code); err != nil {
		return handler.Fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ChangePassword changes the password of a local account.
func (s *Service) ChangePassword(c *fiber.Ctx) error {
	var in passwordRequest
	if err := handler.Bind(c, &in); err != nil {
		return handler.Fail(c, err)
	}

	identity := auth.IdentityFromContext(c)

	if err := s.deps.Local.ChangePassword(c.UserContext(), identity.UserID, in.OldPassword, in.NewPassword); err != nil {
		return handler.Fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
