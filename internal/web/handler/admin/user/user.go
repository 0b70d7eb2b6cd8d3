// Package user provides the user management routes of the admin area.
package user

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler"
)

// Path is the base path for user management.
const Path = handler.AdminPath + "/users"

// View is the admin representation of an account.
type View struct {
	ID          uint64            `json:"id"`
	Username    string            `json:"username"`
	Email       string            `json:"email"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	Active      bool              `json:"active"`
	RoleID      uint              `json:"role_id"`
	AuthSource  models.AuthSource `json:"auth_source"`
	TOTPEnabled bool              `json:"totp_enabled"`
	LastLoginAt *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func newView(u *models.User) View {
	return View{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Active:      u.Active,
		RoleID:      u.RoleID,
		AuthSource:  u.AuthSource,
		TOTPEnabled: u.TOTPEnabled,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

type (
	roleInput struct {
		RoleID uint `json:"role_id" validate:"required"`
	}

	activeInput struct {
		Active *bool `json:"active" validate:"required"`
	}
)

// Service provides the user routes.
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

	app.Get(Path, deps.Require(auth.PermUsersRead), s.List)
	app.Get(Path+"/:id", deps.Require(auth.PermUsersRead), s.Get)
	app.Post(Path, deps.Require(auth.PermUsersCreate), s.Create)
	app.Put(Path+"/:id/role", deps.Require(auth.PermUsersEdit), s.AssignRole)
	app.Put(Path+"/:id/active", deps.Require(auth.PermUsersEdit), s.SetActive)

	return nil
}

// List returns a page of users ordered by username.
func (s *Service) List(c *fiber.Ctx) error {
	limit, offset := handler.Pagination(c)

	users, total, err := s.deps.Local.ListUsers(c.UserContext(), limit, offset)
	if err != nil {
		return handler.Fail(c, err)
	}

	views := make([]View, 0, len(users))
	for i := range users {
		views = append(views, newView(&users[i]))
	}

	return c.JSON(handler.NewPaged(views, total, limit, offset))
}

// Get returns one user.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.ParamID(c)
	if err != nil {
		return handler.Fail(c, err)
	}

	u, err := s.deps.Local.GetUserByID(c.UserContext(), id)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(newView(u))
}

// Create creates a local account.
func (s *Service) Create(c *fiber.Ctx) error {
	var in auth.NewUser
	if err := handler.Bind(c, &in); err != nil {
		return handler.Fail(c, err)
	}

	u, err := s.deps.Local.CreateUser(c.UserContext(), in)
	if err != nil {
		return handler.Fail(c, err)
	}

	log.Info().Uint64("user_id", u.ID).Str("username", u.Username).Uint("role_id", u.RoleID).
		Uint64("by", auth.IdentityFromContext(c).UserID).Msg("user created")

	return c.Status(fiber.StatusCreated).JSON(newView(u))
}

// AssignRole replaces the role of a user. It takes effect on the user's next request.
func (s *Service) AssignRole(c *fiber.Ctx) error {
	id, err := handler.ParamID(c)
	if err != nil {
		return handler.Fail(c, err)
	}

	var in roleInput
	if err = handler.Bind(c, &in); err != nil {
		return handler.Fail(c, err)
	}

	ctx := c.UserContext()

	if err = s.deps.Roles.AssignRole(ctx, id, in.RoleID); err != nil {
		return handler.Fail(c, err)
	}

	log.Info().Uint64("user_id", id).Uint("role_id", in.RoleID).
		Uint64("by", auth.IdentityFromContext(c).UserID).Msg("role assigned")

	u, err := s.deps.Local.GetUserByID(ctx, id)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(newView(u))
}

// SetActive enables or disables an account. Nobody can disable their own account.
func (s *Service) SetActive(c *fiber.Ctx) error {
	id, err := handler.ParamID(c)
	if err != nil {
		return handler.Fail(c, err)
	}

	var in activeInput
	if err = handler.Bind(c, &in); err != nil {
		return handler.Fail(c, err)
	}

	if !*in.Active && auth.IdentityFromContext(c).UserID == id {
		return handler.Error(c, fiber.StatusBadRequest, "cannot deactivate your own account")
	}

	ctx := c.UserContext()

	if err = s.deps.Local.SetActive(ctx, id, *in.Active); err != nil {
		return handler.Fail(c, err)
	}

	log.Info().Uint64("user_id", id).Bool("active", *in.Active).
		Uint64("by", auth.IdentityFromContext(c).UserID).Msg("user activation changed")

	u, err := s.deps.Local.GetUserByID(ctx, id)
	if err != nil {
		return handler.Fail(c, err)
	}

	return c.JSON(newView(u))
}
