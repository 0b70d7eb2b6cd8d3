// Package securityevent provides read access to the security event log.
package securityevent

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/audit"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler"
)

// Path is the security event list.
const Path = handler.AdminPath + "/security-events"

// View is one event as returned by the API.
type View struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	UserID    *uint64         `json:"user_id"`
	Username  string          `json:"username"`
	IP        string          `json:"ip"`
	UserAgent string          `json:"user_agent"`
	Details   json.RawMessage `json:"details"`
	CreatedAt time.Time       `json:"created_at"`
}

func newView(e *models.SecurityEvent) View {
	details := json.RawMessage(e.Details)
	if !json.Valid(details) {
		details = json.RawMessage("{}")
	}

	return View{
		ID:        e.ID,
		Type:      e.Type,
		UserID:    e.UserID,
		Username:  e.Username,
		IP:        e.IP,
		UserAgent: e.UserAgent,
		Details:   details,
		CreatedAt: e.CreatedAt,
	}
}

// Service provides the security event routes.
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

	app.Get(Path, deps.Require(auth.PermSecurityRead), s.List)

	return nil
}

// List returns a page of events, newest first, optionally filtered by type and user_id.
func (s *Service) List(c *fiber.Ctx) error {
	limit, offset := handler.Pagination(c)

	f := audit.Filter{Type: c.Query("type"), Limit: limit, Offset: offset}

	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return handler.Fail(c, handler.ErrBadRequest)
		}

		f.UserID = &id
	}

	events, total, err := s.deps.Audit.List(c.UserContext(), f)
	if err != nil {
		return handler.Fail(c, err)
	}

	views := make([]View, 0, len(events))
	for i := range events {
		views = append(views, newView(&events[i]))
	}

	return c.JSON(handler.NewPaged(views, total, limit, offset))
}
