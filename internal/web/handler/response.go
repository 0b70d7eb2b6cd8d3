package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/controller/page"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/controller/provider"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/controller/setting"
)

// Error writes the JSON error body used by every route.
func Error(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(auth.ErrorResponse{Error: msg})
}

// statusTable maps domain errors to HTTP status codes, first match wins.
var statusTable = []struct { //nolint:gochecknoglobals
	err    error
	status int
}{
	{auth.ErrUnauthenticated, fiber.StatusUnauthorized},
	{auth.ErrForbidden, fiber.StatusForbidden},
	{auth.ErrConflict, fiber.StatusConflict},
	{auth.ErrUserNameOrEmailExists, fiber.StatusConflict},
	{auth.ErrSystemRole, fiber.StatusConflict},
	{auth.ErrRoleInUse, fiber.StatusConflict},
	{page.ErrSlugTaken, fiber.StatusConflict},
	{auth.ErrUnknownPermission, fiber.StatusUnprocessableEntity},
	{auth.ErrInvalidPermission, fiber.StatusUnprocessableEntity},
	{auth.ErrRoleNotFound, fiber.StatusNotFound},
	{auth.ErrUserNotFound, fiber.StatusNotFound},
	{page.ErrPageNotFound, fiber.StatusNotFound},
	{provider.ErrUnknownProvider, fiber.StatusNotFound},
	{setting.ErrSettingNotFound, fiber.StatusNotFound},
	{auth.ErrRoleNameEmpty, fiber.StatusBadRequest},
	{auth.ErrInvalidOldPassword, fiber.StatusBadRequest},
	{auth.ErrInvalidOTP, fiber.StatusBadRequest},
	{auth.ErrOTPNotEnrolled, fiber.StatusBadRequest},
	{page.ErrInvalidSlug, fiber.StatusBadRequest},
	{ErrBadRequest, fiber.StatusBadRequest},
}

// StatusFor returns the HTTP status for err, 500 for anything unexpected.
func StatusFor(err error) int {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return fiber.StatusBadRequest
	}

	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status
		}
	}

	return fiber.StatusInternalServerError
}

// Fail answers with the status matching err. Unexpected errors are logged
// and never leak to the client.
func Fail(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("request failed")
		return Error(c, status, "internal server error")
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return c.Status(status).JSON(verr)
	}

	return Error(c, status, err.Error())
}

// ParamID parses the :id route parameter.
func ParamID(c *fiber.Ctx) (uint64, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrBadRequest
	}

	return id, nil
}

// Pagination returns limit and offset from the page and pageSize query parameters.
func Pagination(c *fiber.Ctx) (int, int) {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	return pageSize, (page - 1) * pageSize
}

// Paged is the envelope of paged list responses.
type Paged[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// NewPaged builds the envelope from the values returned by Pagination.
func NewPaged[T any](items []T, total int64, limit, offset int) Paged[T] {
	if items == nil {
		items = []T{}
	}

	return Paged[T]{Items: items, Total: total, Page: offset/limit + 1, PageSize: limit}
}
