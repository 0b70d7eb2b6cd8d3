package login

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/audit"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler"
)

// TokenPath issues bearer tokens for API clients.
const TokenPath = handler.RootPath + "api/token"

// TokenResponse carries a signed bearer token.
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Token exchanges credentials for a bearer token. No session is created.
func (s *Service) Token(c *fiber.Ctx) error {
	if s.deps.Tokens == nil {
		return handler.Error(c, fiber.StatusNotFound, "bearer tokens are disabled")
	}

	var in Credentials
	if err := handler.Bind(c, &in); err != nil {
		return handler.Fail(c, err)
	}

	user, err := s.Verify(c, in)
	if err != nil {
		return s.reject(c, err)
	}

	raw, exp, err := s.deps.Tokens.Issue(user)
	if err != nil {
		return handler.Fail(c, err)
	}

	s.record(c, audit.TypeTokenIssued, &user.ID, user.Username, map[string]any{"expires_at": exp})

	return c.JSON(TokenResponse{Token: raw, TokenType: "Bearer", ExpiresAt: exp})
}
